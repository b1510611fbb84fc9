package transfer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	domain "github.com/velohr/settlement/pkg/domain/payout"
)

// Transfer is the persisted form of a provider transfer. The event log
// and payload snapshots are stored as jsonb.
type Transfer struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	PayoutID  uuid.UUID `gorm:"type:uuid;index;not null"`
	AttemptID uuid.UUID `gorm:"type:uuid;index;not null"`

	Status         string `gorm:"type:varchar(16);not null;default:'PENDING';index:idx_transfers_due"`
	ProviderStatus string `gorm:"type:varchar(64)"`

	QuoteID        string `gorm:"type:varchar(128)"`
	TransactionRef string `gorm:"type:varchar(128);index"`

	RequestSnapshot  []byte `gorm:"type:jsonb"`
	ResponseSnapshot []byte `gorm:"type:jsonb"`
	Events           []byte `gorm:"type:jsonb"`

	PollCount    int `gorm:"not null;default:0"`
	LastPolledAt *time.Time
	NextPollAt   *time.Time `gorm:"index:idx_transfers_due"`

	FailureMessage string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for the Transfer model.
func (Transfer) TableName() string { return "transfers" }

func toModel(t *domain.Transfer) (*Transfer, error) {
	events, err := json.Marshal(t.Events)
	if err != nil {
		return nil, err
	}
	return &Transfer{
		ID:               t.ID,
		PayoutID:         t.PayoutID,
		AttemptID:        t.AttemptID,
		Status:           string(t.Status),
		ProviderStatus:   t.ProviderStatus,
		QuoteID:          t.QuoteID,
		TransactionRef:   t.TransactionRef,
		RequestSnapshot:  t.RequestSnapshot,
		ResponseSnapshot: t.ResponseSnapshot,
		Events:           events,
		PollCount:        t.PollCount,
		LastPolledAt:     t.LastPolledAt,
		NextPollAt:       t.NextPollAt,
		FailureMessage:   t.FailureMessage,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}, nil
}

func toDomain(m *Transfer) (*domain.Transfer, error) {
	var events []domain.TransferEvent
	if len(m.Events) > 0 {
		if err := json.Unmarshal(m.Events, &events); err != nil {
			return nil, err
		}
	}
	return &domain.Transfer{
		ID:               m.ID,
		PayoutID:         m.PayoutID,
		AttemptID:        m.AttemptID,
		Status:           domain.TransferStatus(m.Status),
		ProviderStatus:   m.ProviderStatus,
		QuoteID:          m.QuoteID,
		TransactionRef:   m.TransactionRef,
		RequestSnapshot:  m.RequestSnapshot,
		ResponseSnapshot: m.ResponseSnapshot,
		Events:           events,
		PollCount:        m.PollCount,
		LastPolledAt:     m.LastPolledAt,
		NextPollAt:       m.NextPollAt,
		FailureMessage:   m.FailureMessage,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}, nil
}
