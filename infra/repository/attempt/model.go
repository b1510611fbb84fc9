package attempt

import (
	"time"

	"github.com/google/uuid"
	domain "github.com/velohr/settlement/pkg/domain/payout"
)

// Attempt is the persisted form of a payment attempt.
type Attempt struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	PayoutID uuid.UUID `gorm:"type:uuid;index;not null"`

	Amount   int64  `gorm:"not null"`
	Currency string `gorm:"type:varchar(3);not null"`
	Provider string `gorm:"type:varchar(32);not null"`

	IdempotencyKey string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Status         string `gorm:"type:varchar(16);not null;default:'PENDING'"`
	RetryCount     int    `gorm:"not null;default:0"`

	ProviderRef    string `gorm:"type:varchar(128)"`
	FailureCode    string `gorm:"type:varchar(64)"`
	FailureMessage string `gorm:"type:text"`

	NextRetryAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for the Attempt model.
func (Attempt) TableName() string { return "payment_attempts" }

func toModel(a *domain.Attempt) *Attempt {
	return &Attempt{
		ID:             a.ID,
		PayoutID:       a.PayoutID,
		Amount:         a.Amount,
		Currency:       a.Currency,
		Provider:       a.Provider,
		IdempotencyKey: a.IdempotencyKey,
		Status:         string(a.Status),
		RetryCount:     a.RetryCount,
		ProviderRef:    a.ProviderRef,
		FailureCode:    a.FailureCode,
		FailureMessage: a.FailureMessage,
		NextRetryAt:    a.NextRetryAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func toDomain(m *Attempt) *domain.Attempt {
	return &domain.Attempt{
		ID:             m.ID,
		PayoutID:       m.PayoutID,
		Amount:         m.Amount,
		Currency:       m.Currency,
		Provider:       m.Provider,
		IdempotencyKey: m.IdempotencyKey,
		Status:         domain.AttemptStatus(m.Status),
		RetryCount:     m.RetryCount,
		ProviderRef:    m.ProviderRef,
		FailureCode:    m.FailureCode,
		FailureMessage: m.FailureMessage,
		NextRetryAt:    m.NextRetryAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
