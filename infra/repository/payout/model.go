package payout

import (
	"time"

	"github.com/google/uuid"
	domain "github.com/velohr/settlement/pkg/domain/payout"
)

// Payout is the persisted form of a domain payout.
type Payout struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	EmployerID uuid.UUID  `gorm:"type:uuid;index;not null"`
	EmployeeID uuid.UUID  `gorm:"type:uuid;index;not null"`
	MethodID   *uuid.UUID `gorm:"type:uuid"`
	BatchID    *uuid.UUID `gorm:"type:uuid;index"`
	Category   string     `gorm:"type:varchar(16);not null"`

	Amount   int64  `gorm:"not null"`
	Currency string `gorm:"type:varchar(3);not null"`

	Provider    string `gorm:"type:varchar(32)"`
	ProviderRef string `gorm:"type:varchar(128)"`

	Status        string `gorm:"type:varchar(16);not null;default:'PENDING'"`
	FailureReason string `gorm:"type:text"`

	SourceType string    `gorm:"type:varchar(64);index:idx_payouts_source"`
	SourceID   uuid.UUID `gorm:"type:uuid;index:idx_payouts_source"`

	EmployerTxID *uuid.UUID `gorm:"type:uuid"`
	EmployeeTxID *uuid.UUID `gorm:"type:uuid"`

	ManualIdempotencyKey string `gorm:"type:varchar(128)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for the Payout model.
func (Payout) TableName() string { return "payouts" }

func toModel(p *domain.Payout) *Payout {
	return &Payout{
		ID:                   p.ID,
		EmployerID:           p.EmployerID,
		EmployeeID:           p.EmployeeID,
		MethodID:             p.MethodID,
		BatchID:              p.BatchID,
		Category:             string(p.Category),
		Amount:               p.Amount,
		Currency:             p.Currency,
		Provider:             p.Provider,
		ProviderRef:          p.ProviderRef,
		Status:               string(p.Status),
		FailureReason:        p.FailureReason,
		SourceType:           p.SourceType,
		SourceID:             p.SourceID,
		EmployerTxID:         p.EmployerTxID,
		EmployeeTxID:         p.EmployeeTxID,
		ManualIdempotencyKey: p.ManualIdempotencyKey,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func toDomain(m *Payout) *domain.Payout {
	return &domain.Payout{
		ID:                   m.ID,
		EmployerID:           m.EmployerID,
		EmployeeID:           m.EmployeeID,
		MethodID:             m.MethodID,
		BatchID:              m.BatchID,
		Category:             domain.Category(m.Category),
		Amount:               m.Amount,
		Currency:             m.Currency,
		Provider:             m.Provider,
		ProviderRef:          m.ProviderRef,
		Status:               domain.Status(m.Status),
		FailureReason:        m.FailureReason,
		SourceType:           m.SourceType,
		SourceID:             m.SourceID,
		EmployerTxID:         m.EmployerTxID,
		EmployeeTxID:         m.EmployeeTxID,
		ManualIdempotencyKey: m.ManualIdempotencyKey,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}
