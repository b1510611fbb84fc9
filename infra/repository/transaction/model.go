package transaction

import (
	"time"

	"github.com/google/uuid"
	domain "github.com/velohr/settlement/pkg/domain/payout"
)

// Transaction is the persisted form of a ledger row.
type Transaction struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	PayoutID   uuid.UUID `gorm:"type:uuid;index;not null"`
	EmployerID uuid.UUID `gorm:"type:uuid;index;not null"`
	EmployeeID uuid.UUID `gorm:"type:uuid;index;not null"`

	Direction string `gorm:"type:varchar(8);not null"`
	Amount    int64  `gorm:"not null"`
	Currency  string `gorm:"type:varchar(3);not null"`
	Status    string `gorm:"type:varchar(16);not null;default:'PENDING'"`

	ReversalOfID *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for the Transaction model.
func (Transaction) TableName() string { return "payout_transactions" }

func toModel(t *domain.Transaction) *Transaction {
	return &Transaction{
		ID:           t.ID,
		PayoutID:     t.PayoutID,
		EmployerID:   t.EmployerID,
		EmployeeID:   t.EmployeeID,
		Direction:    string(t.Direction),
		Amount:       t.Amount,
		Currency:     t.Currency,
		Status:       string(t.Status),
		ReversalOfID: t.ReversalOfID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func toDomain(m *Transaction) *domain.Transaction {
	return &domain.Transaction{
		ID:           m.ID,
		PayoutID:     m.PayoutID,
		EmployerID:   m.EmployerID,
		EmployeeID:   m.EmployeeID,
		Direction:    domain.TxDirection(m.Direction),
		Amount:       m.Amount,
		Currency:     m.Currency,
		Status:       domain.TxStatus(m.Status),
		ReversalOfID: m.ReversalOfID,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
