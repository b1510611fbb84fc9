package payout

import (
	"time"

	"github.com/google/uuid"
)

// TxDirection is the side of the simplified double entry a ledger row
// represents.
type TxDirection string

const (
	TxDebit  TxDirection = "DEBIT"
	TxCredit TxDirection = "CREDIT"
)

// TxStatus is the lifecycle state of a ledger transaction row.
type TxStatus string

const (
	TxPending  TxStatus = "PENDING"
	TxSuccess  TxStatus = "SUCCESS"
	TxFailed   TxStatus = "FAILED"
	TxReversed TxStatus = "REVERSED"
)

// Transaction is one ledger row. Every payout owns exactly two: an
// employer-side DEBIT and an employee-side CREDIT, created atomically
// with the payout itself.
//
// Invariant: a transaction can be reversed at most once.
type Transaction struct {
	ID         uuid.UUID
	PayoutID   uuid.UUID
	EmployerID uuid.UUID
	EmployeeID uuid.UUID

	Direction TxDirection
	Amount    int64
	Currency  string
	Status    TxStatus

	// ReversalOfID links a refund row back to the original it reverses.
	ReversalOfID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Opposite returns the reverse direction, used when building refund rows.
func (d TxDirection) Opposite() TxDirection {
	if d == TxDebit {
		return TxCredit
	}
	return TxDebit
}
