// Package payout holds the settlement engine's domain model: payouts,
// payment attempts, provider transfers, batches, payout methods and
// provider connections, together with their status machines.
package payout

import (
	"time"

	"github.com/google/uuid"
)

// Category distinguishes what a payout settles.
type Category string

const (
	CategoryPayroll Category = "PAYROLL"
	CategoryExpense Category = "EXPENSE"
)

// Status is the lifecycle state of a Payout.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusPaid       Status = "PAID"
	StatusFailed     Status = "FAILED"
	StatusCanceled   Status = "CANCELED"
	StatusReversed   Status = "REVERSED"
)

// IsTerminal reports whether no further automatic transition applies.
// PAID can still be reversed, but only through the explicit reversal path.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPaid, StatusFailed, StatusCanceled, StatusReversed:
		return true
	}
	return false
}

// Payout is one intended money movement to one employee for one category.
//
// Invariants:
//   - Amount > 0.
//   - Status transitions are monotonic except for the explicit reversal
//     path (PAID -> REVERSED).
//   - At most one active, non-superseded PaymentAttempt shares the same
//     idempotency key.
type Payout struct {
	ID         uuid.UUID
	EmployerID uuid.UUID
	EmployeeID uuid.UUID
	MethodID   *uuid.UUID
	BatchID    *uuid.UUID
	Category   Category

	Amount   int64
	Currency string

	Provider    string
	ProviderRef string

	Status        Status
	FailureReason string

	// SourceType/SourceID link the payout to the object it settles,
	// e.g. a payslip or an approved expense claim.
	SourceType string
	SourceID   uuid.UUID

	EmployerTxID *uuid.UUID
	EmployeeTxID *uuid.UUID

	// ManualIdempotencyKey guards the manual status-update path: the same
	// operator action may be replayed, a different one may not re-apply
	// the same target status.
	ManualIdempotencyKey string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BatchStatus is the lifecycle state of a Batch.
type BatchStatus string

const (
	BatchDraft           BatchStatus = "DRAFT"
	BatchApprovalPending BatchStatus = "APPROVAL_PENDING"
	BatchApproved        BatchStatus = "APPROVED"
	BatchProcessing      BatchStatus = "PROCESSING"
	BatchPartial         BatchStatus = "PARTIAL"
	BatchCompleted       BatchStatus = "COMPLETED"
	BatchFailed          BatchStatus = "FAILED"
)

// Batch is a named group of payouts created together, e.g. one payroll run.
//
// TotalAmount is always recomputed from member payouts, never incremented.
type Batch struct {
	ID         uuid.UUID
	EmployerID uuid.UUID
	Type       Category
	Status     BatchStatus

	RequiresApproval bool
	ApprovedBy       *uuid.UUID
	ApprovedAt       *time.Time

	Currency    string
	TotalAmount int64

	Provider string

	PlannedAt   *time.Time
	ProcessedAt *time.Time

	// AlertSent guards the failure-rate monitor: one alert per batch.
	AlertSent bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Approved reports whether the batch's approval gate is satisfied.
func (b *Batch) Approved() bool {
	return !b.RequiresApproval || b.ApprovedBy != nil
}

// DeriveBatchStatus computes the aggregate status of a batch from its
// member payout statuses. It is only used for full passes; a fail-fast
// stop records PARTIAL or FAILED directly.
func DeriveBatchStatus(members []Status) BatchStatus {
	var paid, failed, open int
	for _, s := range members {
		switch s {
		case StatusPaid:
			paid++
		case StatusFailed, StatusCanceled:
			failed++
		default:
			open++
		}
	}
	switch {
	case open > 0:
		return BatchProcessing
	case paid > 0 && failed > 0:
		return BatchPartial
	case paid > 0:
		return BatchCompleted
	default:
		return BatchFailed
	}
}
