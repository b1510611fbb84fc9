// Package events defines the domain events the settlement engine emits on
// the event bus. Consumers (audit log, notification fan-out, receipt
// generation) subscribe by event type; emission is fire-and-forget so a
// slow or failing consumer structurally cannot affect settlement state.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is the contract every domain event satisfies.
type Event interface {
	Type() string
}

// Base carries the fields shared by all settlement events.
type Base struct {
	ID         uuid.UUID
	EmployerID uuid.UUID
	OccurredAt time.Time
}

// NewBase builds the shared event envelope.
func NewBase(employerID uuid.UUID) Base {
	return Base{ID: uuid.New(), EmployerID: employerID, OccurredAt: time.Now()}
}

// PayoutPaid is emitted when a payout reaches PAID.
type PayoutPaid struct {
	Base
	PayoutID    uuid.UUID
	ProviderRef string
	Amount      int64
	Currency    string
}

func (PayoutPaid) Type() string { return "payout.paid" }

// PayoutFailed is emitted when a payout reaches FAILED.
type PayoutFailed struct {
	Base
	PayoutID uuid.UUID
	Reason   string
}

func (PayoutFailed) Type() string { return "payout.failed" }

// PayoutReversed is emitted when a paid payout is reversed.
type PayoutReversed struct {
	Base
	PayoutID uuid.UUID
}

func (PayoutReversed) Type() string { return "payout.reversed" }

// ReceiptRequested asks the document pipeline for a receipt artifact.
// Receipt generation is best-effort; failures never fail the payout.
type ReceiptRequested struct {
	Base
	PayoutID    uuid.UUID
	ProviderRef string
}

func (ReceiptRequested) Type() string { return "payout.receipt_requested" }

// TransferTimedOut is emitted once per transfer that exceeds the polling
// window.
type TransferTimedOut struct {
	Base
	TransferID uuid.UUID
	PayoutID   uuid.UUID
	OpenFor    time.Duration
}

func (TransferTimedOut) Type() string { return "transfer.timed_out" }

// BatchFailureAlert is emitted at most once per batch when the failure
// rate crosses the monitor threshold.
type BatchFailureAlert struct {
	Base
	BatchID uuid.UUID
	Failed  int
	Total   int
	Rate    float64
}

func (BatchFailureAlert) Type() string { return "batch.failure_alert" }
