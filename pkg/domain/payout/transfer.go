package payout

import (
	"time"

	"github.com/google/uuid"
)

// TransferStatus is the lifecycle state of a provider-facing Transfer.
type TransferStatus string

const (
	TransferPending    TransferStatus = "PENDING"
	TransferProcessing TransferStatus = "PROCESSING"
	TransferSuccess    TransferStatus = "SUCCESS"
	TransferFailed     TransferStatus = "FAILED"
	TransferTimeout    TransferStatus = "TIMEOUT"
)

// IsOpen reports whether the transfer still awaits a terminal provider
// result and is eligible for polling.
func (s TransferStatus) IsOpen() bool {
	return s == TransferPending || s == TransferProcessing
}

// TransferEventKind identifies an entry in a transfer's event log.
type TransferEventKind string

const (
	TransferEventInitiated       TransferEventKind = "initiated"
	TransferEventExecuted        TransferEventKind = "executed"
	TransferEventPolled          TransferEventKind = "polled"
	TransferEventFailed          TransferEventKind = "failed"
	TransferEventTimeoutNotified TransferEventKind = "timeout_notified"
)

// TransferEvent is one entry of a transfer's append-only event log.
type TransferEvent struct {
	Kind    TransferEventKind `json:"kind"`
	Message string            `json:"message,omitempty"`
	At      time.Time         `json:"at"`
}

// Transfer is the provider-facing execution record for one PaymentAttempt.
// It tracks the two-phase provider protocol (initiate/quote then execute)
// and any subsequent polling.
//
// Invariants:
//   - TransactionRef is immutable once set.
//   - NextPollAt is in the future for non-terminal transfers.
type Transfer struct {
	ID        uuid.UUID
	PayoutID  uuid.UUID
	AttemptID uuid.UUID

	Status         TransferStatus
	ProviderStatus string

	QuoteID        string
	TransactionRef string

	// Snapshots are secret-redacted JSON copies of the provider exchange,
	// kept for reconciliation and support.
	RequestSnapshot  []byte
	ResponseSnapshot []byte

	Events []TransferEvent

	PollCount    int
	LastPolledAt *time.Time
	NextPollAt   *time.Time

	FailureMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppendEvent records an entry in the transfer's event log.
func (t *Transfer) AppendEvent(kind TransferEventKind, message string, at time.Time) {
	t.Events = append(t.Events, TransferEvent{Kind: kind, Message: message, At: at})
}

// HasEvent reports whether the event log contains an entry of the given
// kind. The poller uses it as an idempotent marker so repeated sweeps
// never double-notify.
func (t *Transfer) HasEvent(kind TransferEventKind) bool {
	for _, e := range t.Events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
