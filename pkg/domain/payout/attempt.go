package payout

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus is the lifecycle state of a PaymentAttempt.
type AttemptStatus string

const (
	AttemptPending  AttemptStatus = "PENDING"
	AttemptRetrying AttemptStatus = "RETRYING"
	AttemptSuccess  AttemptStatus = "SUCCESS"
	AttemptFailed   AttemptStatus = "FAILED"
)

// Attempt is one logical try (possibly retried) at executing a Payout
// through a specific provider.
//
// Invariant: IdempotencyKey is a pure function of the payout's identity
// and amount, so recomputing it for the same payout always finds the
// prior attempt instead of creating a duplicate.
type Attempt struct {
	ID       uuid.UUID
	PayoutID uuid.UUID

	Amount   int64
	Currency string
	Provider string

	IdempotencyKey string
	Status         AttemptStatus
	RetryCount     int

	ProviderRef    string
	FailureCode    string
	FailureMessage string

	NextRetryAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AttemptKey derives the deterministic idempotency key for executing a
// payout. Two invocations for the same payout always collide here, which
// is what makes duplicate submission a no-op.
func AttemptKey(
	employerID, payoutID uuid.UUID,
	category Category,
	amount int64,
	currency string,
	sourceType string,
	sourceID uuid.UUID,
) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%d|%s|%s|%s",
		employerID, payoutID, category, amount, currency, sourceType, sourceID))
	return hex.EncodeToString(h[:])
}
