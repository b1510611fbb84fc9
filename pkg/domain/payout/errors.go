package payout

import "errors"

var (
	// ErrNotFound is returned when an aggregate does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoDestination is returned when a payout has no usable method and
	// the employee has no active default.
	ErrNoDestination = errors.New("no payout destination")

	// ErrDestinationNotUsable is returned for an inactive or unverified
	// destination.
	ErrDestinationNotUsable = errors.New("payout destination inactive or unverified")

	// ErrNoActiveConnection is returned when the employer has no ACTIVE
	// provider connection.
	ErrNoActiveConnection = errors.New("no active provider connection")

	// ErrBatchNotApproved is returned when processing is attempted on a
	// batch whose approval gate is unsatisfied.
	ErrBatchNotApproved = errors.New("batch requires approval")

	// ErrManualUpdateConflict is returned when a manual status update
	// re-applies the same target status under a different operator
	// idempotency key.
	ErrManualUpdateConflict = errors.New("manual status update conflicts with a prior update")

	// ErrAlreadyReversed is returned on a second reversal of the same
	// payout or transaction.
	ErrAlreadyReversed = errors.New("already reversed")

	// ErrNotReversible is returned when reversing a payout that is not PAID.
	ErrNotReversible = errors.New("only paid payouts can be reversed")
)
