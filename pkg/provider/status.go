package provider

import "strings"

// TriState is the internal view of a provider status string.
type TriState int

const (
	// StatePending means the transfer is still in flight. Unknown
	// provider statuses always land here, never on success or failure.
	StatePending TriState = iota
	// StateSuccess means the provider settled the transfer.
	StateSuccess
	// StateFailed means the provider terminally rejected the transfer.
	StateFailed
)

func (s TriState) String() string {
	switch s {
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Closed vocabularies for the status mapping. Anything outside both sets
// is treated as still in flight.
var (
	successStatuses = map[string]bool{
		"successful": true,
		"success":    true,
		"completed":  true,
		"paid":       true,
	}
	failedStatuses = map[string]bool{
		"failed":    true,
		"rejected":  true,
		"declined":  true,
		"cancelled": true,
		"canceled":  true,
		"error":     true,
	}
)

// MapStatus folds a raw provider status string into the internal
// tri-state. The mapping is a fixed table; an unrecognized string is
// never silent success or failure.
func MapStatus(providerStatus string) TriState {
	s := strings.ToLower(strings.TrimSpace(providerStatus))
	switch {
	case successStatuses[s]:
		return StateSuccess
	case failedStatuses[s]:
		return StateFailed
	default:
		return StatePending
	}
}
