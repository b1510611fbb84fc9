// Package metrics defines the counter sink the settlement engine reports
// into. The prometheus implementation lives in infra/metrics.
package metrics

// Counter names emitted by the engine.
const (
	PayoutsProcessed = "payouts_processed_total"
	TransfersPolled  = "transfers_polled_total"
	BatchAlerts      = "batch_alerts_total"
)

// Sink is a named-counter port with tags. Implementations must be safe
// for concurrent use and must never fail the caller.
type Sink interface {
	Inc(name string, tags map[string]string)
}

// Nop discards all metrics. Used in tests and the CLI.
type Nop struct{}

// Inc implements Sink.
func (Nop) Inc(string, map[string]string) {}
