package batch

import (
	"context"
	"fmt"

	domain "github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/domain/events"
	"github.com/velohr/settlement/pkg/metrics"
)

// checkFailureRate fires the batch failure alert when enough members have
// terminally failed. The alert is sent at most once per batch; the
// AlertSent flag persists across passes so a later recompute cannot
// re-fire it.
func (s *Service) checkFailureRate(ctx context.Context, b *domain.Batch, members []*domain.Payout) {
	if b.AlertSent || len(members) < s.monitor.MinSample {
		return
	}

	failed := 0
	for _, m := range members {
		if m.Status == domain.StatusFailed || m.Status == domain.StatusCanceled {
			failed++
		}
	}
	rate := float64(failed) / float64(len(members))
	if rate < s.monitor.Threshold {
		return
	}

	b.AlertSent = true
	if err := s.uow.Batches().Update(ctx, b); err != nil {
		s.logger.Error("alert flag update failed", "batch_id", b.ID, "error", err)
		return
	}

	if err := s.bus.Emit(ctx, events.BatchFailureAlert{
		Base:    events.NewBase(b.EmployerID),
		BatchID: b.ID,
		Failed:  failed,
		Total:   len(members),
		Rate:    rate,
	}); err != nil {
		s.logger.Warn("event emit failed", "type", "batch.failure_alert", "error", err)
	}

	s.notifier.Notify(ctx, b.EmployerID,
		"Batch failure rate alert",
		fmt.Sprintf("Batch %s: %d of %d payouts failed (%.0f%%).", b.ID, failed, len(members), rate*100),
	)
	s.metrics.Inc(metrics.BatchAlerts, map[string]string{"provider": b.Provider})
	s.logger.Warn("batch failure alert", "batch_id", b.ID, "failed", failed, "total", len(members))
}
