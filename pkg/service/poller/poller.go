// Package poller implements the confirmation sweep: transfers the
// provider left in flight are re-queried on a backoff schedule until they
// settle or exhaust the polling window.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/velohr/settlement/pkg/config"
	domain "github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/domain/events"
	"github.com/velohr/settlement/pkg/eventbus"
	"github.com/velohr/settlement/pkg/metrics"
	"github.com/velohr/settlement/pkg/notification"
	"github.com/velohr/settlement/pkg/provider"
	"github.com/velohr/settlement/pkg/repository"
	batchsvc "github.com/velohr/settlement/pkg/service/batch"
	payoutsvc "github.com/velohr/settlement/pkg/service/payout"
)

// pollDelays is the backoff ladder between consecutive polls of one
// transfer. PollCount indexes into it and clamps at the last rung.
var pollDelays = []time.Duration{
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
	20 * time.Minute,
	30 * time.Minute,
	60 * time.Minute,
}

// NextPollDelay returns the wait before the next poll of a transfer that
// has been polled pollCount times already.
func NextPollDelay(pollCount int) time.Duration {
	if pollCount < 0 {
		pollCount = 0
	}
	if pollCount >= len(pollDelays) {
		return pollDelays[len(pollDelays)-1]
	}
	return pollDelays[pollCount]
}

// Service sweeps open transfers.
type Service struct {
	uow       repository.UnitOfWork
	payouts   *payoutsvc.Service
	batches   *batchsvc.Service
	providers *provider.Registry
	decryptor provider.Decryptor
	bus       eventbus.Bus
	metrics   metrics.Sink
	notifier  notification.Sink
	cfg       config.Poller
	logger    *slog.Logger
}

// New creates the poller.
func New(
	uow repository.UnitOfWork,
	payouts *payoutsvc.Service,
	batches *batchsvc.Service,
	providers *provider.Registry,
	decryptor provider.Decryptor,
	bus eventbus.Bus,
	sink metrics.Sink,
	notifier notification.Sink,
	cfg config.Poller,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:       uow,
		payouts:   payouts,
		batches:   batches,
		providers: providers,
		decryptor: decryptor,
		bus:       bus,
		metrics:   sink,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger.With("service", "poller"),
	}
}

// Sweep polls every due transfer once, oldest first, up to the configured
// limit. A nil employerID sweeps all employers. One transfer's problem
// never stops the sweep; the count of transfers examined is returned.
func (s *Service) Sweep(ctx context.Context, employerID *uuid.UUID) (int, error) {
	now := time.Now()
	due, err := s.uow.Transfers().ListDue(ctx, employerID, now, s.cfg.Limit)
	if err != nil {
		return 0, err
	}

	for _, t := range due {
		if err := s.pollOne(ctx, t, now); err != nil {
			s.logger.Error("poll failed", "transfer_id", t.ID, "error", err)
		}
	}
	return len(due), nil
}

func (s *Service) pollOne(ctx context.Context, t *domain.Transfer, now time.Time) error {
	p, err := s.uow.Payouts().Get(ctx, t.PayoutID)
	if err != nil {
		return err
	}
	att, err := s.uow.Attempts().Get(ctx, t.AttemptID)
	if err != nil {
		return err
	}

	openFor := now.Sub(t.CreatedAt)
	if openFor > time.Duration(s.cfg.MaxPendingHours)*time.Hour {
		return s.expire(ctx, p, att, t, openFor)
	}

	// Without a provider reference or an active connection there is
	// nothing to ask; push the transfer out a rung and move on.
	if t.TransactionRef == "" {
		s.logger.Warn("transfer has no provider reference", "transfer_id", t.ID)
		return s.reschedule(ctx, t, now, "no provider reference")
	}
	conn, err := s.uow.Connections().ActiveForEmployer(ctx, p.EmployerID)
	if err != nil {
		return err
	}
	if conn == nil {
		s.logger.Warn("no active connection", "transfer_id", t.ID, "employer_id", p.EmployerID)
		return s.reschedule(ctx, t, now, "no active connection")
	}
	creds, err := s.decryptor.Decrypt(ctx, conn)
	if err != nil {
		return err
	}
	prov, err := s.providers.Get(p.Provider)
	if err != nil {
		return err
	}

	resp, err := prov.GetTransactionStatus(ctx, creds, t.TransactionRef)
	if err != nil {
		// A failing poll is transient by definition; the next rung will
		// ask again.
		s.metrics.Inc(metrics.TransfersPolled, map[string]string{"outcome": "error"})
		return s.reschedule(ctx, t, now, err.Error())
	}

	t.PollCount++
	t.LastPolledAt = &now
	t.AppendEvent(domain.TransferEventPolled, resp.ProviderStatus, now)

	switch provider.MapStatus(resp.ProviderStatus) {
	case provider.StateSuccess, provider.StateFailed:
		outcome := "success"
		if provider.MapStatus(resp.ProviderStatus) == provider.StateFailed {
			outcome = "failed"
		}
		if _, err := s.payouts.ApplyTransferResult(ctx, p, att, t, resp.ProviderStatus, resp.FailureReason); err != nil {
			return err
		}
		s.metrics.Inc(metrics.TransfersPolled, map[string]string{"outcome": outcome})
		if p.BatchID != nil {
			if _, err := s.batches.RecomputeStatus(ctx, *p.BatchID); err != nil {
				s.logger.Error("batch recompute failed", "batch_id", *p.BatchID, "error", err)
			}
		}
		return nil

	default:
		next := now.Add(NextPollDelay(t.PollCount))
		t.NextPollAt = &next
		s.metrics.Inc(metrics.TransfersPolled, map[string]string{"outcome": "pending"})
		return s.uow.Transfers().Update(ctx, t)
	}
}

// reschedule bumps the transfer's poll bookkeeping and pushes it to the
// next backoff rung without touching payout state.
func (s *Service) reschedule(ctx context.Context, t *domain.Transfer, now time.Time, note string) error {
	t.PollCount++
	t.LastPolledAt = &now
	next := now.Add(NextPollDelay(t.PollCount))
	t.NextPollAt = &next
	t.AppendEvent(domain.TransferEventPolled, note, now)
	return s.uow.Transfers().Update(ctx, t)
}

// expire times the transfer out and notifies the employer exactly once,
// guarded by the timeout_notified entry in the transfer's event log.
func (s *Service) expire(ctx context.Context, p *domain.Payout, att *domain.Attempt, t *domain.Transfer, openFor time.Duration) error {
	notified := t.HasEvent(domain.TransferEventTimeoutNotified)
	if !notified {
		t.AppendEvent(domain.TransferEventTimeoutNotified, "", time.Now())
	}
	if err := s.payouts.ExpireTransfer(ctx, p, att, t, "confirmation polling timed out"); err != nil {
		return err
	}
	s.metrics.Inc(metrics.TransfersPolled, map[string]string{"outcome": "timeout"})

	if !notified {
		if err := s.bus.Emit(ctx, events.TransferTimedOut{
			Base:       events.NewBase(p.EmployerID),
			TransferID: t.ID,
			PayoutID:   p.ID,
			OpenFor:    openFor,
		}); err != nil {
			s.logger.Warn("event emit failed", "type", "transfer.timed_out", "error", err)
		}
		s.notifier.Notify(ctx, p.EmployerID,
			"Transfer confirmation timed out",
			"A transfer stayed unconfirmed past the polling window and was marked failed. Payout: "+p.ID.String(),
		)
	}

	if p.BatchID != nil {
		if _, err := s.batches.RecomputeStatus(ctx, *p.BatchID); err != nil {
			s.logger.Error("batch recompute failed", "batch_id", *p.BatchID, "error", err)
		}
	}
	return nil
}
