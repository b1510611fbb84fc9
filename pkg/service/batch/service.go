// Package batch coordinates batch settlement runs: creation with member
// dedup, the approval gate, fail-fast processing and the failure-rate
// monitor.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/velohr/settlement/pkg/config"
	domain "github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/eventbus"
	"github.com/velohr/settlement/pkg/metrics"
	"github.com/velohr/settlement/pkg/money"
	"github.com/velohr/settlement/pkg/notification"
	"github.com/velohr/settlement/pkg/provider"
	"github.com/velohr/settlement/pkg/repository"
	payoutsvc "github.com/velohr/settlement/pkg/service/payout"
)

// Service runs batch settlement.
type Service struct {
	uow       repository.UnitOfWork
	payouts   *payoutsvc.Service
	providers *provider.Registry
	bus       eventbus.Bus
	metrics   metrics.Sink
	notifier  notification.Sink
	monitor   config.Monitor
	logger    *slog.Logger
}

// New creates the batch service.
func New(
	uow repository.UnitOfWork,
	payouts *payoutsvc.Service,
	providers *provider.Registry,
	bus eventbus.Bus,
	sink metrics.Sink,
	notifier notification.Sink,
	monitor config.Monitor,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:       uow,
		payouts:   payouts,
		providers: providers,
		bus:       bus,
		metrics:   sink,
		notifier:  notifier,
		monitor:   monitor,
		logger:    logger.With("service", "batch"),
	}
}

// Item is one member of a batch to create.
type Item struct {
	EmployeeID uuid.UUID
	MethodID   *uuid.UUID
	Amount     int64
	SourceType string
	SourceID   uuid.UUID
}

// CreateInput describes a batch to create.
type CreateInput struct {
	EmployerID uuid.UUID
	Type       domain.Category
	Currency   string
	PlannedAt  *time.Time
	Items      []Item
}

// Create records a batch and its member payouts. The provider is
// resolved once for the whole batch; a batch settling through an
// external provider requires approval before it can be processed.
// Re-submitted source items attach to their existing payout instead of
// duplicating it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Batch, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("batch has no items")
	}
	if !money.Code(in.Currency).IsValid() {
		return nil, fmt.Errorf("%w: %q", money.ErrInvalidCurrency, in.Currency)
	}

	settings, err := s.uow.Settings().ForEmployer(ctx, in.EmployerID)
	if err != nil {
		return nil, err
	}
	name := settings.Effective(in.Type)
	prov, err := s.providers.Get(name)
	if err != nil {
		return nil, err
	}

	b := &domain.Batch{
		ID:               uuid.New(),
		EmployerID:       in.EmployerID,
		Type:             in.Type,
		Currency:         in.Currency,
		Provider:         name,
		PlannedAt:        in.PlannedAt,
		RequiresApproval: !prov.IsManual(),
		Status:           domain.BatchDraft,
	}
	if b.RequiresApproval {
		b.Status = domain.BatchApprovalPending
	}
	if err := s.uow.Batches().Create(ctx, b); err != nil {
		return nil, err
	}

	for _, it := range in.Items {
		_, err := s.payouts.CreatePayout(ctx, payoutsvc.CreateInput{
			EmployerID: in.EmployerID,
			EmployeeID: it.EmployeeID,
			MethodID:   it.MethodID,
			BatchID:    &b.ID,
			Category:   in.Type,
			Amount:     it.Amount,
			Currency:   in.Currency,
			SourceType: it.SourceType,
			SourceID:   it.SourceID,
		})
		if err != nil {
			return nil, fmt.Errorf("batch item %s/%s: %w", it.SourceType, it.SourceID, err)
		}
	}

	total, err := s.uow.Batches().MemberTotal(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.TotalAmount = total
	if err := s.uow.Batches().Update(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info("batch created",
		"batch_id", b.ID,
		"members", len(in.Items),
		"total", b.TotalAmount,
		"provider", name,
	)
	return b, nil
}

// Approve satisfies the batch's approval gate.
func (s *Service) Approve(ctx context.Context, batchID, approverID uuid.UUID) (*domain.Batch, error) {
	b, err := s.uow.Batches().Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case domain.BatchDraft, domain.BatchApprovalPending:
	default:
		return nil, fmt.Errorf("batch is %s, cannot approve", b.Status)
	}
	now := time.Now()
	b.ApprovedBy = &approverID
	b.ApprovedAt = &now
	b.Status = domain.BatchApproved
	if err := s.uow.Batches().Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Process runs a settlement pass over the batch's members in creation
// order. A member whose failure signals an exhausted employer balance
// halts the run: the remaining members are left untouched instead of
// failing one by one against an empty account.
func (s *Service) Process(ctx context.Context, batchID uuid.UUID, allowRetry bool) (*domain.Batch, error) {
	b, err := s.uow.Batches().Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !b.Approved() {
		return nil, domain.ErrBatchNotApproved
	}

	now := time.Now()
	b.Status = domain.BatchProcessing
	b.ProcessedAt = &now
	if err := s.uow.Batches().Update(ctx, b); err != nil {
		return nil, err
	}

	members, err := s.uow.Payouts().ListByBatch(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	halted := false
	for _, m := range members {
		if m.Status == domain.StatusPaid {
			continue
		}
		res, err := s.payouts.ProcessPayout(ctx, m.ID, allowRetry)
		if err != nil {
			// A member that errors out locally does not block the rest.
			s.logger.Error("member processing error", "batch_id", b.ID, "payout_id", m.ID, "error", err)
			continue
		}
		if res.StopBatch {
			s.logger.Warn("batch halted", "batch_id", b.ID, "payout_id", m.ID, "reason", res.Reason)
			halted = true
			break
		}
	}

	members, err = s.uow.Payouts().ListByBatch(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	statuses := make([]domain.Status, len(members))
	paid := 0
	for i, m := range members {
		statuses[i] = m.Status
		if m.Status == domain.StatusPaid {
			paid++
		}
	}

	if halted {
		// Untouched members stay PENDING; the aggregate still records the
		// run as finished unsuccessfully.
		if paid > 0 {
			b.Status = domain.BatchPartial
		} else {
			b.Status = domain.BatchFailed
		}
	} else {
		b.Status = domain.DeriveBatchStatus(statuses)
	}

	total, err := s.uow.Batches().MemberTotal(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.TotalAmount = total
	if err := s.uow.Batches().Update(ctx, b); err != nil {
		return nil, err
	}

	s.checkFailureRate(ctx, b, members)
	s.logger.Info("batch processed", "batch_id", b.ID, "status", b.Status)
	return b, nil
}

// RecomputeStatus re-derives the batch's aggregate status from current
// member state. The confirmation poller calls it when a polled transfer
// settles a member.
func (s *Service) RecomputeStatus(ctx context.Context, batchID uuid.UUID) (*domain.Batch, error) {
	b, err := s.uow.Batches().Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	members, err := s.uow.Payouts().ListByBatch(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	statuses := make([]domain.Status, len(members))
	for i, m := range members {
		statuses[i] = m.Status
	}
	b.Status = domain.DeriveBatchStatus(statuses)
	if err := s.uow.Batches().Update(ctx, b); err != nil {
		return nil, err
	}
	s.checkFailureRate(ctx, b, members)
	return b, nil
}
