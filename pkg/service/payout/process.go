package payout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	domain "github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/domain/events"
	"github.com/velohr/settlement/pkg/metrics"
	"github.com/velohr/settlement/pkg/provider"
	"github.com/velohr/settlement/pkg/repository"
)

// initialPollDelay schedules the first confirmation poll after an
// execute that left the transfer in flight.
const initialPollDelay = 2 * time.Minute

// ProcessPayout runs one settlement pass over a payout. The pass is
// idempotent: a payout that is already PAID, already in flight, or
// already covered by a succeeded attempt never reaches the provider a
// second time. allowRetry permits re-running a previously FAILED attempt
// under the same idempotency key.
func (s *Service) ProcessPayout(ctx context.Context, payoutID uuid.UUID, allowRetry bool) (*Result, error) {
	p, err := s.uow.Payouts().Get(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	switch p.Status {
	case domain.StatusPaid:
		return &Result{Status: p.Status, Reason: ReasonAlreadyPaid}, nil
	case domain.StatusCanceled, domain.StatusReversed:
		return &Result{Status: p.Status, Reason: ReasonTerminal}, nil
	case domain.StatusFailed:
		if !allowRetry {
			return &Result{Status: p.Status, Reason: ReasonPreviousFailure}, nil
		}
	}

	settings, err := s.uow.Settings().ForEmployer(ctx, p.EmployerID)
	if err != nil {
		return nil, fmt.Errorf("load provider settings: %w", err)
	}
	name := settings.Effective(p.Category)
	prov, err := s.providers.Get(name)
	if err != nil {
		return nil, err
	}
	p.Provider = name

	// A manual payout is stamped and parked; an operator settles it through
	// the manual status-update entry point.
	if prov.IsManual() {
		p.Status = domain.StatusProcessing
		if err := s.uow.Payouts().Update(ctx, p); err != nil {
			return nil, err
		}
		return &Result{Status: p.Status, Reason: ReasonManual}, nil
	}

	method, err := s.destination(ctx, p)
	switch {
	case errors.Is(err, domain.ErrNoDestination):
		return s.failConfig(ctx, p, ReasonNoDestination, err)
	case errors.Is(err, domain.ErrDestinationNotUsable):
		return s.failConfig(ctx, p, ReasonBadDestination, err)
	case err != nil:
		return nil, err
	}

	key := domain.AttemptKey(p.EmployerID, p.ID, p.Category, p.Amount, p.Currency, p.SourceType, p.SourceID)
	att, err := s.uow.Attempts().FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if att != nil {
		switch att.Status {
		case domain.AttemptSuccess:
			// The provider already moved the money; reconcile local state
			// without another call.
			res, err := s.applyPaid(ctx, p, att, nil)
			if err != nil {
				return nil, err
			}
			res.Reason = ReasonAlreadySettled
			return res, nil
		case domain.AttemptPending, domain.AttemptRetrying:
			return &Result{Status: domain.StatusProcessing, Reason: ReasonInFlight}, nil
		case domain.AttemptFailed:
			if !allowRetry {
				// The failure was already applied when the attempt failed;
				// reporting it again must not re-fail the payout or re-emit
				// the failure event.
				return &Result{Status: domain.StatusFailed, Reason: ReasonPreviousFailure}, nil
			}
			att.Status = domain.AttemptRetrying
			att.RetryCount++
			err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
				if err := uow.Attempts().Update(ctx, att); err != nil {
					return err
				}
				// The prior failure flipped the ledger rows; a retry reopens
				// them so the outcome can settle them again.
				return reopenLedger(ctx, uow, p.ID)
			})
			if err != nil {
				return nil, err
			}
		}
	} else {
		att = &domain.Attempt{
			ID:             uuid.New(),
			PayoutID:       p.ID,
			Amount:         p.Amount,
			Currency:       p.Currency,
			Provider:       name,
			IdempotencyKey: key,
			Status:         domain.AttemptPending,
		}
		if err := s.uow.Attempts().Create(ctx, att); err != nil {
			return nil, err
		}
	}

	conn, err := s.uow.Connections().ActiveForEmployer(ctx, p.EmployerID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return s.failAttempt(ctx, p, att, nil, ReasonNoConnection, "", domain.ErrNoActiveConnection.Error(), false)
	}
	creds, err := s.decryptor.Decrypt(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("decrypt credentials: %w", err)
	}

	p.Status = domain.StatusProcessing
	if err := s.uow.Payouts().Update(ctx, p); err != nil {
		return nil, err
	}

	req := &provider.InitiateRequest{
		Reference:   att.IdempotencyKey,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Destination: provider.DestinationFromMethod(method),
		Narration:   fmt.Sprintf("%s payout %s", strings.ToLower(string(p.Category)), p.ID),
	}
	snapshot, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request: %w", err)
	}
	// Scheduled before the provider calls: a crash anywhere in the
	// quote/execute window leaves a transfer the sweep will find,
	// reschedule, and eventually time out.
	firstPoll := time.Now().Add(initialPollDelay)
	t := &domain.Transfer{
		ID:              uuid.New(),
		PayoutID:        p.ID,
		AttemptID:       att.ID,
		Status:          domain.TransferPending,
		NextPollAt:      &firstPoll,
		RequestSnapshot: provider.Redact(snapshot),
	}
	if err := s.uow.Transfers().Create(ctx, t); err != nil {
		return nil, err
	}

	initResp, err := prov.InitiateTransfer(ctx, creds, req)
	if err != nil {
		return s.failProviderCall(ctx, p, att, t, err)
	}
	t.QuoteID = initResp.QuoteID
	t.ProviderStatus = initResp.ProviderStatus
	t.AppendEvent(domain.TransferEventInitiated, initResp.ProviderStatus, time.Now())
	if t.QuoteID == "" {
		return s.failAttempt(ctx, p, att, t, ReasonEmptyQuote, "", "provider returned no quote id", false)
	}
	if provider.MapStatus(initResp.ProviderStatus) == provider.StateFailed {
		return s.failAttempt(ctx, p, att, t, ReasonProviderRejected, "", "quote rejected: "+initResp.ProviderStatus, false)
	}
	if err := s.uow.Transfers().Update(ctx, t); err != nil {
		return nil, err
	}

	execResp, err := prov.ExecuteTransfer(ctx, creds, t.QuoteID)
	if err != nil {
		return s.failProviderCall(ctx, p, att, t, err)
	}
	t.TransactionRef = execResp.TransactionRef
	t.ProviderStatus = execResp.ProviderStatus
	if respSnap, err := json.Marshal(execResp); err == nil {
		t.ResponseSnapshot = provider.Redact(respSnap)
	}
	t.AppendEvent(domain.TransferEventExecuted, execResp.ProviderStatus, time.Now())

	return s.ApplyTransferResult(ctx, p, att, t, execResp.ProviderStatus, "")
}

// ApplyTransferResult folds a provider status into local state. It is the
// single place a transfer outcome becomes a payout transition, shared by
// the execute path and the confirmation poller. t may carry unflushed
// event-log entries; every branch persists it.
func (s *Service) ApplyTransferResult(
	ctx context.Context,
	p *domain.Payout,
	att *domain.Attempt,
	t *domain.Transfer,
	providerStatus, failureReason string,
) (*Result, error) {
	switch provider.MapStatus(providerStatus) {
	case provider.StateSuccess:
		return s.applyPaid(ctx, p, att, t)

	case provider.StateFailed:
		reason := failureReason
		if reason == "" {
			reason = "provider reported " + providerStatus
		}
		return s.failAttempt(ctx, p, att, t, ReasonProviderRejected, "", reason, false)

	default:
		// Still in flight. Schedule the confirmation poller; an unknown
		// status is never treated as success or failure.
		now := time.Now()
		next := now.Add(initialPollDelay)
		t.Status = domain.TransferProcessing
		if t.NextPollAt == nil {
			t.NextPollAt = &next
		}
		if err := s.uow.Transfers().Update(ctx, t); err != nil {
			return nil, err
		}
		if p.Status != domain.StatusProcessing {
			p.Status = domain.StatusProcessing
			if err := s.uow.Payouts().Update(ctx, p); err != nil {
				return nil, err
			}
		}
		s.metrics.Inc(metrics.PayoutsProcessed, map[string]string{"status": "pending", "provider": p.Provider})
		return &Result{Status: domain.StatusProcessing, Reason: ReasonAwaitingProvider}, nil
	}
}

// applyPaid settles the payout: transfer, attempt, payout and both ledger
// rows flip in one transaction, then the paid events go out.
func (s *Service) applyPaid(ctx context.Context, p *domain.Payout, att *domain.Attempt, t *domain.Transfer) (*Result, error) {
	ref := att.ProviderRef
	if t != nil && t.TransactionRef != "" {
		ref = t.TransactionRef
	}

	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		if t != nil {
			t.Status = domain.TransferSuccess
			if err := uow.Transfers().Update(ctx, t); err != nil {
				return err
			}
		}
		att.Status = domain.AttemptSuccess
		att.ProviderRef = ref
		if err := uow.Attempts().Update(ctx, att); err != nil {
			return err
		}
		p.Status = domain.StatusPaid
		p.ProviderRef = ref
		p.FailureReason = ""
		if err := uow.Payouts().Update(ctx, p); err != nil {
			return err
		}
		return flipLedger(ctx, uow, p.ID, domain.TxSuccess)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.PayoutPaid{
		Base:        events.NewBase(p.EmployerID),
		PayoutID:    p.ID,
		ProviderRef: ref,
		Amount:      p.Amount,
		Currency:    p.Currency,
	})
	s.emit(ctx, events.ReceiptRequested{
		Base:        events.NewBase(p.EmployerID),
		PayoutID:    p.ID,
		ProviderRef: ref,
	})
	s.metrics.Inc(metrics.PayoutsProcessed, map[string]string{"status": "paid", "provider": p.Provider})
	s.logger.Info("payout paid", "payout_id", p.ID, "provider_ref", ref)

	return &Result{Status: domain.StatusPaid, Reason: ReasonPaid}, nil
}

// failProviderCall handles an error from a provider network call:
// normalizes it, records failure detail on the attempt, and detects the
// exhausted-balance signal that halts a batch run.
func (s *Service) failProviderCall(ctx context.Context, p *domain.Payout, att *domain.Attempt, t *domain.Transfer, callErr error) (*Result, error) {
	reason := ReasonProviderRejected
	code := ""
	stop := false
	if pe, ok := provider.AsError(callErr); ok {
		code = pe.Code
		if t != nil && t.ResponseSnapshot == nil && pe.Payload != nil {
			t.ResponseSnapshot = pe.Payload
		}
		if pe.InsufficientFunds() {
			reason = ReasonInsufficientFunds
			stop = true
		}
	}
	return s.failAttempt(ctx, p, att, t, reason, code, callErr.Error(), stop)
}

// failAttempt applies a terminal failure: transfer (when present),
// attempt, payout and ledger rows flip in one transaction.
func (s *Service) failAttempt(
	ctx context.Context,
	p *domain.Payout,
	att *domain.Attempt,
	t *domain.Transfer,
	reason, code, message string,
	stop bool,
) (*Result, error) {
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		if t != nil {
			t.Status = domain.TransferFailed
			t.FailureMessage = message
			t.AppendEvent(domain.TransferEventFailed, message, time.Now())
			if err := uow.Transfers().Update(ctx, t); err != nil {
				return err
			}
		}
		att.Status = domain.AttemptFailed
		att.FailureCode = code
		att.FailureMessage = message
		if err := uow.Attempts().Update(ctx, att); err != nil {
			return err
		}
		p.Status = domain.StatusFailed
		p.FailureReason = message
		if err := uow.Payouts().Update(ctx, p); err != nil {
			return err
		}
		return flipLedger(ctx, uow, p.ID, domain.TxFailed)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.PayoutFailed{
		Base:     events.NewBase(p.EmployerID),
		PayoutID: p.ID,
		Reason:   message,
	})
	s.metrics.Inc(metrics.PayoutsProcessed, map[string]string{"status": "failed", "provider": p.Provider})
	s.logger.Warn("payout failed", "payout_id", p.ID, "reason", reason, "detail", message)

	return &Result{Status: domain.StatusFailed, Reason: reason, StopBatch: stop}, nil
}

// ExpireTransfer converts a transfer that exhausted its polling window
// into a terminal timeout: the transfer is marked TIMEOUT, the attempt
// and payout fail, the ledger rows follow. The confirmation poller is
// the only caller.
func (s *Service) ExpireTransfer(ctx context.Context, p *domain.Payout, att *domain.Attempt, t *domain.Transfer, message string) error {
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		t.Status = domain.TransferTimeout
		t.FailureMessage = message
		t.AppendEvent(domain.TransferEventFailed, message, time.Now())
		if err := uow.Transfers().Update(ctx, t); err != nil {
			return err
		}
		att.Status = domain.AttemptFailed
		att.FailureMessage = message
		if err := uow.Attempts().Update(ctx, att); err != nil {
			return err
		}
		p.Status = domain.StatusFailed
		p.FailureReason = message
		if err := uow.Payouts().Update(ctx, p); err != nil {
			return err
		}
		return flipLedger(ctx, uow, p.ID, domain.TxFailed)
	})
	if err != nil {
		return err
	}

	s.emit(ctx, events.PayoutFailed{
		Base:     events.NewBase(p.EmployerID),
		PayoutID: p.ID,
		Reason:   message,
	})
	s.metrics.Inc(metrics.PayoutsProcessed, map[string]string{"status": "failed", "provider": p.Provider})
	s.logger.Warn("transfer timed out", "payout_id", p.ID, "transfer_id", t.ID)
	return nil
}

// failConfig applies a terminal configuration failure reached before a
// payment attempt exists.
func (s *Service) failConfig(ctx context.Context, p *domain.Payout, reason string, cause error) (*Result, error) {
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		p.Status = domain.StatusFailed
		p.FailureReason = cause.Error()
		if err := uow.Payouts().Update(ctx, p); err != nil {
			return err
		}
		return flipLedger(ctx, uow, p.ID, domain.TxFailed)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.PayoutFailed{
		Base:     events.NewBase(p.EmployerID),
		PayoutID: p.ID,
		Reason:   cause.Error(),
	})
	s.metrics.Inc(metrics.PayoutsProcessed, map[string]string{"status": "failed", "provider": p.Provider})
	s.logger.Warn("payout failed", "payout_id", p.ID, "reason", reason, "detail", cause.Error())

	return &Result{Status: domain.StatusFailed, Reason: reason}, nil
}

// destination resolves the payout's destination method, falling back to
// the employee's active default.
func (s *Service) destination(ctx context.Context, p *domain.Payout) (*domain.Method, error) {
	var m *domain.Method
	var err error
	if p.MethodID != nil {
		m, err = s.uow.Methods().Get(ctx, *p.MethodID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if m == nil {
		m, err = s.uow.Methods().DefaultForEmployee(ctx, p.EmployeeID)
		if err != nil {
			return nil, err
		}
	}
	if m == nil {
		return nil, domain.ErrNoDestination
	}
	if !m.Usable() {
		return nil, domain.ErrDestinationNotUsable
	}
	return m, nil
}

// flipLedger moves the payout's pending ledger rows to a terminal status.
func flipLedger(ctx context.Context, uow repository.UnitOfWork, payoutID uuid.UUID, to domain.TxStatus) error {
	txs, err := uow.Transactions().ListByPayout(ctx, payoutID)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		if tx.Status != domain.TxPending {
			continue
		}
		tx.Status = to
		if err := uow.Transactions().Update(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

// reopenLedger moves failed ledger rows back to pending ahead of a retry.
func reopenLedger(ctx context.Context, uow repository.UnitOfWork, payoutID uuid.UUID) error {
	txs, err := uow.Transactions().ListByPayout(ctx, payoutID)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		if tx.Status != domain.TxFailed {
			continue
		}
		tx.Status = domain.TxPending
		if err := uow.Transactions().Update(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

// emit publishes a domain event; bus failures are logged, never surfaced.
func (s *Service) emit(ctx context.Context, e events.Event) {
	if err := s.bus.Emit(ctx, e); err != nil {
		s.logger.Warn("event emit failed", "type", e.Type(), "error", err)
	}
}
