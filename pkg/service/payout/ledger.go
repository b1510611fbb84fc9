package payout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	domain "github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/domain/events"
	"github.com/velohr/settlement/pkg/money"
	"github.com/velohr/settlement/pkg/repository"
)

// CreateInput describes a payout to record.
type CreateInput struct {
	EmployerID uuid.UUID
	EmployeeID uuid.UUID
	MethodID   *uuid.UUID
	BatchID    *uuid.UUID
	Category   domain.Category
	Amount     int64
	Currency   string
	SourceType string
	SourceID   uuid.UUID
}

// CreatePayout records a payout and its two ledger rows (employer DEBIT,
// employee CREDIT) in one transaction. Submitting the same source item
// again returns the existing payout instead of creating a duplicate.
func (s *Service) CreatePayout(ctx context.Context, in CreateInput) (*domain.Payout, error) {
	amount, err := money.NewFromSmallestUnit(in.Amount, money.Code(in.Currency))
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", money.ErrNonPositiveAmount, amount)
	}

	existing, err := s.uow.Payouts().FindBySource(ctx, in.EmployerID, in.EmployeeID, in.SourceType, in.SourceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	p := &domain.Payout{
		ID:         uuid.New(),
		EmployerID: in.EmployerID,
		EmployeeID: in.EmployeeID,
		MethodID:   in.MethodID,
		BatchID:    in.BatchID,
		Category:   in.Category,
		Amount:     in.Amount,
		Currency:   in.Currency,
		Status:     domain.StatusPending,
		SourceType: in.SourceType,
		SourceID:   in.SourceID,
	}
	debit := &domain.Transaction{
		ID:         uuid.New(),
		PayoutID:   p.ID,
		EmployerID: in.EmployerID,
		EmployeeID: in.EmployeeID,
		Direction:  domain.TxDebit,
		Amount:     in.Amount,
		Currency:   in.Currency,
		Status:     domain.TxPending,
	}
	credit := &domain.Transaction{
		ID:         uuid.New(),
		PayoutID:   p.ID,
		EmployerID: in.EmployerID,
		EmployeeID: in.EmployeeID,
		Direction:  domain.TxCredit,
		Amount:     in.Amount,
		Currency:   in.Currency,
		Status:     domain.TxPending,
	}
	p.EmployerTxID = &debit.ID
	p.EmployeeTxID = &credit.ID

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		if err := uow.Payouts().Create(ctx, p); err != nil {
			return err
		}
		if err := uow.Transactions().Create(ctx, debit); err != nil {
			return err
		}
		return uow.Transactions().Create(ctx, credit)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateStatus applies a manual (operator) status transition to a payout.
// idemKey guards replays: the same key re-applying the same status is a
// no-op, a different key re-applying an already-applied status is a
// conflict.
func (s *Service) UpdateStatus(ctx context.Context, payoutID uuid.UUID, target domain.Status, reason, idemKey string) (*domain.Payout, error) {
	switch target {
	case domain.StatusPaid, domain.StatusFailed, domain.StatusCanceled:
	default:
		return nil, fmt.Errorf("status %s cannot be set manually", target)
	}

	p, err := s.uow.Payouts().Get(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	if p.Status == target {
		if p.ManualIdempotencyKey == idemKey {
			return p, nil
		}
		return nil, domain.ErrManualUpdateConflict
	}
	if p.Status.IsTerminal() {
		return nil, fmt.Errorf("payout is %s: %w", p.Status, domain.ErrManualUpdateConflict)
	}

	txStatus := domain.TxFailed
	if target == domain.StatusPaid {
		txStatus = domain.TxSuccess
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		p.Status = target
		p.FailureReason = reason
		p.ManualIdempotencyKey = idemKey
		if err := uow.Payouts().Update(ctx, p); err != nil {
			return err
		}
		return flipLedger(ctx, uow, p.ID, txStatus)
	})
	if err != nil {
		return nil, err
	}

	switch target {
	case domain.StatusPaid:
		s.emit(ctx, events.PayoutPaid{
			Base:        events.NewBase(p.EmployerID),
			PayoutID:    p.ID,
			ProviderRef: p.ProviderRef,
			Amount:      p.Amount,
			Currency:    p.Currency,
		})
		s.emit(ctx, events.ReceiptRequested{
			Base:        events.NewBase(p.EmployerID),
			PayoutID:    p.ID,
			ProviderRef: p.ProviderRef,
		})
	default:
		s.emit(ctx, events.PayoutFailed{
			Base:     events.NewBase(p.EmployerID),
			PayoutID: p.ID,
			Reason:   reason,
		})
	}
	s.logger.Info("manual status update", "payout_id", p.ID, "status", target)
	return p, nil
}

// Reverse reverses a paid payout: each settled ledger row gets a refund
// row in the opposite direction linked back to it, the originals flip to
// REVERSED and so does the payout. A second reversal is rejected.
func (s *Service) Reverse(ctx context.Context, payoutID uuid.UUID) (*domain.Payout, error) {
	p, err := s.uow.Payouts().Get(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if p.Status == domain.StatusReversed {
		return nil, domain.ErrAlreadyReversed
	}
	if p.Status != domain.StatusPaid {
		return nil, domain.ErrNotReversible
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		txs, err := uow.Transactions().ListByPayout(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, tx := range txs {
			if tx.ReversalOfID != nil {
				return domain.ErrAlreadyReversed
			}
		}
		for _, tx := range txs {
			if tx.Status != domain.TxSuccess {
				continue
			}
			refund := &domain.Transaction{
				ID:           uuid.New(),
				PayoutID:     tx.PayoutID,
				EmployerID:   tx.EmployerID,
				EmployeeID:   tx.EmployeeID,
				Direction:    tx.Direction.Opposite(),
				Amount:       tx.Amount,
				Currency:     tx.Currency,
				Status:       domain.TxSuccess,
				ReversalOfID: &tx.ID,
			}
			if err := uow.Transactions().Create(ctx, refund); err != nil {
				return err
			}
			tx.Status = domain.TxReversed
			if err := uow.Transactions().Update(ctx, tx); err != nil {
				return err
			}
		}
		p.Status = domain.StatusReversed
		return uow.Payouts().Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.PayoutReversed{
		Base:     events.NewBase(p.EmployerID),
		PayoutID: p.ID,
	})
	s.logger.Info("payout reversed", "payout_id", p.ID)
	return p, nil
}
