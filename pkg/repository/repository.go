// Package repository defines the persistence contracts of the settlement
// engine. Implementations live in infra/repository and are always bound
// to one tenant's data store; the tenant-context resolver that picks the
// store is an external collaborator.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/provider"
)

// PayoutRepository persists payouts.
type PayoutRepository interface {
	Create(ctx context.Context, p *payout.Payout) error
	Get(ctx context.Context, id uuid.UUID) (*payout.Payout, error)
	Update(ctx context.Context, p *payout.Payout) error

	// ListByBatch returns a batch's members in creation order.
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*payout.Payout, error)

	// FindBySource deduplicates batch items: re-submitting the same
	// payroll or expense item must find the existing payout.
	FindBySource(
		ctx context.Context,
		employerID, employeeID uuid.UUID,
		sourceType string,
		sourceID uuid.UUID,
	) (*payout.Payout, error)
}

// AttemptRepository persists payment attempts.
type AttemptRepository interface {
	Create(ctx context.Context, a *payout.Attempt) error
	Update(ctx context.Context, a *payout.Attempt) error
	Get(ctx context.Context, id uuid.UUID) (*payout.Attempt, error)

	// FindByKey looks an attempt up by idempotency key; the key is unique
	// so at most one attempt matches.
	FindByKey(ctx context.Context, key string) (*payout.Attempt, error)
}

// TransferRepository persists provider transfers.
type TransferRepository interface {
	Create(ctx context.Context, t *payout.Transfer) error
	Update(ctx context.Context, t *payout.Transfer) error
	Get(ctx context.Context, id uuid.UUID) (*payout.Transfer, error)

	// ListDue returns open transfers whose next poll time has elapsed,
	// oldest due first, capped at limit. A nil employerID sweeps all
	// employers in the tenant store.
	ListDue(ctx context.Context, employerID *uuid.UUID, now time.Time, limit int) ([]*payout.Transfer, error)
}

// BatchRepository persists batches.
type BatchRepository interface {
	Create(ctx context.Context, b *payout.Batch) error
	Update(ctx context.Context, b *payout.Batch) error
	Get(ctx context.Context, id uuid.UUID) (*payout.Batch, error)

	// MemberTotal re-derives the batch total from current member state.
	MemberTotal(ctx context.Context, batchID uuid.UUID) (int64, error)
}

// TransactionRepository persists ledger rows.
type TransactionRepository interface {
	Create(ctx context.Context, t *payout.Transaction) error
	Update(ctx context.Context, t *payout.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*payout.Transaction, error)
	ListByPayout(ctx context.Context, payoutID uuid.UUID) ([]*payout.Transaction, error)
}

// MethodRepository reads payout destinations.
type MethodRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*payout.Method, error)
	Update(ctx context.Context, m *payout.Method) error

	// DefaultForEmployee returns the employee's active default method.
	DefaultForEmployee(ctx context.Context, employeeID uuid.UUID) (*payout.Method, error)
}

// ConnectionRepository reads provider connections.
type ConnectionRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*payout.Connection, error)

	// ActiveForEmployer returns the employer's single ACTIVE connection.
	ActiveForEmployer(ctx context.Context, employerID uuid.UUID) (*payout.Connection, error)
}

// SettingsRepository reads the employer's provider configuration.
type SettingsRepository interface {
	ForEmployer(ctx context.Context, employerID uuid.UUID) (provider.Settings, error)
}

// UnitOfWork scopes repository access to one data-store session and runs
// multi-row transitions atomically. Partial application of a transition
// (a payout flipping PAID while a ledger row stays PENDING) must be
// impossible even under process failure mid-operation.
type UnitOfWork interface {
	// Do executes fn inside a transaction boundary; fn receives a
	// UnitOfWork whose repositories share that transaction. An error
	// rolls everything back.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	Payouts() PayoutRepository
	Attempts() AttemptRepository
	Transfers() TransferRepository
	Batches() BatchRepository
	Transactions() TransactionRepository
	Methods() MethodRepository
	Connections() ConnectionRepository
	Settings() SettingsRepository
}
