// Package testutil provides in-memory collaborators for service tests:
// a map-backed unit of work, a scripted provider and a recording
// notification sink.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/velohr/settlement/pkg/domain/payout"
	"github.com/velohr/settlement/pkg/provider"
	"github.com/velohr/settlement/pkg/repository"
)

// MemUoW is a map-backed repository.UnitOfWork. Do runs the function
// directly; there is no rollback, which is fine for the happy and
// failure paths the service tests exercise.
type MemUoW struct {
	mu sync.Mutex

	PayoutsByID map[uuid.UUID]*payout.Payout
	payoutOrder []uuid.UUID

	AttemptsByID  map[uuid.UUID]*payout.Attempt
	TransfersByID map[uuid.UUID]*payout.Transfer
	transferOrder []uuid.UUID

	BatchesByID map[uuid.UUID]*payout.Batch

	TxByID  map[uuid.UUID]*payout.Transaction
	txOrder []uuid.UUID

	MethodsByID map[uuid.UUID]*payout.Method
	ConnsByID   map[uuid.UUID]*payout.Connection

	ProviderSettings provider.Settings
}

// NewMemUoW creates an empty in-memory unit of work.
func NewMemUoW() *MemUoW {
	return &MemUoW{
		PayoutsByID:   make(map[uuid.UUID]*payout.Payout),
		AttemptsByID:  make(map[uuid.UUID]*payout.Attempt),
		TransfersByID: make(map[uuid.UUID]*payout.Transfer),
		BatchesByID:   make(map[uuid.UUID]*payout.Batch),
		TxByID:        make(map[uuid.UUID]*payout.Transaction),
		MethodsByID:   make(map[uuid.UUID]*payout.Method),
		ConnsByID:     make(map[uuid.UUID]*payout.Connection),
	}
}

func (u *MemUoW) Do(_ context.Context, fn func(uow repository.UnitOfWork) error) error {
	return fn(u)
}

func (u *MemUoW) Payouts() repository.PayoutRepository           { return payoutRepo{u} }
func (u *MemUoW) Attempts() repository.AttemptRepository         { return attemptRepo{u} }
func (u *MemUoW) Transfers() repository.TransferRepository       { return transferRepo{u} }
func (u *MemUoW) Batches() repository.BatchRepository            { return batchRepo{u} }
func (u *MemUoW) Transactions() repository.TransactionRepository { return txRepo{u} }
func (u *MemUoW) Methods() repository.MethodRepository           { return methodRepo{u} }
func (u *MemUoW) Connections() repository.ConnectionRepository   { return connRepo{u} }
func (u *MemUoW) Settings() repository.SettingsRepository        { return settingsRepo{u} }

var _ repository.UnitOfWork = (*MemUoW)(nil)

type payoutRepo struct{ u *MemUoW }

func (r payoutRepo) Create(_ context.Context, p *payout.Payout) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.PayoutsByID[p.ID] = p
	r.u.payoutOrder = append(r.u.payoutOrder, p.ID)
	return nil
}

func (r payoutRepo) Get(_ context.Context, id uuid.UUID) (*payout.Payout, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	p, ok := r.u.PayoutsByID[id]
	if !ok {
		return nil, payout.ErrNotFound
	}
	return p, nil
}

func (r payoutRepo) Update(_ context.Context, p *payout.Payout) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.PayoutsByID[p.ID] = p
	return nil
}

func (r payoutRepo) ListByBatch(_ context.Context, batchID uuid.UUID) ([]*payout.Payout, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	var out []*payout.Payout
	for _, id := range r.u.payoutOrder {
		p := r.u.PayoutsByID[id]
		if p.BatchID != nil && *p.BatchID == batchID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r payoutRepo) FindBySource(_ context.Context, employerID, employeeID uuid.UUID, sourceType string, sourceID uuid.UUID) (*payout.Payout, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	for _, id := range r.u.payoutOrder {
		p := r.u.PayoutsByID[id]
		if p.EmployerID == employerID && p.EmployeeID == employeeID &&
			p.SourceType == sourceType && p.SourceID == sourceID {
			return p, nil
		}
	}
	return nil, nil
}

type attemptRepo struct{ u *MemUoW }

func (r attemptRepo) Create(_ context.Context, a *payout.Attempt) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.AttemptsByID[a.ID] = a
	return nil
}

func (r attemptRepo) Update(_ context.Context, a *payout.Attempt) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.AttemptsByID[a.ID] = a
	return nil
}

func (r attemptRepo) Get(_ context.Context, id uuid.UUID) (*payout.Attempt, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	a, ok := r.u.AttemptsByID[id]
	if !ok {
		return nil, payout.ErrNotFound
	}
	return a, nil
}

func (r attemptRepo) FindByKey(_ context.Context, key string) (*payout.Attempt, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	for _, a := range r.u.AttemptsByID {
		if a.IdempotencyKey == key {
			return a, nil
		}
	}
	return nil, nil
}

type transferRepo struct{ u *MemUoW }

func (r transferRepo) Create(_ context.Context, t *payout.Transfer) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	r.u.TransfersByID[t.ID] = t
	r.u.transferOrder = append(r.u.transferOrder, t.ID)
	return nil
}

func (r transferRepo) Update(_ context.Context, t *payout.Transfer) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.TransfersByID[t.ID] = t
	return nil
}

func (r transferRepo) Get(_ context.Context, id uuid.UUID) (*payout.Transfer, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	t, ok := r.u.TransfersByID[id]
	if !ok {
		return nil, payout.ErrNotFound
	}
	return t, nil
}

func (r transferRepo) ListDue(_ context.Context, employerID *uuid.UUID, now time.Time, limit int) ([]*payout.Transfer, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	var out []*payout.Transfer
	for _, id := range r.u.transferOrder {
		t := r.u.TransfersByID[id]
		if !t.Status.IsOpen() || t.NextPollAt == nil || t.NextPollAt.After(now) {
			continue
		}
		if employerID != nil {
			p, ok := r.u.PayoutsByID[t.PayoutID]
			if !ok || p.EmployerID != *employerID {
				continue
			}
		}
		out = append(out, t)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type batchRepo struct{ u *MemUoW }

func (r batchRepo) Create(_ context.Context, b *payout.Batch) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.BatchesByID[b.ID] = b
	return nil
}

func (r batchRepo) Update(_ context.Context, b *payout.Batch) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.BatchesByID[b.ID] = b
	return nil
}

func (r batchRepo) Get(_ context.Context, id uuid.UUID) (*payout.Batch, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	b, ok := r.u.BatchesByID[id]
	if !ok {
		return nil, payout.ErrNotFound
	}
	return b, nil
}

func (r batchRepo) MemberTotal(_ context.Context, batchID uuid.UUID) (int64, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	var total int64
	for _, p := range r.u.PayoutsByID {
		if p.BatchID != nil && *p.BatchID == batchID {
			total += p.Amount
		}
	}
	return total, nil
}

type txRepo struct{ u *MemUoW }

func (r txRepo) Create(_ context.Context, t *payout.Transaction) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.TxByID[t.ID] = t
	r.u.txOrder = append(r.u.txOrder, t.ID)
	return nil
}

func (r txRepo) Update(_ context.Context, t *payout.Transaction) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.TxByID[t.ID] = t
	return nil
}

func (r txRepo) Get(_ context.Context, id uuid.UUID) (*payout.Transaction, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	t, ok := r.u.TxByID[id]
	if !ok {
		return nil, payout.ErrNotFound
	}
	return t, nil
}

func (r txRepo) ListByPayout(_ context.Context, payoutID uuid.UUID) ([]*payout.Transaction, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	var out []*payout.Transaction
	for _, id := range r.u.txOrder {
		t := r.u.TxByID[id]
		if t.PayoutID == payoutID {
			out = append(out, t)
		}
	}
	return out, nil
}

type methodRepo struct{ u *MemUoW }

func (r methodRepo) Get(_ context.Context, id uuid.UUID) (*payout.Method, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	m, ok := r.u.MethodsByID[id]
	if !ok {
		return nil, payout.ErrNotFound
	}
	return m, nil
}

func (r methodRepo) Update(_ context.Context, m *payout.Method) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.MethodsByID[m.ID] = m
	return nil
}

func (r methodRepo) DefaultForEmployee(_ context.Context, employeeID uuid.UUID) (*payout.Method, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	for _, m := range r.u.MethodsByID {
		if m.EmployeeID == employeeID && m.Default && m.Active {
			return m, nil
		}
	}
	return nil, nil
}

type connRepo struct{ u *MemUoW }

func (r connRepo) Get(_ context.Context, id uuid.UUID) (*payout.Connection, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	c, ok := r.u.ConnsByID[id]
	if !ok {
		return nil, payout.ErrNotFound
	}
	return c, nil
}

func (r connRepo) ActiveForEmployer(_ context.Context, employerID uuid.UUID) (*payout.Connection, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	for _, c := range r.u.ConnsByID {
		if c.EmployerID == employerID && c.Status == payout.ConnectionActive {
			return c, nil
		}
	}
	return nil, nil
}

type settingsRepo struct{ u *MemUoW }

func (r settingsRepo) ForEmployer(_ context.Context, _ uuid.UUID) (provider.Settings, error) {
	return r.u.ProviderSettings, nil
}
