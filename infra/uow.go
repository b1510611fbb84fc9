package infra

import (
	"context"

	"github.com/velohr/settlement/infra/repository/attempt"
	"github.com/velohr/settlement/infra/repository/batch"
	"github.com/velohr/settlement/infra/repository/connection"
	"github.com/velohr/settlement/infra/repository/method"
	payoutrepo "github.com/velohr/settlement/infra/repository/payout"
	"github.com/velohr/settlement/infra/repository/settings"
	"github.com/velohr/settlement/infra/repository/transaction"
	"github.com/velohr/settlement/infra/repository/transfer"
	"github.com/velohr/settlement/pkg/repository"
	"gorm.io/gorm"
)

// UoW binds all repositories to one gorm session. Do runs the given
// function inside a database transaction; repositories obtained from the
// UnitOfWork passed to fn share that transaction, so a multi-row
// transition either fully applies or fully rolls back.
type UoW struct {
	session *gorm.DB
}

// NewUoW creates a unit of work over the tenant data store.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{session: db}
}

// Do implements repository.UnitOfWork.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return u.session.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UoW{session: tx})
	})
}

func (u *UoW) Payouts() repository.PayoutRepository           { return payoutrepo.New(u.session) }
func (u *UoW) Attempts() repository.AttemptRepository         { return attempt.New(u.session) }
func (u *UoW) Transfers() repository.TransferRepository       { return transfer.New(u.session) }
func (u *UoW) Batches() repository.BatchRepository            { return batch.New(u.session) }
func (u *UoW) Transactions() repository.TransactionRepository { return transaction.New(u.session) }
func (u *UoW) Methods() repository.MethodRepository           { return method.New(u.session) }
func (u *UoW) Connections() repository.ConnectionRepository   { return connection.New(u.session) }
func (u *UoW) Settings() repository.SettingsRepository        { return settings.New(u.session) }

// Ensure UoW implements the UnitOfWork interface.
var _ repository.UnitOfWork = (*UoW)(nil)
