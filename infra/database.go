// Package infra wires the engine's persistence: the gorm connection and
// the unit of work binding repositories to one session.
package infra

import (
	"fmt"

	"github.com/velohr/settlement/infra/repository/attempt"
	"github.com/velohr/settlement/infra/repository/batch"
	"github.com/velohr/settlement/infra/repository/connection"
	"github.com/velohr/settlement/infra/repository/method"
	payoutrepo "github.com/velohr/settlement/infra/repository/payout"
	"github.com/velohr/settlement/infra/repository/settings"
	"github.com/velohr/settlement/infra/repository/transaction"
	"github.com/velohr/settlement/infra/repository/transfer"
	"github.com/velohr/settlement/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDBConnection opens the tenant data store.
func NewDBConnection(cfg config.DB) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Url), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// AutoMigrate creates or updates the settlement schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&payoutrepo.Payout{},
		&attempt.Attempt{},
		&transfer.Transfer{},
		&batch.Batch{},
		&transaction.Transaction{},
		&method.Method{},
		&connection.Connection{},
		&settings.ProviderSetting{},
	)
}
