// Package app wires the settlement engine's dependencies. Both the HTTP
// server and the CLI build the same graph through it.
package app

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/velohr/settlement/infra"
	infraeventbus "github.com/velohr/settlement/infra/eventbus"
	inframetrics "github.com/velohr/settlement/infra/metrics"
	"github.com/velohr/settlement/infra/provider/gbpay"
	"github.com/velohr/settlement/infra/provider/manual"
	"github.com/velohr/settlement/infra/secrets"
	"github.com/velohr/settlement/pkg/config"
	"github.com/velohr/settlement/pkg/eventbus"
	"github.com/velohr/settlement/pkg/metrics"
	"github.com/velohr/settlement/pkg/notification"
	"github.com/velohr/settlement/pkg/provider"
	"github.com/velohr/settlement/pkg/repository"
	batchsvc "github.com/velohr/settlement/pkg/service/batch"
	payoutsvc "github.com/velohr/settlement/pkg/service/payout"
	pollersvc "github.com/velohr/settlement/pkg/service/poller"
	"gorm.io/gorm"
)

// App is the assembled dependency graph.
type App struct {
	Config    *config.App
	Logger    *slog.Logger
	DB        *gorm.DB
	Uow       repository.UnitOfWork
	Bus       eventbus.Bus
	Registry  *prometheus.Registry
	Metrics   metrics.Sink
	Notifier  notification.Sink
	Providers *provider.Registry
	Decryptor provider.Decryptor
	Payouts   *payoutsvc.Service
	Batches   *batchsvc.Service
	Poller    *pollersvc.Service
}

// New opens the data store, migrates the schema and wires every service.
func New(cfg *config.App, logger *slog.Logger) (*App, error) {
	db, err := infra.NewDBConnection(*cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := infra.AutoMigrate(db); err != nil {
		return nil, err
	}

	uow := infra.NewUoW(db)
	bus := infraeventbus.NewMemory(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	sink := inframetrics.NewProm(reg, logger)

	notifier := notification.Slog{Logger: logger}
	providers := provider.NewRegistry(
		gbpay.New(*cfg.GBPay, logger),
		manual.New(),
	)
	decryptor := secrets.Env{}

	payouts := payoutsvc.New(uow, providers, decryptor, bus, sink, notifier, logger)
	batches := batchsvc.New(uow, payouts, providers, bus, sink, notifier, *cfg.Monitor, logger)
	poller := pollersvc.New(uow, payouts, batches, providers, decryptor, bus, sink, notifier, *cfg.Poller, logger)

	return &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Uow:       uow,
		Bus:       bus,
		Registry:  reg,
		Metrics:   sink,
		Notifier:  notifier,
		Providers: providers,
		Decryptor: decryptor,
		Payouts:   payouts,
		Batches:   batches,
		Poller:    poller,
	}, nil
}

// NewLogger builds the application logger: tinted text for development,
// JSON for everything else.
func NewLogger(cfg config.Log) *slog.Logger {
	level := slog.Level(cfg.Level)
	if cfg.Format == "text" {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
