package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/velohr/settlement/pkg/app"
	"github.com/velohr/settlement/pkg/config"
	"github.com/velohr/settlement/webapi"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env", slog.Default())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := app.NewLogger(*cfg.Log)

	a, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	srv := webapi.NewApp(webapi.Deps{
		Uow:      a.Uow,
		Payouts:  a.Payouts,
		Batches:  a.Batches,
		Poller:   a.Poller,
		Registry: a.Registry,
		Logger:   logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("starting server", "env", cfg.Env, "addr", addr)
	return srv.Listen(addr)
}
