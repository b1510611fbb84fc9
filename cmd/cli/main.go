// The settlement CLI runs operational tasks against the settlement
// engine: the confirmation sweep and batch processing, for cron jobs and
// operators.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/velohr/settlement/pkg/app"
	"github.com/velohr/settlement/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:          "settlement",
		Short:        "Operational tasks for the settlement engine",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to the .env file")

	root.AddCommand(newSweepCmd(&envFile))
	root.AddCommand(newBatchCmd(&envFile))
	return root
}

// buildApp loads configuration and wires the dependency graph.
func buildApp(envFile string) (*app.App, error) {
	cfg, err := config.Load(envFile, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logger := app.NewLogger(*cfg.Log)
	return app.New(cfg, logger)
}

func newSweepCmd(envFile *string) *cobra.Command {
	var employer string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Poll due transfers once and apply their outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*envFile)
			if err != nil {
				return err
			}

			var employerID *uuid.UUID
			if employer != "" {
				id, err := uuid.Parse(employer)
				if err != nil {
					return fmt.Errorf("invalid employer id: %w", err)
				}
				employerID = &id
			}

			polled, err := a.Poller.Sweep(cmd.Context(), employerID)
			if err != nil {
				return err
			}
			a.Logger.Info("sweep complete", "polled", polled)
			return nil
		},
	}
	cmd.Flags().StringVar(&employer, "employer", "", "limit the sweep to one employer id")
	return cmd
}

func newBatchCmd(envFile *string) *cobra.Command {
	var allowRetry bool

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Batch operations",
	}

	process := &cobra.Command{
		Use:   "process <batch-id>",
		Short: "Run a settlement pass over a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid batch id: %w", err)
			}
			a, err := buildApp(*envFile)
			if err != nil {
				return err
			}
			b, err := a.Batches.Process(cmd.Context(), id, allowRetry)
			if err != nil {
				return err
			}
			a.Logger.Info("batch processed", "batch_id", b.ID, "status", b.Status, "total", b.TotalAmount)
			return nil
		},
	}
	process.Flags().BoolVar(&allowRetry, "retry", false, "re-run previously failed attempts")

	cmd.AddCommand(process)
	return cmd
}
