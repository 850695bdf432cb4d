package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/thv-history-sync/internal/app"
)

const defaultGracefulTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled sync and the HTTP API",
		Long: `Start the history sync server. It runs a full sync on the configured schedule
and serves the HTTP API:

  GET  /health, /readiness, /version, /metrics
  GET  /v1/threads                       threads with their local message counts
  GET  /v1/sync/last                     report of the most recent run
  POST /v1/sync                          start a run now
  POST /v1/threads/{threadID}/messages   live capture (when enabled)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmdContext(cmd), v)
		},
	}

	cmd.Flags().String("address", ":8080", "Address to listen on")
	if err := v.BindPFlag("address", cmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
	}
	addConfigFlag(cmd, v)

	return cmd
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	historyApp, err := app.NewHistoryApp(ctx,
		app.WithConfig(cfg),
		app.WithAddress(v.GetString("address")),
	)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- historyApp.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = historyApp.Stop(defaultGracefulTimeout)
			return err
		}
	case <-sigCtx.Done():
	}

	return historyApp.Stop(defaultGracefulTimeout)
}
