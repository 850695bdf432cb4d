// Package app wires the history sync components together and manages their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/stacklok/thv-history-sync/internal/config"
	"github.com/stacklok/thv-history-sync/internal/sync/coordinator"
	"github.com/stacklok/thv-history-sync/internal/telemetry"
)

// HistoryApp runs the HTTP server and the sync coordinator
type HistoryApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server
	telemetry  *telemetry.Telemetry

	ctx        context.Context
	cancelFunc context.CancelFunc

	stopOnce sync.Once
	stopErr  error
}

// Start starts the coordinator in the background and serves HTTP until the
// server is shut down
func (app *HistoryApp) Start() error {
	ln, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.httpServer.Addr, err)
	}
	return app.Serve(ln)
}

// Serve is Start on an existing listener
func (app *HistoryApp) Serve(ln net.Listener) error {
	go func() {
		err := app.components.SyncCoordinator.Start(app.ctx)
		if err != nil && !errors.Is(err, coordinator.ErrStopped) {
			slog.Error("Sync coordinator failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", ln.Addr().String())
	if err := app.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop stops the coordinator, drains the HTTP server and pending captures and
// releases the store and telemetry. Only the first call does any work.
func (app *HistoryApp) Stop(timeout time.Duration) error {
	app.stopOnce.Do(func() {
		app.stopErr = app.stop(timeout)
	})
	return app.stopErr
}

func (app *HistoryApp) stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	var errs []error

	if err := app.components.SyncCoordinator.Stop(); err != nil {
		slog.Error("Failed to stop sync coordinator", "error", err)
	}

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
	}

	if app.components.Capture != nil {
		app.components.Capture.Wait()
	}

	if app.components.Store != nil {
		if err := app.components.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		}
	}

	if app.telemetry != nil {
		if err := app.telemetry.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *HistoryApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server
func (app *HistoryApp) GetHTTPServer() *http.Server {
	return app.httpServer
}
