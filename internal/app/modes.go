package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"cartrules/internal/engine"
	"cartrules/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

// runAgent starts every service and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM, then shuts down in reverse order.
func runAgent(ctx context.Context, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if services.Watcher != nil {
		if err := services.Watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start rule watcher: %w", err)
		}
	}

	if err := services.Server.Start(); err != nil {
		if services.Watcher != nil {
			_ = services.Watcher.Stop()
		}
		return err
	}

	if err := services.Scheduler.Start(ctx); err != nil {
		_ = services.Server.Shutdown(context.Background())
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logging.Warn("Bootstrap", "Readiness notification failed: %v", err)
	} else if ok {
		logging.Debug("Bootstrap", "Notified systemd of readiness")
	}

	logging.Info("Bootstrap", "Agent running for %s. Press Ctrl+C to stop.", services.Shop)
	<-ctx.Done()

	logging.Info("Bootstrap", "Shutting down")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := services.Server.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Bootstrap", "HTTP server shutdown: %v", err)
	}
	services.Hub.Close()
	_ = services.Scheduler.Stop()
	if services.Watcher != nil {
		_ = services.Watcher.Stop()
	}
	if err := services.flush(shutdownCtx); err != nil {
		logging.Warn("Bootstrap", "Telemetry still in flight at shutdown: %v", err)
	}

	return nil
}

// runCheck runs one forced pass outside the scheduler.
func runCheck(ctx context.Context, services *Services) (engine.PassResult, error) {
	res, err := services.Engine.Reconcile(ctx, true)
	if flushErr := services.FlushTelemetry(shutdownTimeout); flushErr != nil {
		logging.Warn("Bootstrap", "Telemetry still in flight: %v", flushErr)
	}
	return res, err
}
