package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Cancel context to signal all components
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Wait for intake and watcher goroutines. In-flight sells run to
	// completion before the ledger closes underneath them.
	a.wg.Wait()

	// Close the ledger last
	err = a.engine.Close()
	if err != nil {
		a.logger.Error("ledger-close-error", zap.Error(err))
	}

	a.logger.Info("application-shutdown-complete")

	return nil
}
