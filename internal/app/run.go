package app

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/snipeworks/solana-sniper/internal/executor"
	"github.com/snipeworks/solana-sniper/pkg/types"
	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("ledger-mode", a.cfg.LedgerMode),
		zap.Float64("trade-amount-sol", a.cfg.TradeAmountSOL),
		zap.String("log-level", a.cfg.LogLevel))

	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Start balance guard
	if a.balanceGuard != nil {
		a.balanceGuard.Start(a.ctx)
	}

	// Mark as ready
	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready", zap.String("http-addr", ":"+a.cfg.HTTPPort))

	// Adopt positions left open by a previous run before taking new
	// candidates.
	err := a.adoptOpenPositions()
	if err != nil {
		a.logger.Error("position-adoption-failed", zap.Error(err))
	}

	// Start candidate intake
	a.wg.Add(1)
	go a.runIntake()

	// Wait for shutdown signal
	return a.waitForShutdown()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// adoptOpenPositions supervises positions recorded by a previous run
// until they close. Crash recovery: a restart never orphans capital.
func (a *App) adoptOpenPositions() error {
	positions, err := a.engine.Store.LoadPositions(a.ctx)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		return nil
	}

	a.logger.Info("adopting-open-positions", zap.Int("count", len(positions)))
	return a.engine.Watcher.Watch(a.ctx)
}

// runIntake consumes newline-delimited candidate JSON and trades them
// one at a time: each entry is supervised to close before the next
// candidate is read. The blocking read lives in its own goroutine so a
// shutdown signal never waits on stdin.
func (a *App) runIntake() {
	defer a.wg.Done()

	lines := make(chan []byte)
	go a.readIntake(lines)

	for {
		select {
		case <-a.ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				a.logger.Info("candidate-intake-closed")
				// Intake exhausted: stop the application, no work remains.
				a.cancel()
				return
			}

			var candidate types.Candidate
			err := json.Unmarshal(line, &candidate)
			if err != nil {
				a.logger.Warn("candidate-decode-failed", zap.Error(err))
				continue
			}
			if candidate.TokenAddress == "" {
				a.logger.Warn("candidate-missing-token-address")
				continue
			}

			a.handleCandidate(&candidate)
		}
	}
}

func (a *App) readIntake(lines chan<- []byte) {
	defer close(lines)

	scanner := bufio.NewScanner(a.intake)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())

		select {
		case lines <- line:
		case <-a.ctx.Done():
			return
		}
	}

	err := scanner.Err()
	if err != nil {
		a.logger.Error("candidate-intake-error", zap.Error(err))
	}
}

func (a *App) handleCandidate(candidate *types.Candidate) {
	_, err := a.engine.Executor.Enter(a.ctx, candidate)
	if err != nil {
		if errors.Is(err, executor.ErrPositionOpen) ||
			errors.Is(err, executor.ErrEntriesBlocked) ||
			errors.Is(err, executor.ErrCandidateUnpriced) {
			a.logger.Info("candidate-skipped", zap.Error(err))
			return
		}
		a.logger.Error("entry-failed",
			zap.String("token-address", candidate.TokenAddress),
			zap.Error(err))
		return
	}

	err = a.engine.Watcher.Watch(a.ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("watcher-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
