// Package app wires the engine together: intake, entry, supervision and
// the observability surface, with one graceful-shutdown path.
package app

import (
	"context"
	"io"
	"sync"

	"github.com/snipeworks/solana-sniper/internal/guard"
	"github.com/snipeworks/solana-sniper/pkg/config"
	"github.com/snipeworks/solana-sniper/pkg/healthprobe"
	"github.com/snipeworks/solana-sniper/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	engine        *Engine
	balanceGuard  *guard.BalanceGuard
	intake        io.Reader
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	Intake io.Reader // candidate stream, defaults to stdin
}
