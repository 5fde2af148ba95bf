// Package guard monitors the wallet's SOL balance in the background and
// blocks new entries when the balance cannot cover a trade plus the fee
// reserve. A tripped guard never interrupts an open position: the watcher
// keeps running, only new entries are refused.
package guard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// hysteresisRatio keeps the guard from flapping around the threshold:
// entries re-enable only once the balance clears the threshold with
// headroom.
const hysteresisRatio = 1.1

const lamportsPerSOL = 1_000_000_000

// BalanceFetcher is the balance-read capability the guard consumes.
type BalanceFetcher interface {
	GetSOLBalance(ctx context.Context, owner solanago.PublicKey) (uint64, error)
}

// BalanceGuard periodically checks the wallet's SOL balance and exposes
// a lock-free allowed/blocked flag to the entry path.
type BalanceGuard struct {
	allowed atomic.Bool

	checkInterval time.Duration
	chain         BalanceFetcher
	owner         solanago.PublicKey
	logger        *zap.Logger

	// Entry is allowed while balance >= tradeAmount + reserve.
	tradeAmountSOL float64
	reserveSOL     float64

	mu          sync.RWMutex
	lastBalance float64
	lastCheck   time.Time
}

// Config holds balance guard configuration.
type Config struct {
	CheckInterval  time.Duration
	Chain          BalanceFetcher
	Owner          solanago.PublicKey
	TradeAmountSOL float64
	ReserveSOL     float64
	Logger         *zap.Logger
}

// New creates a new balance guard.
func New(cfg *Config) (*BalanceGuard, error) {
	if cfg.Chain == nil {
		return nil, fmt.Errorf("chain client cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	if cfg.TradeAmountSOL <= 0 {
		return nil, fmt.Errorf("trade amount must be positive")
	}

	g := &BalanceGuard{
		checkInterval:  cfg.CheckInterval,
		chain:          cfg.Chain,
		owner:          cfg.Owner,
		logger:         cfg.Logger,
		tradeAmountSOL: cfg.TradeAmountSOL,
		reserveSOL:     cfg.ReserveSOL,
	}

	// Optimistic until the first check lands.
	g.allowed.Store(true)
	GuardAllowed.Set(1)

	return g, nil
}

// Allowed reports whether new entries may proceed. Lock-free, safe on
// the hot path.
func (g *BalanceGuard) Allowed() bool {
	return g.allowed.Load()
}

// CheckBalance fetches the balance once and updates the allowed flag.
func (g *BalanceGuard) CheckBalance(ctx context.Context) error {
	lamports, err := g.chain.GetSOLBalance(ctx, g.owner)
	if err != nil {
		g.logger.Error("balance-check-failed", zap.Error(err))
		return fmt.Errorf("get sol balance: %w", err)
	}

	balance := float64(lamports) / lamportsPerSOL
	threshold := g.tradeAmountSOL + g.reserveSOL

	g.mu.Lock()
	g.lastBalance = balance
	g.lastCheck = time.Now()
	g.mu.Unlock()

	GuardBalanceSOL.Set(balance)

	currentlyAllowed := g.allowed.Load()
	switch {
	case currentlyAllowed && balance < threshold:
		g.allowed.Store(false)
		GuardAllowed.Set(0)
		GuardStateChanges.Inc()
		g.logger.Warn("entries-blocked-low-balance",
			zap.Float64("balance-sol", balance),
			zap.Float64("threshold-sol", threshold))
	case !currentlyAllowed && balance >= threshold*hysteresisRatio:
		g.allowed.Store(true)
		GuardAllowed.Set(1)
		GuardStateChanges.Inc()
		g.logger.Info("entries-unblocked",
			zap.Float64("balance-sol", balance),
			zap.Float64("threshold-sol", threshold))
	default:
		g.logger.Debug("balance-checked",
			zap.Float64("balance-sol", balance),
			zap.Bool("allowed", currentlyAllowed))
	}

	return nil
}

// Start checks once immediately, then monitors in the background until
// the context is cancelled.
func (g *BalanceGuard) Start(ctx context.Context) {
	g.logger.Info("balance-guard-started",
		zap.Duration("check-interval", g.checkInterval),
		zap.Float64("trade-amount-sol", g.tradeAmountSOL),
		zap.Float64("reserve-sol", g.reserveSOL))

	err := g.CheckBalance(ctx)
	if err != nil {
		g.logger.Error("initial-balance-check-failed", zap.Error(err))
	}

	go g.monitorLoop(ctx)
}

func (g *BalanceGuard) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(g.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("balance-guard-stopped")
			return
		case <-ticker.C:
			err := g.CheckBalance(ctx)
			if err != nil {
				g.logger.Error("balance-check-error", zap.Error(err))
			}
		}
	}
}

// Status is a point-in-time snapshot for debugging endpoints.
type Status struct {
	Allowed     bool      `json:"allowed"`
	LastBalance float64   `json:"last_balance_sol"`
	LastCheck   time.Time `json:"last_check"`
}

// GetStatus returns the current guard status.
func (g *BalanceGuard) GetStatus() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return Status{
		Allowed:     g.allowed.Load(),
		LastBalance: g.lastBalance,
		LastCheck:   g.lastCheck,
	}
}
