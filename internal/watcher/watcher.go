// Package watcher polls the prices of open positions and drives the exit
// state machine: active -> closing -> closed. A position enters closing
// when a stop-loss or take-profit threshold trips, and leaves closing
// only when a sell confirms. A failed sell keeps the position in closing
// and the next cycle retries it.
package watcher

import (
	"context"
	"fmt"
	"sort"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/snipeworks/solana-sniper/internal/ledger"
	"github.com/snipeworks/solana-sniper/internal/swap"
	"github.com/snipeworks/solana-sniper/pkg/types"
	"go.uber.org/zap"
)

// Swapper executes one swap attempt.
type Swapper interface {
	Swap(ctx context.Context, direction swap.Direction, inputMint, outputMint string, amount uint64, slippageBps int) (*swap.Result, error)
}

// PriceSource provides current prices by token address.
type PriceSource interface {
	GetPrice(ctx context.Context, tokenAddress string) (float64, error)
}

// BalanceReader reads token balances from the chain. The sell amount is
// the actual wallet balance, not the recorded buy amount, so partial
// fills and transfer fees never strand dust.
type BalanceReader interface {
	GetTokenBalance(ctx context.Context, owner solanago.PublicKey, mint string) (uint64, error)
}

// Watcher supervises open positions until they are all closed.
type Watcher struct {
	store   ledger.Store
	prices  PriceSource
	swapper Swapper
	chain   BalanceReader
	owner   solanago.PublicKey
	logger  *zap.Logger

	interval          time.Duration
	stopLossPercent   float64
	takeProfitPercent float64
	exitSlippageBps   int
}

// Config holds watcher configuration.
type Config struct {
	Store             ledger.Store
	Prices            PriceSource
	Swapper           Swapper
	Chain             BalanceReader
	Owner             solanago.PublicKey
	Interval          time.Duration
	StopLossPercent   float64 // positive, e.g. 15 means exit at -15%
	TakeProfitPercent float64 // positive, e.g. 40 means exit at +40%
	ExitSlippageBps   int
	Logger            *zap.Logger
}

// New creates a new position watcher.
func New(cfg *Config) (*Watcher, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg.Prices == nil {
		return nil, fmt.Errorf("price source cannot be nil")
	}
	if cfg.Swapper == nil {
		return nil, fmt.Errorf("swapper cannot be nil")
	}
	if cfg.Chain == nil {
		return nil, fmt.Errorf("chain client cannot be nil")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if cfg.StopLossPercent <= 0 || cfg.TakeProfitPercent <= 0 {
		return nil, fmt.Errorf("exit thresholds must be positive")
	}

	return &Watcher{
		store:             cfg.Store,
		prices:            cfg.Prices,
		swapper:           cfg.Swapper,
		chain:             cfg.Chain,
		owner:             cfg.Owner,
		logger:            cfg.Logger,
		interval:          cfg.Interval,
		stopLossPercent:   cfg.StopLossPercent,
		takeProfitPercent: cfg.TakeProfitPercent,
		exitSlippageBps:   cfg.ExitSlippageBps,
	}, nil
}

// Watch runs polling cycles until every position is closed or the context
// is cancelled. Positions already in the ledger at startup are adopted
// and supervised like any other. Cancellation is honored between cycles
// only: an in-flight sell always runs to completion.
func (w *Watcher) Watch(ctx context.Context) error {
	w.logger.Info("watcher-started",
		zap.Duration("interval", w.interval),
		zap.Float64("stop-loss-percent", w.stopLossPercent),
		zap.Float64("take-profit-percent", w.takeProfitPercent))

	for {
		remaining, err := w.Cycle(ctx)
		if err != nil {
			return err
		}
		if remaining == 0 {
			w.logger.Info("watcher-finished-all-positions-closed")
			return nil
		}

		select {
		case <-ctx.Done():
			w.logger.Info("watcher-stopped", zap.Int("open-positions", remaining))
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

// Cycle runs one supervision pass over every open position and returns
// how many remain open. Exported so a single pass can be driven directly.
func (w *Watcher) Cycle(ctx context.Context) (int, error) {
	positions, err := w.store.LoadPositions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load positions: %w", err)
	}
	CyclesTotal.Inc()

	// Deterministic order keeps the log readable and the tests stable.
	addresses := make([]string, 0, len(positions))
	for addr := range positions {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	remaining := 0
	for _, addr := range addresses {
		position := positions[addr]
		closed := w.supervise(ctx, &position)
		if !closed {
			remaining++
		}
	}

	return remaining, nil
}

// supervise advances one position by at most one state transition and
// reports whether it ended the pass closed.
func (w *Watcher) supervise(ctx context.Context, position *types.Position) bool {
	logger := w.logger.With(
		zap.String("token-address", position.TokenAddress),
		zap.String("symbol", position.Symbol))

	if position.Status == types.PositionStatusClosing {
		// A prior cycle tripped a threshold but the sell did not
		// confirm. Retry the exit with the already-chosen reason.
		return w.closePosition(ctx, position, exitReasonFor(position), logger)
	}

	price, err := w.prices.GetPrice(ctx, position.TokenAddress)
	if err != nil {
		// No price, no decision. The position is untouched this cycle.
		PriceFetchFailuresTotal.Inc()
		logger.Warn("price-fetch-failed-skipping-cycle", zap.Error(err))
		return false
	}

	changePercent := 0.0
	if position.EntryPrice > 0 {
		changePercent = (price - position.EntryPrice) / position.EntryPrice * 100
	}

	position.CurrentPrice = price
	position.PnLPercent = changePercent
	position.LastUpdate = time.Now().UTC()
	if price > position.HighestPrice {
		position.HighestPrice = price
	}

	var reason types.ExitReason
	switch {
	case changePercent <= -w.stopLossPercent:
		reason = types.ExitReasonStopLoss
	case changePercent >= w.takeProfitPercent:
		reason = types.ExitReasonTakeProfit
	}

	if reason == "" {
		err = w.store.UpsertPosition(ctx, position)
		if err != nil {
			logger.Error("persist-position-update-failed", zap.Error(err))
		}
		logger.Debug("position-checked",
			zap.Float64("price", price),
			zap.Float64("change-percent", changePercent))
		return false
	}

	// The transition to closing is persisted before the sell attempt,
	// so a crash mid-sell resumes in closing, never back in active.
	position.Status = types.PositionStatusClosing
	err = w.store.UpsertPosition(ctx, position)
	if err != nil {
		logger.Error("persist-closing-transition-failed", zap.Error(err))
		return false
	}

	ExitTriggersTotal.WithLabelValues(string(reason)).Inc()
	logger.Info("exit-triggered",
		zap.String("reason", string(reason)),
		zap.Float64("price", price),
		zap.Float64("change-percent", changePercent))

	return w.closePosition(ctx, position, reason, logger)
}

// closePosition sells the full wallet balance of the token. On failure
// the position stays in closing for the next cycle.
func (w *Watcher) closePosition(ctx context.Context, position *types.Position, reason types.ExitReason, logger *zap.Logger) bool {
	// A sell in flight must resolve before shutdown is honored: aborting
	// between submit and confirm leaves the outcome unknown and the
	// record without a signature. The swap client's own timeouts bound
	// this path.
	ctx = context.WithoutCancel(ctx)

	balance, err := w.chain.GetTokenBalance(ctx, w.owner, position.TokenAddress)
	if err != nil {
		logger.Warn("token-balance-read-failed-retry-next-cycle", zap.Error(err))
		return false
	}
	if balance == 0 {
		// Nothing to sell: the tokens left the wallet outside the
		// engine. Close the position without a sell record.
		logger.Warn("token-balance-zero-closing-without-sell")
		err = w.store.RemovePosition(ctx, position.TokenAddress)
		if err != nil {
			logger.Error("remove-position-failed", zap.Error(err))
			return false
		}
		ExitsTotal.WithLabelValues(string(reason), "abandoned").Inc()
		return true
	}

	attemptID := uuid.New().String()
	result, err := w.swapper.Swap(ctx, swap.DirectionSell, position.TokenAddress, swap.SOLMint, balance, w.exitSlippageBps)
	if err != nil {
		w.recordFailedSell(ctx, attemptID, position, reason, err, logger)
		return false
	}

	proceedsSOL := float64(result.OutAmount) / swap.LamportsPerSOL
	profitSOL := proceedsSOL - position.AmountSOL
	profitPercent := 0.0
	if position.AmountSOL > 0 {
		profitPercent = profitSOL / position.AmountSOL * 100
	}

	record := &types.TradeRecord{
		AttemptID:     attemptID,
		Timestamp:     time.Now().UTC(),
		Type:          types.TradeTypeSell,
		Status:        types.TradeStatusSuccess,
		TokenAddress:  position.TokenAddress,
		Symbol:        position.Symbol,
		Signature:     result.Signature,
		AmountSOL:     proceedsSOL,
		AmountTokens:  balance,
		EntryPrice:    position.EntryPrice,
		ExitPrice:     position.CurrentPrice,
		ProfitSOL:     profitSOL,
		ProfitPercent: profitPercent,
		ExitReason:    reason,
		Confidence:    position.Confidence,
		RiskScore:     position.RiskScore,
	}
	_, err = w.store.AppendTrade(ctx, record)
	if err != nil {
		// The sell confirmed on-chain but the record did not land. Keep
		// the position in closing so the next cycle surfaces the
		// zero-balance path instead of silently dropping the trade.
		logger.Error("append-sell-record-failed", zap.Error(err))
		return false
	}

	err = w.store.RemovePosition(ctx, position.TokenAddress)
	if err != nil {
		logger.Error("remove-position-failed", zap.Error(err))
		return false
	}

	ExitsTotal.WithLabelValues(string(reason), "success").Inc()
	logger.Info("position-closed",
		zap.String("reason", string(reason)),
		zap.String("signature", result.Signature),
		zap.Float64("profit-sol", profitSOL),
		zap.Float64("profit-percent", profitPercent))

	return true
}

func (w *Watcher) recordFailedSell(ctx context.Context, attemptID string, position *types.Position, reason types.ExitReason, swapErr error, logger *zap.Logger) {
	class := types.ClassOf(swapErr)
	if class == "" {
		class = types.ErrClassUpstreamTransient
	}

	record := &types.TradeRecord{
		AttemptID:    attemptID,
		Timestamp:    time.Now().UTC(),
		Type:         types.TradeTypeSell,
		Status:       types.TradeStatusFailed,
		TokenAddress: position.TokenAddress,
		Symbol:       position.Symbol,
		AmountTokens: position.AmountTokens,
		EntryPrice:   position.EntryPrice,
		ExitReason:   reason,
		ErrorMessage: swapErr.Error(),
		ErrorClass:   class,
		Confidence:   position.Confidence,
		RiskScore:    position.RiskScore,
	}
	_, err := w.store.AppendTrade(ctx, record)
	if err != nil {
		logger.Error("append-failed-sell-record-failed", zap.Error(err))
	}

	ExitsTotal.WithLabelValues(string(reason), "failed").Inc()
	logger.Error("exit-sell-failed-position-stays-closing",
		zap.String("attempt-id", attemptID),
		zap.String("error-class", string(class)),
		zap.Error(swapErr))
}

// exitReasonFor recovers the exit reason for a position adopted in
// closing state, where the original trigger is not stored.
func exitReasonFor(position *types.Position) types.ExitReason {
	if position.PnLPercent < 0 {
		return types.ExitReasonStopLoss
	}
	return types.ExitReasonTakeProfit
}
