// Package executor owns the entry path: one candidate in, at most one
// buy out. The security gate runs before any capital moves, and every
// attempt leaves a trade record whether it succeeds or not.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/snipeworks/solana-sniper/internal/ledger"
	"github.com/snipeworks/solana-sniper/internal/swap"
	"github.com/snipeworks/solana-sniper/pkg/types"
	"go.uber.org/zap"
)

var (
	// ErrPositionOpen means a position for the token already exists. The
	// entry is refused without a trade record: nothing was attempted.
	ErrPositionOpen = errors.New("position already open")

	// ErrEntriesBlocked means the balance guard is refusing new entries.
	ErrEntriesBlocked = errors.New("entries blocked by balance guard")

	// ErrCandidateUnpriced means the candidate carries no positive entry
	// price. Without one neither exit threshold can ever trip, so the
	// entry is refused without a trade record.
	ErrCandidateUnpriced = errors.New("candidate has no positive price")

	// ErrSecurityRejected means the token failed the pre-trade gate.
	ErrSecurityRejected = errors.New("security check failed")
)

// SecurityGate is the pre-trade validation capability.
type SecurityGate interface {
	Validate(ctx context.Context, tokenAddress string) (*types.SecurityVerdict, error)
}

// Swapper executes one swap attempt.
type Swapper interface {
	Swap(ctx context.Context, direction swap.Direction, inputMint, outputMint string, amount uint64, slippageBps int) (*swap.Result, error)
}

// EntryGuard gates new entries on wallet balance. Optional.
type EntryGuard interface {
	Allowed() bool
}

// Executor turns vetted candidates into open positions.
type Executor struct {
	store    ledger.Store
	gate     SecurityGate
	swapper  Swapper
	guard    EntryGuard
	logger   *zap.Logger

	tradeAmountSOL   float64
	entrySlippageBps int
}

// Config holds executor configuration.
type Config struct {
	Store            ledger.Store
	Gate             SecurityGate
	Swapper          Swapper
	Guard            EntryGuard // nil disables the balance guard
	TradeAmountSOL   float64
	EntrySlippageBps int
	Logger           *zap.Logger
}

// New creates a new executor.
func New(cfg *Config) (*Executor, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg.Gate == nil {
		return nil, fmt.Errorf("security gate cannot be nil")
	}
	if cfg.Swapper == nil {
		return nil, fmt.Errorf("swapper cannot be nil")
	}
	if cfg.TradeAmountSOL <= 0 {
		return nil, fmt.Errorf("trade amount must be positive")
	}

	return &Executor{
		store:            cfg.Store,
		gate:             cfg.Gate,
		swapper:          cfg.Swapper,
		guard:            cfg.Guard,
		logger:           cfg.Logger,
		tradeAmountSOL:   cfg.TradeAmountSOL,
		entrySlippageBps: cfg.EntrySlippageBps,
	}, nil
}

// Enter attempts to open a position for the candidate. The returned
// record is already persisted; a nil record with a non-nil error means
// the attempt was refused before anything happened (duplicate position,
// guard block, unpriced candidate).
func (e *Executor) Enter(ctx context.Context, candidate *types.Candidate) (*types.TradeRecord, error) {
	start := time.Now()
	record, err := e.enter(ctx, candidate)
	EntryDurationSeconds.Observe(time.Since(start).Seconds())
	return record, err
}

func (e *Executor) enter(ctx context.Context, candidate *types.Candidate) (*types.TradeRecord, error) {
	attemptID := uuid.New().String()
	logger := e.logger.With(
		zap.String("attempt-id", attemptID),
		zap.String("token-address", candidate.TokenAddress),
		zap.String("symbol", candidate.Symbol))

	if candidate.PriceUSD <= 0 {
		EntriesTotal.WithLabelValues("unpriced").Inc()
		logger.Warn("entry-refused-no-entry-price", zap.Float64("price-usd", candidate.PriceUSD))
		return nil, fmt.Errorf("%w: %s", ErrCandidateUnpriced, candidate.TokenAddress)
	}

	positions, err := e.store.LoadPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	if _, exists := positions[candidate.TokenAddress]; exists {
		EntriesTotal.WithLabelValues("duplicate").Inc()
		logger.Info("entry-skipped-position-open")
		return nil, fmt.Errorf("%w: %s", ErrPositionOpen, candidate.TokenAddress)
	}

	if e.guard != nil && !e.guard.Allowed() {
		EntriesTotal.WithLabelValues("guard_blocked").Inc()
		logger.Warn("entry-refused-by-balance-guard")
		return nil, ErrEntriesBlocked
	}

	verdict, err := e.gate.Validate(ctx, candidate.TokenAddress)
	if err != nil || !verdict.Passed {
		// An inconclusive gate is a failed gate. The swap is never
		// reached on this path.
		EntriesTotal.WithLabelValues("security_blocked").Inc()
		return e.recordSecurityRejection(ctx, attemptID, candidate, verdict, err)
	}

	logger.Info("entering-position",
		zap.Float64("trade-amount-sol", e.tradeAmountSOL),
		zap.Int("slippage-bps", e.entrySlippageBps))

	amount := uint64(e.tradeAmountSOL * swap.LamportsPerSOL)
	result, err := e.swapper.Swap(ctx, swap.DirectionBuy, swap.SOLMint, candidate.TokenAddress, amount, e.entrySlippageBps)
	if err != nil {
		EntriesTotal.WithLabelValues("swap_failed").Inc()
		return e.recordFailedBuy(ctx, attemptID, candidate, err)
	}

	now := time.Now().UTC()
	record := &types.TradeRecord{
		AttemptID:    attemptID,
		Timestamp:    now,
		Type:         types.TradeTypeBuy,
		Status:       types.TradeStatusSuccess,
		TokenAddress: candidate.TokenAddress,
		Symbol:       candidate.Symbol,
		Signature:    result.Signature,
		AmountSOL:    e.tradeAmountSOL,
		AmountTokens: result.OutAmount,
		EntryPrice:   candidate.PriceUSD,
		Confidence:   candidate.Confidence,
		RiskScore:    candidate.RiskScore,
		Reasoning:    candidate.Reasoning,
	}

	id, err := e.store.AppendTrade(ctx, record)
	if err != nil {
		return nil, types.NewTradeError(types.ErrClassPersistence, "record",
			fmt.Sprintf("append buy record: %v", err), err)
	}
	record.ID = id

	position := &types.Position{
		TokenAddress: candidate.TokenAddress,
		Symbol:       candidate.Symbol,
		EntryTime:    now,
		EntryPrice:   candidate.PriceUSD,
		AmountSOL:    e.tradeAmountSOL,
		AmountTokens: result.OutAmount,
		Signature:    result.Signature,
		HighestPrice: candidate.PriceUSD,
		CurrentPrice: candidate.PriceUSD,
		LastUpdate:   now,
		Status:       types.PositionStatusActive,
		Confidence:   candidate.Confidence,
		RiskScore:    candidate.RiskScore,
	}
	err = e.store.UpsertPosition(ctx, position)
	if err != nil {
		return record, types.NewTradeError(types.ErrClassPersistence, "record",
			fmt.Sprintf("persist position: %v", err), err)
	}

	EntriesTotal.WithLabelValues("success").Inc()
	logger.Info("position-opened",
		zap.String("signature", result.Signature),
		zap.Uint64("amount-tokens", result.OutAmount),
		zap.Float64("entry-price", candidate.PriceUSD))

	return record, nil
}

// recordSecurityRejection persists a failed buy attempt that never
// reached the swap stage.
func (e *Executor) recordSecurityRejection(ctx context.Context, attemptID string, candidate *types.Candidate, verdict *types.SecurityVerdict, cause error) (*types.TradeRecord, error) {
	reason := ErrSecurityRejected.Error()
	class := types.ErrClassValidation
	if cause != nil {
		reason = fmt.Sprintf("%s: %v", ErrSecurityRejected, cause)
		class = types.ClassOf(cause)
		if class == "" {
			class = types.ErrClassUpstreamTransient
		}
	} else if verdict != nil {
		reason = fmt.Sprintf("%s: mint_authority=%t freeze_authority=%t",
			ErrSecurityRejected, verdict.MintAuthorityActive, verdict.FreezeAuthorityActive)
	}

	record := &types.TradeRecord{
		AttemptID:    attemptID,
		Timestamp:    time.Now().UTC(),
		Type:         types.TradeTypeBuy,
		Status:       types.TradeStatusFailed,
		TokenAddress: candidate.TokenAddress,
		Symbol:       candidate.Symbol,
		AmountSOL:    e.tradeAmountSOL,
		ErrorMessage: reason,
		ErrorClass:   class,
		Confidence:   candidate.Confidence,
		RiskScore:    candidate.RiskScore,
		Reasoning:    candidate.Reasoning,
	}

	id, err := e.store.AppendTrade(ctx, record)
	if err != nil {
		return nil, types.NewTradeError(types.ErrClassPersistence, "record",
			fmt.Sprintf("append rejection record: %v", err), err)
	}
	record.ID = id

	e.logger.Warn("entry-rejected-by-security-gate",
		zap.String("attempt-id", attemptID),
		zap.String("token-address", candidate.TokenAddress),
		zap.String("reason", reason))

	return record, fmt.Errorf("%w: %s", ErrSecurityRejected, candidate.TokenAddress)
}

// recordFailedBuy persists a buy attempt that failed at the swap stage.
func (e *Executor) recordFailedBuy(ctx context.Context, attemptID string, candidate *types.Candidate, swapErr error) (*types.TradeRecord, error) {
	class := types.ClassOf(swapErr)
	if class == "" {
		class = types.ErrClassUpstreamTransient
	}

	record := &types.TradeRecord{
		AttemptID:    attemptID,
		Timestamp:    time.Now().UTC(),
		Type:         types.TradeTypeBuy,
		Status:       types.TradeStatusFailed,
		TokenAddress: candidate.TokenAddress,
		Symbol:       candidate.Symbol,
		AmountSOL:    e.tradeAmountSOL,
		ErrorMessage: swapErr.Error(),
		ErrorClass:   class,
		Confidence:   candidate.Confidence,
		RiskScore:    candidate.RiskScore,
		Reasoning:    candidate.Reasoning,
	}

	id, err := e.store.AppendTrade(ctx, record)
	if err != nil {
		return nil, types.NewTradeError(types.ErrClassPersistence, "record",
			fmt.Sprintf("append failed-buy record: %v", err), err)
	}
	record.ID = id

	e.logger.Error("entry-swap-failed",
		zap.String("attempt-id", attemptID),
		zap.String("token-address", candidate.TokenAddress),
		zap.String("error-class", string(class)),
		zap.Error(swapErr))

	return record, fmt.Errorf("entry swap: %w", swapErr)
}
