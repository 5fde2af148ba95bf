package types

import "time"

// TradeType distinguishes entry and exit trades.
type TradeType string

const (
	TradeTypeBuy  TradeType = "BUY"
	TradeTypeSell TradeType = "SELL"
)

// TradeStatus is the terminal status of a trade attempt.
type TradeStatus string

const (
	TradeStatusPending TradeStatus = "PENDING"
	TradeStatusSuccess TradeStatus = "SUCCESS"
	TradeStatusFailed  TradeStatus = "FAILED"
)

// ExitReason explains why a position was closed.
type ExitReason string

const (
	ExitReasonStopLoss   ExitReason = "STOP_LOSS"
	ExitReasonTakeProfit ExitReason = "TAKE_PROFIT"
	ExitReasonTimeout    ExitReason = "TIMEOUT"
	ExitReasonManual     ExitReason = "MANUAL"
)

// Candidate is a token handed to the engine by the external discovery
// collaborator. Immutable once handed to the Executor.
type Candidate struct {
	TokenAddress string  `json:"token_address"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name,omitempty"`
	PriceUSD     float64 `json:"price_usd"`
	LiquidityUSD float64 `json:"liquidity_usd,omitempty"`
	Volume24hUSD float64 `json:"volume_24h_usd,omitempty"`

	// Annotations from the external ranking collaborator. Optional.
	Confidence float64 `json:"confidence,omitempty"`
	RiskScore  float64 `json:"risk_score,omitempty"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// TradeRecord is one appended entry in the trade ledger. Records are
// append-only: a record is never mutated after creation, corrections are
// new records.
type TradeRecord struct {
	ID        int64       `json:"id"`
	AttemptID string      `json:"attempt_id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      TradeType   `json:"type"`
	Status    TradeStatus `json:"status"`

	TokenAddress string `json:"token_address"`
	Symbol       string `json:"symbol"`
	Signature    string `json:"signature,omitempty"`

	AmountSOL    float64 `json:"amount_sol"`
	AmountTokens uint64  `json:"amount_tokens"`
	EntryPrice   float64 `json:"entry_price,omitempty"`
	ExitPrice    float64 `json:"exit_price,omitempty"`

	ProfitSOL     float64 `json:"profit_sol,omitempty"`
	ProfitPercent float64 `json:"profit_percent,omitempty"`

	ExitReason   ExitReason `json:"exit_reason,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ErrorClass   ErrorClass `json:"error_class,omitempty"`

	Confidence float64 `json:"confidence,omitempty"`
	RiskScore  float64 `json:"risk_score,omitempty"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// PositionStatus is the watcher-side lifecycle state of an open position.
// Transitions go active -> closing -> closed, never backwards.
type PositionStatus string

const (
	PositionStatusActive  PositionStatus = "active"
	PositionStatusClosing PositionStatus = "closing"
	PositionStatusClosed  PositionStatus = "closed"
)

// Position is an open capital-committing holding, keyed by token address.
// At most one open position per token address exists at any time.
type Position struct {
	TokenAddress string    `json:"token_address"`
	Symbol       string    `json:"symbol"`
	EntryTime    time.Time `json:"entry_time"`
	EntryPrice   float64   `json:"entry_price"`
	AmountSOL    float64   `json:"amount_sol"`
	AmountTokens uint64    `json:"amount_tokens"`
	Signature    string    `json:"signature"`

	// Mutated only by the watcher while the position is open.
	HighestPrice float64        `json:"highest_price"`
	CurrentPrice float64        `json:"current_price,omitempty"`
	PnLPercent   float64        `json:"pnl_percent,omitempty"`
	LastUpdate   time.Time      `json:"last_update,omitempty"`
	Status       PositionStatus `json:"status"`

	Confidence float64 `json:"confidence,omitempty"`
	RiskScore  float64 `json:"risk_score,omitempty"`
}

// SecurityVerdict is the result of inspecting a token's mint metadata.
// Created fresh per trade attempt and never cached: authority state can
// change between evaluations.
type SecurityVerdict struct {
	TokenAddress          string
	MintAuthorityActive   bool
	FreezeAuthorityActive bool
	Passed                bool

	// Raw authority keys, base58, populated only when the matching
	// authority is active. Kept for audit logging.
	MintAuthority   string
	FreezeAuthority string
}
