// Package swap executes irreversible swaps through a Jupiter-style
// liquidity aggregator: quote, build, sign, submit, confirm. Each stage
// has its own failure domain and no stage is retried implicitly. A
// failed pre-submit stage discards its quote, since quotes expire.
package swap

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/goccy/go-json"
	"github.com/snipeworks/solana-sniper/internal/solana"
	"github.com/snipeworks/solana-sniper/pkg/types"
	"go.uber.org/zap"
)

// Direction of a swap relative to the position lifecycle.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// SOLMint is the wrapped SOL mint address.
const SOLMint = "So11111111111111111111111111111111111111112"

// LamportsPerSOL converts between SOL and its smallest unit.
const LamportsPerSOL = 1_000_000_000

// quoteTTL bounds how long a quote may age before signing. A stale quote
// routes against prices that no longer exist.
const quoteTTL = 10 * time.Second

// ChainClient is the transaction-submission capability the swap client
// consumes.
type ChainClient interface {
	SendTransaction(ctx context.Context, tx *solanago.Transaction) (solanago.Signature, error)
	ConfirmTransaction(ctx context.Context, sig solanago.Signature, timeout, interval time.Duration) error
	SignatureLanded(ctx context.Context, sig solanago.Signature) (bool, error)
}

// Result is the outcome of a confirmed swap.
type Result struct {
	Signature  string
	Direction  Direction
	InputMint  string
	OutputMint string
	// Realized amounts in smallest units, derived from the quote's
	// estimate.
	InAmount  uint64
	OutAmount uint64
	// UnitPrice is SOL per token unit: in/out for a buy, out/in for a
	// sell.
	UnitPrice float64
}

// Client executes the four-stage swap protocol.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	chain   ChainClient
	wallet  *Wallet
	logger  *zap.Logger

	confirmTimeout  time.Duration
	confirmInterval time.Duration

	// Signing shares key state and is not reentrant-safe; no two
	// in-flight swaps may sign concurrently.
	signMu sync.Mutex
}

// Config holds swap client configuration.
type Config struct {
	BaseURL         string
	APIKey          string // optional, sent as x-api-key
	Chain           ChainClient
	Wallet          *Wallet
	HTTPTimeout     time.Duration
	ConfirmTimeout  time.Duration
	ConfirmInterval time.Duration
	Logger          *zap.Logger
}

// NewClient creates a new aggregator swap client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:         cfg.BaseURL,
		apiKey:          cfg.APIKey,
		http:            &http.Client{Timeout: timeout},
		chain:           cfg.Chain,
		wallet:          cfg.Wallet,
		confirmTimeout:  cfg.ConfirmTimeout,
		confirmInterval: cfg.ConfirmInterval,
		logger:          cfg.Logger,
	}
}

// quote is one request/response pair, consumed immediately by the build
// stage and never reused past its freshness window.
type quote struct {
	payload   json.RawMessage // opaque routing payload, passed to build as-is
	inAmount  uint64
	outAmount uint64
	fetchedAt time.Time
}

// Swap executes exactly one on-chain balance-changing transaction
// attempt: quote -> build -> sign -> submit -> confirm. Returned errors
// are classified (types.TradeError) and wrap the stage sentinel.
func (c *Client) Swap(ctx context.Context, direction Direction, inputMint, outputMint string, amount uint64, slippageBps int) (*Result, error) {
	start := time.Now()
	result, err := c.swap(ctx, direction, inputMint, outputMint, amount, slippageBps)
	SwapDurationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		SwapsTotal.WithLabelValues(string(direction), "failed").Inc()
		return nil, err
	}

	SwapsTotal.WithLabelValues(string(direction), "success").Inc()
	return result, nil
}

func (c *Client) swap(ctx context.Context, direction Direction, inputMint, outputMint string, amount uint64, slippageBps int) (*Result, error) {
	q, err := c.fetchQuote(ctx, inputMint, outputMint, amount, slippageBps)
	if err != nil {
		return nil, err
	}

	c.logger.Info("quote-received",
		zap.String("direction", string(direction)),
		zap.String("input-mint", inputMint),
		zap.String("output-mint", outputMint),
		zap.Uint64("in-amount", q.inAmount),
		zap.Uint64("out-amount", q.outAmount))

	rawTx, err := c.buildTransaction(ctx, q)
	if err != nil {
		return nil, err
	}

	signedTx, err := c.signTransaction(q, rawTx)
	if err != nil {
		return nil, err
	}

	sig, err := c.submitAndConfirm(ctx, signedTx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Signature:  sig.String(),
		Direction:  direction,
		InputMint:  inputMint,
		OutputMint: outputMint,
		InAmount:   q.inAmount,
		OutAmount:  q.outAmount,
	}
	result.UnitPrice = unitPrice(direction, q.inAmount, q.outAmount)

	c.logger.Info("swap-confirmed",
		zap.String("direction", string(direction)),
		zap.String("signature", result.Signature),
		zap.Uint64("in-amount", result.InAmount),
		zap.Uint64("out-amount", result.OutAmount))

	return result, nil
}

// fetchQuote requests the best route for the exact input amount.
func (c *Client) fetchQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*quote, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amount, 10))
	params.Set("slippageBps", strconv.Itoa(slippageBps))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+params.Encode(), nil)
	if err != nil {
		return nil, c.stageError("quote", types.ErrClassProtocolViolation, ErrQuoteMalformed, err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, c.stageError("quote", types.ErrClassUpstreamTransient, ErrQuoteTimeout, err)
		}
		return nil, c.stageError("quote", types.ErrClassUpstreamTransient, ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.stageError("quote", types.ErrClassUpstreamTransient, ErrQuoteUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
		return nil, c.stageError("quote", types.ErrClassUpstreamTransient, ErrQuoteUnavailable, err)
	}

	// The schema is checked explicitly: an HTML error page or a JSON
	// body without amounts must not be mistaken for a quote.
	var fields struct {
		Error     string `json:"error"`
		InAmount  string `json:"inAmount"`
		OutAmount string `json:"outAmount"`
	}
	err = json.Unmarshal(body, &fields)
	if err != nil {
		return nil, c.stageError("quote", types.ErrClassProtocolViolation, ErrQuoteMalformed, fmt.Errorf("non-JSON response: %s", truncate(body, 200)))
	}
	if fields.Error != "" {
		return nil, c.stageError("quote", types.ErrClassUpstreamTransient, ErrQuoteUnavailable, errors.New(fields.Error))
	}

	inAmount, inErr := strconv.ParseUint(fields.InAmount, 10, 64)
	outAmount, outErr := strconv.ParseUint(fields.OutAmount, 10, 64)
	if inErr != nil || outErr != nil || outAmount == 0 {
		return nil, c.stageError("quote", types.ErrClassProtocolViolation, ErrQuoteMalformed,
			fmt.Errorf("unexpected amounts inAmount=%q outAmount=%q", fields.InAmount, fields.OutAmount))
	}

	return &quote{
		payload:   json.RawMessage(body),
		inAmount:  inAmount,
		outAmount: outAmount,
		fetchedAt: time.Now(),
	}, nil
}

// buildTransaction requests an unsigned transaction referencing the quote
// and the caller's public key.
func (c *Client) buildTransaction(ctx context.Context, q *quote) ([]byte, error) {
	payload := map[string]interface{}{
		"quoteResponse":             q.payload,
		"userPublicKey":             c.wallet.PublicKey().String(),
		"wrapAndUnwrapSol":          true,
		"dynamicComputeUnitLimit":   true,
		"prioritizationFeeLamports": "auto",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, c.stageError("build", types.ErrClassProtocolViolation, ErrBuildIncomplete, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return nil, c.stageError("build", types.ErrClassProtocolViolation, ErrBuildIncomplete, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.stageError("build", types.ErrClassUpstreamTransient, ErrBuildIncomplete, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		err = fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 200))
		return nil, c.stageError("build", types.ErrClassUpstreamTransient, ErrBuildIncomplete, err)
	}

	var sr struct {
		SwapTransaction string `json:"swapTransaction"` // base64, unsigned
	}
	err = json.NewDecoder(resp.Body).Decode(&sr)
	if err != nil {
		return nil, c.stageError("build", types.ErrClassProtocolViolation, ErrBuildIncomplete, err)
	}
	if sr.SwapTransaction == "" {
		return nil, c.stageError("build", types.ErrClassProtocolViolation, ErrBuildIncomplete, errors.New("empty swapTransaction field"))
	}

	raw, err := base64.StdEncoding.DecodeString(sr.SwapTransaction)
	if err != nil {
		return nil, c.stageError("build", types.ErrClassProtocolViolation, ErrBuildIncomplete, fmt.Errorf("decode transaction: %w", err))
	}

	return raw, nil
}

// signTransaction decodes the unsigned payload and signs it exactly once.
func (c *Client) signTransaction(q *quote, rawTx []byte) (*solanago.Transaction, error) {
	if time.Since(q.fetchedAt) > quoteTTL {
		return nil, c.stageError("sign", types.ErrClassProtocolViolation, ErrQuoteExpired,
			fmt.Errorf("quote age %s exceeds %s", time.Since(q.fetchedAt).Round(time.Millisecond), quoteTTL))
	}

	tx, err := solanago.TransactionFromDecoder(bin.NewBinDecoder(rawTx))
	if err != nil {
		return nil, c.stageError("sign", types.ErrClassProtocolViolation, ErrBuildIncomplete, fmt.Errorf("unmarshal transaction: %w", err))
	}

	c.signMu.Lock()
	err = c.wallet.sign(tx)
	c.signMu.Unlock()
	if err != nil {
		return nil, c.stageError("sign", types.ErrClassProtocolViolation, err, nil)
	}

	return tx, nil
}

// submitAndConfirm submits the signed transaction and polls for
// confirmation. A confirmation timeout is genuinely ambiguous, so one
// reconciliation poll runs before the attempt is reported failed.
func (c *Client) submitAndConfirm(ctx context.Context, tx *solanago.Transaction) (solanago.Signature, error) {
	sig, err := c.chain.SendTransaction(ctx, tx)
	if err != nil {
		return solanago.Signature{}, c.stageError("submit", types.ErrClassUpstreamTransient, ErrSubmitRejected, err)
	}

	err = c.chain.ConfirmTransaction(ctx, sig, c.confirmTimeout, c.confirmInterval)
	if err == nil {
		return sig, nil
	}

	if errors.Is(err, solana.ErrConfirmationTimeout) {
		landed, checkErr := c.chain.SignatureLanded(ctx, sig)
		if checkErr == nil && landed {
			c.logger.Warn("transaction-landed-after-timeout", zap.String("signature", sig.String()))
			return sig, nil
		}
		AmbiguousOutcomesTotal.Inc()
		return solanago.Signature{}, c.stageError("confirm", types.ErrClassAmbiguousOutcome, err,
			fmt.Errorf("signature %s unresolved", sig.String()))
	}

	return solanago.Signature{}, c.stageError("confirm", types.ErrClassUpstreamTransient, err, nil)
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}

// stageError records the stage metric and wraps the sentinel into a
// classified trade error.
func (c *Client) stageError(stage string, class types.ErrorClass, sentinel, cause error) error {
	StageErrorsTotal.WithLabelValues(stage).Inc()

	msg := sentinel.Error()
	wrapped := sentinel
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", sentinel, cause)
		wrapped = fmt.Errorf("%w: %w", sentinel, cause)
	}

	c.logger.Error("swap-stage-failed",
		zap.String("stage", stage),
		zap.String("class", string(class)),
		zap.Error(wrapped))

	return types.NewTradeError(class, stage, msg, wrapped)
}

func unitPrice(direction Direction, inAmount, outAmount uint64) float64 {
	switch direction {
	case DirectionBuy:
		if outAmount == 0 {
			return 0
		}
		return float64(inAmount) / LamportsPerSOL / float64(outAmount)
	case DirectionSell:
		if inAmount == 0 {
			return 0
		}
		return float64(outAmount) / LamportsPerSOL / float64(inAmount)
	}
	return 0
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
