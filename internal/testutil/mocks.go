package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/goccy/go-json"
	"github.com/snipeworks/solana-sniper/internal/ledger"
	"github.com/snipeworks/solana-sniper/internal/swap"
	"github.com/snipeworks/solana-sniper/pkg/types"
)

// MemoryStore is an in-memory ledger implementation for testing.
type MemoryStore struct {
	mu        sync.Mutex
	trades    []types.TradeRecord
	positions map[string]types.Position

	// Error injection. When set, the matching method fails.
	AppendErr error
	UpsertErr error
	RemoveErr error
	LoadErr   error
}

// NewMemoryStore creates a new in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions: make(map[string]types.Position),
	}
}

// AppendTrade stores a copy of the record and assigns the next id.
func (m *MemoryStore) AppendTrade(ctx context.Context, record *types.TradeRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AppendErr != nil {
		return 0, m.AppendErr
	}

	id := int64(len(m.trades) + 1)
	stored := *record
	stored.ID = id
	m.trades = append(m.trades, stored)
	return id, nil
}

// LoadTrades returns a copy of the stored trade sequence.
func (m *MemoryStore) LoadTrades(ctx context.Context) ([]types.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}

	result := make([]types.TradeRecord, len(m.trades))
	copy(result, m.trades)
	return result, nil
}

// UpsertPosition stores a copy of the position.
func (m *MemoryStore) UpsertPosition(ctx context.Context, position *types.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpsertErr != nil {
		return m.UpsertErr
	}

	m.positions[position.TokenAddress] = *position
	return nil
}

// RemovePosition removes the position for the token address.
func (m *MemoryStore) RemovePosition(ctx context.Context, tokenAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RemoveErr != nil {
		return m.RemoveErr
	}

	if _, ok := m.positions[tokenAddress]; !ok {
		return ledger.ErrPositionNotFound
	}
	delete(m.positions, tokenAddress)
	return nil
}

// LoadPositions returns a copy of the open-position map.
func (m *MemoryStore) LoadPositions(ctx context.Context) (map[string]types.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}

	result := make(map[string]types.Position, len(m.positions))
	for k, v := range m.positions {
		result[k] = v
	}
	return result, nil
}

// Close is a no-op for the in-memory ledger.
func (m *MemoryStore) Close() error {
	return nil
}

// Trades returns a copy of the stored trades.
func (m *MemoryStore) Trades() []types.TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]types.TradeRecord, len(m.trades))
	copy(result, m.trades)
	return result
}

// Position returns the stored position for the token address, if any.
func (m *MemoryStore) Position(tokenAddress string) (types.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.positions[tokenAddress]
	return p, ok
}

// MockSwapper records swap calls and returns a configured result or error.
type MockSwapper struct {
	mu     sync.Mutex
	calls  []SwapCall
	Result *swap.Result
	Err    error
}

// SwapCall is one recorded Swap invocation.
type SwapCall struct {
	Direction   swap.Direction
	InputMint   string
	OutputMint  string
	Amount      uint64
	SlippageBps int
}

// NewMockSwapper creates a new mock swapper.
func NewMockSwapper() *MockSwapper {
	return &MockSwapper{}
}

// Swap records the call and returns the configured outcome. A cancelled
// context fails the swap the way a real HTTP client would.
func (m *MockSwapper) Swap(ctx context.Context, direction swap.Direction, inputMint, outputMint string, amount uint64, slippageBps int) (*swap.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, SwapCall{
		Direction:   direction,
		InputMint:   inputMint,
		OutputMint:  outputMint,
		Amount:      amount,
		SlippageBps: slippageBps,
	})
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		result := *m.Result
		result.Direction = direction
		result.InputMint = inputMint
		result.OutputMint = outputMint
		return &result, nil
	}
	return &swap.Result{
		Signature:  "mock-signature",
		Direction:  direction,
		InputMint:  inputMint,
		OutputMint: outputMint,
		InAmount:   amount,
		OutAmount:  amount,
	}, nil
}

// Calls returns all recorded swap calls.
func (m *MockSwapper) Calls() []SwapCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]SwapCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// MockGate returns a fixed security verdict or error.
type MockGate struct {
	Verdict *types.SecurityVerdict
	Err     error
}

// Validate returns the configured verdict.
func (m *MockGate) Validate(ctx context.Context, tokenAddress string) (*types.SecurityVerdict, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Verdict != nil {
		return m.Verdict, nil
	}
	return &types.SecurityVerdict{TokenAddress: tokenAddress, Passed: true}, nil
}

// MockPriceSource serves prices from a map. Missing tokens fail.
type MockPriceSource struct {
	mu     sync.Mutex
	Prices map[string]float64
	Err    error
}

// NewMockPriceSource creates a mock price source with the given prices.
func NewMockPriceSource(prices map[string]float64) *MockPriceSource {
	return &MockPriceSource{Prices: prices}
}

// GetPrice returns the configured price for the token.
func (m *MockPriceSource) GetPrice(ctx context.Context, tokenAddress string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return 0, m.Err
	}
	price, ok := m.Prices[tokenAddress]
	if !ok {
		return 0, ErrNoPriceConfigured
	}
	return price, nil
}

// SetPrice updates the configured price for the token.
func (m *MockPriceSource) SetPrice(tokenAddress string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prices[tokenAddress] = price
}

// MockChain serves token and SOL balances from fixed values.
type MockChain struct {
	mu            sync.Mutex
	TokenBalances map[string]uint64
	SOLLamports   uint64
	TokenErr      error
	SOLErr        error
}

// NewMockChain creates a mock chain balance reader.
func NewMockChain() *MockChain {
	return &MockChain{TokenBalances: make(map[string]uint64)}
}

// GetTokenBalance returns the configured token balance.
func (m *MockChain) GetTokenBalance(ctx context.Context, owner solanago.PublicKey, mint string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.TokenErr != nil {
		return 0, m.TokenErr
	}
	return m.TokenBalances[mint], nil
}

// GetSOLBalance returns the configured SOL balance in lamports.
func (m *MockChain) GetSOLBalance(ctx context.Context, owner solanago.PublicKey) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SOLErr != nil {
		return 0, m.SOLErr
	}
	return m.SOLLamports, nil
}

// SetTokenBalance updates the configured balance for the mint.
func (m *MockChain) SetTokenBalance(mint string, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TokenBalances[mint] = amount
}

// MockAccountFetcher serves raw account data from a map.
type MockAccountFetcher struct {
	Accounts map[string][]byte
	Err      error
}

// GetAccountData returns the configured account data.
func (m *MockAccountFetcher) GetAccountData(ctx context.Context, address string) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	data, ok := m.Accounts[address]
	if !ok {
		return nil, ErrNoAccountConfigured
	}
	return data, nil
}

// MockAggregator is a mock HTTP server that simulates the aggregator's
// quote and swap endpoints.
type MockAggregator struct {
	*httptest.Server
	mu sync.Mutex

	// Default happy-path responses. Override the handlers for failure
	// scenarios.
	QuoteHandler http.HandlerFunc
	SwapHandler  http.HandlerFunc

	QuoteRequests int
	SwapRequests  int
}

// NewMockAggregator creates a mock aggregator server. With no handler
// overrides, /quote returns a valid quote echoing the requested amount
// and /swap returns the given base64 unsigned transaction.
func NewMockAggregator(swapTransaction string) *MockAggregator {
	mock := &MockAggregator{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			mock.mu.Lock()
			mock.QuoteRequests++
			custom := mock.QuoteHandler
			mock.mu.Unlock()

			if custom != nil {
				custom(w, r)
				return
			}
			amount := r.URL.Query().Get("amount")
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"inputMint":  r.URL.Query().Get("inputMint"),
				"outputMint": r.URL.Query().Get("outputMint"),
				"inAmount":   amount,
				"outAmount":  "1000000",
			})

		case "/swap":
			mock.mu.Lock()
			mock.SwapRequests++
			custom := mock.SwapHandler
			mock.mu.Unlock()

			if custom != nil {
				custom(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{
				"swapTransaction": swapTransaction,
			})

		default:
			http.NotFound(w, r)
		}
	})

	mock.Server = httptest.NewServer(handler)
	return mock
}

// SetQuoteHandler replaces the /quote behavior.
func (m *MockAggregator) SetQuoteHandler(h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QuoteHandler = h
}

// SetSwapHandler replaces the /swap behavior.
func (m *MockAggregator) SetSwapHandler(h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SwapHandler = h
}

// Requests returns the observed quote and swap request counts.
func (m *MockAggregator) Requests() (quotes, swaps int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.QuoteRequests, m.SwapRequests
}

// MockChainClient simulates the transaction submission surface of the
// chain client for swap tests.
type MockChainClient struct {
	mu sync.Mutex

	SendErr    error
	ConfirmErr error
	Landed     bool
	LandedErr  error

	SentTransactions int
}

// SendTransaction returns a deterministic signature or the injected error.
func (m *MockChainClient) SendTransaction(ctx context.Context, tx *solanago.Transaction) (solanago.Signature, error) {
	m.mu.Lock()
	m.SentTransactions++
	m.mu.Unlock()

	if m.SendErr != nil {
		return solanago.Signature{}, m.SendErr
	}
	if len(tx.Signatures) > 0 {
		return tx.Signatures[0], nil
	}
	return solanago.Signature{}, nil
}

// ConfirmTransaction returns the injected confirmation outcome.
func (m *MockChainClient) ConfirmTransaction(ctx context.Context, sig solanago.Signature, timeout, interval time.Duration) error {
	return m.ConfirmErr
}

// SignatureLanded returns the injected reconciliation outcome.
func (m *MockChainClient) SignatureLanded(ctx context.Context, sig solanago.Signature) (bool, error) {
	return m.Landed, m.LandedErr
}
