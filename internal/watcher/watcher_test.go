package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/snipeworks/solana-sniper/internal/swap"
	"github.com/snipeworks/solana-sniper/internal/testutil"
	"github.com/snipeworks/solana-sniper/pkg/types"
	"go.uber.org/zap/zaptest"
)

func newTestWatcher(t *testing.T, store *testutil.MemoryStore, prices PriceSource, swapper Swapper, chain BalanceReader) *Watcher {
	t.Helper()

	w, err := New(&Config{
		Store:             store,
		Prices:            prices,
		Swapper:           swapper,
		Chain:             chain,
		Owner:             solanago.NewWallet().PublicKey(),
		Interval:          10 * time.Millisecond,
		StopLossPercent:   15,
		TakeProfitPercent: 40,
		ExitSlippageBps:   100,
		Logger:            zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("create watcher: %v", err)
	}
	return w
}

func seedActivePosition(t *testing.T, store *testutil.MemoryStore, token string, entryPrice float64) {
	t.Helper()

	err := store.UpsertPosition(context.Background(),
		testutil.CreateTestPosition(token, "TKN", entryPrice, types.PositionStatusActive))
	if err != nil {
		t.Fatalf("seed position: %v", err)
	}
}

func TestCycle_StopLossBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		price    float64 // entry is 1.0
		wantSell bool
	}{
		{name: "minus-16-percent-sells", price: 0.84, wantSell: true},
		{name: "minus-15-percent-sells", price: 0.85, wantSell: true},
		{name: "minus-14-percent-holds", price: 0.86, wantSell: false},
		{name: "plus-39-percent-holds", price: 1.39, wantSell: false},
		{name: "plus-40-percent-sells", price: 1.40, wantSell: true},
		{name: "plus-41-percent-sells", price: 1.41, wantSell: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := testutil.NewMemoryStore()
			seedActivePosition(t, store, "token-1", 1.0)

			prices := testutil.NewMockPriceSource(map[string]float64{"token-1": tt.price})
			swapper := testutil.NewMockSwapper()
			swapper.Result = &swap.Result{Signature: "sig-sell", OutAmount: 100_000_000}
			chain := testutil.NewMockChain()
			chain.SetTokenBalance("token-1", 1000)

			w := newTestWatcher(t, store, prices, swapper, chain)

			remaining, err := w.Cycle(context.Background())
			if err != nil {
				t.Fatalf("cycle: %v", err)
			}

			sold := len(swapper.Calls()) > 0
			if sold != tt.wantSell {
				t.Fatalf("sold = %v, want %v", sold, tt.wantSell)
			}

			if tt.wantSell {
				if remaining != 0 {
					t.Errorf("remaining = %d, want 0", remaining)
				}
				if _, ok := store.Position("token-1"); ok {
					t.Error("position should be removed after a confirmed sell")
				}
			} else {
				if remaining != 1 {
					t.Errorf("remaining = %d, want 1", remaining)
				}
				position, _ := store.Position("token-1")
				if position.Status != types.PositionStatusActive {
					t.Errorf("status = %s, want active", position.Status)
				}
				if position.CurrentPrice != tt.price {
					t.Errorf("current price = %v, want %v", position.CurrentPrice, tt.price)
				}
			}
		})
	}
}

func TestCycle_SuccessfulExitRecordsProfit(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	seedActivePosition(t, store, "token-1", 1.0) // AmountSOL 0.1

	prices := testutil.NewMockPriceSource(map[string]float64{"token-1": 1.5})
	swapper := testutil.NewMockSwapper()
	swapper.Result = &swap.Result{Signature: "sig-sell", OutAmount: 140_000_000} // 0.14 SOL proceeds
	chain := testutil.NewMockChain()
	chain.SetTokenBalance("token-1", 2000)

	w := newTestWatcher(t, store, prices, swapper, chain)

	_, err := w.Cycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}

	trades := store.Trades()
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}

	sell := trades[0]
	if sell.Type != types.TradeTypeSell || sell.Status != types.TradeStatusSuccess {
		t.Fatalf("record = %s/%s, want SELL/SUCCESS", sell.Type, sell.Status)
	}
	if sell.ExitReason != types.ExitReasonTakeProfit {
		t.Errorf("exit reason = %s, want TAKE_PROFIT", sell.ExitReason)
	}
	if sell.AmountTokens != 2000 {
		t.Errorf("sold %d units, want the full wallet balance 2000", sell.AmountTokens)
	}
	if diff := sell.ProfitSOL - 0.04; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("profit = %v SOL, want 0.04", sell.ProfitSOL)
	}
	if diff := sell.ProfitPercent - 40.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("profit percent = %v, want 40", sell.ProfitPercent)
	}

	// The sell routes token -> SOL at exit slippage.
	calls := swapper.Calls()
	if calls[0].Direction != swap.DirectionSell {
		t.Errorf("direction = %s, want SELL", calls[0].Direction)
	}
	if calls[0].InputMint != "token-1" || calls[0].OutputMint != swap.SOLMint {
		t.Errorf("route = %s -> %s", calls[0].InputMint, calls[0].OutputMint)
	}
	if calls[0].SlippageBps != 100 {
		t.Errorf("slippage = %d, want 100", calls[0].SlippageBps)
	}
}

func TestCycle_FailedSellStaysClosing(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	seedActivePosition(t, store, "token-1", 1.0)

	prices := testutil.NewMockPriceSource(map[string]float64{"token-1": 0.5})
	swapper := testutil.NewMockSwapper()
	swapper.Err = types.NewTradeError(types.ErrClassUpstreamTransient, "submit", "submit rejected", nil)
	chain := testutil.NewMockChain()
	chain.SetTokenBalance("token-1", 1000)

	w := newTestWatcher(t, store, prices, swapper, chain)

	remaining, err := w.Cycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}

	position, ok := store.Position("token-1")
	if !ok {
		t.Fatal("position must survive a failed sell")
	}
	if position.Status != types.PositionStatusClosing {
		t.Errorf("status = %s, want closing", position.Status)
	}

	trades := store.Trades()
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}
	if trades[0].Type != types.TradeTypeSell || trades[0].Status != types.TradeStatusFailed {
		t.Errorf("record = %s/%s, want SELL/FAILED", trades[0].Type, trades[0].Status)
	}
	if trades[0].ErrorClass != types.ErrClassUpstreamTransient {
		t.Errorf("error class = %s", trades[0].ErrorClass)
	}

	// The next cycle retries the sell without re-reading the price.
	swapper.Err = nil
	swapper.Result = &swap.Result{Signature: "sig-retry", OutAmount: 50_000_000}

	remaining, err = w.Cycle(context.Background())
	if err != nil {
		t.Fatalf("retry cycle: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining after retry = %d, want 0", remaining)
	}
	if _, ok := store.Position("token-1"); ok {
		t.Error("position should be removed after the retried sell confirms")
	}
}

func TestCycle_PriceFailureSkipsPosition(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	seedActivePosition(t, store, "token-1", 1.0)

	prices := testutil.NewMockPriceSource(map[string]float64{}) // no price
	swapper := testutil.NewMockSwapper()
	chain := testutil.NewMockChain()

	w := newTestWatcher(t, store, prices, swapper, chain)

	remaining, err := w.Cycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}
	if len(swapper.Calls()) != 0 {
		t.Error("a missing price must never trigger an exit")
	}

	position, _ := store.Position("token-1")
	if position.Status != types.PositionStatusActive {
		t.Errorf("status = %s, want active", position.Status)
	}
}

func TestCycle_AdoptedClosingPositionIsRetried(t *testing.T) {
	t.Parallel()

	// A position persisted in closing by a crashed run sells on the
	// first cycle without waiting for a fresh trigger.
	store := testutil.NewMemoryStore()
	position := testutil.CreateTestPosition("token-1", "TKN", 1.0, types.PositionStatusClosing)
	position.PnLPercent = -20
	err := store.UpsertPosition(context.Background(), position)
	if err != nil {
		t.Fatalf("seed position: %v", err)
	}

	prices := testutil.NewMockPriceSource(map[string]float64{})
	swapper := testutil.NewMockSwapper()
	swapper.Result = &swap.Result{Signature: "sig-sell", OutAmount: 80_000_000}
	chain := testutil.NewMockChain()
	chain.SetTokenBalance("token-1", 500)

	w := newTestWatcher(t, store, prices, swapper, chain)

	remaining, err := w.Cycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}

	trades := store.Trades()
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}
	if trades[0].ExitReason != types.ExitReasonStopLoss {
		t.Errorf("exit reason = %s, want STOP_LOSS for a losing position", trades[0].ExitReason)
	}
}

func TestCycle_CancelledContextDoesNotAbortSell(t *testing.T) {
	t.Parallel()

	// Shutdown cancels the watcher context, but a sell owed to a closing
	// position still runs to completion instead of failing with a
	// context error and no signature.
	store := testutil.NewMemoryStore()
	position := testutil.CreateTestPosition("token-1", "TKN", 1.0, types.PositionStatusClosing)
	position.PnLPercent = -20
	err := store.UpsertPosition(context.Background(), position)
	if err != nil {
		t.Fatalf("seed position: %v", err)
	}

	prices := testutil.NewMockPriceSource(map[string]float64{})
	swapper := testutil.NewMockSwapper()
	swapper.Result = &swap.Result{Signature: "sig-sell", OutAmount: 80_000_000}
	chain := testutil.NewMockChain()
	chain.SetTokenBalance("token-1", 2000)

	w := newTestWatcher(t, store, prices, swapper, chain)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	remaining, err := w.Cycle(ctx)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}

	trades := store.Trades()
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}
	if trades[0].Type != types.TradeTypeSell || trades[0].Status != types.TradeStatusSuccess {
		t.Errorf("record = %s/%s, want SELL/SUCCESS", trades[0].Type, trades[0].Status)
	}
	if trades[0].Signature != "sig-sell" {
		t.Errorf("Signature = %q, want sig-sell", trades[0].Signature)
	}
	if _, ok := store.Position("token-1"); ok {
		t.Error("position must be removed after the completed sell")
	}
}

func TestCycle_ZeroBalanceClosesWithoutSell(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	seedActivePosition(t, store, "token-1", 1.0)

	prices := testutil.NewMockPriceSource(map[string]float64{"token-1": 0.5})
	swapper := testutil.NewMockSwapper()
	chain := testutil.NewMockChain() // balance defaults to 0

	w := newTestWatcher(t, store, prices, swapper, chain)

	remaining, err := w.Cycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
	if len(swapper.Calls()) != 0 {
		t.Error("nothing to sell, swap must not run")
	}
	if _, ok := store.Position("token-1"); ok {
		t.Error("position should be closed")
	}
}

func TestCycle_BalanceReadFailureRetriesNextCycle(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	seedActivePosition(t, store, "token-1", 1.0)

	prices := testutil.NewMockPriceSource(map[string]float64{"token-1": 0.5})
	swapper := testutil.NewMockSwapper()
	chain := testutil.NewMockChain()
	chain.TokenErr = errors.New("rpc unavailable")

	w := newTestWatcher(t, store, prices, swapper, chain)

	remaining, err := w.Cycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}

	position, _ := store.Position("token-1")
	if position.Status != types.PositionStatusClosing {
		t.Errorf("status = %s, want closing (trigger already persisted)", position.Status)
	}
	if len(swapper.Calls()) != 0 {
		t.Error("sell must not run without a balance read")
	}
}

func TestCycle_HighestPriceTracksPeak(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	seedActivePosition(t, store, "token-1", 1.0)

	prices := testutil.NewMockPriceSource(map[string]float64{"token-1": 1.3})
	swapper := testutil.NewMockSwapper()
	chain := testutil.NewMockChain()

	w := newTestWatcher(t, store, prices, swapper, chain)

	_, err := w.Cycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}

	position, _ := store.Position("token-1")
	if position.HighestPrice != 1.3 {
		t.Errorf("highest = %v, want 1.3", position.HighestPrice)
	}

	// A pullback below the peak keeps the recorded high.
	prices.SetPrice("token-1", 1.1)
	_, err = w.Cycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}

	position, _ = store.Position("token-1")
	if position.HighestPrice != 1.3 {
		t.Errorf("highest after pullback = %v, want 1.3", position.HighestPrice)
	}
	if position.CurrentPrice != 1.1 {
		t.Errorf("current = %v, want 1.1", position.CurrentPrice)
	}
}

func TestWatch_ReturnsWhenAllPositionsClosed(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	seedActivePosition(t, store, "token-1", 1.0)

	prices := testutil.NewMockPriceSource(map[string]float64{"token-1": 1.5})
	swapper := testutil.NewMockSwapper()
	swapper.Result = &swap.Result{Signature: "sig-sell", OutAmount: 150_000_000}
	chain := testutil.NewMockChain()
	chain.SetTokenBalance("token-1", 1000)

	w := newTestWatcher(t, store, prices, swapper, chain)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
}

func TestWatch_HonorsCancellationBetweenCycles(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	seedActivePosition(t, store, "token-1", 1.0)

	prices := testutil.NewMockPriceSource(map[string]float64{"token-1": 1.0})
	w := newTestWatcher(t, store, prices, testutil.NewMockSwapper(), testutil.NewMockChain())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Watch(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
