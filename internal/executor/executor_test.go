package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/snipeworks/solana-sniper/internal/swap"
	"github.com/snipeworks/solana-sniper/internal/testutil"
	"github.com/snipeworks/solana-sniper/pkg/types"
	"go.uber.org/zap/zaptest"
)

type staticGuard struct{ allowed bool }

func (g *staticGuard) Allowed() bool { return g.allowed }

func newTestExecutor(t *testing.T, store *testutil.MemoryStore, gate *testutil.MockGate, swapper *testutil.MockSwapper, guard EntryGuard) *Executor {
	t.Helper()

	e, err := New(&Config{
		Store:            store,
		Gate:             gate,
		Swapper:          swapper,
		Guard:            guard,
		TradeAmountSOL:   0.1,
		EntrySlippageBps: 50,
		Logger:           zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("create executor: %v", err)
	}
	return e
}

func TestEnter_Success(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	swapper := testutil.NewMockSwapper()
	swapper.Result = &swap.Result{
		Signature: "sig-buy",
		InAmount:  100_000_000,
		OutAmount: 5_000_000,
	}
	e := newTestExecutor(t, store, &testutil.MockGate{}, swapper, nil)

	candidate := testutil.CreateTestCandidate("token-1", "TKN", 0.0002)
	record, err := e.Enter(context.Background(), candidate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Type != types.TradeTypeBuy || record.Status != types.TradeStatusSuccess {
		t.Errorf("record = %s/%s, want BUY/SUCCESS", record.Type, record.Status)
	}
	if record.Signature != "sig-buy" {
		t.Errorf("Signature = %q, want sig-buy", record.Signature)
	}
	if record.AmountTokens != 5_000_000 {
		t.Errorf("AmountTokens = %d, want 5000000", record.AmountTokens)
	}
	if record.ID == 0 {
		t.Error("expected persisted record id")
	}

	// The swap spent exactly the configured amount at entry slippage.
	calls := swapper.Calls()
	if len(calls) != 1 {
		t.Fatalf("swap calls = %d, want 1", len(calls))
	}
	if calls[0].Direction != swap.DirectionBuy {
		t.Errorf("direction = %s, want BUY", calls[0].Direction)
	}
	if calls[0].InputMint != swap.SOLMint || calls[0].OutputMint != "token-1" {
		t.Errorf("route = %s -> %s", calls[0].InputMint, calls[0].OutputMint)
	}
	if calls[0].Amount != 100_000_000 {
		t.Errorf("amount = %d lamports, want 100000000", calls[0].Amount)
	}
	if calls[0].SlippageBps != 50 {
		t.Errorf("slippage = %d, want 50", calls[0].SlippageBps)
	}

	position, ok := store.Position("token-1")
	if !ok {
		t.Fatal("expected open position")
	}
	if position.Status != types.PositionStatusActive {
		t.Errorf("position status = %s, want active", position.Status)
	}
	if position.EntryPrice != 0.0002 {
		t.Errorf("entry price = %v, want 0.0002", position.EntryPrice)
	}
	if position.HighestPrice != position.EntryPrice {
		t.Errorf("highest price = %v, want entry price", position.HighestPrice)
	}
}

func TestEnter_SecurityFailureNeverReachesSwap(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	swapper := testutil.NewMockSwapper()
	gate := &testutil.MockGate{
		Verdict: &types.SecurityVerdict{
			TokenAddress:        "token-1",
			MintAuthorityActive: true,
			Passed:              false,
		},
	}
	e := newTestExecutor(t, store, gate, swapper, nil)

	record, err := e.Enter(context.Background(), testutil.CreateTestCandidate("token-1", "TKN", 0.0002))
	if !errors.Is(err, ErrSecurityRejected) {
		t.Fatalf("expected ErrSecurityRejected, got %v", err)
	}

	if len(swapper.Calls()) != 0 {
		t.Fatal("swap must not run after a failed security gate")
	}

	if record == nil {
		t.Fatal("expected rejection to be recorded")
	}
	if record.Status != types.TradeStatusFailed {
		t.Errorf("status = %s, want FAILED", record.Status)
	}
	if record.ErrorClass != types.ErrClassValidation {
		t.Errorf("error class = %s, want VALIDATION_FAILURE", record.ErrorClass)
	}

	if _, ok := store.Position("token-1"); ok {
		t.Error("no position may exist after a rejected entry")
	}
}

func TestEnter_SecurityErrorBlocksEntry(t *testing.T) {
	t.Parallel()

	// An inconclusive gate (RPC down) blocks exactly like a failed one.
	store := testutil.NewMemoryStore()
	swapper := testutil.NewMockSwapper()
	gate := &testutil.MockGate{Err: errors.New("rpc unavailable")}
	e := newTestExecutor(t, store, gate, swapper, nil)

	record, err := e.Enter(context.Background(), testutil.CreateTestCandidate("token-1", "TKN", 0.0002))
	if !errors.Is(err, ErrSecurityRejected) {
		t.Fatalf("expected ErrSecurityRejected, got %v", err)
	}
	if len(swapper.Calls()) != 0 {
		t.Fatal("swap must not run when the gate is inconclusive")
	}
	if record == nil || record.Status != types.TradeStatusFailed {
		t.Fatal("expected a FAILED record")
	}
}

func TestEnter_DuplicatePositionIsRefusedWithoutRecord(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	err := store.UpsertPosition(context.Background(),
		testutil.CreateTestPosition("token-1", "TKN", 1.0, types.PositionStatusActive))
	if err != nil {
		t.Fatalf("seed position: %v", err)
	}

	swapper := testutil.NewMockSwapper()
	e := newTestExecutor(t, store, &testutil.MockGate{}, swapper, nil)

	record, err := e.Enter(context.Background(), testutil.CreateTestCandidate("token-1", "TKN", 1.0))
	if !errors.Is(err, ErrPositionOpen) {
		t.Fatalf("expected ErrPositionOpen, got %v", err)
	}
	if record != nil {
		t.Error("duplicate entry must not produce a record")
	}
	if len(swapper.Calls()) != 0 {
		t.Error("duplicate entry must not swap")
	}
	if len(store.Trades()) != 0 {
		t.Error("duplicate entry must not append to the ledger")
	}
}

func TestEnter_UnpricedCandidateIsRefused(t *testing.T) {
	t.Parallel()

	// A zero entry price would leave the exit thresholds dead forever,
	// wedging the serial loop on one position. Refused before the gate.
	store := testutil.NewMemoryStore()
	swapper := testutil.NewMockSwapper()
	e := newTestExecutor(t, store, &testutil.MockGate{}, swapper, nil)

	for _, price := range []float64{0, -0.5} {
		record, err := e.Enter(context.Background(), testutil.CreateTestCandidate("token-1", "TKN", price))
		if !errors.Is(err, ErrCandidateUnpriced) {
			t.Fatalf("price %v: expected ErrCandidateUnpriced, got %v", price, err)
		}
		if record != nil {
			t.Error("unpriced entry must not produce a record")
		}
	}

	if len(swapper.Calls()) != 0 {
		t.Error("unpriced entry must not swap")
	}
	if len(store.Trades()) != 0 {
		t.Error("unpriced entry must not append to the ledger")
	}
	if _, ok := store.Position("token-1"); ok {
		t.Error("unpriced entry must not open a position")
	}
}

func TestEnter_GuardBlocks(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	swapper := testutil.NewMockSwapper()
	e := newTestExecutor(t, store, &testutil.MockGate{}, swapper, &staticGuard{allowed: false})

	record, err := e.Enter(context.Background(), testutil.CreateTestCandidate("token-1", "TKN", 1.0))
	if !errors.Is(err, ErrEntriesBlocked) {
		t.Fatalf("expected ErrEntriesBlocked, got %v", err)
	}
	if record != nil {
		t.Error("blocked entry must not produce a record")
	}
	if len(swapper.Calls()) != 0 {
		t.Error("blocked entry must not swap")
	}
}

func TestEnter_SwapFailureIsRecordedWithClass(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	swapper := testutil.NewMockSwapper()
	swapper.Err = types.NewTradeError(types.ErrClassUpstreamTransient, "quote", "quote unavailable", nil)
	e := newTestExecutor(t, store, &testutil.MockGate{}, swapper, nil)

	record, err := e.Enter(context.Background(), testutil.CreateTestCandidate("token-1", "TKN", 1.0))
	if err == nil {
		t.Fatal("expected error")
	}

	if record == nil {
		t.Fatal("expected failed attempt to be recorded")
	}
	if record.Status != types.TradeStatusFailed {
		t.Errorf("status = %s, want FAILED", record.Status)
	}
	if record.ErrorClass != types.ErrClassUpstreamTransient {
		t.Errorf("error class = %s, want UPSTREAM_TRANSIENT", record.ErrorClass)
	}
	if _, ok := store.Position("token-1"); ok {
		t.Error("no position may exist after a failed buy")
	}
}

func TestEnter_AmbiguousSwapOutcome(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	swapper := testutil.NewMockSwapper()
	swapper.Err = types.NewTradeError(types.ErrClassAmbiguousOutcome, "confirm", "confirmation timeout", nil)
	e := newTestExecutor(t, store, &testutil.MockGate{}, swapper, nil)

	record, err := e.Enter(context.Background(), testutil.CreateTestCandidate("token-1", "TKN", 1.0))
	if err == nil {
		t.Fatal("expected error")
	}
	if record.ErrorClass != types.ErrClassAmbiguousOutcome {
		t.Errorf("error class = %s, want AMBIGUOUS_OUTCOME", record.ErrorClass)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore()
	gate := &testutil.MockGate{}
	swapper := testutil.NewMockSwapper()
	logger := zaptest.NewLogger(t)

	_, err := New(&Config{Gate: gate, Swapper: swapper, TradeAmountSOL: 0.1, Logger: logger})
	if err == nil {
		t.Error("expected error for nil store")
	}

	_, err = New(&Config{Store: store, Gate: gate, Swapper: swapper, TradeAmountSOL: 0, Logger: logger})
	if err == nil {
		t.Error("expected error for zero trade amount")
	}
}
