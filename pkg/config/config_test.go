package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.TradeAmountSOL != 0.1 {
		t.Errorf("TradeAmountSOL = %v, want 0.1", cfg.TradeAmountSOL)
	}
	if cfg.StopLossPercent != 15 {
		t.Errorf("StopLossPercent = %v, want 15", cfg.StopLossPercent)
	}
	if cfg.TakeProfitPercent != 40 {
		t.Errorf("TakeProfitPercent = %v, want 40", cfg.TakeProfitPercent)
	}
	if cfg.WatcherInterval != 3*time.Second {
		t.Errorf("WatcherInterval = %v, want 3s", cfg.WatcherInterval)
	}
	if cfg.LedgerMode != "file" {
		t.Errorf("LedgerMode = %q, want file", cfg.LedgerMode)
	}
	if !cfg.BalanceGuardEnabled {
		t.Error("balance guard must default to enabled")
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("TRADE_AMOUNT_SOL", "0.25")
	t.Setenv("STOP_LOSS_PERCENT", "20")
	t.Setenv("WATCHER_INTERVAL", "5s")
	t.Setenv("LEDGER_MODE", "postgres")
	t.Setenv("BALANCE_GUARD_ENABLED", "false")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.TradeAmountSOL != 0.25 {
		t.Errorf("TradeAmountSOL = %v, want 0.25", cfg.TradeAmountSOL)
	}
	if cfg.StopLossPercent != 20 {
		t.Errorf("StopLossPercent = %v, want 20", cfg.StopLossPercent)
	}
	if cfg.WatcherInterval != 5*time.Second {
		t.Errorf("WatcherInterval = %v, want 5s", cfg.WatcherInterval)
	}
	if cfg.LedgerMode != "postgres" {
		t.Errorf("LedgerMode = %q, want postgres", cfg.LedgerMode)
	}
	if cfg.BalanceGuardEnabled {
		t.Error("balance guard must be disabled")
	}
}

func TestLoadFromEnv_UnparseableValuesFallBack(t *testing.T) {
	t.Setenv("TRADE_AMOUNT_SOL", "lots")
	t.Setenv("WATCHER_INTERVAL", "soon")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TradeAmountSOL != 0.1 {
		t.Errorf("TradeAmountSOL = %v, want default 0.1", cfg.TradeAmountSOL)
	}
	if cfg.WatcherInterval != 3*time.Second {
		t.Errorf("WatcherInterval = %v, want default 3s", cfg.WatcherInterval)
	}
}

func TestValidate_Failures(t *testing.T) {
	valid := func() *Config {
		return &Config{
			HTTPPort:          "8080",
			SolanaRPCURL:      "https://rpc",
			JupiterAPIURL:     "https://jup",
			TradeAmountSOL:    0.1,
			EntrySlippageBps:  50,
			ExitSlippageBps:   100,
			StopLossPercent:   15,
			TakeProfitPercent: 40,
			WatcherInterval:   time.Second,
			LedgerMode:        "file",
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("baseline config must validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero trade amount", func(c *Config) { c.TradeAmountSOL = 0 }},
		{"stop loss at 100", func(c *Config) { c.StopLossPercent = 100 }},
		{"negative stop loss", func(c *Config) { c.StopLossPercent = -5 }},
		{"zero take profit", func(c *Config) { c.TakeProfitPercent = 0 }},
		{"zero entry slippage", func(c *Config) { c.EntrySlippageBps = 0 }},
		{"zero watcher interval", func(c *Config) { c.WatcherInterval = 0 }},
		{"unknown ledger mode", func(c *Config) { c.LedgerMode = "sqlite" }},
		{"empty rpc url", func(c *Config) { c.SolanaRPCURL = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRequireWallet(t *testing.T) {
	cfg := &Config{}
	if err := cfg.RequireWallet(); err == nil {
		t.Error("expected error without a key")
	}

	cfg.SolanaPrivateKey = "some-base58-key"
	if err := cfg.RequireWallet(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
