package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Solana
	SolanaRPCURL     string
	SolanaPrivateKey string // base58, required for trading commands

	// Jupiter aggregator
	JupiterAPIURL string
	JupiterAPIKey string // optional, sent as x-api-key

	// Price feed
	DexScreenerAPIURL string
	PriceCacheTTL     time.Duration

	// Trading
	TradeAmountSOL    float64
	EntrySlippageBps  int
	ExitSlippageBps   int
	StopLossPercent   float64
	TakeProfitPercent float64
	WatcherInterval   time.Duration

	// Swap confirmation
	ConfirmTimeout      time.Duration
	ConfirmPollInterval time.Duration

	// Ledger
	LedgerMode   string // "file" or "postgres"
	LedgerDir    string
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Balance guard
	BalanceGuardEnabled       bool
	BalanceGuardCheckInterval time.Duration
	BalanceGuardReserveSOL    float64
}

// LoadFromEnv loads configuration from environment variables with defaults.
// A .env file in the working directory is loaded best-effort first.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Solana defaults
		SolanaRPCURL:     getEnvOrDefault("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		SolanaPrivateKey: os.Getenv("SOLANA_PRIVATE_KEY"),

		// Jupiter defaults
		JupiterAPIURL: getEnvOrDefault("JUPITER_API_URL", "https://quote-api.jup.ag/v6"),
		JupiterAPIKey: os.Getenv("JUPITER_API_KEY"),

		// Price feed defaults
		DexScreenerAPIURL: getEnvOrDefault("DEXSCREENER_API_URL", "https://api.dexscreener.com/latest"),
		PriceCacheTTL:     getDurationOrDefault("PRICE_CACHE_TTL", 2*time.Second),

		// Trading defaults
		TradeAmountSOL:    getFloat64OrDefault("TRADE_AMOUNT_SOL", 0.1),
		EntrySlippageBps:  getIntOrDefault("ENTRY_SLIPPAGE_BPS", 50),
		ExitSlippageBps:   getIntOrDefault("EXIT_SLIPPAGE_BPS", 100),
		StopLossPercent:   getFloat64OrDefault("STOP_LOSS_PERCENT", 15),
		TakeProfitPercent: getFloat64OrDefault("TAKE_PROFIT_PERCENT", 40),
		WatcherInterval:   getDurationOrDefault("WATCHER_INTERVAL", 3*time.Second),

		// Confirmation defaults
		ConfirmTimeout:      getDurationOrDefault("CONFIRM_TIMEOUT", 60*time.Second),
		ConfirmPollInterval: getDurationOrDefault("CONFIRM_POLL_INTERVAL", 2*time.Second),

		// Ledger defaults
		LedgerMode:   getEnvOrDefault("LEDGER_MODE", "file"),
		LedgerDir:    getEnvOrDefault("LEDGER_DIR", "./data"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "sniper"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", ""),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "sniper"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		// Balance guard defaults
		BalanceGuardEnabled:       getBoolOrDefault("BALANCE_GUARD_ENABLED", true),
		BalanceGuardCheckInterval: getDurationOrDefault("BALANCE_GUARD_CHECK_INTERVAL", 30*time.Second),
		BalanceGuardReserveSOL:    getFloat64OrDefault("BALANCE_GUARD_RESERVE_SOL", 0.01),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.SolanaRPCURL == "" {
		return fmt.Errorf("SOLANA_RPC_URL cannot be empty")
	}

	if c.JupiterAPIURL == "" {
		return fmt.Errorf("JUPITER_API_URL cannot be empty")
	}

	if c.TradeAmountSOL <= 0 {
		return fmt.Errorf("TRADE_AMOUNT_SOL must be > 0, got %f", c.TradeAmountSOL)
	}

	if c.StopLossPercent <= 0 || c.StopLossPercent >= 100 {
		return fmt.Errorf("STOP_LOSS_PERCENT must be between 0 and 100, got %f", c.StopLossPercent)
	}

	if c.TakeProfitPercent <= 0 {
		return fmt.Errorf("TAKE_PROFIT_PERCENT must be > 0, got %f", c.TakeProfitPercent)
	}

	if c.EntrySlippageBps <= 0 || c.ExitSlippageBps <= 0 {
		return fmt.Errorf("slippage bounds must be > 0, got entry=%d exit=%d", c.EntrySlippageBps, c.ExitSlippageBps)
	}

	if c.WatcherInterval <= 0 {
		return fmt.Errorf("WATCHER_INTERVAL must be > 0, got %s", c.WatcherInterval)
	}

	if c.LedgerMode != "file" && c.LedgerMode != "postgres" {
		return fmt.Errorf("LEDGER_MODE must be 'file' or 'postgres', got %q", c.LedgerMode)
	}

	return nil
}

// RequireWallet ensures the signing key is configured. Trading commands
// call this; read-only commands do not.
func (c *Config) RequireWallet() error {
	if c.SolanaPrivateKey == "" {
		return fmt.Errorf("SOLANA_PRIVATE_KEY not set")
	}
	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}
