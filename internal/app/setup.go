package app

import (
	"context"
	"fmt"
	"os"

	"github.com/snipeworks/solana-sniper/internal/executor"
	"github.com/snipeworks/solana-sniper/internal/guard"
	"github.com/snipeworks/solana-sniper/internal/ledger"
	"github.com/snipeworks/solana-sniper/internal/pricefeed"
	"github.com/snipeworks/solana-sniper/internal/security"
	"github.com/snipeworks/solana-sniper/internal/solana"
	"github.com/snipeworks/solana-sniper/internal/swap"
	"github.com/snipeworks/solana-sniper/internal/watcher"
	"github.com/snipeworks/solana-sniper/pkg/cache"
	"github.com/snipeworks/solana-sniper/pkg/config"
	"github.com/snipeworks/solana-sniper/pkg/healthprobe"
	"github.com/snipeworks/solana-sniper/pkg/httpserver"
	"go.uber.org/zap"
)

// Engine bundles the trading components so the CLI subcommands can use
// them without the full application lifecycle.
type Engine struct {
	Store     ledger.Store
	Chain     *solana.Client
	Wallet    *swap.Wallet
	Validator *security.Validator
	Swapper   *swap.Client
	Prices    pricefeed.Source
	Executor  *executor.Executor
	Watcher   *watcher.Watcher
}

// Close releases the engine's backing resources.
func (e *Engine) Close() error {
	return e.Store.Close()
}

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	engine, balanceGuard, err := newEngineWithGuard(cfg, logger)
	if err != nil {
		cancel()
		return nil, err
	}

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Store:         engine.Store,
	})

	intake := opts.Intake
	if intake == nil {
		intake = os.Stdin
	}

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		engine:        engine,
		balanceGuard:  balanceGuard,
		intake:        intake,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// NewStore creates the ledger backend selected by configuration.
func NewStore(cfg *config.Config, logger *zap.Logger) (ledger.Store, error) {
	if cfg.LedgerMode == "postgres" {
		store, err := ledger.NewPostgresStore(&ledger.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres ledger: %w", err)
		}
		return store, nil
	}

	store, err := ledger.NewFileStore(&ledger.FileConfig{
		Dir:    cfg.LedgerDir,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create file ledger: %w", err)
	}
	return store, nil
}

// NewEngine creates the trading components for commands that need them.
// The signing key is required here: an engine without a wallet cannot
// trade.
func NewEngine(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	engine, _, err := newEngineWithGuard(cfg, logger)
	return engine, err
}

func newEngineWithGuard(cfg *config.Config, logger *zap.Logger) (*Engine, *guard.BalanceGuard, error) {
	err := cfg.RequireWallet()
	if err != nil {
		return nil, nil, err
	}

	wallet, err := swap.NewWalletFromBase58(cfg.SolanaPrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("load wallet: %w", err)
	}

	store, err := NewStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	chain := solana.NewClient(&solana.Config{
		RPCURL: cfg.SolanaRPCURL,
		Logger: logger,
	})

	validator := security.New(&security.Config{
		Fetcher: chain,
		Logger:  logger,
	})

	swapper := swap.NewClient(&swap.Config{
		BaseURL:         cfg.JupiterAPIURL,
		APIKey:          cfg.JupiterAPIKey,
		Chain:           chain,
		Wallet:          wallet,
		ConfirmTimeout:  cfg.ConfirmTimeout,
		ConfirmInterval: cfg.ConfirmPollInterval,
		Logger:          logger,
	})

	prices, err := setupPriceSource(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var balanceGuard *guard.BalanceGuard
	if cfg.BalanceGuardEnabled {
		balanceGuard, err = guard.New(&guard.Config{
			CheckInterval:  cfg.BalanceGuardCheckInterval,
			Chain:          chain,
			Owner:          wallet.PublicKey(),
			TradeAmountSOL: cfg.TradeAmountSOL,
			ReserveSOL:     cfg.BalanceGuardReserveSOL,
			Logger:         logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create balance guard: %w", err)
		}
	}

	exec, err := executor.New(&executor.Config{
		Store:            store,
		Gate:             validator,
		Swapper:          swapper,
		Guard:            entryGuard(balanceGuard),
		TradeAmountSOL:   cfg.TradeAmountSOL,
		EntrySlippageBps: cfg.EntrySlippageBps,
		Logger:           logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create executor: %w", err)
	}

	watch, err := watcher.New(&watcher.Config{
		Store:             store,
		Prices:            prices,
		Swapper:           swapper,
		Chain:             chain,
		Owner:             wallet.PublicKey(),
		Interval:          cfg.WatcherInterval,
		StopLossPercent:   cfg.StopLossPercent,
		TakeProfitPercent: cfg.TakeProfitPercent,
		ExitSlippageBps:   cfg.ExitSlippageBps,
		Logger:            logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create watcher: %w", err)
	}

	engine := &Engine{
		Store:     store,
		Chain:     chain,
		Wallet:    wallet,
		Validator: validator,
		Swapper:   swapper,
		Prices:    prices,
		Executor:  exec,
		Watcher:   watch,
	}
	return engine, balanceGuard, nil
}

// entryGuard converts a possibly-nil concrete guard into the executor's
// optional interface. A typed nil inside a non-nil interface would trip
// the nil check in the executor.
func entryGuard(g *guard.BalanceGuard) executor.EntryGuard {
	if g == nil {
		return nil
	}
	return g
}

func setupPriceSource(cfg *config.Config, logger *zap.Logger) (pricefeed.Source, error) {
	client := pricefeed.NewDexScreenerClient(&pricefeed.Config{
		BaseURL: cfg.DexScreenerAPIURL,
		Logger:  logger,
	})

	priceCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000, // 10x expected max items
		MaxCost:     1000,  // Maximum 1000 items in cache
		BufferItems: 64,    // Buffer size for Get operations
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("setup price cache: %w", err)
	}

	return pricefeed.NewCachedSource(client, priceCache, cfg.PriceCacheTTL), nil
}
