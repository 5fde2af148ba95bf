package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/snipeworks/solana-sniper/internal/app"
	"github.com/snipeworks/solana-sniper/pkg/config"
	"github.com/snipeworks/solana-sniper/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var enterCmd = &cobra.Command{
	Use:   "enter <token-address>",
	Short: "Buy a single token and supervise the position",
	Long: `Runs one entry attempt for the given token address:
1. Security gate: mint and freeze authority must both be disabled
2. Buy TRADE_AMOUNT_SOL worth through the Jupiter aggregator
3. Supervise the position until stop-loss or take-profit closes it

Use --no-watch to return immediately after the buy confirms; a later
'sniper watch' adopts the position.

Examples:
  sniper enter So1aNaTokenAddress111111111111111111111111
  sniper enter So1aNaTokenAddress111111111111111111111111 --symbol BONK --no-watch`,
	Args: cobra.ExactArgs(1),
	RunE: runEnter,
}

//nolint:gochecknoglobals // Cobra boilerplate
var (
	enterSymbol  string
	enterNoWatch bool
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(enterCmd)

	enterCmd.Flags().StringVar(&enterSymbol, "symbol", "", "Token symbol for the ledger (defaults to a truncated address)")
	enterCmd.Flags().BoolVar(&enterNoWatch, "no-watch", false, "Skip position supervision after the buy")
}

func runEnter(cmd *cobra.Command, args []string) error {
	tokenAddress := args[0]

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	engine, err := app.NewEngine(cfg, logger)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer func() {
		_ = engine.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	symbol := enterSymbol
	if symbol == "" {
		symbol = truncateAddress(tokenAddress)
	}

	// The entry price anchors the stop-loss and take-profit thresholds.
	price, err := engine.Prices.GetPrice(ctx, tokenAddress)
	if err != nil {
		return fmt.Errorf("fetch entry price: %w", err)
	}

	candidate := &types.Candidate{
		TokenAddress: tokenAddress,
		Symbol:       symbol,
		PriceUSD:     price,
	}

	record, err := engine.Executor.Enter(ctx, candidate)
	if err != nil {
		if record != nil {
			fmt.Printf("Entry failed (recorded as trade #%d): %v\n", record.ID, err)
			return nil
		}
		return fmt.Errorf("enter position: %w", err)
	}

	fmt.Printf("Position opened: %s\n", tokenAddress)
	fmt.Printf("  Signature: %s\n", record.Signature)
	fmt.Printf("  Amount: %.4f SOL -> %d token units\n", record.AmountSOL, record.AmountTokens)
	fmt.Printf("  Entry price: $%.8f\n", record.EntryPrice)

	if enterNoWatch {
		fmt.Println("Supervision skipped; run 'sniper watch' to adopt the position")
		return nil
	}

	err = engine.Watcher.Watch(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch position: %w", err)
	}

	return nil
}

func truncateAddress(address string) string {
	if len(address) <= 8 {
		return address
	}
	return address[:8]
}
