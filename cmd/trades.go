package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/snipeworks/solana-sniper/internal/app"
	"github.com/snipeworks/solana-sniper/pkg/config"
	"github.com/snipeworks/solana-sniper/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "Display the trade history and summary statistics",
	Long: `Reads the full trade sequence from the ledger and prints it with
aggregate statistics: wins, losses, total profit and win rate.

Examples:
  # Table format with summary
  sniper trades

  # Export to JSON
  sniper trades --format json > trades.json`,
	RunE: runTrades,
}

//nolint:gochecknoglobals // Cobra boilerplate
var tradesFormat string

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(tradesCmd)

	tradesCmd.Flags().StringVar(&tradesFormat, "format", "table", "Output format: table, json")
}

func runTrades(cmd *cobra.Command, args []string) error {
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

	store, err := app.NewStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	trades, err := store.LoadTrades(ctx)
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}

	if tradesFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(trades)
	}

	if len(trades) == 0 {
		fmt.Println("No trades recorded")
		return nil
	}

	for _, t := range trades {
		printTrade(t)
	}

	stats := types.ComputeStats(trades)
	fmt.Println("SUMMARY")
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Printf("Total trades: %d (%d successful, %d failed)\n",
		stats.TotalTrades, stats.SuccessfulTrades, stats.FailedTrades)
	if stats.CompletedTrades > 0 {
		fmt.Printf("Completed: %d (%d wins, %d losses, %.1f%% win rate)\n",
			stats.CompletedTrades, stats.Wins, stats.Losses, stats.WinRate)
		fmt.Printf("Total profit: %.6f SOL (avg %.2f%% per trade)\n",
			stats.TotalProfitSOL, stats.AvgProfitPercent)
	}

	return nil
}

func printTrade(t types.TradeRecord) {
	fmt.Printf("#%d %s %s %s %s\n",
		t.ID, t.Timestamp.Format("2006-01-02 15:04:05"), t.Type, t.Status, t.Symbol)
	fmt.Printf("   Token: %s\n", t.TokenAddress)

	if t.Status == types.TradeStatusFailed {
		fmt.Printf("   Error: [%s] %s\n\n", t.ErrorClass, t.ErrorMessage)
		return
	}

	fmt.Printf("   Amount: %.4f SOL / %d units\n", t.AmountSOL, t.AmountTokens)
	if t.Signature != "" {
		fmt.Printf("   Signature: %s\n", t.Signature)
	}
	if t.Type == types.TradeTypeSell {
		sign := ""
		if t.ProfitSOL > 0 {
			sign = "+"
		}
		fmt.Printf("   Exit: %s, P&L %s%.6f SOL (%.2f%%)\n",
			t.ExitReason, sign, t.ProfitSOL, t.ProfitPercent)
	}
	fmt.Println()
}
