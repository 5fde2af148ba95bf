package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/snipeworks/solana-sniper/internal/app"
	"github.com/snipeworks/solana-sniper/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Display open positions",
	Long: `Reads the open-position map from the ledger and prints each
position with its entry price, current price and unrealized P&L as of
the watcher's last update.

Examples:
  sniper positions
  sniper positions --format json`,
	RunE: runPositions,
}

//nolint:gochecknoglobals // Cobra boilerplate
var positionsFormat string

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(positionsCmd)

	positionsCmd.Flags().StringVar(&positionsFormat, "format", "table", "Output format: table, json")
}

func runPositions(cmd *cobra.Command, args []string) error {
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

	positions, err := store.LoadPositions(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}

	if positionsFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(positions)
	}

	if len(positions) == 0 {
		fmt.Println("No open positions")
		return nil
	}

	addresses := make([]string, 0, len(positions))
	for addr := range positions {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	fmt.Printf("Open positions: %d\n\n", len(positions))
	for _, addr := range addresses {
		p := positions[addr]
		fmt.Printf("%s [%s] %s\n", p.Symbol, p.Status, p.TokenAddress)
		fmt.Printf("   Entered: %s @ $%.8f\n", p.EntryTime.Format("2006-01-02 15:04:05"), p.EntryPrice)
		fmt.Printf("   Size: %.4f SOL / %d units\n", p.AmountSOL, p.AmountTokens)
		if !p.LastUpdate.IsZero() && p.CurrentPrice > 0 {
			sign := ""
			if p.PnLPercent > 0 {
				sign = "+"
			}
			fmt.Printf("   Current: $%.8f (%s%.2f%%, high $%.8f)\n",
				p.CurrentPrice, sign, p.PnLPercent, p.HighestPrice)
		}
		fmt.Println()
	}

	return nil
}
