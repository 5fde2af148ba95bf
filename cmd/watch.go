package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/snipeworks/solana-sniper/internal/app"
	"github.com/snipeworks/solana-sniper/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Supervise open positions until they close",
	Long: `Adopts every open position in the ledger and supervises it:
prices are polled each interval, stop-loss and take-profit thresholds
trigger sells, and a failed sell is retried on the next cycle.

The command returns once no open positions remain.`,
	RunE: runWatch,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	positions, err := engine.Store.LoadPositions(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	if len(positions) == 0 {
		fmt.Println("No open positions")
		return nil
	}

	fmt.Printf("Supervising %d open position(s)\n", len(positions))

	err = engine.Watcher.Watch(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch positions: %w", err)
	}

	return nil
}
