package cmd

import (
	"fmt"

	"github.com/snipeworks/solana-sniper/internal/app"
	"github.com/snipeworks/solana-sniper/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the trading engine",
	Long: `Starts the trading engine, which will:
1. Adopt any positions left open by a previous run
2. Read candidate tokens as newline-delimited JSON from stdin
3. Vet each candidate's mint metadata before committing capital
4. Buy through the Jupiter aggregator and supervise the position
   until a stop-loss or take-profit exit closes it

Metrics, health probes and the read-only ledger API are served over HTTP.`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
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

	application, err := app.New(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
