package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "sniper",
	Short: "Solana memecoin trading engine",
	Long: `Solana memecoin trading engine that vets candidate tokens against
their on-chain mint metadata, enters positions through the Jupiter
aggregator, and supervises every open position with stop-loss and
take-profit exits.

Candidates arrive as newline-delimited JSON on stdin; every trade attempt
is appended to a durable ledger that a dashboard can read concurrently.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
