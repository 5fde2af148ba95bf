package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/snipeworks/solana-sniper/internal/security"
	"github.com/snipeworks/solana-sniper/internal/solana"
	"github.com/snipeworks/solana-sniper/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var checkCmd = &cobra.Command{
	Use:   "check <token-address>",
	Short: "Run the security gate against a token without trading",
	Long: `Fetches the token's mint account and decodes its authority
discriminants. A token passes only when both the mint authority (supply
inflation) and the freeze authority (account freezing) are disabled.

No wallet is required; nothing is traded or recorded.

Examples:
  sniper check So1aNaTokenAddress111111111111111111111111`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	chain := solana.NewClient(&solana.Config{
		RPCURL: cfg.SolanaRPCURL,
		Logger: logger,
	})
	validator := security.New(&security.Config{
		Fetcher: chain,
		Logger:  logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	verdict, err := validator.Validate(ctx, tokenAddress)
	if err != nil {
		return fmt.Errorf("security check: %w", err)
	}

	fmt.Printf("Token: %s\n\n", tokenAddress)

	if verdict.MintAuthorityActive {
		fmt.Printf("Mint authority:   ACTIVE (%s)\n", verdict.MintAuthority)
	} else {
		fmt.Println("Mint authority:   disabled")
	}

	if verdict.FreezeAuthorityActive {
		fmt.Printf("Freeze authority: ACTIVE (%s)\n", verdict.FreezeAuthority)
	} else {
		fmt.Println("Freeze authority: disabled")
	}

	fmt.Println()
	if verdict.Passed {
		fmt.Println("Verdict: PASS")
		return nil
	}

	fmt.Println("Verdict: FAIL")
	return nil
}
