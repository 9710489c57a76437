package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Layr-Labs/staking-ledger/internal/config"
	"github.com/Layr-Labs/staking-ledger/internal/logger"
	"github.com/Layr-Labs/staking-ledger/pkg/clients/stakingLedger"
	"github.com/Layr-Labs/staking-ledger/pkg/requestAuth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const clientTimeout = 30 * time.Second

// runClientCommand calls the ledger service, signing as the configured key, and prints the JSON result.
func runClientCommand(cmd *cobra.Command, fn func(ctx context.Context, c *stakingLedger.StakingLedgerClient) (any, error)) {
	bindCommandFlags(cmd)
	cfg := config.NewConfig()

	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

	var signer *requestAuth.Signer
	if cfg.ClientConfig.PrivateKey != "" {
		var err error
		if signer, err = requestAuth.NewSigner(cfg.ClientConfig.PrivateKey); err != nil {
			l.Sugar().Fatalw("Invalid client private key", zap.Error(err))
		}
	}
	c := stakingLedger.NewStakingLedgerClient(&http.Client{Timeout: clientTimeout}, cfg.ClientConfig.LedgerUrl, signer, l)

	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	res, err := fn(ctx, c)
	if err != nil {
		l.Sugar().Fatalw("Request failed", zap.Error(err))
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		l.Sugar().Fatalw("Failed to encode response", zap.Error(err))
	}
	fmt.Fprintln(os.Stdout, string(out))
}

var depositCmd = &cobra.Command{
	Use:   "deposit <amount>",
	Short: "Stake amount as the principal of the configured key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runClientCommand(cmd, func(ctx context.Context, c *stakingLedger.StakingLedgerClient) (any, error) {
			return c.Deposit(ctx, args[0])
		})
	},
}

var distributeCmd = &cobra.Command{
	Use:   "distribute <amount>",
	Short: "Distribute a reward to all depositors. The caller must be the ledger admin",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runClientCommand(cmd, func(ctx context.Context, c *stakingLedger.StakingLedgerClient) (any, error) {
			return c.Distribute(ctx, args[0])
		})
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw the caller's stake and accrued reward",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runClientCommand(cmd, func(ctx context.Context, c *stakingLedger.StakingLedgerClient) (any, error) {
			return c.Withdraw(ctx)
		})
	},
}

var amountToWithdrawCmd = &cobra.Command{
	Use:   "amount-to-withdraw [principal]",
	Short: "Show stake plus pending reward for principal, or the caller when omitted",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runClientCommand(cmd, func(ctx context.Context, c *stakingLedger.StakingLedgerClient) (any, error) {
			principal := c.Principal()
			if len(args) == 1 {
				principal = args[0]
			}
			return c.GetAmountToWithdraw(ctx, principal)
		})
	},
}

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Show the pool state",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runClientCommand(cmd, func(ctx context.Context, c *stakingLedger.StakingLedgerClient) (any, error) {
			return c.GetPool(ctx)
		})
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <amount>",
	Short: "Allow the ledger to pull up to amount from the caller",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runClientCommand(cmd, func(ctx context.Context, c *stakingLedger.StakingLedgerClient) (any, error) {
			return c.Approve(ctx, args[0])
		})
	},
}

var mintCmd = &cobra.Command{
	Use:   "mint <principal> <amount>",
	Short: "Credit new funds to principal. The caller must be the ledger admin",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runClientCommand(cmd, func(ctx context.Context, c *stakingLedger.StakingLedgerClient) (any, error) {
			return c.Mint(ctx, args[0], args[1])
		})
	},
}
