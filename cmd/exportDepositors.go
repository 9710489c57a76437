package cmd

import (
	"context"
	"os"

	"github.com/Layr-Labs/staking-ledger/internal/config"
	"github.com/Layr-Labs/staking-ledger/internal/logger"
	"github.com/Layr-Labs/staking-ledger/pkg/rewardLedger"
	"github.com/Layr-Labs/staking-ledger/pkg/snapshot"
	"github.com/Layr-Labs/staking-ledger/pkg/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportDepositorsCmd = &cobra.Command{
	Use:   "export-depositors",
	Short: "Write every active depositor with pending reward as CSV",
	Run: func(cmd *cobra.Command, args []string) {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

		grm, err := openDatabase(cfg, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to open database", zap.Error(err))
		}
		if err := migrateDatabase(grm, l); err != nil {
			l.Sugar().Fatalw("Failed to migrate database", zap.Error(err))
		}

		// read-only: no transfers are made and no caller is authorized
		ledger := rewardLedger.NewRewardLedger(storage.NewGormStateStore(grm, l), nil, denyAllGate{}, nil, nil, l)

		ctx := context.Background()
		var count int
		if cfg.SnapshotConfig.OutputFile == "" {
			count, err = snapshot.ExportDepositors(ctx, ledger, os.Stdout, nil)
		} else {
			count, err = snapshot.ExportDepositorsToFile(ctx, ledger, cfg.SnapshotConfig.OutputFile, &snapshot.ExportOptions{ShowProgress: true})
		}
		if err != nil {
			l.Sugar().Fatalw("Failed to export depositors", zap.Error(err))
		}
		l.Sugar().Infow("Exported depositors", zap.Int("count", count), zap.String("outputFile", cfg.SnapshotConfig.OutputFile))
	},
}

type denyAllGate struct{}

func (denyAllGate) IsAuthorized(ctx context.Context, caller string) bool {
	return false
}
