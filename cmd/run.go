package cmd

import (
	"context"
	"time"

	"github.com/Layr-Labs/staking-ledger/internal/config"
	"github.com/Layr-Labs/staking-ledger/internal/logger"
	"github.com/Layr-Labs/staking-ledger/internal/metrics"
	"github.com/Layr-Labs/staking-ledger/internal/metrics/prometheus"
	"github.com/Layr-Labs/staking-ledger/internal/shutdown"
	"github.com/Layr-Labs/staking-ledger/internal/version"
	"github.com/Layr-Labs/staking-ledger/pkg/custody"
	"github.com/Layr-Labs/staking-ledger/pkg/eventBus"
	"github.com/Layr-Labs/staking-ledger/pkg/ledgerQueue"
	"github.com/Layr-Labs/staking-ledger/pkg/rewardLedger"
	"github.com/Layr-Labs/staking-ledger/pkg/rpcServer"
	"github.com/Layr-Labs/staking-ledger/pkg/stateRoot"
	"github.com/Layr-Labs/staking-ledger/pkg/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the staking ledger service",
	Run: func(cmd *cobra.Command, args []string) {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()
		ctx := context.Background()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

		if err := cfg.Validate(); err != nil {
			l.Sugar().Fatalw("Invalid configuration", zap.Error(err))
		}

		l.Sugar().Infow("staking ledger",
			zap.String("version", version.GetVersion()),
			zap.String("commit", version.GetCommit()),
			zap.String("databaseDriver", cfg.DatabaseConfig.Driver),
		)

		metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
		if err != nil {
			l.Sugar().Fatal("Failed to setup metrics sink", zap.Error(err))
		}

		sink, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients)
		if err != nil {
			l.Sugar().Fatal("Failed to setup metrics sink", zap.Error(err))
		}

		grm, err := openDatabase(cfg, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to open database", zap.Error(err))
		}
		if err := migrateDatabase(grm, l); err != nil {
			l.Sugar().Fatalw("Failed to migrate database", zap.Error(err))
		}

		store := storage.NewGormStateStore(grm, logger.Named(l, "stateStore"))

		accounts, err := custody.NewGormCustody(grm, cfg.LedgerConfig.CustodyPrincipal, logger.Named(l, "custody"))
		if err != nil {
			l.Sugar().Fatalw("Failed to create custody accounts", zap.Error(err))
		}

		gate, err := rewardLedger.NewSingleAdminGate(cfg.LedgerConfig.AdminPrincipal)
		if err != nil {
			l.Sugar().Fatalw("Failed to create access gate", zap.Error(err))
		}

		eb := eventBus.NewEventBus(logger.Named(l, "eventBus"))

		ledger := rewardLedger.NewRewardLedger(store, accounts, gate, eb, sink, logger.Named(l, "rewardLedger"))

		lq := ledgerQueue.NewLedgerQueue(ledger, cfg.QueueConfig.BufferSize, sink, logger.Named(l, "ledgerQueue"))
		go lq.Process()

		srg := stateRoot.NewGenerator(store, grm, logger.Named(l, "stateRoot"))

		rpc := rpcServer.NewRpcServer(&rpcServer.RpcServerConfig{
			GrpcPort:       cfg.RpcConfig.GrpcPort,
			HttpPort:       cfg.RpcConfig.HttpPort,
			AllowedOrigins: cfg.RpcConfig.AllowedOrigins,
			MaxClockSkew:   cfg.RpcConfig.MaxClockSkew,
		}, ledger, lq, accounts, gate, srg, eb, sink, logger.Named(l, "rpcServer"))

		// RPC channel to notify the RPC server to shutdown gracefully
		rpcChannel := make(chan bool, 1)
		if err := rpc.Start(ctx, rpcChannel); err != nil {
			l.Sugar().Fatalw("Failed to start RPC server", zap.Error(err))
		}

		promChan := make(chan bool, 1)
		if cfg.PrometheusConfig.Enabled {
			pServer := prometheus.NewPrometheusServer(&prometheus.PrometheusServerConfig{
				Port: cfg.PrometheusConfig.Port,
			}, l)
			if err := pServer.Start(promChan); err != nil {
				l.Sugar().Fatalw("Failed to start prometheus server", zap.Error(err))
			}
		}

		l.Sugar().Info("Started staking ledger")

		gracefulShutdown := shutdown.CreateGracefulShutdownChannel()

		done := make(chan bool)
		shutdown.ListenForShutdown(gracefulShutdown, done, func() {
			l.Sugar().Info("Shutting down...")
			rpcChannel <- true
			promChan <- true
		}, time.Second*5, l)

		lq.Close()
		if sqlDb, err := grm.DB(); err == nil {
			_ = sqlDb.Close()
		}
	},
}
