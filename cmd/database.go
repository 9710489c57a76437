package cmd

import (
	"fmt"

	"github.com/Layr-Labs/staking-ledger/internal/config"
	"github.com/Layr-Labs/staking-ledger/internal/logger"
	"github.com/Layr-Labs/staking-ledger/internal/sqlite"
	"github.com/Layr-Labs/staking-ledger/pkg/migrations"
	"github.com/Layr-Labs/staking-ledger/pkg/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var runDatabaseCmd = &cobra.Command{
	Use:   "database",
	Short: "Create the database if needed and run all migrations",
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
		l.Sugar().Infow("Database migrated")
	},
}

// openDatabase connects to the configured driver, creating the postgres database if it does not exist.
func openDatabase(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	driver, err := cfg.GetDatabaseDriver()
	if err != nil {
		return nil, err
	}

	switch driver {
	case config.DatabaseDriver_Postgres:
		pgConfig := postgres.PostgresConfigFromDbConfig(&cfg.DatabaseConfig)
		pgConfig.CreateDbIfNotExists = true

		pg, err := postgres.NewPostgres(pgConfig)
		if err != nil {
			return nil, err
		}
		return postgres.NewGormFromPostgresConnection(pg.Db)
	case config.DatabaseDriver_Sqlite:
		path := cfg.DatabaseConfig.SqlitePath
		if path == "" {
			path = sqlite.SqliteInMemoryPath
		}
		return sqlite.NewGormSqliteFromSqlite(sqlite.NewSqlite(&sqlite.SqliteConfig{Path: path}, l))
	}
	return nil, fmt.Errorf("unsupported database driver %s", driver)
}

func migrateDatabase(grm *gorm.DB, l *zap.Logger) error {
	sqlDb, err := grm.DB()
	if err != nil {
		return err
	}
	return migrations.NewMigrator(sqlDb, grm, l).MigrateAll()
}
