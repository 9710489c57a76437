package tests

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Layr-Labs/staking-ledger/internal/config"
	"github.com/Layr-Labs/staking-ledger/internal/logger"
	"github.com/Layr-Labs/staking-ledger/internal/sqlite"
	"github.com/Layr-Labs/staking-ledger/pkg/migrations"
	"github.com/Layr-Labs/staking-ledger/pkg/requestAuth"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// TestAdminPrivateKey signs as TestAdminPrincipal.
	TestAdminPrivateKey  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	TestAdminPrincipal   = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	TestCustodyPrincipal = "0x00000000000000000000000000000000000000cc"
)

// Keys for non-admin test principals, in the order tests usually name them (alice, bob, carol).
var TestUserPrivateKeys = []string{
	"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
	"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a",
	"7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6",
}

// GetSigner returns a request signer for hexKey and panics on a malformed key.
func GetSigner(hexKey string) *requestAuth.Signer {
	s, err := requestAuth.NewSigner(hexKey)
	if err != nil {
		panic(err)
	}
	return s
}

func GetConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Debug = os.Getenv(config.Debug) == "true"
	cfg.LedgerConfig.AdminPrincipal = TestAdminPrincipal
	cfg.LedgerConfig.CustodyPrincipal = TestCustodyPrincipal
	return cfg
}

func GetLogger(cfg *config.Config) *zap.Logger {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	return l
}

func GenerateTestDbName() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("test_%s", strings.ReplaceAll(id.String(), "-", "")), nil
}

// GetSqliteDatabase returns a migrated, isolated in-memory sqlite database.
func GetSqliteDatabase(l *zap.Logger) (*gorm.DB, error) {
	name, err := GenerateTestDbName()
	if err != nil {
		return nil, err
	}
	grm, err := sqlite.NewGormSqliteFromSqlite(sqlite.NewSqlite(&sqlite.SqliteConfig{
		Path: sqlite.InMemoryPath(name),
	}, l))
	if err != nil {
		return nil, err
	}
	sqlDb, err := grm.DB()
	if err != nil {
		return nil, err
	}
	if err := migrations.NewMigrator(sqlDb, grm, l).MigrateAll(); err != nil {
		return nil, err
	}
	return grm, nil
}

func CloseDatabase(grm *gorm.DB) {
	if grm == nil {
		return
	}
	if sqlDb, err := grm.DB(); err == nil {
		_ = sqlDb.Close()
	}
}

// GetDbConfigFromEnv reads postgres settings used by integration tests.
func GetDbConfigFromEnv() *config.DatabaseConfig {
	port, err := strconv.Atoi(os.Getenv("STAKING_LEDGER_DATABASE_PORT"))
	if err != nil {
		port = 5432
	}
	return &config.DatabaseConfig{
		Driver:   string(config.DatabaseDriver_Postgres),
		Host:     os.Getenv("STAKING_LEDGER_DATABASE_HOST"),
		Port:     port,
		User:     os.Getenv("STAKING_LEDGER_DATABASE_USER"),
		Password: os.Getenv("STAKING_LEDGER_DATABASE_PASSWORD"),
		DbName:   os.Getenv("STAKING_LEDGER_DATABASE_DB_NAME"),
	}
}
