package postgres

import (
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/Layr-Labs/staking-ledger/internal/config"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultSSLMode = "disable"
	// maintenanceDbName is connected to when the ledger database may not exist yet.
	maintenanceDbName = "postgres"
)

var validSSLModes = []string{
	"disable",
	"require",
	"verify-ca",
	"verify-full",
}

type PostgresConfig struct {
	Host                string
	Port                int
	Username            string
	Password            string
	DbName              string
	CreateDbIfNotExists bool
	SchemaName          string
	SSLMode             string
	SSLCert             string
	SSLKey              string
	SSLRootCert         string
}

type Postgres struct {
	Db *sql.DB
}

func PostgresConfigFromDbConfig(dbCfg *config.DatabaseConfig) *PostgresConfig {
	return &PostgresConfig{
		Host:        dbCfg.Host,
		Port:        dbCfg.Port,
		Username:    dbCfg.User,
		Password:    dbCfg.Password,
		DbName:      dbCfg.DbName,
		SchemaName:  dbCfg.SchemaName,
		SSLMode:     dbCfg.SSLMode,
		SSLCert:     dbCfg.SSLCert,
		SSLKey:      dbCfg.SSLKey,
		SSLRootCert: dbCfg.SSLRootCert,
	}
}

// connectionString renders cfg as a lib/pq key=value DSN, quoting values that need it.
func connectionString(cfg *PostgresConfig) (string, error) {
	sslMode := defaultSSLMode
	if cfg.SSLMode != "" {
		if !slices.Contains(validSSLModes, cfg.SSLMode) {
			return "", fmt.Errorf("invalid ssl mode: %s. Must be one of: %s", cfg.SSLMode, strings.Join(validSSLModes, ", "))
		}
		sslMode = cfg.SSLMode
	}

	params := [][2]string{
		{"host", cfg.Host},
		{"port", fmt.Sprintf("%d", cfg.Port)},
		{"dbname", cfg.DbName},
		{"user", cfg.Username},
		{"password", cfg.Password},
		{"sslmode", sslMode},
	}
	if sslMode != defaultSSLMode {
		params = append(params,
			[2]string{"sslcert", cfg.SSLCert},
			[2]string{"sslkey", cfg.SSLKey},
			[2]string{"sslrootcert", cfg.SSLRootCert},
		)
	}
	params = append(params, [2]string{"search_path", cfg.SchemaName}, [2]string{"TimeZone", "UTC"})

	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p[1] == "" {
			continue
		}
		parts = append(parts, p[0]+"="+quoteDsnValue(p[1]))
	}
	return strings.Join(parts, " "), nil
}

func quoteDsnValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func openMaintenanceConnection(cfg *PostgresConfig) (*sql.DB, error) {
	maintenance := *cfg
	maintenance.DbName = maintenanceDbName
	maintenance.SchemaName = ""
	dsn, err := connectionString(&maintenance)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection string: %w", err)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to postgres database: %w", err)
	}
	return db, nil
}

// CreateDatabaseIfNotExists creates cfg.DbName through the maintenance database.
func CreateDatabaseIfNotExists(cfg *PostgresConfig) error {
	db, err := openMaintenanceConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var exists bool
	err = db.QueryRow(`SELECT EXISTS(SELECT 1 FROM pg_catalog.pg_database WHERE datname = $1)`, cfg.DbName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("error checking if database exists: %w", err)
	}
	if exists {
		return nil
	}
	if _, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(cfg.DbName)); err != nil {
		return fmt.Errorf("error creating database %s: %w", cfg.DbName, err)
	}
	return nil
}

// DropDatabase removes dbName. It is used to clean up integration test databases.
func DropDatabase(cfg *PostgresConfig, dbName string) error {
	db, err := openMaintenanceConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err = db.Exec("DROP DATABASE IF EXISTS " + pq.QuoteIdentifier(dbName)); err != nil {
		return fmt.Errorf("error dropping database %s: %w", dbName, err)
	}
	return nil
}

func NewPostgres(cfg *PostgresConfig) (*Postgres, error) {
	if cfg.CreateDbIfNotExists {
		if err := CreateDatabaseIfNotExists(cfg); err != nil {
			return nil, fmt.Errorf("failed to create ledger database: %w", err)
		}
	}
	dsn, err := connectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection string: %w", err)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	return &Postgres{Db: db}, nil
}

func NewGormFromPostgresConnection(pgDb *sql.DB) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn: pgDb,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm on postgres: %w", err)
	}
	return db, nil
}
