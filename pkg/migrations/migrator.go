package migrations

import (
	"database/sql"
	"fmt"
	"time"

	_202610170900_ledgerTables "github.com/Layr-Labs/staking-ledger/pkg/migrations/202610170900_ledgerTables"
	_202610170915_custodyAccounts "github.com/Layr-Labs/staking-ledger/pkg/migrations/202610170915_custodyAccounts"
	_202610170930_stateRootsTable "github.com/Layr-Labs/staking-ledger/pkg/migrations/202610170930_stateRootsTable"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Migration interface {
	Up(db *sql.DB, grm *gorm.DB) error
	GetName() string
}

type Migrator struct {
	Db     *sql.DB
	GDb    *gorm.DB
	Logger *zap.Logger
}

func NewMigrator(db *sql.DB, gDb *gorm.DB, l *zap.Logger) *Migrator {
	return &Migrator{
		Db:     db,
		GDb:    gDb,
		Logger: l,
	}
}

func AllMigrations() []Migration {
	return []Migration{
		&_202610170900_ledgerTables.Migration{},
		&_202610170915_custodyAccounts.Migration{},
		&_202610170930_stateRootsTable.Migration{},
	}
}

func (m *Migrator) MigrateAll() error {
	if err := m.GDb.AutoMigrate(&Migrations{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	for _, migration := range AllMigrations() {
		if err := m.Migrate(migration); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) Migrate(migration Migration) error {
	name := migration.GetName()

	// find migration by name
	var migrationRecord Migrations
	result := m.GDb.Where("name = ?", name).Limit(1).Find(&migrationRecord)

	if result.Error != nil {
		m.Logger.Sugar().Errorw(fmt.Sprintf("Failed to find migration '%s'", name), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected > 0 {
		m.Logger.Sugar().Debugf("Migration %s already run", name)
		return nil
	}

	m.Logger.Sugar().Infof("Running migration '%s'", name)
	if err := migration.Up(m.Db, m.GDb); err != nil {
		m.Logger.Sugar().Errorw(fmt.Sprintf("Failed to run migration '%s'", name), zap.Error(err))
		return err
	}

	migrationRecord = Migrations{
		Name: name,
	}
	result = m.GDb.Create(&migrationRecord)
	if result.Error != nil {
		m.Logger.Sugar().Errorw(fmt.Sprintf("Failed to record migration '%s'", name), zap.Error(result.Error))
		return result.Error
	}
	return nil
}

type Migrations struct {
	Name      string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"default:current_timestamp;type:timestamp"`
	UpdatedAt time.Time `gorm:"default:null;type:timestamp"`
}
