package _202610170915_custodyAccounts

import (
	"database/sql"

	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB) error {
	query := `create table if not exists custody_accounts (
		principal varchar not null primary key,
		balance varchar not null default '0',
		allowance varchar not null default '0',
		updated_at timestamp default current_timestamp
	)`
	if res := grm.Exec(query); res.Error != nil {
		return res.Error
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202610170915_custodyAccounts"
}
