package _202610170930_stateRootsTable

import (
	"database/sql"

	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB) error {
	query := `create table if not exists state_roots (
		sequence bigint not null primary key,
		state_root varchar not null,
		created_at timestamp default current_timestamp
	)`
	if res := grm.Exec(query); res.Error != nil {
		return res.Error
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202610170930_stateRootsTable"
}
