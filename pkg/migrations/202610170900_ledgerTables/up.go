package _202610170900_ledgerTables

import (
	"database/sql"

	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB) error {
	queries := []string{
		`create table if not exists ledger_pool (
			id integer not null primary key,
			total_staked varchar not null default '0',
			acc_reward_per_share varchar not null default '0',
			sequence bigint not null default 0,
			depositor_count bigint not null default 0,
			updated_at timestamp default current_timestamp
		)`,
		`create table if not exists ledger_depositors (
			principal varchar not null primary key,
			balance varchar not null,
			reward_debt varchar not null,
			created_at timestamp default current_timestamp,
			updated_at timestamp default current_timestamp
		)`,
		`create table if not exists ledger_events (
			sequence bigint not null primary key,
			kind varchar not null,
			principal varchar not null,
			amount varchar not null,
			payout varchar not null,
			dust varchar not null,
			acc_reward_per_share varchar not null,
			total_staked varchar not null,
			depositor_count bigint not null,
			created_at timestamp not null
		)`,
		`create index if not exists idx_ledger_events_principal on ledger_events (principal)`,
	}
	for _, query := range queries {
		if res := grm.Exec(query); res.Error != nil {
			return res.Error
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202610170900_ledgerTables"
}
