package storage

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Tables.
type LedgerPool struct {
	Id                int `gorm:"primaryKey;autoIncrement:false"`
	TotalStaked       string
	AccRewardPerShare string
	Sequence          uint64
	DepositorCount    uint64
	UpdatedAt         time.Time
}

func (LedgerPool) TableName() string {
	return "ledger_pool"
}

type LedgerDepositor struct {
	Principal  string `gorm:"primaryKey"`
	Balance    string
	RewardDebt string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (LedgerDepositor) TableName() string {
	return "ledger_depositors"
}

type LedgerEvent struct {
	Sequence          uint64 `gorm:"primaryKey;autoIncrement:false"`
	Kind              string
	Principal         string
	Amount            string
	Payout            string
	Dust              string
	AccRewardPerShare string
	TotalStaked       string
	DepositorCount    uint64
	CreatedAt         time.Time
}

func (LedgerEvent) TableName() string {
	return "ledger_events"
}

type CustodyAccount struct {
	Principal string `gorm:"primaryKey"`
	Balance   string
	Allowance string
	UpdatedAt time.Time
}

func (CustodyAccount) TableName() string {
	return "custody_accounts"
}

type StateRoot struct {
	Sequence  uint64 `gorm:"primaryKey;autoIncrement:false"`
	StateRoot string
	CreatedAt time.Time
}

func (StateRoot) TableName() string {
	return "state_roots"
}

type txKey struct{}

// WithTx returns a context carrying an open gorm transaction.
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// DBFromContext returns the transaction carried by ctx, or fallback when there is none.
// Components sharing a ledger transaction must resolve their handle through it.
func DBFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := txFromContext(ctx); ok {
		return tx.WithContext(ctx)
	}
	return fallback.WithContext(ctx)
}

func txFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// InTx runs fn in a transaction, nested as a savepoint when ctx already carries one.
func InTx(ctx context.Context, db *gorm.DB, fn func(ctx context.Context, tx *gorm.DB) error) error {
	return DBFromContext(ctx, db).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx), tx)
	})
}
