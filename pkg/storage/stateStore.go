package storage

import (
	"context"
	"database/sql"
	"math/big"

	"github.com/Layr-Labs/staking-ledger/pkg/rewardLedger"
	"github.com/Layr-Labs/staking-ledger/pkg/types/numbers"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const poolRowId = 1

// GormStateStore persists ledger state through gorm (sqlite or postgres).
type GormStateStore struct {
	Db     *gorm.DB
	Logger *zap.Logger
}

func NewGormStateStore(db *gorm.DB, l *zap.Logger) *GormStateStore {
	return &GormStateStore{
		Db:     db,
		Logger: l,
	}
}

func (s *GormStateStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx rewardLedger.StateTx) error) error {
	return InTx(ctx, s.Db, func(ctx context.Context, tx *gorm.DB) error {
		return fn(ctx, &gormStateTx{db: tx})
	})
}

// View runs fn inside a single read transaction so every read observes the same committed state.
// A transaction already carried by ctx is reused.
func (s *GormStateStore) View(ctx context.Context, fn func(ctx context.Context, r rewardLedger.StateReader) error) error {
	if tx, ok := txFromContext(ctx); ok {
		return fn(ctx, &gormStateTx{db: tx.WithContext(ctx)})
	}
	return s.Db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx), &gormStateTx{db: tx})
	}, snapshotTxOptions(s.Db)...)
}

// snapshotTxOptions pins postgres reads to one snapshot. sqlite serializes on its single connection.
func snapshotTxOptions(db *gorm.DB) []*sql.TxOptions {
	if db.Dialector == nil || db.Dialector.Name() != "postgres" {
		return nil
	}
	return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
}

type gormStateTx struct {
	db *gorm.DB
}

func (t *gormStateTx) GetPool(ctx context.Context) (*rewardLedger.PoolState, error) {
	var row LedgerPool
	res := t.db.WithContext(ctx).Where("id = ?", poolRowId).Limit(1).Find(&row)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "failed to load ledger pool")
	}
	if res.RowsAffected == 0 {
		return rewardLedger.NewEmptyPoolState(), nil
	}
	return poolFromRow(&row)
}

func (t *gormStateTx) GetDepositor(ctx context.Context, principal string) (*rewardLedger.Depositor, error) {
	var row LedgerDepositor
	res := t.db.WithContext(ctx).Where("principal = ?", principal).Limit(1).Find(&row)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "failed to load depositor %s", principal)
	}
	if res.RowsAffected == 0 {
		return rewardLedger.NewEmptyDepositor(principal), nil
	}
	return depositorFromRow(&row)
}

func (t *gormStateTx) ListDepositors(ctx context.Context) ([]*rewardLedger.Depositor, error) {
	rows := make([]*LedgerDepositor, 0)
	res := t.db.WithContext(ctx).Order("principal asc").Find(&rows)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "failed to list depositors")
	}
	depositors := make([]*rewardLedger.Depositor, 0, len(rows))
	for _, row := range rows {
		d, err := depositorFromRow(row)
		if err != nil {
			return nil, err
		}
		if d.IsActive() {
			depositors = append(depositors, d)
		}
	}
	return depositors, nil
}

func (t *gormStateTx) ListEvents(ctx context.Context, afterSequence uint64, limit int) ([]*rewardLedger.LedgerEvent, error) {
	rows := make([]*LedgerEvent, 0)
	query := t.db.WithContext(ctx).Where("sequence > ?", afterSequence).Order("sequence asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if res := query.Find(&rows); res.Error != nil {
		return nil, errors.Wrap(res.Error, "failed to list ledger events")
	}
	events := make([]*rewardLedger.LedgerEvent, 0, len(rows))
	for _, row := range rows {
		e, err := eventFromRow(row)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func (t *gormStateTx) PutPool(ctx context.Context, pool *rewardLedger.PoolState) error {
	row := &LedgerPool{
		Id:                poolRowId,
		TotalStaked:       pool.TotalStaked.String(),
		AccRewardPerShare: pool.AccRewardPerShare.String(),
		Sequence:          pool.Sequence,
		DepositorCount:    pool.DepositorCount,
	}
	res := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row)
	if res.Error != nil {
		return errors.Wrap(res.Error, "failed to save ledger pool")
	}
	return nil
}

func (t *gormStateTx) PutDepositor(ctx context.Context, depositor *rewardLedger.Depositor) error {
	if !depositor.IsActive() {
		res := t.db.WithContext(ctx).Where("principal = ?", depositor.Principal).Delete(&LedgerDepositor{})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "failed to clear depositor %s", depositor.Principal)
		}
		return nil
	}
	row := &LedgerDepositor{
		Principal:  depositor.Principal,
		Balance:    depositor.Balance.String(),
		RewardDebt: depositor.RewardDebt.String(),
	}
	res := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "principal"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "reward_debt", "updated_at"}),
	}).Create(row)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to save depositor %s", depositor.Principal)
	}
	return nil
}

func (t *gormStateTx) AppendEvent(ctx context.Context, event *rewardLedger.LedgerEvent) error {
	row := &LedgerEvent{
		Sequence:          event.Sequence,
		Kind:              string(event.Kind),
		Principal:         event.Principal,
		Amount:            event.Amount.String(),
		Payout:            event.Payout.String(),
		Dust:              event.Dust.String(),
		AccRewardPerShare: event.AccRewardPerShare.String(),
		TotalStaked:       event.TotalStaked.String(),
		DepositorCount:    event.DepositorCount,
		CreatedAt:         event.CreatedAt,
	}
	if res := t.db.WithContext(ctx).Create(row); res.Error != nil {
		return errors.Wrapf(res.Error, "failed to append ledger event %d", event.Sequence)
	}
	return nil
}

func poolFromRow(row *LedgerPool) (*rewardLedger.PoolState, error) {
	totalStaked, err := numbers.ParseStoredBigInt(row.TotalStaked)
	if err != nil {
		return nil, err
	}
	acc, err := numbers.ParseStoredBigInt(row.AccRewardPerShare)
	if err != nil {
		return nil, err
	}
	return &rewardLedger.PoolState{
		TotalStaked:       totalStaked,
		AccRewardPerShare: acc,
		Sequence:          row.Sequence,
		DepositorCount:    row.DepositorCount,
	}, nil
}

func depositorFromRow(row *LedgerDepositor) (*rewardLedger.Depositor, error) {
	balance, err := numbers.ParseStoredBigInt(row.Balance)
	if err != nil {
		return nil, err
	}
	debt, err := numbers.ParseStoredBigInt(row.RewardDebt)
	if err != nil {
		return nil, err
	}
	return &rewardLedger.Depositor{
		Principal:  row.Principal,
		Balance:    balance,
		RewardDebt: debt,
	}, nil
}

func eventFromRow(row *LedgerEvent) (*rewardLedger.LedgerEvent, error) {
	values := make([]string, 0, 5)
	values = append(values, row.Amount, row.Payout, row.Dust, row.AccRewardPerShare, row.TotalStaked)
	parsed := make([]*big.Int, len(values))
	for i, v := range values {
		p, err := numbers.ParseStoredBigInt(v)
		if err != nil {
			return nil, err
		}
		parsed[i] = p
	}
	return &rewardLedger.LedgerEvent{
		Sequence:          row.Sequence,
		Kind:              rewardLedger.EventKind(row.Kind),
		Principal:         row.Principal,
		Amount:            parsed[0],
		Payout:            parsed[1],
		Dust:              parsed[2],
		AccRewardPerShare: parsed[3],
		TotalStaked:       parsed[4],
		DepositorCount:    row.DepositorCount,
		CreatedAt:         row.CreatedAt,
	}, nil
}
