package custody

import (
	"context"
	"math/big"

	"github.com/Layr-Labs/staking-ledger/pkg/rewardLedger"
	"github.com/Layr-Labs/staking-ledger/pkg/storage"
	"github.com/Layr-Labs/staking-ledger/pkg/types/numbers"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ rewardLedger.ValueTransfer = (*GormCustody)(nil)

// GormCustody stores custody accounts in the ledger database. Calls made with a
// context carrying a ledger transaction join that transaction, so a rolled back
// ledger operation also rolls back its transfer.
type GormCustody struct {
	Db      *gorm.DB
	Logger  *zap.Logger
	custody string
}

func NewGormCustody(db *gorm.DB, custodyPrincipal string, l *zap.Logger) (*GormCustody, error) {
	p, err := validatePrincipal(custodyPrincipal)
	if err != nil {
		return nil, err
	}
	return &GormCustody{
		Db:      db,
		Logger:  l,
		custody: p,
	}, nil
}

func (c *GormCustody) CustodyPrincipal() string {
	return c.custody
}

func (c *GormCustody) load(db *gorm.DB, principal string) (*account, error) {
	var row storage.CustodyAccount
	res := db.Where("principal = ?", principal).Limit(1).Find(&row)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "failed to load custody account %s", principal)
	}
	if res.RowsAffected == 0 {
		return newAccount(), nil
	}
	balance, err := numbers.ParseStoredBigInt(row.Balance)
	if err != nil {
		return nil, err
	}
	allowance, err := numbers.ParseStoredBigInt(row.Allowance)
	if err != nil {
		return nil, err
	}
	return &account{balance: balance, allowance: allowance}, nil
}

func (c *GormCustody) save(db *gorm.DB, principal string, a *account) error {
	row := &storage.CustodyAccount{
		Principal: principal,
		Balance:   a.balance.String(),
		Allowance: a.allowance.String(),
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "principal"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "allowance", "updated_at"}),
	}).Create(row)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to save custody account %s", principal)
	}
	return nil
}

// update loads the given accounts, applies fn and saves them atomically.
func (c *GormCustody) update(ctx context.Context, principals []string, fn func(accounts map[string]*account) error) error {
	return storage.InTx(ctx, c.Db, func(ctx context.Context, tx *gorm.DB) error {
		accounts := make(map[string]*account, len(principals))
		for _, p := range principals {
			if _, ok := accounts[p]; ok {
				continue
			}
			a, err := c.load(tx, p)
			if err != nil {
				return err
			}
			accounts[p] = a
		}
		if err := fn(accounts); err != nil {
			return err
		}
		for p, a := range accounts {
			if err := c.save(tx, p, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *GormCustody) TransferIn(ctx context.Context, from string, amount *big.Int) error {
	p, err := validatePrincipal(from)
	if err != nil {
		return err
	}
	if err := validateAmount(amount, false); err != nil {
		return err
	}
	return c.update(ctx, []string{p, c.custody}, func(accounts map[string]*account) error {
		return pull(accounts[p], accounts[c.custody], amount, p)
	})
}

func (c *GormCustody) TransferOut(ctx context.Context, to string, amount *big.Int) error {
	p, err := validatePrincipal(to)
	if err != nil {
		return err
	}
	if err := validateAmount(amount, false); err != nil {
		return err
	}
	return c.update(ctx, []string{c.custody, p}, func(accounts map[string]*account) error {
		return push(accounts[c.custody], accounts[p], amount)
	})
}

func (c *GormCustody) BalanceOf(ctx context.Context, principal string) (*big.Int, error) {
	p, err := validatePrincipal(principal)
	if err != nil {
		return nil, err
	}
	a, err := c.load(storage.DBFromContext(ctx, c.Db), p)
	if err != nil {
		return nil, err
	}
	return a.balance, nil
}

func (c *GormCustody) Allowance(ctx context.Context, owner string) (*big.Int, error) {
	p, err := validatePrincipal(owner)
	if err != nil {
		return nil, err
	}
	a, err := c.load(storage.DBFromContext(ctx, c.Db), p)
	if err != nil {
		return nil, err
	}
	return a.allowance, nil
}

func (c *GormCustody) Approve(ctx context.Context, owner string, amount *big.Int) error {
	p, err := validatePrincipal(owner)
	if err != nil {
		return err
	}
	if err := validateAmount(amount, true); err != nil {
		return err
	}
	return c.update(ctx, []string{p}, func(accounts map[string]*account) error {
		accounts[p].allowance = new(big.Int).Set(amount)
		return nil
	})
}

func (c *GormCustody) Mint(ctx context.Context, to string, amount *big.Int) error {
	p, err := validatePrincipal(to)
	if err != nil {
		return err
	}
	if err := validateAmount(amount, false); err != nil {
		return err
	}
	c.Logger.Sugar().Infow("Minting custody balance", zap.String("to", p), zap.String("amount", amount.String()))
	return c.update(ctx, []string{p}, func(accounts map[string]*account) error {
		return mint(accounts[p], amount)
	})
}
