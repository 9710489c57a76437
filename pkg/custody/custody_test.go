package custody

import (
	"context"
	"math/big"
	"testing"

	"github.com/Layr-Labs/staking-ledger/internal/tests"
	"github.com/Layr-Labs/staking-ledger/pkg/storage"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

const (
	custodyPrincipal = tests.TestCustodyPrincipal
	owner            = "0x1111111111111111111111111111111111111111"
	recipient        = "0x2222222222222222222222222222222222222222"
)

func runAccountsSuite(t *testing.T, newAccounts func(t *testing.T) Accounts) {
	ctx := context.Background()

	t.Run("Should mint and report balances", func(t *testing.T) {
		a := newAccounts(t)
		assert.Nil(t, a.Mint(ctx, owner, big.NewInt(100)))
		assert.Nil(t, a.Mint(ctx, owner, big.NewInt(50)))

		b, err := a.BalanceOf(ctx, owner)
		assert.Nil(t, err)
		assert.Equal(t, "150", b.String())

		b, err = a.BalanceOf(ctx, recipient)
		assert.Nil(t, err)
		assert.Equal(t, "0", b.String())
	})
	t.Run("Should require an allowance to pull funds", func(t *testing.T) {
		a := newAccounts(t)
		assert.Nil(t, a.Mint(ctx, owner, big.NewInt(100)))

		err := a.TransferIn(ctx, owner, big.NewInt(10))
		assert.ErrorIs(t, err, ErrInsufficientAllowance)

		assert.Nil(t, a.Approve(ctx, owner, big.NewInt(30)))
		assert.Nil(t, a.TransferIn(ctx, owner, big.NewInt(10)))

		allowance, _ := a.Allowance(ctx, owner)
		assert.Equal(t, "20", allowance.String())
		b, _ := a.BalanceOf(ctx, owner)
		assert.Equal(t, "90", b.String())
		c, _ := a.BalanceOf(ctx, a.CustodyPrincipal())
		assert.Equal(t, "10", c.String())
	})
	t.Run("Should reject pulls beyond the owner's balance without side effects", func(t *testing.T) {
		a := newAccounts(t)
		assert.Nil(t, a.Mint(ctx, owner, big.NewInt(5)))
		assert.Nil(t, a.Approve(ctx, owner, big.NewInt(100)))

		err := a.TransferIn(ctx, owner, big.NewInt(6))
		assert.ErrorIs(t, err, ErrInsufficientBalance)

		allowance, _ := a.Allowance(ctx, owner)
		assert.Equal(t, "100", allowance.String())
		b, _ := a.BalanceOf(ctx, owner)
		assert.Equal(t, "5", b.String())
	})
	t.Run("Should pay out of custody", func(t *testing.T) {
		a := newAccounts(t)
		assert.Nil(t, a.Mint(ctx, owner, big.NewInt(40)))
		assert.Nil(t, a.Approve(ctx, owner, big.NewInt(40)))
		assert.Nil(t, a.TransferIn(ctx, owner, big.NewInt(40)))

		assert.ErrorIs(t, a.TransferOut(ctx, recipient, big.NewInt(41)), ErrInsufficientBalance)
		assert.Nil(t, a.TransferOut(ctx, recipient, big.NewInt(25)))

		b, _ := a.BalanceOf(ctx, recipient)
		assert.Equal(t, "25", b.String())
		c, _ := a.BalanceOf(ctx, custodyPrincipal)
		assert.Equal(t, "15", c.String())
	})
	t.Run("Should validate principals and amounts", func(t *testing.T) {
		a := newAccounts(t)
		assert.NotNil(t, a.Mint(ctx, "bad", big.NewInt(1)))
		assert.ErrorIs(t, a.Mint(ctx, owner, big.NewInt(0)), ErrInvalidAmount)
		assert.ErrorIs(t, a.Approve(ctx, owner, big.NewInt(-1)), ErrInvalidAmount)
		assert.Nil(t, a.Approve(ctx, owner, big.NewInt(0)))
		assert.ErrorIs(t, a.TransferOut(ctx, owner, nil), ErrInvalidAmount)
	})
}

func Test_MemoryCustody(t *testing.T) {
	runAccountsSuite(t, func(t *testing.T) Accounts {
		c, err := NewMemoryCustody(custodyPrincipal)
		assert.Nil(t, err)
		return c
	})
}

func setupGorm(t *testing.T) (*gorm.DB, *GormCustody) {
	cfg := tests.GetConfig()
	l := tests.GetLogger(cfg)
	grm, err := tests.GetSqliteDatabase(l)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tests.CloseDatabase(grm) })

	c, err := NewGormCustody(grm, custodyPrincipal, l)
	if err != nil {
		t.Fatal(err)
	}
	return grm, c
}

func Test_GormCustody(t *testing.T) {
	runAccountsSuite(t, func(t *testing.T) Accounts {
		_, c := setupGorm(t)
		return c
	})

	t.Run("Should roll back with the enclosing transaction", func(t *testing.T) {
		grm, c := setupGorm(t)
		ctx := context.Background()
		assert.Nil(t, c.Mint(ctx, owner, big.NewInt(10)))
		assert.Nil(t, c.Approve(ctx, owner, big.NewInt(10)))

		err := storage.InTx(ctx, grm, func(ctx context.Context, tx *gorm.DB) error {
			if err := c.TransferIn(ctx, owner, big.NewInt(10)); err != nil {
				return err
			}
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)

		b, _ := c.BalanceOf(ctx, owner)
		assert.Equal(t, "10", b.String())
		custody, _ := c.BalanceOf(ctx, custodyPrincipal)
		assert.Equal(t, "0", custody.String())
	})
}
