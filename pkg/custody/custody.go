package custody

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/Layr-Labs/staking-ledger/pkg/types/numbers"
	"github.com/Layr-Labs/staking-ledger/pkg/utils"
)

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Accounts is a single-asset token ledger in which one custody principal holds
// funds for the staking ledger. Owners must approve the custody principal before
// it can pull funds from them.
type Accounts interface {
	TransferIn(ctx context.Context, from string, amount *big.Int) error
	TransferOut(ctx context.Context, to string, amount *big.Int) error
	BalanceOf(ctx context.Context, principal string) (*big.Int, error)
	Allowance(ctx context.Context, owner string) (*big.Int, error)
	Approve(ctx context.Context, owner string, amount *big.Int) error
	Mint(ctx context.Context, to string, amount *big.Int) error
	CustodyPrincipal() string
}

type account struct {
	balance   *big.Int
	allowance *big.Int
}

func newAccount() *account {
	return &account{balance: new(big.Int), allowance: new(big.Int)}
}

func validatePrincipal(p string) (string, error) {
	return utils.NormalizePrincipal(p)
}

func validateAmount(amount *big.Int, allowZero bool) error {
	if amount == nil || amount.Sign() < 0 || !numbers.IsInUint256Range(amount) {
		return ErrInvalidAmount
	}
	if !allowZero && amount.Sign() == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// pull moves amount from owner to custody, spending allowance.
func pull(owner, custody *account, amount *big.Int, ownerPrincipal string) error {
	if owner.allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s approved %s, needs %s", ErrInsufficientAllowance, ownerPrincipal, owner.allowance, amount)
	}
	if owner.balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, ownerPrincipal, owner.balance, amount)
	}
	owner.allowance.Sub(owner.allowance, amount)
	owner.balance.Sub(owner.balance, amount)
	custody.balance.Add(custody.balance, amount)
	return nil
}

func push(custody, to *account, amount *big.Int) error {
	if custody.balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: custody holds %s, needs %s", ErrInsufficientBalance, custody.balance, amount)
	}
	custody.balance.Sub(custody.balance, amount)
	to.balance.Add(to.balance, amount)
	return nil
}

func mint(to *account, amount *big.Int) error {
	total := new(big.Int).Add(to.balance, amount)
	if !numbers.IsInUint256Range(total) {
		return ErrInvalidAmount
	}
	to.balance = total
	return nil
}
