package custody

import (
	"context"
	"math/big"
	"sync"

	"github.com/Layr-Labs/staking-ledger/pkg/rewardLedger"
)

var _ rewardLedger.ValueTransfer = (*MemoryCustody)(nil)

type MemoryCustody struct {
	mu       sync.Mutex
	custody  string
	accounts map[string]*account
}

func NewMemoryCustody(custodyPrincipal string) (*MemoryCustody, error) {
	p, err := validatePrincipal(custodyPrincipal)
	if err != nil {
		return nil, err
	}
	return &MemoryCustody{
		custody:  p,
		accounts: make(map[string]*account),
	}, nil
}

func (c *MemoryCustody) CustodyPrincipal() string {
	return c.custody
}

func (c *MemoryCustody) get(p string) *account {
	a, ok := c.accounts[p]
	if !ok {
		a = newAccount()
		c.accounts[p] = a
	}
	return a
}

// snapshot returns copies of the accounts so a failed operation leaves no partial change.
func (c *MemoryCustody) snapshot(principals ...string) map[string]*account {
	s := make(map[string]*account, len(principals))
	for _, p := range principals {
		a := c.get(p)
		s[p] = &account{balance: new(big.Int).Set(a.balance), allowance: new(big.Int).Set(a.allowance)}
	}
	return s
}

func (c *MemoryCustody) apply(s map[string]*account) {
	for p, a := range s {
		c.accounts[p] = a
	}
}

func (c *MemoryCustody) TransferIn(ctx context.Context, from string, amount *big.Int) error {
	p, err := validatePrincipal(from)
	if err != nil {
		return err
	}
	if err := validateAmount(amount, false); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.snapshot(p, c.custody)
	if err := pull(s[p], s[c.custody], amount, p); err != nil {
		return err
	}
	c.apply(s)
	return nil
}

func (c *MemoryCustody) TransferOut(ctx context.Context, to string, amount *big.Int) error {
	p, err := validatePrincipal(to)
	if err != nil {
		return err
	}
	if err := validateAmount(amount, false); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.snapshot(p, c.custody)
	if err := push(s[c.custody], s[p], amount); err != nil {
		return err
	}
	c.apply(s)
	return nil
}

func (c *MemoryCustody) BalanceOf(ctx context.Context, principal string) (*big.Int, error) {
	p, err := validatePrincipal(principal)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.get(p).balance), nil
}

func (c *MemoryCustody) Allowance(ctx context.Context, owner string) (*big.Int, error) {
	p, err := validatePrincipal(owner)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.get(p).allowance), nil
}

func (c *MemoryCustody) Approve(ctx context.Context, owner string, amount *big.Int) error {
	p, err := validatePrincipal(owner)
	if err != nil {
		return err
	}
	if err := validateAmount(amount, true); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.get(p).allowance = new(big.Int).Set(amount)
	return nil
}

func (c *MemoryCustody) Mint(ctx context.Context, to string, amount *big.Int) error {
	p, err := validatePrincipal(to)
	if err != nil {
		return err
	}
	if err := validateAmount(amount, false); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return mint(c.get(p), amount)
}
