package rewardLedger

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"sync"

	"github.com/Layr-Labs/staking-ledger/internal/config"
	"github.com/Layr-Labs/staking-ledger/internal/logger"
	"github.com/Layr-Labs/staking-ledger/pkg/eventBus"
	"go.uber.org/zap"
)

const (
	admin = "0x00000000000000000000000000000000000000ad"
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
	carol = "0x3333333333333333333333333333333333333333"
)

// fakeTransfer is an in-memory ValueTransfer with failure injection.
type fakeTransfer struct {
	mu         sync.Mutex
	balances   map[string]*big.Int
	custody    *big.Int
	calls      int
	failWith   error
	onTransfer func(ctx context.Context) error
}

func newFakeTransfer(funded ...string) *fakeTransfer {
	ft := &fakeTransfer{
		balances: make(map[string]*big.Int),
		custody:  new(big.Int),
	}
	for _, p := range funded {
		ft.balances[p] = big.NewInt(1_000_000)
	}
	return ft
}

func (ft *fakeTransfer) balance(p string) *big.Int {
	if b, ok := ft.balances[p]; ok {
		return b
	}
	b := new(big.Int)
	ft.balances[p] = b
	return b
}

func (ft *fakeTransfer) TransferIn(ctx context.Context, from string, amount *big.Int) error {
	if ft.onTransfer != nil {
		if err := ft.onTransfer(ctx); err != nil {
			return err
		}
	}
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.calls++
	if ft.failWith != nil {
		return ft.failWith
	}
	b := ft.balance(from)
	if b.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance for %s", from)
	}
	b.Sub(b, amount)
	ft.custody.Add(ft.custody, amount)
	return nil
}

func (ft *fakeTransfer) TransferOut(ctx context.Context, to string, amount *big.Int) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.calls++
	if ft.failWith != nil {
		return ft.failWith
	}
	if ft.custody.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient custody balance")
	}
	ft.custody.Sub(ft.custody, amount)
	b := ft.balance(to)
	b.Add(b, amount)
	return nil
}

func (ft *fakeTransfer) BalanceOf(ctx context.Context, principal string) (*big.Int, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return new(big.Int).Set(ft.balance(principal)), nil
}

func (ft *fakeTransfer) callCount() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.calls
}

func setup() (*RewardLedger, *MemoryStateStore, *fakeTransfer, *eventBus.EventBus, *zap.Logger) {
	debug := os.Getenv(config.Debug) == "true"
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: debug})

	store := NewMemoryStateStore()
	transfer := newFakeTransfer(admin, alice, bob, carol)
	gate, _ := NewSingleAdminGate(admin)
	eb := eventBus.NewEventBus(l)

	return NewRewardLedger(store, transfer, gate, eb, nil, l), store, transfer, eb, l
}

func amountToWithdraw(ledger *RewardLedger, p string) string {
	a, err := ledger.GetAmountToWithdraw(context.Background(), p)
	if err != nil {
		return err.Error()
	}
	return a.String()
}
