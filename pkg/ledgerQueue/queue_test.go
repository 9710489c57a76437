package ledgerQueue

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/Layr-Labs/staking-ledger/internal/tests"
	"github.com/Layr-Labs/staking-ledger/pkg/custody"
	"github.com/Layr-Labs/staking-ledger/pkg/rewardLedger"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
)

func setup(t *testing.T) (*LedgerQueue, *rewardLedger.RewardLedger, *custody.MemoryCustody) {
	cfg := tests.GetConfig()
	l := tests.GetLogger(cfg)

	accounts, err := custody.NewMemoryCustody(tests.TestCustodyPrincipal)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, p := range []string{tests.TestAdminPrincipal, alice, bob} {
		assert.Nil(t, accounts.Mint(ctx, p, big.NewInt(10_000)))
		assert.Nil(t, accounts.Approve(ctx, p, big.NewInt(10_000)))
	}

	gate, err := rewardLedger.NewSingleAdminGate(tests.TestAdminPrincipal)
	if err != nil {
		t.Fatal(err)
	}
	ledger := rewardLedger.NewRewardLedger(rewardLedger.NewMemoryStateStore(), accounts, gate, nil, nil, l)

	q := NewLedgerQueue(ledger, 10, nil, l)
	go q.Process()
	t.Cleanup(q.Close)

	return q, ledger, accounts
}

// blockingLedger holds each deposit until released, then commits it with a fixed sequence.
type blockingLedger struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingLedger) Deposit(ctx context.Context, caller string, amount *big.Int) (*rewardLedger.LedgerEvent, error) {
	close(b.started)
	<-b.release
	return &rewardLedger.LedgerEvent{Sequence: 7, Kind: rewardLedger.EventKind_Deposit, Principal: caller, Amount: amount}, nil
}

func (b *blockingLedger) Distribute(ctx context.Context, caller string, rewardAmount *big.Int) (*rewardLedger.LedgerEvent, error) {
	return nil, errors.New("not supported")
}

func (b *blockingLedger) Withdraw(ctx context.Context, caller string) (*rewardLedger.LedgerEvent, error) {
	return nil, errors.New("not supported")
}

func Test_LedgerQueue(t *testing.T) {
	t.Run("Should apply operations and return their events", func(t *testing.T) {
		q, ledger, accounts := setup(t)
		ctx := context.Background()

		res, err := q.EnqueueAndWait(ctx, LedgerOperationData{OperationType: LedgerOperationType_Deposit, Caller: alice, Amount: big.NewInt(100)})
		assert.Nil(t, err)
		assert.Nil(t, res.Error)
		assert.Equal(t, uint64(1), res.Event.Sequence)

		res, err = q.EnqueueAndWait(ctx, LedgerOperationData{OperationType: LedgerOperationType_Distribute, Caller: tests.TestAdminPrincipal, Amount: big.NewInt(50)})
		assert.Nil(t, err)
		assert.Nil(t, res.Error)

		pending, err := ledger.GetPendingReward(ctx, alice)
		assert.Nil(t, err)
		assert.Equal(t, "50", pending.String())

		res, err = q.EnqueueAndWait(ctx, LedgerOperationData{OperationType: LedgerOperationType_Withdraw, Caller: alice})
		assert.Nil(t, err)
		assert.Nil(t, res.Error)
		assert.Equal(t, "150", res.Event.Payout.String())

		balance, err := accounts.BalanceOf(ctx, alice)
		assert.Nil(t, err)
		assert.Equal(t, "10050", balance.String())
	})
	t.Run("Should surface ledger errors in the response", func(t *testing.T) {
		q, _, _ := setup(t)
		ctx := context.Background()

		res, err := q.EnqueueAndWait(ctx, LedgerOperationData{OperationType: LedgerOperationType_Distribute, Caller: alice, Amount: big.NewInt(50)})
		assert.Nil(t, err)
		assert.ErrorIs(t, res.Error, rewardLedger.ErrUnauthorized)

		res, err = q.EnqueueAndWait(ctx, LedgerOperationData{OperationType: "bogus", Caller: alice})
		assert.Nil(t, err)
		assert.NotNil(t, res.Error)
	})
	t.Run("Should serialize concurrent deposits", func(t *testing.T) {
		q, ledger, _ := setup(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for _, p := range []string{alice, bob} {
			wg.Add(1)
			go func(p string) {
				defer wg.Done()
				res, err := q.EnqueueAndWait(ctx, LedgerOperationData{OperationType: LedgerOperationType_Deposit, Caller: p, Amount: big.NewInt(10)})
				assert.Nil(t, err)
				assert.Nil(t, res.Error)
			}(p)
		}
		wg.Wait()

		pool, err := ledger.GetPool(ctx)
		assert.Nil(t, err)
		assert.Equal(t, "20", pool.TotalStaked.String())
		assert.Equal(t, uint64(2), pool.Sequence)
	})
	t.Run("Should return when the context is cancelled", func(t *testing.T) {
		q, _, _ := setup(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := q.EnqueueAndWait(ctx, LedgerOperationData{OperationType: LedgerOperationType_Deposit, Caller: alice, Amount: big.NewInt(10)})
		assert.ErrorIs(t, err, context.Canceled)
	})
	t.Run("Should stop processing once closed", func(t *testing.T) {
		cfg := tests.GetConfig()
		q := NewLedgerQueue(nil, 1, nil, tests.GetLogger(cfg))
		stopped := make(chan struct{})
		go func() {
			q.Process()
			close(stopped)
		}()
		q.Close()

		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("queue did not stop")
		}
	})
	t.Run("Should log the sequence of an operation that commits after its caller gave up", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		ledger := &blockingLedger{started: make(chan struct{}), release: make(chan struct{})}
		q := NewLedgerQueue(ledger, 1, nil, zap.New(core))
		go q.Process()
		t.Cleanup(q.Close)

		ctx, cancel := context.WithCancel(context.Background())
		result := make(chan error, 1)
		go func() {
			_, err := q.EnqueueAndWait(ctx, LedgerOperationData{OperationType: LedgerOperationType_Deposit, Caller: alice, Amount: big.NewInt(10)})
			result <- err
		}()

		select {
		case <-ledger.started:
		case <-time.After(5 * time.Second):
			t.Fatal("deposit never started")
		}
		cancel()
		assert.ErrorIs(t, <-result, context.Canceled)
		close(ledger.release)

		assert.Eventually(t, func() bool {
			return logs.FilterMessage("Ledger operation committed after the caller stopped waiting").Len() == 1
		}, 5*time.Second, 10*time.Millisecond)

		entry := logs.FilterMessage("Ledger operation committed after the caller stopped waiting").All()[0]
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
		assert.Equal(t, uint64(7), entry.ContextMap()["sequence"])
		assert.Equal(t, alice, entry.ContextMap()["caller"])
	})
}
