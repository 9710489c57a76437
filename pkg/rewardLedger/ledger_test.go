package rewardLedger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/Layr-Labs/staking-ledger/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/staking-ledger/pkg/types/numbers"
	"github.com/stretchr/testify/assert"
)

func Test_RewardLedger_Deposit(t *testing.T) {
	ctx := context.Background()

	t.Run("Should open a position and move funds into custody", func(t *testing.T) {
		ledger, _, transfer, _, _ := setup()

		event, err := ledger.Deposit(ctx, alice, big.NewInt(20))
		assert.Nil(t, err)
		assert.Equal(t, uint64(1), event.Sequence)
		assert.Equal(t, EventKind_Deposit, event.Kind)
		assert.Equal(t, "20", event.TotalStaked.String())

		pool, err := ledger.GetPool(ctx)
		assert.Nil(t, err)
		assert.Equal(t, "20", pool.TotalStaked.String())
		assert.Equal(t, uint64(1), pool.DepositorCount)
		assert.Equal(t, "20", transfer.custody.String())
		assert.Equal(t, "20", amountToWithdraw(ledger, alice))
	})
	t.Run("Should normalize the caller", func(t *testing.T) {
		ledger, _, _, _, _ := setup()

		_, err := ledger.Deposit(ctx, "0x1111111111111111111111111111111111111111", big.NewInt(5))
		assert.Nil(t, err)
		assert.Equal(t, "5", amountToWithdraw(ledger, "0X1111111111111111111111111111111111111111"[2:]))
	})
	t.Run("Should reject invalid amounts", func(t *testing.T) {
		ledger, _, transfer, _, _ := setup()

		tooLarge := new(big.Int).Add(numbers.MaxUint256, big.NewInt(1))
		for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1), tooLarge} {
			_, err := ledger.Deposit(ctx, alice, amount)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		}
		assert.Equal(t, 0, transfer.callCount())
		assert.Equal(t, "0", amountToWithdraw(ledger, alice))
	})
	t.Run("Should reject deposits that overflow the total staked", func(t *testing.T) {
		ledger, _, transfer, _, _ := setup()
		transfer.balances[alice] = new(big.Int).Set(numbers.MaxUint256)

		_, err := ledger.Deposit(ctx, alice, numbers.MaxUint256)
		assert.Nil(t, err)
		_, err = ledger.Deposit(ctx, bob, big.NewInt(1))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
	t.Run("Should reject invalid principals", func(t *testing.T) {
		ledger, _, _, _, _ := setup()

		_, err := ledger.Deposit(ctx, "alice", big.NewInt(1))
		assert.ErrorIs(t, err, ErrInvalidPrincipal)
		assert.Equal(t, "InvalidPrincipal", ErrorKind(err))
	})
	t.Run("Should allow only a single active deposit", func(t *testing.T) {
		ledger, _, _, _, _ := setup()

		_, err := ledger.Deposit(ctx, alice, big.NewInt(10))
		assert.Nil(t, err)

		_, err = ledger.Deposit(ctx, alice, big.NewInt(10))
		assert.ErrorIs(t, err, ErrAlreadyStaked)

		pool, _ := ledger.GetPool(ctx)
		assert.Equal(t, "10", pool.TotalStaked.String())
		assert.Equal(t, uint64(1), pool.Sequence)
	})
	t.Run("Should roll back when the transfer fails", func(t *testing.T) {
		ledger, _, transfer, _, _ := setup()
		transfer.failWith = errors.New("token paused")

		_, err := ledger.Deposit(ctx, alice, big.NewInt(10))
		assert.ErrorIs(t, err, ErrTransferFailed)
		assert.Contains(t, err.Error(), "token paused")

		pool, _ := ledger.GetPool(ctx)
		assert.Equal(t, "0", pool.TotalStaked.String())
		assert.Equal(t, uint64(0), pool.Sequence)
		assert.Equal(t, "0", amountToWithdraw(ledger, alice))

		events, _ := ledger.ListEvents(ctx, 0, 0)
		assert.Len(t, events, 0)
	})
	t.Run("Should fail when the depositor cannot fund the deposit", func(t *testing.T) {
		ledger, _, _, _, _ := setup()

		_, err := ledger.Deposit(ctx, alice, big.NewInt(2_000_000))
		assert.ErrorIs(t, err, ErrTransferFailed)
		assert.Equal(t, "0", amountToWithdraw(ledger, alice))
	})
}

func Test_RewardLedger_Distribute(t *testing.T) {
	ctx := context.Background()

	t.Run("Should split rewards proportionally to stake", func(t *testing.T) {
		ledger, _, _, _, _ := setup()

		for p, amount := range map[string]int64{alice: 20, bob: 30, carol: 50} {
			_, err := ledger.Deposit(ctx, p, big.NewInt(amount))
			assert.Nil(t, err)
		}
		_, err := ledger.Distribute(ctx, admin, big.NewInt(200))
		assert.Nil(t, err)

		assert.Equal(t, "60", amountToWithdraw(ledger, alice))
		assert.Equal(t, "90", amountToWithdraw(ledger, bob))
		assert.Equal(t, "150", amountToWithdraw(ledger, carol))
	})
	t.Run("Should reward depositors only for distributions after they entered", func(t *testing.T) {
		ledger, _, _, _, _ := setup()

		_, err := ledger.Deposit(ctx, alice, big.NewInt(50))
		assert.Nil(t, err)
		_, err = ledger.Distribute(ctx, admin, big.NewInt(200))
		assert.Nil(t, err)
		_, err = ledger.Deposit(ctx, bob, big.NewInt(50))
		assert.Nil(t, err)
		_, err = ledger.Distribute(ctx, admin, big.NewInt(400))
		assert.Nil(t, err)
		_, err = ledger.Deposit(ctx, carol, big.NewInt(50))
		assert.Nil(t, err)

		assert.Equal(t, "450", amountToWithdraw(ledger, alice))
		assert.Equal(t, "250", amountToWithdraw(ledger, bob))
		assert.Equal(t, "50", amountToWithdraw(ledger, carol))

		pending, err := ledger.GetPendingReward(ctx, bob)
		assert.Nil(t, err)
		assert.Equal(t, "200", pending.String())
	})
	t.Run("Should reject unauthorized callers without changing state", func(t *testing.T) {
		ledger, _, transfer, _, _ := setup()
		_, err := ledger.Deposit(ctx, alice, big.NewInt(50))
		assert.Nil(t, err)
		before, _ := ledger.GetPool(ctx)
		callsBefore := transfer.callCount()

		_, err = ledger.Distribute(ctx, alice, big.NewInt(100))
		assert.ErrorIs(t, err, ErrUnauthorized)

		_, err = ledger.Distribute(ctx, "not-an-address", big.NewInt(100))
		assert.ErrorIs(t, err, ErrUnauthorized)

		after, _ := ledger.GetPool(ctx)
		assert.Equal(t, before, after)
		assert.Equal(t, callsBefore, transfer.callCount())
	})
	t.Run("Should check authorization before the amount", func(t *testing.T) {
		ledger, _, _, _, _ := setup()

		_, err := ledger.Distribute(ctx, bob, big.NewInt(0))
		assert.ErrorIs(t, err, ErrUnauthorized)

		_, err = ledger.Distribute(ctx, admin, big.NewInt(0))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
	t.Run("Should refuse to distribute to an empty pool without a transfer", func(t *testing.T) {
		ledger, _, transfer, _, _ := setup()

		_, err := ledger.Distribute(ctx, admin, big.NewInt(100))
		assert.ErrorIs(t, err, ErrNoStakers)
		assert.Equal(t, 0, transfer.callCount())

		pool, _ := ledger.GetPool(ctx)
		assert.Equal(t, "0", pool.AccRewardPerShare.String())
	})
	t.Run("Should report truncation dust on the event", func(t *testing.T) {
		ledger, _, _, _, _ := setup()
		for _, p := range []string{alice, bob, carol} {
			_, err := ledger.Deposit(ctx, p, big.NewInt(1))
			assert.Nil(t, err)
		}

		event, err := ledger.Distribute(ctx, admin, big.NewInt(100))
		assert.Nil(t, err)
		assert.Equal(t, "1", event.Dust.String())
		assert.Equal(t, "34", amountToWithdraw(ledger, alice))
	})
	t.Run("Should roll back the accumulator when the transfer fails", func(t *testing.T) {
		ledger, _, transfer, _, _ := setup()
		_, err := ledger.Deposit(ctx, alice, big.NewInt(10))
		assert.Nil(t, err)

		transfer.failWith = errors.New("transfer rejected")
		_, err = ledger.Distribute(ctx, admin, big.NewInt(100))
		assert.ErrorIs(t, err, ErrTransferFailed)

		pool, _ := ledger.GetPool(ctx)
		assert.Equal(t, "0", pool.AccRewardPerShare.String())
		assert.Equal(t, "10", amountToWithdraw(ledger, alice))
	})
}

func Test_RewardLedger_Withdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("Should pay out principal plus reward and clear the position", func(t *testing.T) {
		ledger, _, transfer, _, _ := setup()

		_, err := ledger.Deposit(ctx, alice, big.NewInt(20))
		assert.Nil(t, err)
		_, err = ledger.Deposit(ctx, bob, big.NewInt(80))
		assert.Nil(t, err)
		_, err = ledger.Distribute(ctx, admin, big.NewInt(100))
		assert.Nil(t, err)

		event, err := ledger.Withdraw(ctx, alice)
		assert.Nil(t, err)
		assert.Equal(t, "20", event.Amount.String())
		assert.Equal(t, "40", event.Payout.String())
		assert.Equal(t, "80", event.TotalStaked.String())

		assert.Equal(t, "0", amountToWithdraw(ledger, alice))
		assert.Equal(t, "1000020", transfer.balances[alice].String())
		assert.Equal(t, "160", amountToWithdraw(ledger, bob))

		pool, _ := ledger.GetPool(ctx)
		assert.Equal(t, uint64(1), pool.DepositorCount)
	})
	t.Run("Should allow a new deposit after withdrawing", func(t *testing.T) {
		ledger, _, _, _, _ := setup()

		_, err := ledger.Deposit(ctx, alice, big.NewInt(20))
		assert.Nil(t, err)
		_, err = ledger.Distribute(ctx, admin, big.NewInt(20))
		assert.Nil(t, err)
		_, err = ledger.Withdraw(ctx, alice)
		assert.Nil(t, err)

		_, err = ledger.Deposit(ctx, alice, big.NewInt(30))
		assert.Nil(t, err)
		assert.Equal(t, "30", amountToWithdraw(ledger, alice))
	})
	t.Run("Should fail without an active deposit", func(t *testing.T) {
		ledger, _, transfer, _, _ := setup()

		_, err := ledger.Withdraw(ctx, alice)
		assert.ErrorIs(t, err, ErrNoActiveDeposit)
		assert.Equal(t, 0, transfer.callCount())
	})
	t.Run("Should fail on a second withdrawal", func(t *testing.T) {
		ledger, _, _, _, _ := setup()

		_, err := ledger.Deposit(ctx, alice, big.NewInt(20))
		assert.Nil(t, err)
		_, err = ledger.Withdraw(ctx, alice)
		assert.Nil(t, err)
		_, err = ledger.Withdraw(ctx, alice)
		assert.ErrorIs(t, err, ErrNoActiveDeposit)
	})
	t.Run("Should keep the position when the payout fails", func(t *testing.T) {
		ledger, _, transfer, _, _ := setup()

		_, err := ledger.Deposit(ctx, alice, big.NewInt(20))
		assert.Nil(t, err)
		_, err = ledger.Distribute(ctx, admin, big.NewInt(10))
		assert.Nil(t, err)

		transfer.failWith = errors.New("recipient blocked")
		_, err = ledger.Withdraw(ctx, alice)
		assert.ErrorIs(t, err, ErrTransferFailed)

		assert.Equal(t, "30", amountToWithdraw(ledger, alice))
		pool, _ := ledger.GetPool(ctx)
		assert.Equal(t, "20", pool.TotalStaked.String())
		assert.Equal(t, uint64(1), pool.DepositorCount)
	})
}

func Test_RewardLedger_Invariants(t *testing.T) {
	ctx := context.Background()

	t.Run("Should conserve the total staked across operations", func(t *testing.T) {
		ledger, store, _, _, _ := setup()

		steps := []func() error{
			func() error { _, err := ledger.Deposit(ctx, alice, big.NewInt(100)); return err },
			func() error { _, err := ledger.Deposit(ctx, bob, big.NewInt(250)); return err },
			func() error { _, err := ledger.Distribute(ctx, admin, big.NewInt(77)); return err },
			func() error { _, err := ledger.Withdraw(ctx, alice); return err },
			func() error { _, err := ledger.Deposit(ctx, carol, big.NewInt(3)); return err },
			func() error { _, err := ledger.Distribute(ctx, admin, big.NewInt(1000)); return err },
			func() error { _, err := ledger.Deposit(ctx, alice, big.NewInt(9)); return err },
		}
		for i, step := range steps {
			assert.Nil(t, step(), fmt.Sprintf("step %d", i))

			err := store.View(ctx, func(ctx context.Context, r StateReader) error {
				pool, _ := r.GetPool(ctx)
				depositors, _ := r.ListDepositors(ctx)
				sum := new(big.Int)
				for _, d := range depositors {
					sum.Add(sum, d.Balance)
				}
				assert.Equal(t, sum.String(), pool.TotalStaked.String())
				assert.Equal(t, uint64(len(depositors)), pool.DepositorCount)
				return nil
			})
			assert.Nil(t, err)
		}
	})
	t.Run("Should keep custody solvent for every outstanding claim", func(t *testing.T) {
		ledger, _, transfer, _, _ := setup()
		for _, p := range []string{alice, bob, carol} {
			_, err := ledger.Deposit(ctx, p, big.NewInt(7))
			assert.Nil(t, err)
		}
		_, err := ledger.Distribute(ctx, admin, big.NewInt(10))
		assert.Nil(t, err)

		summaries, err := ledger.ListDepositors(ctx)
		assert.Nil(t, err)
		owed := new(big.Int)
		for _, s := range summaries {
			owed.Add(owed, s.AmountToWithdraw)
		}
		assert.True(t, owed.Cmp(transfer.custody) <= 0)

		for _, p := range []string{alice, bob, carol} {
			_, err := ledger.Withdraw(ctx, p)
			assert.Nil(t, err)
		}
		assert.True(t, transfer.custody.Sign() >= 0)
	})
	t.Run("Should account for every distributed unit across mixed operations", func(t *testing.T) {
		ledger, _, transfer, _, _ := setup()
		rng := rand.New(rand.NewSource(20261017))
		principals := []string{alice, bob, carol}

		rewards := new(big.Int)
		dust := new(big.Int)
		paid := new(big.Int)
		positions, distributions := int64(0), int64(0)
		staked := map[string]bool{}

		for step := 0; step < 400; step++ {
			p := principals[rng.Intn(len(principals))]
			switch op := rng.Intn(3); {
			case op == 0 && len(staked) > 0:
				amount := big.NewInt(rng.Int63n(4_999) + 1)
				event, err := ledger.Distribute(ctx, admin, amount)
				assert.Nil(t, err, fmt.Sprintf("step %d", step))
				rewards.Add(rewards, amount)
				dust.Add(dust, event.Dust)
				distributions++
			case staked[p]:
				event, err := ledger.Withdraw(ctx, p)
				assert.Nil(t, err, fmt.Sprintf("step %d", step))
				paid.Add(paid, new(big.Int).Sub(event.Payout, event.Amount))
				delete(staked, p)
			default:
				_, err := ledger.Deposit(ctx, p, big.NewInt(rng.Int63n(997)+3))
				assert.Nil(t, err, fmt.Sprintf("step %d", step))
				staked[p] = true
				positions++
			}

			summaries, err := ledger.ListDepositors(ctx)
			assert.Nil(t, err)
			pending := new(big.Int)
			principal := new(big.Int)
			for _, s := range summaries {
				pending.Add(pending, s.PendingReward)
				principal.Add(principal, s.Balance)
			}

			// Each distribution truncates once into dust and each position truncates once more
			// when its reward is settled, so the books close to within those counts.
			claimed := new(big.Int).Add(paid, pending)
			unaccounted := new(big.Int).Sub(rewards, dust)
			unaccounted.Sub(unaccounted, claimed)
			assert.True(t, claimed.Cmp(rewards) <= 0, fmt.Sprintf("step %d: claimed %s exceeds rewards %s", step, claimed, rewards))
			assert.True(t, unaccounted.Cmp(big.NewInt(positions)) < 0, fmt.Sprintf("step %d: unaccounted %s", step, unaccounted))
			assert.True(t, unaccounted.Cmp(big.NewInt(-distributions)) > 0, fmt.Sprintf("step %d: unaccounted %s", step, unaccounted))

			custody := new(big.Int).Add(principal, rewards)
			custody.Sub(custody, paid)
			assert.Equal(t, custody.String(), transfer.custody.String(), fmt.Sprintf("step %d", step))
			assert.True(t, new(big.Int).Add(principal, pending).Cmp(transfer.custody) <= 0)
		}
		assert.Greater(t, distributions, int64(50))
		assert.Greater(t, positions, int64(50))
		assert.True(t, dust.Sign() > 0)
	})
	t.Run("Should serialize concurrent deposits", func(t *testing.T) {
		ledger, _, transfer, _, _ := setup()

		principals := make([]string, 50)
		for i := range principals {
			principals[i] = fmt.Sprintf("0x%040x", i+1)
			transfer.balances[principals[i]] = big.NewInt(100)
		}

		wg := sync.WaitGroup{}
		for _, p := range principals {
			wg.Add(1)
			go func(p string) {
				defer wg.Done()
				_, err := ledger.Deposit(ctx, p, big.NewInt(10))
				assert.Nil(t, err)
			}(p)
		}
		wg.Wait()

		pool, _ := ledger.GetPool(ctx)
		assert.Equal(t, "500", pool.TotalStaked.String())
		assert.Equal(t, uint64(50), pool.Sequence)
		assert.Equal(t, uint64(50), pool.DepositorCount)
	})
	t.Run("Should reject reentrant calls made from a transfer", func(t *testing.T) {
		ledger, _, transfer, _, _ := setup()

		var innerErr error
		transfer.onTransfer = func(ctx context.Context) error {
			transfer.onTransfer = nil
			_, innerErr = ledger.Deposit(ctx, bob, big.NewInt(1))
			if _, err := ledger.GetAmountToWithdraw(ctx, bob); !errors.Is(err, ErrReentrantCall) {
				return fmt.Errorf("expected reentrant read to fail, got %v", err)
			}
			return innerErr
		}

		_, err := ledger.Deposit(ctx, alice, big.NewInt(5))
		assert.ErrorIs(t, innerErr, ErrReentrantCall)
		assert.ErrorIs(t, err, ErrTransferFailed)
		assert.ErrorIs(t, err, ErrReentrantCall)

		assert.Equal(t, "0", amountToWithdraw(ledger, alice))
		assert.Equal(t, "0", amountToWithdraw(ledger, bob))
	})
}

func Test_RewardLedger_Events(t *testing.T) {
	ctx := context.Background()

	t.Run("Should record and page through committed events", func(t *testing.T) {
		ledger, _, _, _, _ := setup()

		_, _ = ledger.Deposit(ctx, alice, big.NewInt(10))
		_, _ = ledger.Deposit(ctx, alice, big.NewInt(10))
		_, _ = ledger.Distribute(ctx, admin, big.NewInt(5))
		_, _ = ledger.Withdraw(ctx, alice)

		events, err := ledger.ListEvents(ctx, 0, 0)
		assert.Nil(t, err)
		assert.Len(t, events, 3)
		assert.Equal(t, []EventKind{EventKind_Deposit, EventKind_Distribute, EventKind_Withdraw},
			[]EventKind{events[0].Kind, events[1].Kind, events[2].Kind})
		assert.Equal(t, uint64(3), events[2].Sequence)
		assert.Equal(t, "15", events[2].Payout.String())

		page, err := ledger.ListEvents(ctx, 1, 1)
		assert.Nil(t, err)
		assert.Len(t, page, 1)
		assert.Equal(t, uint64(2), page[0].Sequence)
	})
	t.Run("Should publish committed events on the event bus", func(t *testing.T) {
		ledger, _, _, eb, _ := setup()

		consumer := &eventBusTypes.Consumer{
			Id:      "ledgerTest",
			Context: ctx,
			Channel: make(chan *eventBusTypes.Event, 10),
		}
		eb.Subscribe(consumer)
		defer eb.Unsubscribe(consumer)

		_, err := ledger.Deposit(ctx, alice, big.NewInt(10))
		assert.Nil(t, err)
		_, err = ledger.Withdraw(ctx, bob)
		assert.NotNil(t, err)

		select {
		case event := <-consumer.Channel:
			assert.Equal(t, eventBusTypes.Event_LedgerDeposited, event.Name)
			assert.Equal(t, alice, event.Data.(*LedgerEvent).Principal)
		case <-time.After(time.Second):
			t.Fatal("expected a deposit event")
		}
		assert.Len(t, consumer.Channel, 0)
	})
}

func Test_RewardLedger_Queries(t *testing.T) {
	ctx := context.Background()

	t.Run("Should summarize a depositor", func(t *testing.T) {
		ledger, _, _, _, _ := setup()
		_, _ = ledger.Deposit(ctx, alice, big.NewInt(25))
		_, _ = ledger.Deposit(ctx, bob, big.NewInt(75))
		_, _ = ledger.Distribute(ctx, admin, big.NewInt(100))

		summary, err := ledger.GetDepositorSummary(ctx, alice)
		assert.Nil(t, err)
		assert.Equal(t, "25", summary.Balance.String())
		assert.Equal(t, "25", summary.PendingReward.String())
		assert.Equal(t, "50", summary.AmountToWithdraw.String())
		assert.Equal(t, "0.25", summary.ShareOfPool.String())
	})
	t.Run("Should return zero for unknown depositors", func(t *testing.T) {
		ledger, _, _, _, _ := setup()

		pending, err := ledger.GetPendingReward(ctx, carol)
		assert.Nil(t, err)
		assert.Equal(t, "0", pending.String())
		assert.Equal(t, "0", amountToWithdraw(ledger, carol))
	})
	t.Run("Should reject malformed principals", func(t *testing.T) {
		ledger, _, _, _, _ := setup()

		_, err := ledger.GetAmountToWithdraw(ctx, "0x12")
		assert.ErrorIs(t, err, ErrInvalidPrincipal)
	})
}
