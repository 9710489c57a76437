package rewardLedger

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ReentrancyGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("Should only reject contexts marked by the same ledger", func(t *testing.T) {
		a, _, _, _, _ := setup()
		b, _, _, _, _ := setup()

		marked := a.enterGuarded(ctx)
		assert.ErrorIs(t, a.checkReentrancy(marked), ErrReentrantCall)
		assert.Nil(t, a.checkReentrancy(ctx))
		assert.Nil(t, b.checkReentrancy(marked))
	})
	t.Run("Should let a transfer call into a different ledger", func(t *testing.T) {
		outer, _, transfer, _, _ := setup()
		inner, _, _, _, _ := setup()

		var innerErr error
		transfer.onTransfer = func(ctx context.Context) error {
			transfer.onTransfer = nil
			_, innerErr = inner.Deposit(ctx, bob, big.NewInt(3))
			return innerErr
		}

		_, err := outer.Deposit(ctx, alice, big.NewInt(5))
		assert.Nil(t, err)
		assert.Nil(t, innerErr)
		assert.Equal(t, "5", amountToWithdraw(outer, alice))
		assert.Equal(t, "3", amountToWithdraw(inner, bob))
		assert.Equal(t, "0", amountToWithdraw(outer, bob))
	})
}
