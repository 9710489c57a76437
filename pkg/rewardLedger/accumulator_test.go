package rewardLedger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Accumulator(t *testing.T) {
	t.Run("Should scale the increment by the reward precision", func(t *testing.T) {
		inc := AccumulatorIncrement(big.NewInt(200), big.NewInt(100))
		assert.Equal(t, "2000000000000000000", inc.String())
	})
	t.Run("Should truncate the increment", func(t *testing.T) {
		inc := AccumulatorIncrement(big.NewInt(100), big.NewInt(3))
		assert.Equal(t, "33333333333333333333", inc.String())
	})
	t.Run("Should report dust lost to truncation", func(t *testing.T) {
		assert.Equal(t, "1", DistributionDust(big.NewInt(100), big.NewInt(3)).String())
		assert.Equal(t, "0", DistributionDust(big.NewInt(200), big.NewInt(100)).String())
	})
	t.Run("Should return zero increment for an empty pool", func(t *testing.T) {
		assert.Equal(t, 0, AccumulatorIncrement(big.NewInt(100), big.NewInt(0)).Sign())
	})
	t.Run("Should compute pending reward from the reward debt", func(t *testing.T) {
		acc, _ := new(big.Int).SetString("8000000000000000000", 10)
		debt, _ := new(big.Int).SetString("4000000000000000000", 10)
		assert.Equal(t, "200", PendingReward(big.NewInt(50), acc, debt).String())
	})
	t.Run("Should return zero pending reward for an empty balance", func(t *testing.T) {
		acc, _ := new(big.Int).SetString("8000000000000000000", 10)
		assert.Equal(t, "0", PendingReward(big.NewInt(0), acc, big.NewInt(0)).String())
		assert.Equal(t, "0", PendingReward(nil, acc, big.NewInt(0)).String())
	})
}
