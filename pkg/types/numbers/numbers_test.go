package numbers

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func Test_Numbers(t *testing.T) {
	t.Run("Should parse integer amounts", func(t *testing.T) {
		v, err := ParseAmount(" 1000000000000000000000000 ")
		assert.Nil(t, err)
		assert.Equal(t, "1000000000000000000000000", v.String())
	})
	t.Run("Should reject negative, fractional and empty amounts", func(t *testing.T) {
		for _, s := range []string{"-1", "1.5", "", "abc", "1e18"} {
			_, err := ParseAmount(s)
			assert.NotNil(t, err, s)
		}
	})
	t.Run("Should treat empty stored values as zero", func(t *testing.T) {
		v, err := ParseStoredBigInt("")
		assert.Nil(t, err)
		assert.Equal(t, 0, v.Sign())

		_, err = ParseStoredBigInt("x")
		assert.NotNil(t, err)
	})
	t.Run("Should bound amounts to uint256", func(t *testing.T) {
		assert.True(t, IsInUint256Range(MaxUint256))
		assert.False(t, IsInUint256Range(new(big.Int).Add(MaxUint256, big.NewInt(1))))
		assert.False(t, IsInUint256Range(big.NewInt(-1)))
		assert.False(t, IsInUint256Range(nil))
	})
	t.Run("Should compute share of pool", func(t *testing.T) {
		share := ShareOfPool(big.NewInt(20), big.NewInt(100))
		assert.True(t, share.Equal(decimal.RequireFromString("0.2")))

		assert.True(t, ShareOfPool(big.NewInt(1), big.NewInt(0)).IsZero())
		assert.Equal(t, "0.333333333333333333", ShareOfPool(big.NewInt(1), big.NewInt(3)).String())
	})
	t.Run("Should clone without aliasing", func(t *testing.T) {
		a := big.NewInt(5)
		b := CloneBigInt(a)
		b.Add(b, big.NewInt(1))
		assert.Equal(t, "5", a.String())
		assert.Equal(t, "0", CloneBigInt(nil).String())
	})
}
