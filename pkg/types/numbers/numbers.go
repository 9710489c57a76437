package numbers

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxUint256 bounds every amount the ledger accepts.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ParseAmount parses a base-10 non-negative integer amount.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("'%s' is not a valid integer amount", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("amount '%s' is negative", s)
	}
	return v, nil
}

// ParseStoredBigInt parses a big integer persisted as a string column. Empty strings are zero.
func ParseStoredBigInt(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("failed to parse stored big int '%s'", s)
	}
	return v, nil
}

func IsInUint256Range(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(MaxUint256) <= 0
}

// ShareOfPool returns balance / total as a decimal rounded to 18 places; zero when total is zero.
func ShareOfPool(balance, total *big.Int) decimal.Decimal {
	if total == nil || total.Sign() == 0 || balance == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(balance, 0).DivRound(decimal.NewFromBigInt(total, 0), 18)
}

// ToFloat64 converts an amount for use in gauges; precision loss is acceptable there.
func ToFloat64(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := decimal.NewFromBigInt(v, 0).Float64()
	return f
}

// CloneBigInt returns a copy of v, or zero when v is nil.
func CloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
