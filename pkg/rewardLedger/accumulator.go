package rewardLedger

import (
	"math/big"
)

// RewardPrecision is the fixed-point scale applied to AccRewardPerShare.
var RewardPrecision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// AccumulatorIncrement returns reward * RewardPrecision / totalStaked, truncated.
func AccumulatorIncrement(reward, totalStaked *big.Int) *big.Int {
	if totalStaked == nil || totalStaked.Sign() == 0 {
		return new(big.Int)
	}
	inc := new(big.Int).Mul(reward, RewardPrecision)
	return inc.Quo(inc, totalStaked)
}

// DistributionDust is the part of reward that AccumulatorIncrement cannot assign to any depositor.
func DistributionDust(reward, totalStaked *big.Int) *big.Int {
	if totalStaked == nil || totalStaked.Sign() == 0 {
		return new(big.Int).Set(reward)
	}
	assigned := new(big.Int).Mul(AccumulatorIncrement(reward, totalStaked), totalStaked)
	assigned.Quo(assigned, RewardPrecision)
	return assigned.Sub(reward, assigned)
}

// PendingReward returns balance * (acc - rewardDebt) / RewardPrecision, truncated.
func PendingReward(balance, acc, rewardDebt *big.Int) *big.Int {
	if balance == nil || balance.Sign() <= 0 {
		return new(big.Int)
	}
	delta := new(big.Int).Sub(acc, rewardDebt)
	if delta.Sign() <= 0 {
		return new(big.Int)
	}
	pending := delta.Mul(delta, balance)
	return pending.Quo(pending, RewardPrecision)
}
