package rewardLedger

import (
	"math/big"
	"time"

	"github.com/Layr-Labs/staking-ledger/pkg/types/numbers"
)

// Depositor is a participant's position. A zero Balance means no active deposit.
type Depositor struct {
	Principal  string
	Balance    *big.Int
	RewardDebt *big.Int
}

func NewEmptyDepositor(principal string) *Depositor {
	return &Depositor{
		Principal:  principal,
		Balance:    new(big.Int),
		RewardDebt: new(big.Int),
	}
}

func (d *Depositor) IsActive() bool {
	return d != nil && d.Balance != nil && d.Balance.Sign() > 0
}

func (d *Depositor) Clone() *Depositor {
	if d == nil {
		return nil
	}
	return &Depositor{
		Principal:  d.Principal,
		Balance:    numbers.CloneBigInt(d.Balance),
		RewardDebt: numbers.CloneBigInt(d.RewardDebt),
	}
}

// PoolState is the global accounting state shared by all depositors.
type PoolState struct {
	TotalStaked       *big.Int
	AccRewardPerShare *big.Int
	// Sequence counts committed mutating operations.
	Sequence       uint64
	DepositorCount uint64
}

func NewEmptyPoolState() *PoolState {
	return &PoolState{
		TotalStaked:       new(big.Int),
		AccRewardPerShare: new(big.Int),
	}
}

func (p *PoolState) Clone() *PoolState {
	if p == nil {
		return nil
	}
	return &PoolState{
		TotalStaked:       numbers.CloneBigInt(p.TotalStaked),
		AccRewardPerShare: numbers.CloneBigInt(p.AccRewardPerShare),
		Sequence:          p.Sequence,
		DepositorCount:    p.DepositorCount,
	}
}

type EventKind string

const (
	EventKind_Deposit    EventKind = "deposit"
	EventKind_Distribute EventKind = "distribute"
	EventKind_Withdraw   EventKind = "withdraw"
)

// LedgerEvent records a committed mutating operation and the pool state it produced.
type LedgerEvent struct {
	Sequence  uint64
	Kind      EventKind
	Principal string
	// Amount is the deposit, the distributed reward, or the withdrawn principal.
	Amount *big.Int
	// Payout is principal plus reward for withdrawals, zero otherwise.
	Payout *big.Int
	// Dust is the part of a distribution lost to truncation, zero otherwise.
	Dust              *big.Int
	AccRewardPerShare *big.Int
	TotalStaked       *big.Int
	DepositorCount    uint64
	CreatedAt         time.Time
}
