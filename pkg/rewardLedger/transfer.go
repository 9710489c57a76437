package rewardLedger

import (
	"context"
	"math/big"
)

// ValueTransfer moves the staked asset between participants and ledger custody.
// A returned error must mean that no balance moved.
type ValueTransfer interface {
	TransferIn(ctx context.Context, from string, amount *big.Int) error
	TransferOut(ctx context.Context, to string, amount *big.Int) error
	BalanceOf(ctx context.Context, principal string) (*big.Int, error)
}
