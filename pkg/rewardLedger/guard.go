package rewardLedger

import "context"

type guardKey struct{}

// enterGuarded marks ctx as belonging to an operation in flight on rl. The marked
// context is what collaborators such as the ValueTransfer receive, so a ledger call
// they make with it is rejected by checkReentrancy instead of deadlocking on rl.mu.
func (rl *RewardLedger) enterGuarded(ctx context.Context) context.Context {
	return context.WithValue(ctx, guardKey{}, rl)
}

func (rl *RewardLedger) checkReentrancy(ctx context.Context) error {
	if owner, ok := ctx.Value(guardKey{}).(*RewardLedger); ok && owner == rl {
		return ErrReentrantCall
	}
	return nil
}
