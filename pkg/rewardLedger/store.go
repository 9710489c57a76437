package rewardLedger

import (
	"context"
)

// StateReader exposes read access to ledger state.
type StateReader interface {
	// GetPool returns the pool state, zero-valued if nothing was ever written.
	GetPool(ctx context.Context) (*PoolState, error)
	// GetDepositor returns the depositor record, or an empty depositor when none exists.
	GetDepositor(ctx context.Context, principal string) (*Depositor, error)
	// ListDepositors returns every active depositor ordered by principal.
	ListDepositors(ctx context.Context) ([]*Depositor, error)
	// ListEvents returns up to limit events with a sequence greater than afterSequence.
	ListEvents(ctx context.Context, afterSequence uint64, limit int) ([]*LedgerEvent, error)
}

// StateTx is a read-write view of ledger state inside StateStore.RunInTx.
type StateTx interface {
	StateReader
	PutPool(ctx context.Context, pool *PoolState) error
	// PutDepositor stores the depositor; a zero balance removes the record.
	PutDepositor(ctx context.Context, depositor *Depositor) error
	AppendEvent(ctx context.Context, event *LedgerEvent) error
}

// StateStore persists ledger state. RunInTx must apply all writes made through tx
// if fn returns nil, and none of them otherwise.
type StateStore interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx StateTx) error) error
	View(ctx context.Context, fn func(ctx context.Context, r StateReader) error) error
}
