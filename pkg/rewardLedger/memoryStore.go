package rewardLedger

import (
	"context"
	"sort"
	"sync"
)

// MemoryStateStore keeps ledger state in process memory. Writes made inside RunInTx
// are buffered and only applied when the transaction function succeeds.
type MemoryStateStore struct {
	mu         sync.RWMutex
	pool       *PoolState
	depositors map[string]*Depositor
	events     []*LedgerEvent
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		pool:       NewEmptyPoolState(),
		depositors: make(map[string]*Depositor),
		events:     make([]*LedgerEvent, 0),
	}
}

func (s *MemoryStateStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx StateTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		store:      s,
		depositors: make(map[string]*Depositor),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *MemoryStateStore) View(ctx context.Context, fn func(ctx context.Context, r StateReader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, &memoryReader{store: s})
}

type memoryReader struct {
	store *MemoryStateStore
}

func (r *memoryReader) GetPool(ctx context.Context) (*PoolState, error) {
	return r.store.pool.Clone(), nil
}

func (r *memoryReader) GetDepositor(ctx context.Context, principal string) (*Depositor, error) {
	if d, ok := r.store.depositors[principal]; ok {
		return d.Clone(), nil
	}
	return NewEmptyDepositor(principal), nil
}

func (r *memoryReader) ListDepositors(ctx context.Context) ([]*Depositor, error) {
	return sortedDepositors(r.store.depositors, nil), nil
}

func (r *memoryReader) ListEvents(ctx context.Context, afterSequence uint64, limit int) ([]*LedgerEvent, error) {
	return pageEvents(r.store.events, afterSequence, limit), nil
}

type memoryTx struct {
	store      *MemoryStateStore
	pool       *PoolState
	depositors map[string]*Depositor
	events     []*LedgerEvent
}

func (tx *memoryTx) GetPool(ctx context.Context) (*PoolState, error) {
	if tx.pool != nil {
		return tx.pool.Clone(), nil
	}
	return tx.store.pool.Clone(), nil
}

func (tx *memoryTx) GetDepositor(ctx context.Context, principal string) (*Depositor, error) {
	if d, ok := tx.depositors[principal]; ok {
		return d.Clone(), nil
	}
	if d, ok := tx.store.depositors[principal]; ok {
		return d.Clone(), nil
	}
	return NewEmptyDepositor(principal), nil
}

func (tx *memoryTx) ListDepositors(ctx context.Context) ([]*Depositor, error) {
	return sortedDepositors(tx.store.depositors, tx.depositors), nil
}

func (tx *memoryTx) ListEvents(ctx context.Context, afterSequence uint64, limit int) ([]*LedgerEvent, error) {
	all := append(append([]*LedgerEvent{}, tx.store.events...), tx.events...)
	return pageEvents(all, afterSequence, limit), nil
}

func (tx *memoryTx) PutPool(ctx context.Context, pool *PoolState) error {
	tx.pool = pool.Clone()
	return nil
}

func (tx *memoryTx) PutDepositor(ctx context.Context, depositor *Depositor) error {
	tx.depositors[depositor.Principal] = depositor.Clone()
	return nil
}

func (tx *memoryTx) AppendEvent(ctx context.Context, event *LedgerEvent) error {
	tx.events = append(tx.events, event)
	return nil
}

func (tx *memoryTx) commit() {
	if tx.pool != nil {
		tx.store.pool = tx.pool
	}
	for principal, d := range tx.depositors {
		if d.IsActive() {
			tx.store.depositors[principal] = d
		} else {
			delete(tx.store.depositors, principal)
		}
	}
	tx.store.events = append(tx.store.events, tx.events...)
}

// sortedDepositors merges pending writes over committed records and returns active depositors by principal.
func sortedDepositors(committed map[string]*Depositor, pending map[string]*Depositor) []*Depositor {
	merged := make(map[string]*Depositor, len(committed))
	for p, d := range committed {
		merged[p] = d
	}
	for p, d := range pending {
		merged[p] = d
	}
	result := make([]*Depositor, 0, len(merged))
	for _, d := range merged {
		if d.IsActive() {
			result = append(result, d.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Principal < result[j].Principal
	})
	return result
}

func pageEvents(events []*LedgerEvent, afterSequence uint64, limit int) []*LedgerEvent {
	result := make([]*LedgerEvent, 0)
	for _, e := range events {
		if e.Sequence <= afterSequence {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result
}
