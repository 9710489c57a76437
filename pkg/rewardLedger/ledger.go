package rewardLedger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/Layr-Labs/staking-ledger/internal/metrics"
	"github.com/Layr-Labs/staking-ledger/internal/metrics/metricsTypes"
	"github.com/Layr-Labs/staking-ledger/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/staking-ledger/pkg/types/numbers"
	"github.com/Layr-Labs/staking-ledger/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RewardLedger distributes rewards to depositors pro rata to stake and time staked
// using a global accumulator and a per-depositor reward debt snapshot.
//
// Every mutating operation is serialized by the ledger, runs inside a single
// StateStore transaction, mutates state before moving value, and is rolled back
// entirely when the transfer fails.
type RewardLedger struct {
	store       StateStore
	transfer    ValueTransfer
	gate        AccessGate
	eventBus    eventBusTypes.IEventBus
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger

	mu sync.Mutex
}

func NewRewardLedger(
	store StateStore,
	transfer ValueTransfer,
	gate AccessGate,
	eb eventBusTypes.IEventBus,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *RewardLedger {
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	return &RewardLedger{
		store:       store,
		transfer:    transfer,
		gate:        gate,
		eventBus:    eb,
		metricsSink: ms,
		logger:      l,
	}
}

type DepositorSummary struct {
	Principal        string
	Balance          *big.Int
	RewardDebt       *big.Int
	PendingReward    *big.Int
	AmountToWithdraw *big.Int
	ShareOfPool      decimal.Decimal
}

func isValidAmount(amount *big.Int) bool {
	return amount != nil && amount.Sign() > 0 && numbers.IsInUint256Range(amount)
}

func normalizePrincipal(principal string) (string, error) {
	p, err := utils.NormalizePrincipal(principal)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPrincipal, err)
	}
	return p, nil
}

func transferFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrTransferFailed, err)
}

// Deposit opens a position for caller, snapshotting the current accumulator as its reward debt.
func (rl *RewardLedger) Deposit(ctx context.Context, caller string, amount *big.Int) (*LedgerEvent, error) {
	return rl.execute(ctx, EventKind_Deposit, func(ctx context.Context, tx StateTx) (*LedgerEvent, error) {
		principal, err := normalizePrincipal(caller)
		if err != nil {
			return nil, err
		}
		if !isValidAmount(amount) {
			return nil, ErrInvalidAmount
		}

		pool, err := tx.GetPool(ctx)
		if err != nil {
			return nil, err
		}
		depositor, err := tx.GetDepositor(ctx, principal)
		if err != nil {
			return nil, err
		}
		if depositor.IsActive() {
			return nil, ErrAlreadyStaked
		}

		totalStaked := new(big.Int).Add(pool.TotalStaked, amount)
		if !numbers.IsInUint256Range(totalStaked) {
			return nil, ErrInvalidAmount
		}

		depositor.Balance = new(big.Int).Set(amount)
		depositor.RewardDebt = new(big.Int).Set(pool.AccRewardPerShare)

		pool.TotalStaked = totalStaked
		pool.DepositorCount++
		pool.Sequence++

		event := newEvent(pool, EventKind_Deposit, principal, amount)
		if err := persist(ctx, tx, pool, depositor, event); err != nil {
			return nil, err
		}

		if err := rl.transfer.TransferIn(ctx, principal, amount); err != nil {
			return nil, transferFailed(err)
		}
		return event, nil
	})
}

// Distribute credits rewardAmount to all current depositors pro rata to their balance.
func (rl *RewardLedger) Distribute(ctx context.Context, caller string, rewardAmount *big.Int) (*LedgerEvent, error) {
	return rl.execute(ctx, EventKind_Distribute, func(ctx context.Context, tx StateTx) (*LedgerEvent, error) {
		if !rl.gate.IsAuthorized(ctx, caller) {
			return nil, ErrUnauthorized
		}
		principal, err := normalizePrincipal(caller)
		if err != nil {
			return nil, ErrUnauthorized
		}
		if !isValidAmount(rewardAmount) {
			return nil, ErrInvalidAmount
		}

		pool, err := tx.GetPool(ctx)
		if err != nil {
			return nil, err
		}
		if pool.TotalStaked.Sign() == 0 {
			return nil, ErrNoStakers
		}

		dust := DistributionDust(rewardAmount, pool.TotalStaked)
		pool.AccRewardPerShare = new(big.Int).Add(pool.AccRewardPerShare, AccumulatorIncrement(rewardAmount, pool.TotalStaked))
		pool.Sequence++

		event := newEvent(pool, EventKind_Distribute, principal, rewardAmount)
		event.Dust = dust
		if err := persist(ctx, tx, pool, nil, event); err != nil {
			return nil, err
		}

		if err := rl.transfer.TransferIn(ctx, principal, rewardAmount); err != nil {
			return nil, transferFailed(err)
		}
		return event, nil
	})
}

// Withdraw closes caller's position and pays out its balance plus accrued reward.
func (rl *RewardLedger) Withdraw(ctx context.Context, caller string) (*LedgerEvent, error) {
	return rl.execute(ctx, EventKind_Withdraw, func(ctx context.Context, tx StateTx) (*LedgerEvent, error) {
		principal, err := normalizePrincipal(caller)
		if err != nil {
			return nil, err
		}

		pool, err := tx.GetPool(ctx)
		if err != nil {
			return nil, err
		}
		depositor, err := tx.GetDepositor(ctx, principal)
		if err != nil {
			return nil, err
		}
		if !depositor.IsActive() {
			return nil, ErrNoActiveDeposit
		}

		balance := depositor.Balance
		payout := new(big.Int).Add(balance, PendingReward(balance, pool.AccRewardPerShare, depositor.RewardDebt))

		pool.TotalStaked = new(big.Int).Sub(pool.TotalStaked, balance)
		pool.DepositorCount--
		pool.Sequence++

		depositor.Balance = new(big.Int)
		depositor.RewardDebt = new(big.Int).Set(pool.AccRewardPerShare)

		event := newEvent(pool, EventKind_Withdraw, principal, balance)
		event.Payout = payout
		if err := persist(ctx, tx, pool, depositor, event); err != nil {
			return nil, err
		}

		if err := rl.transfer.TransferOut(ctx, principal, payout); err != nil {
			return nil, transferFailed(err)
		}
		return event, nil
	})
}

// GetPendingReward returns the reward accrued by principal since its deposit.
func (rl *RewardLedger) GetPendingReward(ctx context.Context, principal string) (*big.Int, error) {
	summary, err := rl.GetDepositorSummary(ctx, principal)
	if err != nil {
		return nil, err
	}
	return summary.PendingReward, nil
}

// GetAmountToWithdraw returns balance plus pending reward, or zero without an active deposit.
func (rl *RewardLedger) GetAmountToWithdraw(ctx context.Context, principal string) (*big.Int, error) {
	summary, err := rl.GetDepositorSummary(ctx, principal)
	if err != nil {
		return nil, err
	}
	return summary.AmountToWithdraw, nil
}

func (rl *RewardLedger) GetDepositorSummary(ctx context.Context, principal string) (*DepositorSummary, error) {
	p, err := normalizePrincipal(principal)
	if err != nil {
		return nil, err
	}
	var summary *DepositorSummary
	err = rl.view(ctx, func(ctx context.Context, r StateReader) error {
		pool, err := r.GetPool(ctx)
		if err != nil {
			return err
		}
		depositor, err := r.GetDepositor(ctx, p)
		if err != nil {
			return err
		}
		summary = summarize(pool, depositor)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func summarize(pool *PoolState, depositor *Depositor) *DepositorSummary {
	pending := PendingReward(depositor.Balance, pool.AccRewardPerShare, depositor.RewardDebt)
	return &DepositorSummary{
		Principal:        depositor.Principal,
		Balance:          numbers.CloneBigInt(depositor.Balance),
		RewardDebt:       numbers.CloneBigInt(depositor.RewardDebt),
		PendingReward:    pending,
		AmountToWithdraw: new(big.Int).Add(depositor.Balance, pending),
		ShareOfPool:      numbers.ShareOfPool(depositor.Balance, pool.TotalStaked),
	}
}

func (rl *RewardLedger) GetPool(ctx context.Context) (*PoolState, error) {
	var pool *PoolState
	err := rl.view(ctx, func(ctx context.Context, r StateReader) error {
		var err error
		pool, err = r.GetPool(ctx)
		return err
	})
	return pool, err
}

// ListDepositors returns a summary of every active depositor ordered by principal.
func (rl *RewardLedger) ListDepositors(ctx context.Context) ([]*DepositorSummary, error) {
	summaries := make([]*DepositorSummary, 0)
	err := rl.view(ctx, func(ctx context.Context, r StateReader) error {
		pool, err := r.GetPool(ctx)
		if err != nil {
			return err
		}
		depositors, err := r.ListDepositors(ctx)
		if err != nil {
			return err
		}
		for _, d := range depositors {
			summaries = append(summaries, summarize(pool, d))
		}
		return nil
	})
	return summaries, err
}

func (rl *RewardLedger) ListEvents(ctx context.Context, afterSequence uint64, limit int) ([]*LedgerEvent, error) {
	var events []*LedgerEvent
	err := rl.view(ctx, func(ctx context.Context, r StateReader) error {
		var err error
		events, err = r.ListEvents(ctx, afterSequence, limit)
		return err
	})
	return events, err
}

func (rl *RewardLedger) view(ctx context.Context, fn func(ctx context.Context, r StateReader) error) error {
	if err := rl.checkReentrancy(ctx); err != nil {
		return err
	}
	return rl.store.View(ctx, fn)
}

func (rl *RewardLedger) execute(
	ctx context.Context,
	kind EventKind,
	fn func(ctx context.Context, tx StateTx) (*LedgerEvent, error),
) (*LedgerEvent, error) {
	start := time.Now()

	// A reentrant call must fail before it waits on the lock held by its caller.
	if err := rl.checkReentrancy(ctx); err != nil {
		rl.recordOutcome(kind, err, time.Since(start))
		return nil, err
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	var event *LedgerEvent
	err := rl.store.RunInTx(rl.enterGuarded(ctx), func(ctx context.Context, tx StateTx) error {
		e, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		event = e
		return nil
	})
	rl.recordOutcome(kind, err, time.Since(start))
	if err != nil {
		rl.logger.Sugar().Infow("Ledger operation rejected",
			zap.String("operation", string(kind)),
			zap.String("errorKind", ErrorKind(err)),
			zap.Error(err),
		)
		return nil, err
	}

	rl.logger.Sugar().Debugw("Ledger operation committed",
		zap.String("operation", string(kind)),
		zap.Uint64("sequence", event.Sequence),
		zap.String("principal", event.Principal),
		zap.String("amount", event.Amount.String()),
		zap.String("totalStaked", event.TotalStaked.String()),
	)
	rl.publish(event)
	return event, nil
}

func (rl *RewardLedger) recordOutcome(kind EventKind, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = ErrorKind(err)
	}
	_ = rl.metricsSink.Incr(metricsTypes.Metric_Incr_LedgerOperation, []metricsTypes.MetricsLabel{
		{Name: "operation", Value: string(kind)},
		{Name: "outcome", Value: outcome},
	}, 1)
	_ = rl.metricsSink.Timing(metricsTypes.Metric_Timing_LedgerOperationDuration, duration, []metricsTypes.MetricsLabel{
		{Name: "operation", Value: string(kind)},
	})
}

func (rl *RewardLedger) publish(event *LedgerEvent) {
	_ = rl.metricsSink.Gauge(metricsTypes.Metric_Gauge_TotalStaked, numbers.ToFloat64(event.TotalStaked), nil)
	_ = rl.metricsSink.Gauge(metricsTypes.Metric_Gauge_DepositorCount, float64(event.DepositorCount), nil)
	_ = rl.metricsSink.Gauge(metricsTypes.Metric_Gauge_Sequence, float64(event.Sequence), nil)

	if rl.eventBus == nil {
		return
	}
	rl.eventBus.Publish(&eventBusTypes.Event{
		Name: EventName(event.Kind),
		Data: event,
	})
}

// EventName maps an event kind to the name it is published under on the event bus.
func EventName(kind EventKind) string {
	switch kind {
	case EventKind_Deposit:
		return eventBusTypes.Event_LedgerDeposited
	case EventKind_Distribute:
		return eventBusTypes.Event_LedgerDistributed
	case EventKind_Withdraw:
		return eventBusTypes.Event_LedgerWithdrawn
	}
	return string(kind)
}

func newEvent(pool *PoolState, kind EventKind, principal string, amount *big.Int) *LedgerEvent {
	return &LedgerEvent{
		Sequence:          pool.Sequence,
		Kind:              kind,
		Principal:         principal,
		Amount:            new(big.Int).Set(amount),
		Payout:            new(big.Int),
		Dust:              new(big.Int),
		AccRewardPerShare: new(big.Int).Set(pool.AccRewardPerShare),
		TotalStaked:       new(big.Int).Set(pool.TotalStaked),
		DepositorCount:    pool.DepositorCount,
		CreatedAt:         time.Now().UTC(),
	}
}

func persist(ctx context.Context, tx StateTx, pool *PoolState, depositor *Depositor, event *LedgerEvent) error {
	if depositor != nil {
		if err := tx.PutDepositor(ctx, depositor); err != nil {
			return err
		}
	}
	if err := tx.PutPool(ctx, pool); err != nil {
		return err
	}
	return tx.AppendEvent(ctx, event)
}
