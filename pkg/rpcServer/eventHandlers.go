package rpcServer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Layr-Labs/staking-ledger/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/staking-ledger/pkg/rewardLedger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultNextEventTimeout = 30 * time.Second
	maxNextEventTimeout     = 60 * time.Second
)

// NextEvent long-polls for the first event with a sequence greater than ?after.
// It responds 204 when none arrives before the timeout.
func (rpc *RpcServer) NextEvent(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	after, err := parseUintQuery(r, "after", 0)
	if err != nil {
		return err
	}
	timeoutMs, err := parseUintQuery(r, "timeoutMs", uint64(defaultNextEventTimeout.Milliseconds()))
	if err != nil {
		return err
	}
	timeout := time.Duration(timeoutMs) * time.Millisecond
	if timeout > maxNextEventTimeout {
		timeout = maxNextEventTimeout
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	event, err := rpc.waitForEvent(ctx, after)
	if errors.Is(err, context.DeadlineExceeded) && r.Context().Err() == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, convertLedgerEvent(event))
}

// waitForEvent subscribes before reading the log so an event committed in between is not missed.
func (rpc *RpcServer) waitForEvent(ctx context.Context, after uint64) (*rewardLedger.LedgerEvent, error) {
	consumer := &eventBusTypes.Consumer{
		Id:      eventBusTypes.ConsumerId(uuid.NewString()),
		Context: ctx,
		Channel: make(chan *eventBusTypes.Event, 100),
	}
	rpc.eventBus.Subscribe(consumer)
	defer rpc.eventBus.Unsubscribe(consumer)

	events, err := rpc.ledger.ListEvents(ctx, after, 1)
	if err != nil {
		return nil, err
	}
	if len(events) > 0 {
		return events[0], nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case e := <-consumer.Channel:
			le, ok := e.Data.(*rewardLedger.LedgerEvent)
			if !ok {
				rpc.Logger.Sugar().Debugw("Ignoring non-ledger event", zap.String("eventName", e.Name))
				continue
			}
			if le.Sequence > after {
				return le, nil
			}
		}
	}
}
