package ledgerQueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/Layr-Labs/staking-ledger/internal/metrics/metricsTypes"
	"go.uber.org/zap"
)

var ErrQueueClosed = errors.New("ledger queue is closed")

// Process applies queued operations until Close is called.
func (lq *LedgerQueue) Process() {
	for {
		select {
		case <-lq.done:
			lq.logger.Sugar().Infow("Ledger operation queue stopped")
			return
		case msg := <-lq.queue:
			response := lq.processMessage(msg)
			lq.warnIfAbandoned(msg, response)

			if msg.ResponseChan != nil {
				select {
				case msg.ResponseChan <- response:
				default:
					lq.logger.Sugar().Infow("No receiver for response, dropping",
						zap.String("operation", string(msg.Data.OperationType)),
						zap.Uint64("sequence", committedSequence(response)),
					)
				}
			}
		}
	}
}

func (lq *LedgerQueue) processMessage(msg *LedgerOperationMessage) *LedgerOperationResponse {
	_ = lq.metricsSink.Incr(metricsTypes.Metric_Incr_QueueMessage, []metricsTypes.MetricsLabel{
		{Name: "operation", Value: string(msg.Data.OperationType)},
	}, 1)

	ctx := msg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	// the caller gave up before the operation was reached
	if err := ctx.Err(); err != nil {
		return &LedgerOperationResponse{Error: err}
	}

	response := &LedgerOperationResponse{}
	switch msg.Data.OperationType {
	case LedgerOperationType_Deposit:
		response.Event, response.Error = lq.ledger.Deposit(ctx, msg.Data.Caller, msg.Data.Amount)
	case LedgerOperationType_Distribute:
		response.Event, response.Error = lq.ledger.Distribute(ctx, msg.Data.Caller, msg.Data.Amount)
	case LedgerOperationType_Withdraw:
		response.Event, response.Error = lq.ledger.Withdraw(ctx, msg.Data.Caller)
	default:
		response.Error = fmt.Errorf("unknown ledger operation type %s", msg.Data.OperationType)
	}
	return response
}

// warnIfAbandoned logs operations that committed after their caller stopped waiting,
// since the caller saw only its context error and not the event.
func (lq *LedgerQueue) warnIfAbandoned(msg *LedgerOperationMessage, response *LedgerOperationResponse) {
	if msg.Context == nil || msg.Context.Err() == nil || response.Event == nil {
		return
	}
	lq.logger.Sugar().Warnw("Ledger operation committed after the caller stopped waiting",
		zap.String("operation", string(msg.Data.OperationType)),
		zap.String("caller", msg.Data.Caller),
		zap.Uint64("sequence", response.Event.Sequence),
		zap.Error(msg.Context.Err()),
	)
}

func committedSequence(response *LedgerOperationResponse) uint64 {
	if response == nil || response.Event == nil {
		return 0
	}
	return response.Event.Sequence
}
