package ledgerQueue

import (
	"context"

	"github.com/Layr-Labs/staking-ledger/internal/metrics"
	"go.uber.org/zap"
)

const defaultBufferSize = 100

// NewLedgerQueue creates a queue that applies ledger operations one at a time in arrival order.
func NewLedgerQueue(ledger Ledger, bufferSize int, ms *metrics.MetricsSink, logger *zap.Logger) *LedgerQueue {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	return &LedgerQueue{
		logger:      logger,
		ledger:      ledger,
		metricsSink: ms,
		queue:       make(chan *LedgerOperationMessage, bufferSize),
		done:        make(chan struct{}),
	}
}

// Enqueue adds a new message to the queue and returns once it is buffered
func (lq *LedgerQueue) Enqueue(payload *LedgerOperationMessage) {
	lq.logger.Sugar().Debugw("Enqueueing ledger operation",
		zap.String("operation", string(payload.Data.OperationType)),
		zap.String("caller", payload.Data.Caller),
	)
	lq.queue <- payload
}

// EnqueueAndWait adds a new message to the queue and waits for its result or returns if the context is done.
func (lq *LedgerQueue) EnqueueAndWait(ctx context.Context, data LedgerOperationData) (*LedgerOperationResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	responseChan := make(chan *LedgerOperationResponse, 1)

	payload := &LedgerOperationMessage{
		Context:      ctx,
		Data:         data,
		ResponseChan: responseChan,
	}

	select {
	case lq.queue <- payload:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-lq.done:
		return nil, ErrQueueClosed
	}

	select {
	case response := <-responseChan:
		return response, nil
	case <-ctx.Done():
		lq.logger.Sugar().Debugw("Context done while waiting for ledger operation",
			zap.String("operation", string(data.OperationType)),
		)
		return nil, ctx.Err()
	case <-lq.done:
		// Process may stop before reaching the buffered message
		return nil, ErrQueueClosed
	}
}

func (lq *LedgerQueue) Close() {
	lq.logger.Sugar().Infow("Closing ledger operation queue")
	close(lq.done)
}
