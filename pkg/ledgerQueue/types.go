package ledgerQueue

import (
	"context"
	"math/big"

	"github.com/Layr-Labs/staking-ledger/internal/metrics"
	"github.com/Layr-Labs/staking-ledger/pkg/rewardLedger"
	"go.uber.org/zap"
)

type LedgerOperationType string

var (
	LedgerOperationType_Deposit    LedgerOperationType = "deposit"
	LedgerOperationType_Distribute LedgerOperationType = "distribute"
	LedgerOperationType_Withdraw   LedgerOperationType = "withdraw"
)

type LedgerOperationData struct {
	OperationType LedgerOperationType
	Caller        string
	// Amount is ignored for withdrawals.
	Amount *big.Int
}

type LedgerOperationMessage struct {
	Context      context.Context
	Data         LedgerOperationData
	ResponseChan chan *LedgerOperationResponse
}

type LedgerOperationResponse struct {
	Event *rewardLedger.LedgerEvent
	Error error
}

// Ledger is the set of mutating ledger operations the queue can apply.
type Ledger interface {
	Deposit(ctx context.Context, caller string, amount *big.Int) (*rewardLedger.LedgerEvent, error)
	Distribute(ctx context.Context, caller string, rewardAmount *big.Int) (*rewardLedger.LedgerEvent, error)
	Withdraw(ctx context.Context, caller string) (*rewardLedger.LedgerEvent, error)
}

type LedgerQueue struct {
	logger      *zap.Logger
	ledger      Ledger
	metricsSink *metrics.MetricsSink
	queue       chan *LedgerOperationMessage
	done        chan struct{}
}
