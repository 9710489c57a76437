package rpcServer

import (
	"errors"
	"net/http"

	"github.com/Layr-Labs/staking-ledger/pkg/ledgerQueue"
	"github.com/Layr-Labs/staking-ledger/pkg/rpcServer/rpcTypes"
)

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 1000
)

func (rpc *RpcServer) applyLedgerOperation(w http.ResponseWriter, r *http.Request, opType ledgerQueue.LedgerOperationType) error {
	var req rpcTypes.LedgerOperationRequest
	if err := parseJSON(r.Body, &req); err != nil {
		return err
	}

	data := ledgerQueue.LedgerOperationData{
		OperationType: opType,
		Caller:        authenticatedCaller(r),
	}
	if opType != ledgerQueue.LedgerOperationType_Withdraw {
		data.Amount = parseLedgerAmount(req.Amount)
	}

	res, err := rpc.queue.EnqueueAndWait(r.Context(), data)
	if err != nil {
		return err
	}
	if res.Error != nil {
		return res.Error
	}
	return writeJSON(w, http.StatusOK, convertLedgerEvent(res.Event))
}

func (rpc *RpcServer) Deposit(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	return rpc.applyLedgerOperation(w, r, ledgerQueue.LedgerOperationType_Deposit)
}

func (rpc *RpcServer) Distribute(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	return rpc.applyLedgerOperation(w, r, ledgerQueue.LedgerOperationType_Distribute)
}

func (rpc *RpcServer) Withdraw(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	return rpc.applyLedgerOperation(w, r, ledgerQueue.LedgerOperationType_Withdraw)
}

func (rpc *RpcServer) GetDepositor(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	summary, err := rpc.ledger.GetDepositorSummary(r.Context(), params["principal"])
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, convertDepositorSummary(summary))
}

func (rpc *RpcServer) GetAmountToWithdraw(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	summary, err := rpc.ledger.GetDepositorSummary(r.Context(), params["principal"])
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, &rpcTypes.AmountToWithdrawResponse{
		Principal: summary.Principal,
		Amount:    summary.AmountToWithdraw.String(),
	})
}

func (rpc *RpcServer) ListDepositors(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	summaries, err := rpc.ledger.ListDepositors(r.Context())
	if err != nil {
		return err
	}
	depositors := make([]*rpcTypes.Depositor, 0, len(summaries))
	for _, s := range summaries {
		depositors = append(depositors, convertDepositorSummary(s))
	}
	return writeJSON(w, http.StatusOK, depositors)
}

func (rpc *RpcServer) GetPool(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	pool, err := rpc.ledger.GetPool(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, convertPool(pool))
}

func (rpc *RpcServer) ListEvents(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	from, err := parseUintQuery(r, "from", 0)
	if err != nil {
		return err
	}
	limit, err := parseUintQuery(r, "limit", defaultEventsLimit)
	if err != nil {
		return err
	}
	if limit == 0 {
		limit = defaultEventsLimit
	}
	if limit > maxEventsLimit {
		limit = maxEventsLimit
	}

	events, err := rpc.ledger.ListEvents(r.Context(), from, int(limit))
	if err != nil {
		return err
	}
	res := &rpcTypes.ListEventsResponse{Events: make([]*rpcTypes.LedgerEvent, 0, len(events))}
	for _, e := range events {
		res.Events = append(res.Events, convertLedgerEvent(e))
	}
	return writeJSON(w, http.StatusOK, res)
}

// GetStateRoot returns the current root, or the recorded root for ?sequence=N.
func (rpc *RpcServer) GetStateRoot(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	if rpc.stateRoots == nil {
		return notFound(errors.New("state roots are not enabled"))
	}

	if r.URL.Query().Get("sequence") != "" {
		sequence, err := parseUintQuery(r, "sequence", 0)
		if err != nil {
			return err
		}
		root, err := rpc.stateRoots.GetStateRootForSequence(r.Context(), sequence)
		if err != nil {
			return err
		}
		if root == nil {
			return notFound(errors.New("no state root recorded for sequence"))
		}
		return writeJSON(w, http.StatusOK, &rpcTypes.StateRootResponse{Sequence: root.Sequence, StateRoot: string(root.StateRoot)})
	}

	root, err := rpc.stateRoots.GenerateAndWriteStateRoot(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, &rpcTypes.StateRootResponse{Sequence: root.Sequence, StateRoot: string(root.StateRoot)})
}
