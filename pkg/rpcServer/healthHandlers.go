package rpcServer

import (
	"net/http"

	"github.com/Layr-Labs/staking-ledger/pkg/rpcServer/rpcTypes"
)

func (rpc *RpcServer) HealthCheck(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	return writeJSON(w, http.StatusOK, &rpcTypes.HealthResponse{Status: "SERVING"})
}

func (rpc *RpcServer) ReadyCheck(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	if _, err := rpc.ledger.GetPool(r.Context()); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, &rpcTypes.ReadyResponse{Ready: true})
}
