package rpcServer

import (
	"net/http"

	"github.com/Layr-Labs/staking-ledger/pkg/rewardLedger"
	"github.com/Layr-Labs/staking-ledger/pkg/rpcServer/rpcTypes"
)

func (rpc *RpcServer) GetAccountBalance(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	principal, err := normalizePrincipal(params["principal"])
	if err != nil {
		return err
	}
	balance, err := rpc.accounts.BalanceOf(r.Context(), principal)
	if err != nil {
		return err
	}
	allowance, err := rpc.accounts.Allowance(r.Context(), principal)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, &rpcTypes.AccountBalanceResponse{
		Principal: principal,
		Balance:   balance.String(),
		Allowance: allowance.String(),
	})
}

// Approve sets how much the custody principal may pull from the account. Only the
// account's own principal may approve.
func (rpc *RpcServer) Approve(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	principal, err := normalizePrincipal(params["principal"])
	if err != nil {
		return err
	}
	if principal != authenticatedCaller(r) {
		return rewardLedger.ErrUnauthorized
	}
	var req rpcTypes.ApproveRequest
	if err := parseJSON(r.Body, &req); err != nil {
		return err
	}
	amount, err := parseAccountAmount(req.Amount)
	if err != nil {
		return err
	}
	if err := rpc.accounts.Approve(r.Context(), principal, amount); err != nil {
		return err
	}
	return rpc.GetAccountBalance(w, r, map[string]string{"principal": principal})
}

// Mint credits new funds to an account. Only the ledger administrator may mint.
func (rpc *RpcServer) Mint(w http.ResponseWriter, r *http.Request, _ map[string]string) error {
	var req rpcTypes.MintRequest
	if err := parseJSON(r.Body, &req); err != nil {
		return err
	}
	if !rpc.gate.IsAuthorized(r.Context(), authenticatedCaller(r)) {
		return rewardLedger.ErrUnauthorized
	}
	principal, err := normalizePrincipal(req.Principal)
	if err != nil {
		return err
	}
	amount, err := parseAccountAmount(req.Amount)
	if err != nil {
		return err
	}
	if err := rpc.accounts.Mint(r.Context(), principal, amount); err != nil {
		return err
	}
	return rpc.GetAccountBalance(w, r, map[string]string{"principal": principal})
}
