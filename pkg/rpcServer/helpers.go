package rpcServer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/Layr-Labs/staking-ledger/internal/metrics/metricsTypes"
	"github.com/Layr-Labs/staking-ledger/pkg/custody"
	"github.com/Layr-Labs/staking-ledger/pkg/requestAuth"
	"github.com/Layr-Labs/staking-ledger/pkg/rewardLedger"
	"github.com/Layr-Labs/staking-ledger/pkg/rpcServer/rpcTypes"
	"github.com/Layr-Labs/staking-ledger/pkg/types/numbers"
	"github.com/Layr-Labs/staking-ledger/pkg/utils"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

const (
	requestIdHeader = rpcTypes.RequestIdHeader
	jsonContentType = "application/json; charset=utf-8"
)

// handlerFunc is a route handler; a returned error is rendered as an ErrorResponse.
type handlerFunc func(w http.ResponseWriter, r *http.Request, params map[string]string) error

type httpError struct {
	cause  error
	kind   string
	status int
}

func (e *httpError) Error() string {
	return e.cause.Error()
}

func (e *httpError) Unwrap() error {
	return e.cause
}

func badRequest(cause error) error {
	return &httpError{cause: cause, kind: rpcTypes.ErrorKind_BadRequest, status: http.StatusBadRequest}
}

func notFound(cause error) error {
	return &httpError{cause: cause, kind: rpcTypes.ErrorKind_NotFound, status: http.StatusNotFound}
}

// statusForError maps an error to its HTTP status and error kind.
func statusForError(err error) (int, string) {
	var he *httpError
	if errors.As(err, &he) {
		return he.status, he.kind
	}

	switch {
	case errors.Is(err, requestAuth.ErrUnauthenticated):
		return http.StatusUnauthorized, rpcTypes.ErrorKind_Unauthenticated
	case errors.Is(err, rewardLedger.ErrTransferFailed):
		return http.StatusUnprocessableEntity, rewardLedger.ErrorKind(err)
	case errors.Is(err, custody.ErrInvalidAmount):
		return http.StatusBadRequest, rewardLedger.ErrorKind(rewardLedger.ErrInvalidAmount)
	case errors.Is(err, custody.ErrInsufficientAllowance):
		return http.StatusUnprocessableEntity, rpcTypes.ErrorKind_InsufficientAllowance
	case errors.Is(err, custody.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, rpcTypes.ErrorKind_InsufficientBalance
	}

	kind := rewardLedger.ErrorKind(err)
	switch kind {
	case "InvalidAmount", "InvalidPrincipal":
		return http.StatusBadRequest, kind
	case "Unauthorized":
		return http.StatusForbidden, kind
	case "AlreadyStaked", "NoActiveDeposit", "NoStakers", "ReentrantCall":
		return http.StatusConflict, kind
	}
	return http.StatusInternalServerError, rpcTypes.ErrorKind_Internal
}

func writeJSON(w http.ResponseWriter, status int, obj any) error {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(obj)
}

func (rpc *RpcServer) writeError(w http.ResponseWriter, r *http.Request, err error) int {
	status, kind := statusForError(err)
	if status == http.StatusInternalServerError {
		rpc.Logger.Sugar().Errorw("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("requestId", r.Header.Get(requestIdHeader)),
			zap.Error(err),
		)
	}
	_ = writeJSON(w, status, &rpcTypes.ErrorResponse{Error: kind, Message: err.Error()})
	return status
}

// parseJSON decodes the request body in strict mode.
func parseJSON(r io.Reader, v any) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return badRequest(fmt.Errorf("invalid request body: %w", err))
	}
	return nil
}

// parseLedgerAmount returns nil for an unparsable amount so the ledger reports it in its own check order.
func parseLedgerAmount(s string) *big.Int {
	amount, err := numbers.ParseAmount(s)
	if err != nil {
		return nil
	}
	return amount
}

func parseAccountAmount(s string) (*big.Int, error) {
	amount, err := numbers.ParseAmount(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", custody.ErrInvalidAmount, err)
	}
	return amount, nil
}

func parseUintQuery(r *http.Request, name string, def uint64) (uint64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, badRequest(fmt.Errorf("query parameter '%s' must be a non-negative integer", name))
	}
	return n, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (rpc *RpcServer) wrap(path string, h handlerFunc) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		if err := h(rec, r, params); err != nil {
			rpc.writeError(rec, r, err)
		}

		_ = rpc.metricsSink.Incr(metricsTypes.Metric_Incr_HttpRequest, []metricsTypes.MetricsLabel{
			{Name: "route", Value: path},
			{Name: "status", Value: strconv.Itoa(rec.status)},
		}, 1)
		_ = rpc.metricsSink.Timing(metricsTypes.Metric_Timing_HttpDuration, time.Since(start), []metricsTypes.MetricsLabel{
			{Name: "route", Value: path},
		})
	}
}

func withRequestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get(requestIdHeader)
		if requestId == "" {
			requestId = uuid.NewString()
			r.Header.Set(requestIdHeader, requestId)
		}
		w.Header().Set(requestIdHeader, requestId)
		next.ServeHTTP(w, r)
	})
}

func convertLedgerEvent(e *rewardLedger.LedgerEvent) *rpcTypes.LedgerEvent {
	return &rpcTypes.LedgerEvent{
		Sequence:          e.Sequence,
		Kind:              string(e.Kind),
		Principal:         e.Principal,
		Amount:            numbers.CloneBigInt(e.Amount).String(),
		Payout:            numbers.CloneBigInt(e.Payout).String(),
		Dust:              numbers.CloneBigInt(e.Dust).String(),
		AccRewardPerShare: numbers.CloneBigInt(e.AccRewardPerShare).String(),
		TotalStaked:       numbers.CloneBigInt(e.TotalStaked).String(),
		DepositorCount:    e.DepositorCount,
		CreatedAt:         e.CreatedAt,
	}
}

func convertDepositorSummary(s *rewardLedger.DepositorSummary) *rpcTypes.Depositor {
	return &rpcTypes.Depositor{
		Principal:        s.Principal,
		Balance:          s.Balance.String(),
		RewardDebt:       s.RewardDebt.String(),
		PendingReward:    s.PendingReward.String(),
		AmountToWithdraw: s.AmountToWithdraw.String(),
		ShareOfPool:      s.ShareOfPool.String(),
	}
}

func convertPool(p *rewardLedger.PoolState) *rpcTypes.Pool {
	return &rpcTypes.Pool{
		TotalStaked:       p.TotalStaked.String(),
		AccRewardPerShare: p.AccRewardPerShare.String(),
		Sequence:          p.Sequence,
		DepositorCount:    p.DepositorCount,
	}
}

func normalizePrincipal(principal string) (string, error) {
	p, err := utils.NormalizePrincipal(principal)
	if err != nil {
		return "", fmt.Errorf("%w: %w", rewardLedger.ErrInvalidPrincipal, err)
	}
	return p, nil
}
