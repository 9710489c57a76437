package stakingLedger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Layr-Labs/staking-ledger/pkg/requestAuth"
	"github.com/Layr-Labs/staking-ledger/pkg/rpcServer/rpcTypes"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ApiError is a non-2xx response from the ledger service.
type ApiError struct {
	Status  int
	Kind    string
	Message string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("ledger service responded %d %s: %s", e.Status, e.Kind, e.Message)
}

var ErrNoSigner = errors.New("a signing key is required for ledger operations")

type StakingLedgerClient struct {
	httpClient *http.Client
	baseUrl    string
	signer     *requestAuth.Signer
	Logger     *zap.Logger
}

// NewStakingLedgerClient returns a client acting as signer's principal. signer may be nil
// for a read-only client.
func NewStakingLedgerClient(hc *http.Client, baseUrl string, signer *requestAuth.Signer, l *zap.Logger) *StakingLedgerClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &StakingLedgerClient{
		httpClient: hc,
		baseUrl:    strings.TrimSuffix(baseUrl, "/"),
		signer:     signer,
		Logger:     l,
	}
}

// Principal is the address the client acts as, empty for a read-only client.
func (c *StakingLedgerClient) Principal() string {
	if c.signer == nil {
		return ""
	}
	return c.signer.Principal()
}

func (c *StakingLedgerClient) makeRequest(ctx context.Context, method string, path string, query url.Values, body any, out any) error {
	fullUrl := c.baseUrl + path
	if len(query) > 0 {
		fullUrl = fullUrl + "?" + query.Encode()
	}

	var reqBody io.Reader = http.NoBody
	var b []byte
	if body != nil {
		if c.signer == nil {
			return ErrNoSigner
		}
		var err error
		if b, err = json.Marshal(body); err != nil {
			return errors.Wrap(err, "failed to encode request body")
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullUrl, reqBody)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if body != nil {
		if err := c.signer.SignRequest(req, b); err != nil {
			return errors.Wrap(err, "failed to sign request")
		}
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.Logger.Sugar().Errorw("Failed to perform ledger request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer res.Body.Close()

	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		errRes := &rpcTypes.ErrorResponse{}
		if err := json.Unmarshal(bodyBytes, errRes); err != nil || errRes.Error == "" {
			return &ApiError{Status: res.StatusCode, Kind: rpcTypes.ErrorKind_Internal, Message: strings.TrimSpace(string(bodyBytes))}
		}
		return &ApiError{Status: res.StatusCode, Kind: errRes.Error, Message: errRes.Message}
	}

	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return errors.Wrap(err, "failed to decode response body")
	}
	return nil
}

func (c *StakingLedgerClient) Deposit(ctx context.Context, amount string) (*rpcTypes.LedgerEvent, error) {
	event := &rpcTypes.LedgerEvent{}
	err := c.makeRequest(ctx, http.MethodPost, "/v1/ledger/deposit", nil, &rpcTypes.LedgerOperationRequest{Amount: amount}, event)
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (c *StakingLedgerClient) Distribute(ctx context.Context, amount string) (*rpcTypes.LedgerEvent, error) {
	event := &rpcTypes.LedgerEvent{}
	err := c.makeRequest(ctx, http.MethodPost, "/v1/ledger/distribute", nil, &rpcTypes.LedgerOperationRequest{Amount: amount}, event)
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (c *StakingLedgerClient) Withdraw(ctx context.Context) (*rpcTypes.LedgerEvent, error) {
	event := &rpcTypes.LedgerEvent{}
	err := c.makeRequest(ctx, http.MethodPost, "/v1/ledger/withdraw", nil, &rpcTypes.LedgerOperationRequest{}, event)
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (c *StakingLedgerClient) GetDepositor(ctx context.Context, principal string) (*rpcTypes.Depositor, error) {
	depositor := &rpcTypes.Depositor{}
	if err := c.makeRequest(ctx, http.MethodGet, "/v1/ledger/depositors/"+url.PathEscape(principal), nil, nil, depositor); err != nil {
		return nil, err
	}
	return depositor, nil
}

func (c *StakingLedgerClient) GetAmountToWithdraw(ctx context.Context, principal string) (*rpcTypes.AmountToWithdrawResponse, error) {
	res := &rpcTypes.AmountToWithdrawResponse{}
	path := fmt.Sprintf("/v1/ledger/depositors/%s/amount-to-withdraw", url.PathEscape(principal))
	if err := c.makeRequest(ctx, http.MethodGet, path, nil, nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *StakingLedgerClient) ListDepositors(ctx context.Context) ([]*rpcTypes.Depositor, error) {
	depositors := make([]*rpcTypes.Depositor, 0)
	if err := c.makeRequest(ctx, http.MethodGet, "/v1/ledger/depositors", nil, nil, &depositors); err != nil {
		return nil, err
	}
	return depositors, nil
}

func (c *StakingLedgerClient) GetPool(ctx context.Context) (*rpcTypes.Pool, error) {
	pool := &rpcTypes.Pool{}
	if err := c.makeRequest(ctx, http.MethodGet, "/v1/ledger/pool", nil, nil, pool); err != nil {
		return nil, err
	}
	return pool, nil
}

func (c *StakingLedgerClient) ListEvents(ctx context.Context, from uint64, limit int) ([]*rpcTypes.LedgerEvent, error) {
	query := url.Values{}
	query.Set("from", strconv.FormatUint(from, 10))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	res := &rpcTypes.ListEventsResponse{}
	if err := c.makeRequest(ctx, http.MethodGet, "/v1/ledger/events", query, nil, res); err != nil {
		return nil, err
	}
	return res.Events, nil
}

func (c *StakingLedgerClient) GetStateRoot(ctx context.Context) (*rpcTypes.StateRootResponse, error) {
	res := &rpcTypes.StateRootResponse{}
	if err := c.makeRequest(ctx, http.MethodGet, "/v1/ledger/state-root", nil, nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *StakingLedgerClient) GetAccountBalance(ctx context.Context, principal string) (*rpcTypes.AccountBalanceResponse, error) {
	res := &rpcTypes.AccountBalanceResponse{}
	path := fmt.Sprintf("/v1/accounts/%s/balance", url.PathEscape(principal))
	if err := c.makeRequest(ctx, http.MethodGet, path, nil, nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Approve sets the custody allowance of the client's own principal.
func (c *StakingLedgerClient) Approve(ctx context.Context, amount string) (*rpcTypes.AccountBalanceResponse, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	res := &rpcTypes.AccountBalanceResponse{}
	path := fmt.Sprintf("/v1/accounts/%s/approve", url.PathEscape(c.signer.Principal()))
	if err := c.makeRequest(ctx, http.MethodPost, path, nil, &rpcTypes.ApproveRequest{Amount: amount}, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *StakingLedgerClient) Mint(ctx context.Context, principal string, amount string) (*rpcTypes.AccountBalanceResponse, error) {
	res := &rpcTypes.AccountBalanceResponse{}
	req := &rpcTypes.MintRequest{Principal: principal, Amount: amount}
	if err := c.makeRequest(ctx, http.MethodPost, "/v1/accounts/mint", nil, req, res); err != nil {
		return nil, err
	}
	return res, nil
}
