package rpcTypes

import "time"

// Amounts are base-10 integer strings so values up to 2^256-1 survive JSON.

// LedgerOperationRequest is the body of deposit, distribute and withdraw. The caller is the
// principal that signed the request, never a body field.
type LedgerOperationRequest struct {
	Amount string `json:"amount,omitempty"`
}

type LedgerEvent struct {
	Sequence          uint64    `json:"sequence"`
	Kind              string    `json:"kind"`
	Principal         string    `json:"principal"`
	Amount            string    `json:"amount"`
	Payout            string    `json:"payout"`
	Dust              string    `json:"dust"`
	AccRewardPerShare string    `json:"accRewardPerShare"`
	TotalStaked       string    `json:"totalStaked"`
	DepositorCount    uint64    `json:"depositorCount"`
	CreatedAt         time.Time `json:"createdAt"`
}

type ListEventsResponse struct {
	Events []*LedgerEvent `json:"events"`
}

type Depositor struct {
	Principal        string `json:"principal"`
	Balance          string `json:"balance"`
	RewardDebt       string `json:"rewardDebt"`
	PendingReward    string `json:"pendingReward"`
	AmountToWithdraw string `json:"amountToWithdraw"`
	ShareOfPool      string `json:"shareOfPool"`
}

type AmountToWithdrawResponse struct {
	Principal string `json:"principal"`
	Amount    string `json:"amount"`
}

type Pool struct {
	TotalStaked       string `json:"totalStaked"`
	AccRewardPerShare string `json:"accRewardPerShare"`
	Sequence          uint64 `json:"sequence"`
	DepositorCount    uint64 `json:"depositorCount"`
}

type StateRootResponse struct {
	Sequence  uint64 `json:"sequence"`
	StateRoot string `json:"stateRoot"`
}

type AccountBalanceResponse struct {
	Principal string `json:"principal"`
	Balance   string `json:"balance"`
	Allowance string `json:"allowance"`
}

type ApproveRequest struct {
	Amount string `json:"amount"`
}

type MintRequest struct {
	Principal string `json:"principal"`
	Amount    string `json:"amount"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ReadyResponse struct {
	Ready bool `json:"ready"`
}

const (
	RequestIdHeader = "X-Request-Id"

	ErrorKind_BadRequest            = "BadRequest"
	ErrorKind_Unauthenticated       = "Unauthenticated"
	ErrorKind_NotFound              = "NotFound"
	ErrorKind_InsufficientBalance   = "InsufficientBalance"
	ErrorKind_InsufficientAllowance = "InsufficientAllowance"
	ErrorKind_Internal              = "Internal"
)
