package rewardLedger

import (
	"errors"
)

var (
	ErrInvalidAmount    = errors.New("amount must be greater than zero and within range")
	ErrInvalidPrincipal = errors.New("invalid principal")
	ErrAlreadyStaked    = errors.New("principal already has an active deposit")
	ErrNoActiveDeposit  = errors.New("principal has no active deposit")
	ErrUnauthorized     = errors.New("caller is not authorized")
	ErrNoStakers        = errors.New("cannot distribute rewards while nothing is staked")
	ErrTransferFailed   = errors.New("value transfer failed")
	ErrReentrantCall    = errors.New("reentrant ledger call")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrInvalidPrincipal, "InvalidPrincipal"},
	{ErrAlreadyStaked, "AlreadyStaked"},
	{ErrNoActiveDeposit, "NoActiveDeposit"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrNoStakers, "NoStakers"},
	{ErrTransferFailed, "TransferFailed"},
	{ErrReentrantCall, "ReentrantCall"},
}

// ErrorKind returns the name of the ledger error wrapped by err, or "Internal".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}
