package rewardLedger

import (
	"context"

	"github.com/Layr-Labs/staking-ledger/pkg/utils"
)

// AccessGate decides whether a caller may distribute rewards.
type AccessGate interface {
	IsAuthorized(ctx context.Context, caller string) bool
}

// SingleAdminGate authorizes exactly one administrator principal.
type SingleAdminGate struct {
	admin string
}

func NewSingleAdminGate(admin string) (*SingleAdminGate, error) {
	normalized, err := utils.NormalizePrincipal(admin)
	if err != nil {
		return nil, err
	}
	return &SingleAdminGate{admin: normalized}, nil
}

func (g *SingleAdminGate) IsAuthorized(ctx context.Context, caller string) bool {
	return utils.AreAddressesEqual(g.admin, caller)
}

func (g *SingleAdminGate) Admin() string {
	return g.admin
}
