package tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_TestKeys(t *testing.T) {
	t.Run("Should sign as the configured admin principal", func(t *testing.T) {
		assert.Equal(t, TestAdminPrincipal, GetSigner(TestAdminPrivateKey).Principal())
		assert.Equal(t, TestAdminPrincipal, GetConfig().LedgerConfig.AdminPrincipal)
	})
	t.Run("Should give every user key a distinct principal", func(t *testing.T) {
		seen := map[string]bool{TestAdminPrincipal: true}
		for _, k := range TestUserPrivateKeys {
			p := GetSigner(k).Principal()
			assert.False(t, seen[p])
			seen[p] = true
		}
	})
}
