package utils

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	NullEthereumAddress    = "0000000000000000000000000000000000000000"
	NullEthereumAddressHex = fmt.Sprintf("0x%s", NullEthereumAddress)
)

func AreAddressesEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

func ConvertBytesToString(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// NormalizePrincipal validates a principal address and returns its lower-cased, 0x-prefixed form.
func NormalizePrincipal(principal string) (string, error) {
	principal = strings.TrimSpace(principal)
	if !common.IsHexAddress(principal) {
		return "", fmt.Errorf("'%s' is not a valid address", principal)
	}
	normalized := strings.ToLower(common.HexToAddress(principal).Hex())
	if normalized == NullEthereumAddressHex {
		return "", fmt.Errorf("the null address is not a valid principal")
	}
	return normalized, nil
}
