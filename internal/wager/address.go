package wager

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned for caller identities that are not EVM addresses.
var ErrInvalidAddress = errors.New("invalid wallet address")

// NormalizeAddress validates a caller wallet address and returns it in
// EIP-55 checksum form. An empty address is returned as-is.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", nil
	}
	if !common.IsHexAddress(addr) {
		return "", ErrInvalidAddress
	}
	return common.HexToAddress(addr).Hex(), nil
}
