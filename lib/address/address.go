// Package address validates and normalizes EVM account addresses.
package address

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsValid returns true if s is a 20-byte hex address, with or without the 0x prefix. All-lowercase and
// all-uppercase hex are accepted; mixed case must match the EIP-55 checksum.
func IsValid(s string) bool {
	if !common.IsHexAddress(s) {
		return false
	}

	h := s
	if len(h) == 2*common.AddressLength+2 {
		h = h[2:]
	}

	if h == strings.ToLower(h) || h == strings.ToUpper(h) {
		return true
	}

	return common.HexToAddress(s).Hex()[2:] == h
}

// Normalize returns the address for s when IsValid(s). Use Hex() on it for the checksummed form.
func Normalize(s string) (common.Address, bool) {
	if !IsValid(s) {
		return common.Address{}, false
	}

	return common.HexToAddress(s), true
}

// Checksum returns the EIP-55 form of s, or an empty string if s is not valid.
func Checksum(s string) string {
	a, ok := Normalize(s)
	if !ok {
		return ""
	}

	return a.Hex()
}
