package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Principal is an authenticated caller identity: a provider, a consumer or
// the ledger owner. The ledger treats principals as opaque and compares them
// by equality; the transport that authenticates a caller decides the format.
// Hex account addresses should go through ParseAddress so that the same
// account always yields the same principal.
type Principal string

// zeroAddress is the all-zero account, which is never a valid principal.
var zeroAddress = Principal(common.Address{}.Hex())

// ParseAddress normalises a hex account address into its checksummed form.
func ParseAddress(s string) (Principal, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("types: %q is not a hex address", s)
	}
	return Principal(common.HexToAddress(s).Hex()), nil
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(s string) Principal {
	p, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return p
}

// IsZero reports whether p is the null identity: empty, blank, or the
// all-zero address.
func (p Principal) IsZero() bool {
	trimmed := strings.TrimSpace(string(p))
	if trimmed == "" {
		return true
	}
	if common.IsHexAddress(trimmed) {
		return Principal(common.HexToAddress(trimmed).Hex()) == zeroAddress
	}
	return false
}

// String returns the principal as given.
func (p Principal) String() string { return string(p) }
