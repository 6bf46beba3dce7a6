package apimarket

import "github.com/xraph/apimarket/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// BasisPoints is re-exported from types package.
type BasisPoints = types.BasisPoints

// Principal is re-exported from types package.
type Principal = types.Principal

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export constructors.
var (
	NewEntity        = types.NewEntity
	ParseAddress     = types.ParseAddress
	MustParseAddress = types.MustParseAddress
)
