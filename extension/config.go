package extension

import "github.com/xraph/apimarket"

// Config holds the marketplace extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.apimarket" or "apimarket" keys).
type Config struct {
	// DisableMigrate skips store migration on start. The ledger is still
	// started and its journal replayed.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Owner is the genesis owner. It is only used when the store holds no
	// history yet; afterwards ownership comes from the journal.
	Owner string `json:"owner" mapstructure:"owner" yaml:"owner"`

	// PlatformFeeBps is the genesis platform fee in basis points
	// (default: 250, at most 1000).
	PlatformFeeBps uint32 `json:"platform_fee_bps" mapstructure:"platform_fee_bps" yaml:"platform_fee_bps"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PlatformFeeBps: uint32(apimarket.DefaultPlatformFee),
	}
}
