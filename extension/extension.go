// Package extension provides the Forge extension adapter for the API
// marketplace ledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.apimarket" or
// "apimarket" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/apimarket"
	"github.com/xraph/apimarket/store"
	"github.com/xraph/apimarket/store/memory"
	"github.com/xraph/apimarket/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "apimarket"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Prepaid API marketplace ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the marketplace ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	ledger     *apimarket.Ledger
	store      store.Store
	ledgerOpts []apimarket.Option
}

// New creates a new marketplace Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Ledger() *apimarket.Ledger { return e.ledger }

// Config returns the resolved configuration.
func (e *Extension) Config() Config { return e.config }

// Register implements [forge.Extension]. It loads configuration,
// builds the ledger, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	e.ledger = apimarket.New(e.store, e.buildLedgerOpts()...)

	return vessel.Provide(fapp.Container(), func() (*apimarket.Ledger, error) {
		return e.ledger, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.ledger == nil {
		return errors.New("apimarket: extension not initialized")
	}

	if err := e.ledger.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(ctx context.Context) error {
	defer e.MarkStopped()
	if e.ledger == nil {
		return nil
	}
	return e.ledger.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.ledger == nil {
		return errors.New("apimarket: ledger not initialized")
	}
	return e.ledger.Ping(ctx)
}

// buildLedgerOpts constructs apimarket.Option values from the resolved config.
// Pass-through options come last so they win over config.
func (e *Extension) buildLedgerOpts() []apimarket.Option {
	opts := make([]apimarket.Option, 0, len(e.ledgerOpts)+3)

	if e.config.Owner != "" {
		opts = append(opts, apimarket.WithOwner(types.Principal(e.config.Owner)))
	}
	opts = append(opts, apimarket.WithPlatformFee(types.BasisPoints(e.config.PlatformFeeBps)))
	if e.config.DisableMigrate {
		opts = append(opts, apimarket.WithoutMigrate())
	}

	return append(opts, e.ledgerOpts...)
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("apimarket: configuration is required but not found in config files; " +
				"ensure 'extensions.apimarket' or 'apimarket' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("apimarket: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("owner", e.config.Owner),
		forge.F("platform_fee_bps", e.config.PlatformFeeBps),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.apimarket", "apimarket"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("apimarket: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("apimarket: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	if cfg.PlatformFeeBps == 0 {
		cfg.PlatformFeeBps = DefaultConfig().PlatformFeeBps
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if yamlConfig.Owner == "" {
		yamlConfig.Owner = programmaticConfig.Owner
	}
	if yamlConfig.PlatformFeeBps == 0 {
		yamlConfig.PlatformFeeBps = programmaticConfig.PlatformFeeBps
	}
	return mergeWithDefaults(yamlConfig)
}
