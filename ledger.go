package apimarket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xraph/apimarket/funds"
	"github.com/xraph/apimarket/id"
	"github.com/xraph/apimarket/notification"
	"github.com/xraph/apimarket/plugin"
	"github.com/xraph/apimarket/service"
	"github.com/xraph/apimarket/store"
	"github.com/xraph/apimarket/subscription"
	"github.com/xraph/apimarket/types"
)

// MaxPlatformFee is the ceiling on the platform fee rate (10%).
const MaxPlatformFee types.BasisPoints = 1000

// DefaultPlatformFee is the fee rate of a fresh ledger (2.5%).
const DefaultPlatformFee types.BasisPoints = 250

// Ledger is the marketplace aggregate. It owns every service and
// subscription record, the provider and consumer indexes, and the
// ledger-wide scalars. Mutating operations are serialised by a single lock
// and either apply completely or leave the ledger untouched.
type Ledger struct {
	store   store.Store
	settler funds.Settler
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   Clock

	// Genesis values, used only when the journal is empty.
	genesisOwner types.Principal
	genesisFee   types.BasisPoints
	skipMigrate  bool

	mu            sync.RWMutex
	started       bool
	seq           uint64
	state         store.State
	services      map[id.ServiceID]*service.Service
	subscriptions map[id.SubscriptionID]*subscription.Subscription
	byProvider    map[types.Principal][]id.ServiceID
	byConsumer    map[types.Principal][]id.SubscriptionID
	notifications notification.Log
}

// New creates a new Ledger backed by s. The ledger is unusable until Start
// has loaded its state.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:      s,
		plugins:    plugin.NewRegistry(),
		logger:     slog.Default(),
		clock:      SystemClock{},
		genesisFee: DefaultPlatformFee,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.settler == nil {
		l.settler = funds.NewBook()
	}

	l.reset()
	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithSettler sets where payouts are sent. Defaults to an in-memory
// funds.Book.
func WithSettler(s funds.Settler) Option {
	return func(l *Ledger) {
		l.settler = s
	}
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithOwner sets the owner of a fresh ledger. Ignored once the journal
// holds any commit, since ownership is then part of the ledger state.
func WithOwner(owner types.Principal) Option {
	return func(l *Ledger) {
		l.genesisOwner = owner
	}
}

// WithPlatformFee sets the fee rate of a fresh ledger. Ignored once the
// journal holds any commit.
func WithPlatformFee(bps types.BasisPoints) Option {
	return func(l *Ledger) {
		l.genesisFee = bps
	}
}

// WithoutMigrate makes Start skip store migration, for schemas managed
// out of band.
func WithoutMigrate() Option {
	return func(l *Ledger) { l.skipMigrate = true }
}

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Settler returns the settler payouts go through.
func (l *Ledger) Settler() funds.Settler { return l.settler }

// Start migrates the store, rebuilds the ledger state from its journal and
// initialises plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if !l.skipMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			return fmt.Errorf("apimarket: migrate: %w", err)
		}
	}

	snap, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("apimarket: load: %w", err)
	}

	l.mu.Lock()
	if err := l.restore(snap); err != nil {
		l.mu.Unlock()
		return err
	}
	l.started = true
	seq, owner, fee := l.seq, l.state.Owner, l.state.PlatformFee
	services, subs := len(l.services), len(l.subscriptions)
	l.mu.Unlock()

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("apimarket ledger started",
		"seq", seq,
		"owner", owner,
		"platform_fee", fee,
		"platform_fee_percent", fee.Percent().String(),
		"services", services,
		"subscriptions", subs,
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (l *Ledger) Stop(ctx context.Context) error {
	l.mu.Lock()
	l.started = false
	l.mu.Unlock()

	l.plugins.EmitShutdown(ctx)

	l.logger.Info("apimarket ledger stopped")
	return l.store.Close()
}

// Ping checks that the ledger is started and its store reachable.
func (l *Ledger) Ping(ctx context.Context) error {
	l.mu.RLock()
	started := l.started
	l.mu.RUnlock()

	if !started {
		return ErrStoreNotReady
	}
	return l.store.Ping(ctx)
}

func (l *Ledger) reset() {
	l.seq = 0
	l.state = store.State{}
	l.services = make(map[id.ServiceID]*service.Service)
	l.subscriptions = make(map[id.SubscriptionID]*subscription.Subscription)
	l.byProvider = make(map[types.Principal][]id.ServiceID)
	l.byConsumer = make(map[types.Principal][]id.SubscriptionID)
	l.notifications = notification.Log{}
}

// restore replaces the in-memory state with snap. An empty snapshot yields
// a fresh ledger built from the genesis options.
func (l *Ledger) restore(snap *store.Snapshot) error {
	l.reset()

	if snap.Seq == 0 {
		if l.genesisOwner.IsZero() {
			return invalid("owner", ErrZeroPrincipal, "a fresh ledger needs an owner")
		}
		if l.genesisFee > MaxPlatformFee {
			return invalid("platform_fee", ErrFeeTooHigh, fmt.Sprintf("%s exceeds %s", l.genesisFee, MaxPlatformFee))
		}
		l.state = store.State{
			Owner:              l.genesisOwner,
			PlatformFee:        l.genesisFee,
			NextServiceID:      1,
			NextSubscriptionID: 1,
		}
		return nil
	}

	l.seq = snap.Seq
	l.state = snap.State
	for _, sid := range snap.ServiceIDs() {
		svc := snap.Services[sid]
		l.services[sid] = svc.Clone()
		l.byProvider[svc.Provider] = append(l.byProvider[svc.Provider], sid)
	}
	for _, sid := range snap.SubscriptionIDs() {
		sub := snap.Subscriptions[sid]
		l.subscriptions[sid] = sub.Clone()
		l.byConsumer[sub.Consumer] = append(l.byConsumer[sub.Consumer], sid)
	}
	l.notifications.Restore(snap.Notifications...)

	if !l.genesisOwner.IsZero() && l.genesisOwner != l.state.Owner {
		l.logger.Debug("configured owner ignored, journal holds ownership",
			"configured", l.genesisOwner,
			"owner", l.state.Owner,
		)
	}
	return nil
}
