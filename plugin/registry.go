package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/apimarket/notification"
	"github.com/xraph/apimarket/service"
	"github.com/xraph/apimarket/subscription"
	"github.com/xraph/apimarket/types"
)

// DefaultTimeout bounds how long a single hook may run.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and dispatches hooks to them.
// Each hook interface is discovered once at registration time.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                 []OnInit
	onShutdown             []OnShutdown
	onServiceRegistered    []OnServiceRegistered
	onServiceDeactivated   []OnServiceDeactivated
	onServiceSubscribed    []OnServiceSubscribed
	onAPICallMade          []OnAPICallMade
	onPlatformFeeUpdated   []OnPlatformFeeUpdated
	onFeesWithdrawn        []OnFeesWithdrawn
	onOwnershipTransferred []OnOwnershipTransferred
	onOperationRejected    []OnOperationRejected
	onNotification         []OnNotification
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnServiceRegistered); ok {
		r.onServiceRegistered = append(r.onServiceRegistered, v)
		hooks = append(hooks, "OnServiceRegistered")
	}
	if v, ok := p.(OnServiceDeactivated); ok {
		r.onServiceDeactivated = append(r.onServiceDeactivated, v)
		hooks = append(hooks, "OnServiceDeactivated")
	}
	if v, ok := p.(OnServiceSubscribed); ok {
		r.onServiceSubscribed = append(r.onServiceSubscribed, v)
		hooks = append(hooks, "OnServiceSubscribed")
	}
	if v, ok := p.(OnAPICallMade); ok {
		r.onAPICallMade = append(r.onAPICallMade, v)
		hooks = append(hooks, "OnAPICallMade")
	}
	if v, ok := p.(OnPlatformFeeUpdated); ok {
		r.onPlatformFeeUpdated = append(r.onPlatformFeeUpdated, v)
		hooks = append(hooks, "OnPlatformFeeUpdated")
	}
	if v, ok := p.(OnFeesWithdrawn); ok {
		r.onFeesWithdrawn = append(r.onFeesWithdrawn, v)
		hooks = append(hooks, "OnFeesWithdrawn")
	}
	if v, ok := p.(OnOwnershipTransferred); ok {
		r.onOwnershipTransferred = append(r.onOwnershipTransferred, v)
		hooks = append(hooks, "OnOwnershipTransferred")
	}
	if v, ok := p.(OnOperationRejected); ok {
		r.onOperationRejected = append(r.onOperationRejected, v)
		hooks = append(hooks, "OnOperationRejected")
	}
	if v, ok := p.(OnNotification); ok {
		r.onNotification = append(r.onNotification, v)
		hooks = append(hooks, "OnNotification")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l any) {
	emit(ctx, r, "OnInit", &r.onInit, func(p OnInit) error {
		return p.OnInit(ctx, l)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", &r.onShutdown, func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitServiceRegistered emits a service registered event.
func (r *Registry) EmitServiceRegistered(ctx context.Context, svc *service.Service) {
	emit(ctx, r, "OnServiceRegistered", &r.onServiceRegistered, func(p OnServiceRegistered) error {
		return p.OnServiceRegistered(ctx, svc.Clone())
	})
}

// EmitServiceDeactivated emits a service deactivated event.
func (r *Registry) EmitServiceDeactivated(ctx context.Context, svc *service.Service) {
	emit(ctx, r, "OnServiceDeactivated", &r.onServiceDeactivated, func(p OnServiceDeactivated) error {
		return p.OnServiceDeactivated(ctx, svc.Clone())
	})
}

// EmitServiceSubscribed emits a subscription purchased event.
func (r *Registry) EmitServiceSubscribed(ctx context.Context, sub *subscription.Subscription, totalCost, platformFee types.Amount) {
	emit(ctx, r, "OnServiceSubscribed", &r.onServiceSubscribed, func(p OnServiceSubscribed) error {
		return p.OnServiceSubscribed(ctx, sub.Clone(), totalCost, platformFee)
	})
}

// EmitAPICallMade emits an API call event.
func (r *Registry) EmitAPICallMade(ctx context.Context, sub *subscription.Subscription) {
	emit(ctx, r, "OnAPICallMade", &r.onAPICallMade, func(p OnAPICallMade) error {
		return p.OnAPICallMade(ctx, sub.Clone())
	})
}

// EmitPlatformFeeUpdated emits a fee change event.
func (r *Registry) EmitPlatformFeeUpdated(ctx context.Context, previous, current types.BasisPoints) {
	emit(ctx, r, "OnPlatformFeeUpdated", &r.onPlatformFeeUpdated, func(p OnPlatformFeeUpdated) error {
		return p.OnPlatformFeeUpdated(ctx, previous, current)
	})
}

// EmitFeesWithdrawn emits a fee withdrawal event.
func (r *Registry) EmitFeesWithdrawn(ctx context.Context, owner types.Principal, amount types.Amount) {
	emit(ctx, r, "OnFeesWithdrawn", &r.onFeesWithdrawn, func(p OnFeesWithdrawn) error {
		return p.OnFeesWithdrawn(ctx, owner, amount)
	})
}

// EmitOwnershipTransferred emits an ownership change event.
func (r *Registry) EmitOwnershipTransferred(ctx context.Context, previous, current types.Principal) {
	emit(ctx, r, "OnOwnershipTransferred", &r.onOwnershipTransferred, func(p OnOwnershipTransferred) error {
		return p.OnOwnershipTransferred(ctx, previous, current)
	})
}

// EmitOperationRejected emits a failed operation event.
func (r *Registry) EmitOperationRejected(ctx context.Context, op string, opErr error) {
	emit(ctx, r, "OnOperationRejected", &r.onOperationRejected, func(p OnOperationRejected) error {
		return p.OnOperationRejected(ctx, op, opErr)
	})
}

// EmitNotification emits an audit trail entry.
func (r *Registry) EmitNotification(ctx context.Context, n notification.Notification) {
	emit(ctx, r, "OnNotification", &r.onNotification, func(p OnNotification) error {
		return p.OnNotification(ctx, n)
	})
}

// emit runs fn for every plugin in the cached list. Failures are logged
// and never reach the caller.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, list *[]T, fn func(T) error) {
	r.mu.RLock()
	plugins := *list
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
