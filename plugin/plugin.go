// Package plugin provides an extensible plugin system for the marketplace
// ledger. Plugins hook into lifecycle and operation events; every hook runs
// after the operation has committed, so a plugin can observe the ledger but
// never veto or partially undo an operation.
package plugin

import (
	"context"

	"github.com/xraph/apimarket/notification"
	"github.com/xraph/apimarket/service"
	"github.com/xraph/apimarket/subscription"
	"github.com/xraph/apimarket/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts. l is the *apimarket.Ledger.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Service hooks
// ──────────────────────────────────────────────────

// OnServiceRegistered is called after a provider lists a new service.
type OnServiceRegistered interface {
	Plugin
	OnServiceRegistered(ctx context.Context, svc *service.Service) error
}

// OnServiceDeactivated is called after a provider delists a service.
type OnServiceDeactivated interface {
	Plugin
	OnServiceDeactivated(ctx context.Context, svc *service.Service) error
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnServiceSubscribed is called after a consumer buys a subscription.
// totalCost is what the consumer paid; platformFee is the part retained.
type OnServiceSubscribed interface {
	Plugin
	OnServiceSubscribed(ctx context.Context, sub *subscription.Subscription, totalCost, platformFee types.Amount) error
}

// OnAPICallMade is called after a call is recorded against a subscription.
type OnAPICallMade interface {
	Plugin
	OnAPICallMade(ctx context.Context, sub *subscription.Subscription) error
}

// ──────────────────────────────────────────────────
// Administration hooks
// ──────────────────────────────────────────────────

// OnPlatformFeeUpdated is called after the owner changes the fee rate.
type OnPlatformFeeUpdated interface {
	Plugin
	OnPlatformFeeUpdated(ctx context.Context, previous, current types.BasisPoints) error
}

// OnFeesWithdrawn is called after the owner withdraws retained fees.
type OnFeesWithdrawn interface {
	Plugin
	OnFeesWithdrawn(ctx context.Context, owner types.Principal, amount types.Amount) error
}

// OnOwnershipTransferred is called after the owner role changes hands.
type OnOwnershipTransferred interface {
	Plugin
	OnOwnershipTransferred(ctx context.Context, previous, current types.Principal) error
}

// ──────────────────────────────────────────────────
// Cross-cutting hooks
// ──────────────────────────────────────────────────

// OnOperationRejected is called when an operation fails and leaves the
// ledger unchanged. op is the operation name.
type OnOperationRejected interface {
	Plugin
	OnOperationRejected(ctx context.Context, op string, err error) error
}

// OnNotification is called with every notification appended to the
// audit trail.
type OnNotification interface {
	Plugin
	OnNotification(ctx context.Context, n notification.Notification) error
}
