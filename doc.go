// Package apimarket provides the ledger of a prepaid API marketplace.
//
// Providers list priced services. Consumers buy a bounded number of calls on
// a service, valid for a number of days, and every call is metered one at a
// time against that subscription. The platform keeps a flat percentage of
// each sale, which its owner withdraws later.
//
// apimarket is a library, not a service. Import it and put whatever
// transport authenticates your callers in front of it.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/apimarket"
//	    "github.com/xraph/apimarket/store/memory"
//	)
//
//	l := apimarket.New(memory.New(),
//	    apimarket.WithOwner("0xOwner..."),
//	    apimarket.WithPlatformFee(250), // 2.5%
//	)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop(ctx)
//
//	svcID, _ := l.RegisterService(ctx, provider, "geocode", "Forward geocoding", 100)
//	subID, _ := l.SubscribeToService(ctx, consumer, svcID, 10, 30, 1000)
//	left, err := l.MakeAPICall(ctx, consumer, subID)
//
// # Atomicity
//
// Every mutating operation runs under one ledger-wide lock and is staged
// before anything becomes visible. Payouts (the provider's share of a sale,
// an overpayment refund, a fee withdrawal) go to a funds.Settler as one
// batch; if the batch is refused the operation fails and the ledger is
// exactly as it was, id counters included. The changeset is then journaled
// by the store. A journal failure reverses the payouts when the settler is
// a funds.Reverser.
//
// # Errors
//
// Every error wraps one kind: ErrNotFound, ErrUnauthorized, ErrInvalidInput,
// ErrInactive, ErrInsufficientFunds, ErrSubscriptionExpired or
// ErrSubscriptionExhausted. Use errors.Is or KindOf.
//
// # Audit trail
//
// Each successful mutation appends exactly one notification.Notification,
// readable through Ledger.Notifications and delivered to plugins
// implementing plugin.OnNotification. Failed operations leave no entry.
//
// # Persistence
//
// Stores live under store/: memory for tests, and sqlite, postgres and
// mongo through grove. Start replays the store's journal to rebuild the
// ledger.
package apimarket
