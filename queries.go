package apimarket

import (
	"context"

	"github.com/xraph/apimarket/id"
	"github.com/xraph/apimarket/notification"
	"github.com/xraph/apimarket/service"
	"github.com/xraph/apimarket/subscription"
	"github.com/xraph/apimarket/types"
)

// GetService returns a copy of the service with the given id.
func (l *Ledger) GetService(_ context.Context, serviceID id.ServiceID) (*service.Service, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	svc, ok := l.services[serviceID]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return svc.Clone(), nil
}

// GetSubscription returns a copy of the subscription with the given id.
func (l *Ledger) GetSubscription(_ context.Context, subscriptionID id.SubscriptionID) (*subscription.Subscription, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sub, ok := l.subscriptions[subscriptionID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return sub.Clone(), nil
}

// ServicesByProvider returns the ids of the services provider registered,
// in registration order. A provider with none gets an empty list.
func (l *Ledger) ServicesByProvider(_ context.Context, provider types.Principal) []id.ServiceID {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]id.ServiceID{}, l.byProvider[provider]...)
}

// SubscriptionsByConsumer returns the ids of the subscriptions consumer
// bought, in purchase order.
func (l *Ledger) SubscriptionsByConsumer(_ context.Context, consumer types.Principal) []id.SubscriptionID {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]id.SubscriptionID{}, l.byConsumer[consumer]...)
}

// QuoteSubscription prices callCount calls on a service at the current fee
// rate without buying anything.
func (l *Ledger) QuoteSubscription(_ context.Context, serviceID id.ServiceID, callCount uint64) (Quote, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	svc, ok := l.services[serviceID]
	if !ok {
		return Quote{}, ErrServiceNotFound
	}
	if callCount == 0 {
		return Quote{}, invalid("call_count", ErrInvalidCallCount, "must be positive")
	}
	return quote(svc.PricePerCall, callCount, l.state.PlatformFee)
}

// Owner returns the current owner.
func (l *Ledger) Owner() types.Principal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Owner
}

// PlatformFee returns the current fee rate.
func (l *Ledger) PlatformFee() types.BasisPoints {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.PlatformFee
}

// RetainedBalance returns the platform fees collected and not yet withdrawn.
func (l *Ledger) RetainedBalance() types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Retained
}

// Notifications returns up to limit audit entries after the given sequence
// number, oldest first. Pass 0 to read from the beginning.
func (l *Ledger) Notifications(afterSeq uint64, limit int) []notification.Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.notifications.Since(afterSeq, limit)
}
