// Package observability provides a metrics extension for the marketplace
// ledger that records operation counts and payment volumes through a
// MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/apimarket"
	"github.com/xraph/apimarket/plugin"
	"github.com/xraph/apimarket/service"
	"github.com/xraph/apimarket/subscription"
	"github.com/xraph/apimarket/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnServiceRegistered    = (*MetricsExtension)(nil)
	_ plugin.OnServiceDeactivated   = (*MetricsExtension)(nil)
	_ plugin.OnServiceSubscribed    = (*MetricsExtension)(nil)
	_ plugin.OnAPICallMade          = (*MetricsExtension)(nil)
	_ plugin.OnPlatformFeeUpdated   = (*MetricsExtension)(nil)
	_ plugin.OnFeesWithdrawn        = (*MetricsExtension)(nil)
	_ plugin.OnOwnershipTransferred = (*MetricsExtension)(nil)
	_ plugin.OnOperationRejected    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records marketplace metrics.
// Register it as a ledger plugin to track catalog, usage and payment volume.
type MetricsExtension struct {
	factory MetricFactory

	// Catalog metrics
	ServiceRegistered  Counter
	ServiceDeactivated Counter

	// Subscription metrics
	SubscriptionCreated    Counter
	SubscriptionCalls      Histogram
	SubscriptionCost       Histogram
	PlatformFeeCollected   Counter
	SubscriptionsExhausted Counter
	APICallsMade           Counter

	// Administrative metrics
	PlatformFeeUpdated   Counter
	PlatformFeeRate      Histogram
	FeesWithdrawn        Counter
	FeesWithdrawnAmount  Histogram
	OwnershipTransferred Counter

	// Error metrics
	OperationRejected Counter
	TransferFailures  Counter
	StoreErrors       Counter
	Unauthorized      Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions, or NewPrometheusFactory standalone.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		ServiceRegistered:  factory.Counter("apimarket.service.registered"),
		ServiceDeactivated: factory.Counter("apimarket.service.deactivated"),

		SubscriptionCreated:    factory.Counter("apimarket.subscription.created"),
		SubscriptionCalls:      factory.Histogram("apimarket.subscription.calls_purchased"),
		SubscriptionCost:       factory.Histogram("apimarket.subscription.total_cost"),
		PlatformFeeCollected:   factory.Counter("apimarket.platform_fee.collected"),
		SubscriptionsExhausted: factory.Counter("apimarket.subscription.exhausted"),
		APICallsMade:           factory.Counter("apimarket.api_call.made"),

		PlatformFeeUpdated:   factory.Counter("apimarket.platform_fee.updated"),
		PlatformFeeRate:      factory.Histogram("apimarket.platform_fee.rate_bps"),
		FeesWithdrawn:        factory.Counter("apimarket.platform_fees.withdrawn"),
		FeesWithdrawnAmount:  factory.Histogram("apimarket.platform_fees.withdrawn_amount"),
		OwnershipTransferred: factory.Counter("apimarket.ownership.transferred"),

		OperationRejected: factory.Counter("apimarket.operation.rejected"),
		TransferFailures:  factory.Counter("apimarket.transfer.failures"),
		StoreErrors:       factory.Counter("apimarket.store.errors"),
		Unauthorized:      factory.Counter("apimarket.operation.unauthorized"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Catalog hooks
// ──────────────────────────────────────────────────

// OnServiceRegistered implements plugin.OnServiceRegistered.
func (m *MetricsExtension) OnServiceRegistered(_ context.Context, _ *service.Service) error {
	m.ServiceRegistered.Inc()
	return nil
}

// OnServiceDeactivated implements plugin.OnServiceDeactivated.
func (m *MetricsExtension) OnServiceDeactivated(_ context.Context, _ *service.Service) error {
	m.ServiceDeactivated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnServiceSubscribed implements plugin.OnServiceSubscribed.
func (m *MetricsExtension) OnServiceSubscribed(_ context.Context, sub *subscription.Subscription, totalCost, platformFee types.Amount) error {
	m.SubscriptionCreated.Inc()
	m.SubscriptionCalls.Observe(float64(sub.CallsPurchased))
	m.SubscriptionCost.Observe(float64(totalCost))
	m.PlatformFeeCollected.Add(float64(platformFee))
	return nil
}

// OnAPICallMade implements plugin.OnAPICallMade.
func (m *MetricsExtension) OnAPICallMade(_ context.Context, sub *subscription.Subscription) error {
	m.APICallsMade.Inc()
	if sub.Exhausted() {
		m.SubscriptionsExhausted.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnPlatformFeeUpdated implements plugin.OnPlatformFeeUpdated.
func (m *MetricsExtension) OnPlatformFeeUpdated(_ context.Context, _, current types.BasisPoints) error {
	m.PlatformFeeUpdated.Inc()
	m.PlatformFeeRate.Observe(float64(current))
	return nil
}

// OnFeesWithdrawn implements plugin.OnFeesWithdrawn.
func (m *MetricsExtension) OnFeesWithdrawn(_ context.Context, _ types.Principal, amount types.Amount) error {
	m.FeesWithdrawn.Inc()
	m.FeesWithdrawnAmount.Observe(float64(amount))
	return nil
}

// OnOwnershipTransferred implements plugin.OnOwnershipTransferred.
func (m *MetricsExtension) OnOwnershipTransferred(_ context.Context, _, _ types.Principal) error {
	m.OwnershipTransferred.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Failures
// ──────────────────────────────────────────────────

// OnOperationRejected implements plugin.OnOperationRejected.
func (m *MetricsExtension) OnOperationRejected(_ context.Context, _ string, err error) error {
	m.OperationRejected.Inc()
	switch apimarket.KindOf(err) {
	case apimarket.KindTransferFailed:
		m.TransferFailures.Inc()
	case apimarket.KindUnauthorized:
		m.Unauthorized.Inc()
	case apimarket.KindInternal:
		m.StoreErrors.Inc()
	}
	return nil
}
