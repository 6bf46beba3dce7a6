package observability_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/apimarket"
	"github.com/xraph/apimarket/observability"
	"github.com/xraph/apimarket/store/memory"
)

type counter struct {
	mu sync.Mutex
	n  float64
}

func (c *counter) Inc()          { c.Add(1) }
func (c *counter) Add(v float64) { c.mu.Lock(); c.n += v; c.mu.Unlock() }
func (c *counter) Observe(v float64) {
	c.Add(v)
}

func (c *counter) value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type fakeFactory struct {
	mu      sync.Mutex
	metrics map[string]*counter
}

func (f *fakeFactory) get(name string) *counter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metrics == nil {
		f.metrics = make(map[string]*counter)
	}
	c, ok := f.metrics[name]
	if !ok {
		c = &counter{}
		f.metrics[name] = c
	}
	return c
}

func (f *fakeFactory) Counter(name string) observability.Counter     { return f.get(name) }
func (f *fakeFactory) Histogram(name string) observability.Histogram { return f.get(name) }

func startLedger(t *testing.T, m *observability.MetricsExtension) (context.Context, *apimarket.Ledger) {
	t.Helper()
	ctx := context.Background()
	l := apimarket.New(memory.New(),
		apimarket.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		apimarket.WithOwner("owner"),
		apimarket.WithPlugin(m),
	)
	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return ctx, l
}

func TestMetricsExtension(t *testing.T) {
	factory := &fakeFactory{}
	ctx, l := startLedger(t, observability.NewMetricsExtension(factory))

	sid, err := l.RegisterService(ctx, "provider", "weather", "", 100)
	if err != nil {
		t.Fatalf("RegisterService: %v", err)
	}
	subID, err := l.SubscribeToService(ctx, "consumer", sid, 2, 30, 200)
	if err != nil {
		t.Fatalf("SubscribeToService: %v", err)
	}
	for range 2 {
		if _, err := l.MakeAPICall(ctx, "consumer", subID); err != nil {
			t.Fatalf("MakeAPICall: %v", err)
		}
	}
	if _, err := l.MakeAPICall(ctx, "consumer", subID); err == nil {
		t.Fatal("expected exhausted subscription to be rejected")
	}
	if err := l.UpdatePlatformFee(ctx, "mallory", 10); err == nil {
		t.Fatal("expected unauthorized fee update to be rejected")
	}

	tests := []struct {
		metric string
		want   float64
	}{
		{"apimarket.service.registered", 1},
		{"apimarket.subscription.created", 1},
		{"apimarket.subscription.total_cost", 200},
		{"apimarket.platform_fee.collected", 5},
		{"apimarket.api_call.made", 2},
		{"apimarket.subscription.exhausted", 1},
		{"apimarket.operation.rejected", 2},
		{"apimarket.operation.unauthorized", 1},
		{"apimarket.transfer.failures", 0},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			if got := factory.get(tt.metric).value(); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.metric, got, tt.want)
			}
		})
	}
}

func TestPrometheusFactory(t *testing.T) {
	reg := prometheus.NewRegistry()
	factory := observability.NewPrometheusFactory(reg)

	a := factory.Counter("apimarket.api_call.made")
	b := factory.Counter("apimarket.api_call.made")
	a.Inc()
	b.Add(2)

	c, ok := a.(prometheus.Counter)
	if !ok {
		t.Fatalf("counter is %T, want prometheus.Counter", a)
	}
	if got := testutil.ToFloat64(c); got != 3 {
		t.Errorf("counter = %v, want 3", got)
	}

	factory.Histogram("apimarket.subscription.total_cost").Observe(1000)

	names := map[string]bool{}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{"apimarket_api_call_made", "apimarket_subscription_total_cost"} {
		if !names[want] {
			t.Errorf("metric %s not registered; have %v", want, names)
		}
	}
}

func TestPrometheusFactoryWiresExtension(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))
	ctx, l := startLedger(t, m)

	if _, err := l.RegisterService(ctx, "provider", "weather", "", 100); err != nil {
		t.Fatalf("RegisterService: %v", err)
	}
	if got := testutil.ToFloat64(m.ServiceRegistered.(prometheus.Counter)); got != 1 {
		t.Errorf("service registered = %v, want 1", got)
	}
}
