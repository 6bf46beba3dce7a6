package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/apimarket/notification"
	"github.com/xraph/apimarket/service"
	"github.com/xraph/apimarket/types"
)

type recorder struct {
	name string

	mu    sync.Mutex
	calls []string
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) record(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) OnServiceRegistered(_ context.Context, svc *service.Service) error {
	r.record("registered:" + svc.Name)
	svc.Name = "mutated"
	return nil
}

func (r *recorder) OnPlatformFeeUpdated(_ context.Context, previous, current types.BasisPoints) error {
	r.record("fee:" + previous.String() + "->" + current.String())
	return nil
}

func (r *recorder) OnNotification(_ context.Context, n notification.Notification) error {
	r.record("notification:" + string(n.Kind))
	return errors.New("sink unavailable")
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnShutdown(ctx context.Context) error {
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
	}
	return nil
}

func quietRegistry() *Registry {
	return NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := quietRegistry()
	if err := r.Register(&recorder{name: "a"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&recorder{name: "a"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
	if r.Get("a") == nil || r.Get("missing") != nil {
		t.Error("Get returned unexpected result")
	}
}

func TestEmitDispatchesToImplementers(t *testing.T) {
	ctx := context.Background()
	r := quietRegistry()
	rec := &recorder{name: "rec"}
	if err := r.Register(rec); err != nil {
		t.Fatalf("Register: %v", err)
	}

	svc := &service.Service{ID: 1, Name: "weather"}
	r.EmitServiceRegistered(ctx, svc)
	r.EmitPlatformFeeUpdated(ctx, 250, 500)
	r.EmitNotification(ctx, notification.Notification{Kind: notification.KindPlatformFeeUpdated})
	r.EmitAPICallMade(ctx, nil) // rec does not implement OnAPICallMade

	want := []string{"registered:weather", "fee:250bps->500bps", "notification:platform_fee.updated"}
	if len(rec.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", rec.calls, want)
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, rec.calls[i], want[i])
		}
	}
	if svc.Name != "weather" {
		t.Error("plugins must receive a copy of the service")
	}
}

func TestEmitTimesOut(t *testing.T) {
	r := quietRegistry().WithTimeout(10 * time.Millisecond)
	if err := r.Register(slowPlugin{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	start := time.Now()
	r.EmitShutdown(context.Background())
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("EmitShutdown blocked for %v", elapsed)
	}
}
