package audithook_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/xraph/apimarket"
	audithook "github.com/xraph/apimarket/audit_hook"
	"github.com/xraph/apimarket/store/memory"
)

type sink struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (s *sink) Record(_ context.Context, e *audithook.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *sink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}

func (s *sink) last() *audithook.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

func startLedger(t *testing.T, ext *audithook.Extension) (context.Context, *apimarket.Ledger) {
	t.Helper()
	ctx := context.Background()
	l := apimarket.New(memory.New(),
		apimarket.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		apimarket.WithOwner("owner"),
		apimarket.WithPlugin(ext),
	)
	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return ctx, l
}

func TestExtensionRecordsLifecycle(t *testing.T) {
	rec := &sink{}
	ctx, l := startLedger(t, audithook.New(rec))

	sid, err := l.RegisterService(ctx, "provider", "weather", "", 100)
	if err != nil {
		t.Fatalf("RegisterService: %v", err)
	}
	subID, err := l.SubscribeToService(ctx, "consumer", sid, 10, 30, 1000)
	if err != nil {
		t.Fatalf("SubscribeToService: %v", err)
	}
	if _, err := l.MakeAPICall(ctx, "consumer", subID); err != nil {
		t.Fatalf("MakeAPICall: %v", err)
	}
	if err := l.DeactivateService(ctx, "provider", sid); err != nil {
		t.Fatalf("DeactivateService: %v", err)
	}
	if err := l.UpdatePlatformFee(ctx, "owner", 500); err != nil {
		t.Fatalf("UpdatePlatformFee: %v", err)
	}
	if _, err := l.WithdrawPlatformFees(ctx, "owner"); err != nil {
		t.Fatalf("WithdrawPlatformFees: %v", err)
	}
	if err := l.TransferOwnership(ctx, "owner", "next"); err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}

	want := []string{
		audithook.ActionServiceRegistered,
		audithook.ActionServiceSubscribed,
		audithook.ActionAPICallMade,
		audithook.ActionServiceDeactivated,
		audithook.ActionPlatformFeeUpdated,
		audithook.ActionPlatformFeesWithdrawn,
		audithook.ActionOwnershipTransferred,
	}
	got := rec.actions()
	if len(got) != len(want) {
		t.Fatalf("recorded %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}

	ownerEvt := rec.last()
	if ownerEvt.Severity != audithook.SeverityCritical {
		t.Errorf("ownership severity = %s, want critical", ownerEvt.Severity)
	}
	if ownerEvt.Metadata["owner"] != "next" {
		t.Errorf("owner metadata = %v, want next", ownerEvt.Metadata["owner"])
	}
}

func TestExtensionRecordsRejections(t *testing.T) {
	tests := []struct {
		name     string
		op       func(context.Context, *apimarket.Ledger) error
		severity string
		category string
	}{
		{
			name: "unauthorized",
			op: func(ctx context.Context, l *apimarket.Ledger) error {
				return l.UpdatePlatformFee(ctx, "mallory", 100)
			},
			severity: audithook.SeverityWarning,
			category: audithook.CategoryAccess,
		},
		{
			name: "invalid input",
			op: func(ctx context.Context, l *apimarket.Ledger) error {
				_, err := l.RegisterService(ctx, "provider", "", "", 100)
				return err
			},
			severity: audithook.SeverityInfo,
			category: audithook.CategoryUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &sink{}
			ctx, l := startLedger(t, audithook.New(rec))

			if err := tt.op(ctx, l); err == nil {
				t.Fatal("expected operation to fail")
			}

			evt := rec.last()
			if evt.Action != audithook.ActionOperationRejected {
				t.Fatalf("action = %s, want %s", evt.Action, audithook.ActionOperationRejected)
			}
			if evt.Outcome != audithook.OutcomeFailure {
				t.Errorf("outcome = %s, want failure", evt.Outcome)
			}
			if evt.Severity != tt.severity {
				t.Errorf("severity = %s, want %s", evt.Severity, tt.severity)
			}
			if evt.Category != tt.category {
				t.Errorf("category = %s, want %s", evt.Category, tt.category)
			}
			if evt.Reason == "" {
				t.Error("expected a reason")
			}
		})
	}
}

func TestExtensionActionFilters(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		rec := &sink{}
		ctx, l := startLedger(t, audithook.New(rec,
			audithook.WithEnabledActions(audithook.ActionPlatformFeeUpdated)))

		if _, err := l.RegisterService(ctx, "provider", "weather", "", 100); err != nil {
			t.Fatalf("RegisterService: %v", err)
		}
		if err := l.UpdatePlatformFee(ctx, "owner", 100); err != nil {
			t.Fatalf("UpdatePlatformFee: %v", err)
		}

		got := rec.actions()
		if len(got) != 1 || got[0] != audithook.ActionPlatformFeeUpdated {
			t.Errorf("recorded %v, want only %s", got, audithook.ActionPlatformFeeUpdated)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		rec := &sink{}
		ctx, l := startLedger(t, audithook.New(rec,
			audithook.WithDisabledActions(audithook.ActionServiceRegistered)))

		if _, err := l.RegisterService(ctx, "provider", "weather", "", 100); err != nil {
			t.Fatalf("RegisterService: %v", err)
		}
		if err := l.UpdatePlatformFee(ctx, "owner", 100); err != nil {
			t.Fatalf("UpdatePlatformFee: %v", err)
		}

		got := rec.actions()
		if len(got) != 1 || got[0] != audithook.ActionPlatformFeeUpdated {
			t.Errorf("recorded %v, want only %s", got, audithook.ActionPlatformFeeUpdated)
		}
	})
}

func TestRecorderFailureDoesNotFailOperation(t *testing.T) {
	failing := audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return io.ErrClosedPipe
	})
	ctx, l := startLedger(t, audithook.New(failing,
		audithook.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))))

	if _, err := l.RegisterService(ctx, "provider", "weather", "", 100); err != nil {
		t.Fatalf("RegisterService: %v", err)
	}
}

func TestExtensionRendersDecimalAmounts(t *testing.T) {
	rec := &sink{}
	ctx, l := startLedger(t, audithook.New(rec, audithook.WithAmountDecimals(2)))

	sid, err := l.RegisterService(ctx, "provider", "weather", "", 100)
	if err != nil {
		t.Fatalf("RegisterService: %v", err)
	}
	if _, err := l.SubscribeToService(ctx, "consumer", sid, 10, 30, 1000); err != nil {
		t.Fatalf("SubscribeToService: %v", err)
	}

	sub := rec.last()
	tests := []struct {
		key  string
		want any
	}{
		{"total_cost", int64(1000)},
		{"total_cost_major", "10"},
		{"platform_fee", int64(25)},
		{"platform_fee_major", "0.25"},
	}
	for _, tt := range tests {
		if got := sub.Metadata[tt.key]; got != tt.want {
			t.Errorf("%s = %v, want %v", tt.key, got, tt.want)
		}
	}

	if err := l.UpdatePlatformFee(ctx, "owner", 500); err != nil {
		t.Fatalf("UpdatePlatformFee: %v", err)
	}
	fee := rec.last()
	if fee.Metadata["previous_percent"] != "2.5" || fee.Metadata["current_percent"] != "5" {
		t.Errorf("fee metadata = %v, want 2.5 -> 5", fee.Metadata)
	}
}

func TestExtensionOmitsMajorUnitsByDefault(t *testing.T) {
	rec := &sink{}
	ctx, l := startLedger(t, audithook.New(rec))

	sid, err := l.RegisterService(ctx, "provider", "weather", "", 100)
	if err != nil {
		t.Fatalf("RegisterService: %v", err)
	}
	if _, err := l.SubscribeToService(ctx, "consumer", sid, 10, 30, 1000); err != nil {
		t.Fatalf("SubscribeToService: %v", err)
	}
	if _, ok := rec.last().Metadata["total_cost_major"]; ok {
		t.Error("major units recorded without a configured precision")
	}
}
