package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/apimarket/id"
	"github.com/xraph/apimarket/notification"
	"github.com/xraph/apimarket/service"
	"github.com/xraph/apimarket/store"
	"github.com/xraph/apimarket/subscription"
	"github.com/xraph/apimarket/types"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func registerChangeset(seq uint64) *store.Changeset {
	svc := &service.Service{
		Entity:       types.NewEntity(epoch),
		ID:           id.ServiceID(seq),
		Provider:     "provider",
		Name:         "weather",
		PricePerCall: 100,
		Active:       true,
	}
	return &store.Changeset{
		ID:            id.NewCommitID(),
		Seq:           seq,
		SchemaVersion: store.SchemaVersion,
		Operation:     "register_service",
		At:            epoch,
		State: store.State{
			Owner:              "owner",
			PlatformFee:        250,
			NextServiceID:      id.ServiceID(seq + 1),
			NextSubscriptionID: 1,
		},
		Services: []*service.Service{svc},
		Notification: notification.Notification{
			Seq:       seq,
			Kind:      notification.KindServiceRegistered,
			ServiceID: svc.ID,
		},
	}
}

func TestCommitAndLoad(t *testing.T) {
	ctx := context.Background()
	s := New()

	for seq := uint64(1); seq <= 2; seq++ {
		if err := s.Commit(ctx, registerChangeset(seq)); err != nil {
			t.Fatalf("Commit(%d): %v", seq, err)
		}
	}

	sub := &subscription.Subscription{
		Entity:         types.NewEntity(epoch),
		ID:             1,
		Consumer:       "consumer",
		ServiceID:      1,
		CallsPurchased: 10,
		CallsRemaining: 10,
		ExpiresAt:      epoch.AddDate(0, 0, 30),
		Active:         true,
	}
	cs := registerChangeset(3)
	cs.Operation = "subscribe_to_service"
	cs.Services = nil
	cs.Subscriptions = []*subscription.Subscription{sub}
	cs.State.Retained = 25
	if err := s.Commit(ctx, cs); err != nil {
		t.Fatalf("Commit(3): %v", err)
	}

	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Seq != 3 {
		t.Errorf("Seq = %d, want 3", snap.Seq)
	}
	if len(snap.Services) != 2 || len(snap.Subscriptions) != 1 {
		t.Errorf("got %d services, %d subscriptions", len(snap.Services), len(snap.Subscriptions))
	}
	if snap.State.Retained != 25 {
		t.Errorf("Retained = %d, want 25", snap.State.Retained)
	}
	if len(snap.Notifications) != 3 {
		t.Errorf("got %d notifications, want 3", len(snap.Notifications))
	}
	if ids := snap.ServiceIDs(); ids[0] != 1 || ids[1] != 2 {
		t.Errorf("ServiceIDs = %v", ids)
	}
}

func TestCommitRejectsSeqGap(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Commit(ctx, registerChangeset(2)); !errors.Is(err, store.ErrSeqConflict) {
		t.Fatalf("expected ErrSeqConflict, got %v", err)
	}
	if err := s.Commit(ctx, registerChangeset(1)); err != nil {
		t.Fatalf("Commit(1): %v", err)
	}
	if err := s.Commit(ctx, registerChangeset(1)); !errors.Is(err, store.ErrSeqConflict) {
		t.Fatalf("expected ErrSeqConflict on duplicate, got %v", err)
	}
}

func TestJournalIsIsolated(t *testing.T) {
	ctx := context.Background()
	s := New()

	cs := registerChangeset(1)
	if err := s.Commit(ctx, cs); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	cs.Services[0].Name = "mutated"

	if got := s.Journal()[0].Services[0].Name; got != "weather" {
		t.Errorf("journal entry changed through caller pointer: %q", got)
	}
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Ping(ctx); err == nil {
		t.Error("Ping should fail on a closed store")
	}
	if err := s.Commit(ctx, registerChangeset(1)); err == nil {
		t.Error("Commit should fail on a closed store")
	}
}

func TestLoadRejectsNewerSchema(t *testing.T) {
	ctx := context.Background()
	s := New()

	cs := registerChangeset(1)
	cs.SchemaVersion = store.SchemaVersion + 1
	if err := s.Commit(ctx, cs); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, store.ErrUnsupportedSchema) {
		t.Fatalf("expected ErrUnsupportedSchema, got %v", err)
	}
}
