package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/apimarket/id"
	"github.com/xraph/apimarket/notification"
	"github.com/xraph/apimarket/service"
	"github.com/xraph/apimarket/subscription"
)

func changeset(seq uint64) *Changeset {
	return &Changeset{
		Seq:           seq,
		SchemaVersion: SchemaVersion,
		Notification:  notification.Notification{Seq: seq},
	}
}

func TestReplayFoldsLatestRecords(t *testing.T) {
	first := changeset(1)
	first.State = State{Owner: "owner", PlatformFee: 250, NextServiceID: 2, NextSubscriptionID: 1}
	first.Services = []*service.Service{{ID: 1, Provider: "p", Name: "weather", PricePerCall: 10, Active: true}}

	second := changeset(2)
	second.State = State{Owner: "owner", PlatformFee: 250, Retained: 2, NextServiceID: 2, NextSubscriptionID: 2}
	second.Subscriptions = []*subscription.Subscription{{ID: 1, Consumer: "c", ServiceID: 1, CallsRemaining: 10, Active: true}}

	third := changeset(3)
	third.State = second.State
	third.Services = []*service.Service{{ID: 1, Provider: "p", Name: "weather", PricePerCall: 10, Active: false}}

	snap, err := Replay([]*Changeset{first, second, third})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	if snap.Seq != 3 {
		t.Errorf("Seq = %d, want 3", snap.Seq)
	}
	if snap.State.Retained != 2 || snap.State.NextSubscriptionID != 2 {
		t.Errorf("State = %+v, want state of the last changeset", snap.State)
	}
	if snap.Services[1].Active {
		t.Error("service should reflect its latest changeset")
	}
	if len(snap.Notifications) != 3 {
		t.Errorf("notifications = %d, want 3", len(snap.Notifications))
	}
	if got := snap.SubscriptionIDs(); len(got) != 1 || got[0] != 1 {
		t.Errorf("SubscriptionIDs = %v, want [1]", got)
	}

	// Snapshot records are copies.
	third.Services[0].Name = "mutated"
	if snap.Services[1].Name != "weather" {
		t.Error("snapshot shares records with the journal")
	}
}

func TestReplayRejectsBadJournal(t *testing.T) {
	newer := changeset(1)
	newer.SchemaVersion = SchemaVersion + 1

	tests := []struct {
		name    string
		journal []*Changeset
		wantErr error
	}{
		{"gap", []*Changeset{changeset(1), changeset(3)}, ErrSeqConflict},
		{"duplicate", []*Changeset{changeset(1), changeset(1)}, ErrSeqConflict},
		{"starts late", []*Changeset{changeset(2)}, ErrSeqConflict},
		{"newer schema", []*Changeset{newer}, ErrUnsupportedSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Replay(tt.journal); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestServiceIDsSorted(t *testing.T) {
	snap := NewSnapshot()
	for _, sid := range []id.ServiceID{5, 1, 3} {
		snap.Services[sid] = &service.Service{ID: sid}
	}
	got := snap.ServiceIDs()
	want := []id.ServiceID{1, 3, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ServiceIDs = %v, want %v", got, want)
		}
	}
}

func TestPartialCommitError(t *testing.T) {
	cause := errors.New("projection down")
	err := fmt.Errorf("commit: %w", &PartialCommitError{Seq: 7, Err: cause})

	if !IsPartialCommit(err) {
		t.Error("IsPartialCommit = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Error("PartialCommitError should unwrap to its cause")
	}
	if IsPartialCommit(cause) {
		t.Error("plain error reported as partial commit")
	}
}
