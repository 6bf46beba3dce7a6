// Package store defines the persistence contract of the marketplace ledger.
//
// Every successful mutating operation produces exactly one Changeset. A
// backend journals the changeset as a single atomic record, then refreshes
// its queryable projections (services, subscriptions, ledger state,
// notifications). The journal is the source of truth: Load folds it back
// into a Snapshot, so a projection that fell behind never loses data.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/xraph/apimarket/funds"
	"github.com/xraph/apimarket/id"
	"github.com/xraph/apimarket/notification"
	"github.com/xraph/apimarket/service"
	"github.com/xraph/apimarket/subscription"
	"github.com/xraph/apimarket/types"
)

// SchemaVersion is the layout version stamped on every changeset written by
// this build. Load refuses changesets from a newer layout.
const SchemaVersion = 1

var (
	// ErrSeqConflict is returned when a changeset's Seq is not the next one
	// in the journal, e.g. because another writer committed first.
	ErrSeqConflict = errors.New("store: commit sequence conflict")

	// ErrUnsupportedSchema is returned by Load when the journal holds a
	// changeset written by a newer layout.
	ErrUnsupportedSchema = errors.New("store: unsupported schema version")
)

// Store persists ledger changesets.
type Store interface {
	// Load returns the state recorded by every committed changeset.
	Load(ctx context.Context) (*Snapshot, error)

	// Commit durably records cs. When the journal write succeeds but a
	// projection write fails, Commit returns a *PartialCommitError: the
	// changeset is committed and will be seen by Load.
	Commit(ctx context.Context, cs *Changeset) error

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// State holds the ledger-wide scalars.
type State struct {
	Owner              types.Principal   `json:"owner"`
	PlatformFee        types.BasisPoints `json:"platform_fee"`
	Retained           types.Amount      `json:"retained"`
	NextServiceID      id.ServiceID      `json:"next_service_id"`
	NextSubscriptionID id.SubscriptionID `json:"next_subscription_id"`
}

// Changeset is the complete effect of one operation: the scalars after the
// operation, every record it created or changed (in their final form), the
// payouts it settled and the notification it emitted.
type Changeset struct {
	ID            id.ID                        `json:"id"`
	Seq           uint64                       `json:"seq"`
	SchemaVersion int                          `json:"schema_version"`
	Operation     string                       `json:"operation"`
	At            time.Time                    `json:"at"`
	State         State                        `json:"state"`
	Services      []*service.Service           `json:"services,omitempty"`
	Subscriptions []*subscription.Subscription `json:"subscriptions,omitempty"`
	Transfers     []funds.Transfer             `json:"transfers,omitempty"`
	Notification  notification.Notification    `json:"notification"`
}

// Snapshot is the ledger state rebuilt from the journal.
type Snapshot struct {
	Seq           uint64
	State         State
	Services      map[id.ServiceID]*service.Service
	Subscriptions map[id.SubscriptionID]*subscription.Subscription
	Notifications []notification.Notification
}

// NewSnapshot returns the state of an empty journal.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Services:      make(map[id.ServiceID]*service.Service),
		Subscriptions: make(map[id.SubscriptionID]*subscription.Subscription),
	}
}

// Apply folds cs into the snapshot. Changesets must be applied in Seq order.
func (s *Snapshot) Apply(cs *Changeset) error {
	if cs.SchemaVersion > SchemaVersion {
		return fmt.Errorf("%w: changeset %d has version %d", ErrUnsupportedSchema, cs.Seq, cs.SchemaVersion)
	}
	if cs.Seq != s.Seq+1 {
		return fmt.Errorf("%w: expected seq %d, got %d", ErrSeqConflict, s.Seq+1, cs.Seq)
	}

	s.Seq = cs.Seq
	s.State = cs.State
	for _, svc := range cs.Services {
		s.Services[svc.ID] = svc.Clone()
	}
	for _, sub := range cs.Subscriptions {
		s.Subscriptions[sub.ID] = sub.Clone()
	}
	s.Notifications = append(s.Notifications, cs.Notification)
	return nil
}

// Replay folds an ordered journal into a fresh snapshot.
func Replay(journal []*Changeset) (*Snapshot, error) {
	snap := NewSnapshot()
	for _, cs := range journal {
		if err := snap.Apply(cs); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// ServiceIDs returns the ids of every service in ascending order.
func (s *Snapshot) ServiceIDs() []id.ServiceID {
	ids := make([]id.ServiceID, 0, len(s.Services))
	for k := range s.Services {
		ids = append(ids, k)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SubscriptionIDs returns the ids of every subscription in ascending order.
func (s *Snapshot) SubscriptionIDs() []id.SubscriptionID {
	ids := make([]id.SubscriptionID, 0, len(s.Subscriptions))
	for k := range s.Subscriptions {
		ids = append(ids, k)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PartialCommitError reports a changeset that reached the journal but whose
// projections could not all be written.
type PartialCommitError struct {
	Seq uint64
	Err error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("store: changeset %d journaled, projection failed: %v", e.Seq, e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }

// IsPartialCommit reports whether err means the changeset was journaled.
func IsPartialCommit(err error) bool {
	var pce *PartialCommitError
	return errors.As(err, &pce)
}
