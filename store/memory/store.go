// Package memory provides an in-process store.Store. It keeps the journal
// in a slice and is intended for tests and single-process deployments that
// do not need durability across restarts.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/apimarket/service"
	"github.com/xraph/apimarket/store"
	"github.com/xraph/apimarket/subscription"
)

var _ store.Store = (*Store)(nil)

// Store is an in-memory journal.
type Store struct {
	mu      sync.RWMutex
	journal []*store.Changeset
	closed  bool
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Load replays the journal.
func (s *Store) Load(_ context.Context) (*store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errClosed
	}
	return store.Replay(s.journal)
}

// Commit appends cs to the journal.
func (s *Store) Commit(_ context.Context, cs *store.Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errClosed
	}
	if want := uint64(len(s.journal)) + 1; cs.Seq != want {
		return fmt.Errorf("%w: expected seq %d, got %d", store.ErrSeqConflict, want, cs.Seq)
	}
	s.journal = append(s.journal, clone(cs))
	return nil
}

// Journal returns a copy of every committed changeset in order.
func (s *Store) Journal() []*store.Changeset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Changeset, len(s.journal))
	for i, cs := range s.journal {
		out[i] = clone(cs)
	}
	return out
}

// Migrate is a no-op.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping fails once the store is closed.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errClosed
	}
	return nil
}

// Close marks the store closed. The journal is kept.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

var errClosed = fmt.Errorf("apimarket/memory: store closed")

func clone(cs *store.Changeset) *store.Changeset {
	c := *cs
	c.Services = make([]*service.Service, len(cs.Services))
	for i, svc := range cs.Services {
		c.Services[i] = svc.Clone()
	}
	c.Subscriptions = make([]*subscription.Subscription, len(cs.Subscriptions))
	for i, sub := range cs.Subscriptions {
		c.Subscriptions[i] = sub.Clone()
	}
	c.Transfers = append(c.Transfers[:0:0], cs.Transfers...)
	return &c
}
