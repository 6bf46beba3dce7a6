// Package postgres implements store.Store on PostgreSQL through grove.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/apimarket/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("apimarket/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("apimarket/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the journal in sequence order and folds it.
func (s *Store) Load(ctx context.Context) (*store.Snapshot, error) {
	var models []commitModel
	if err := s.pg.NewSelect(&models).OrderExpr("seq ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("apimarket/postgres: load journal: %w", err)
	}

	journal := make([]*store.Changeset, len(models))
	for i := range models {
		cs, err := fromCommitModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("apimarket/postgres: decode commit %d: %w", models[i].Seq, err)
		}
		journal[i] = cs
	}
	return store.Replay(journal)
}

// Commit journals cs in one insert, then refreshes the projections.
func (s *Store) Commit(ctx context.Context, cs *store.Changeset) error {
	var last int64
	if err := s.pg.NewRaw(`SELECT COALESCE(MAX(seq), 0) FROM apimarket_commits`).Scan(ctx, &last); err != nil {
		return fmt.Errorf("apimarket/postgres: read journal head: %w", err)
	}
	if uint64(last)+1 != cs.Seq {
		return fmt.Errorf("%w: journal at %d, got %d", store.ErrSeqConflict, last, cs.Seq)
	}

	m, err := toCommitModel(cs)
	if err != nil {
		return fmt.Errorf("apimarket/postgres: encode commit: %w", err)
	}
	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("apimarket/postgres: journal commit %d: %w", cs.Seq, err)
	}

	if err := s.project(ctx, cs); err != nil {
		return &store.PartialCommitError{Seq: cs.Seq, Err: err}
	}
	return nil
}

func (s *Store) project(ctx context.Context, cs *store.Changeset) error {
	var errs []error

	for _, svc := range cs.Services {
		_, err := s.pg.NewInsert(toServiceModel(svc)).
			OnConflict("(id) DO UPDATE").
			Set("total_calls = EXCLUDED.total_calls").
			Set("active = EXCLUDED.active").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("service %s: %w", svc.ID, err))
		}
	}

	for _, sub := range cs.Subscriptions {
		_, err := s.pg.NewInsert(toSubscriptionModel(sub)).
			OnConflict("(id) DO UPDATE").
			Set("calls_remaining = EXCLUDED.calls_remaining").
			Set("active = EXCLUDED.active").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("subscription %s: %w", sub.ID, err))
		}
	}

	_, err := s.pg.NewInsert(toStateModel(cs)).
		OnConflict("(id) DO UPDATE").
		Set("seq = EXCLUDED.seq").
		Set("owner = EXCLUDED.owner").
		Set("platform_fee = EXCLUDED.platform_fee").
		Set("retained = EXCLUDED.retained").
		Set("next_service_id = EXCLUDED.next_service_id").
		Set("next_subscription_id = EXCLUDED.next_subscription_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("state: %w", err))
	}

	nm, err := toNotificationModel(&cs.Notification)
	if err == nil {
		_, err = s.pg.NewInsert(nm).OnConflict("(seq) DO NOTHING").Exec(ctx)
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("notification %d: %w", cs.Notification.Seq, err))
	}

	return errors.Join(errs...)
}
