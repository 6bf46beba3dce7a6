// Package mongo implements store.Store on MongoDB through grove.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/apimarket/store"
)

// Collection name constants.
const (
	colCommits       = "apimarket_commits"
	colServices      = "apimarket_services"
	colSubscriptions = "apimarket_subscriptions"
	colState         = "apimarket_state"
	colNotifications = "apimarket_notifications"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all marketplace collections. The unique seq
// index on the journal is what turns concurrent writers into ErrSeqConflict.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("apimarket/mongo: migrate %s indexes: %w", col, err)
		}
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
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "seq", Value: 1}}).
		Scan(ctx)
	if err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("apimarket/mongo: load journal: %w", err)
	}

	journal := make([]*store.Changeset, len(models))
	for i := range models {
		cs, err := fromCommitModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("apimarket/mongo: decode commit %d: %w", models[i].Seq, err)
		}
		journal[i] = cs
	}
	return store.Replay(journal)
}

// Commit journals cs in one document insert, then refreshes the projections.
func (s *Store) Commit(ctx context.Context, cs *store.Changeset) error {
	var head []commitModel
	err := s.mdb.NewFind(&head).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "seq", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil && !isNoDocuments(err) {
		return fmt.Errorf("apimarket/mongo: read journal head: %w", err)
	}
	var last uint64
	if len(head) > 0 {
		last = uint64(head[0].Seq)
	}
	if last+1 != cs.Seq {
		return fmt.Errorf("%w: journal at %d, got %d", store.ErrSeqConflict, last, cs.Seq)
	}

	m, err := toCommitModel(cs)
	if err != nil {
		return fmt.Errorf("apimarket/mongo: encode commit: %w", err)
	}
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: seq %d already journaled", store.ErrSeqConflict, cs.Seq)
		}
		return fmt.Errorf("apimarket/mongo: journal commit %d: %w", cs.Seq, err)
	}

	if err := s.project(ctx, cs); err != nil {
		return &store.PartialCommitError{Seq: cs.Seq, Err: err}
	}
	return nil
}

func (s *Store) project(ctx context.Context, cs *store.Changeset) error {
	var errs []error

	for _, svc := range cs.Services {
		m := toServiceModel(svc)
		_, err := s.mdb.NewUpdate(m).
			Filter(bson.M{"_id": m.ID}).
			SetUpdate(bson.M{"$set": bson.M{
				"provider":       m.Provider,
				"name":           m.Name,
				"description":    m.Description,
				"price_per_call": m.PricePerCall,
				"total_calls":    m.TotalCalls,
				"active":         m.Active,
				"created_at":     m.CreatedAt,
				"updated_at":     m.UpdatedAt,
			}}).
			Upsert().
			Exec(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("service %s: %w", svc.ID, err))
		}
	}

	for _, sub := range cs.Subscriptions {
		m := toSubscriptionModel(sub)
		_, err := s.mdb.NewUpdate(m).
			Filter(bson.M{"_id": m.ID}).
			SetUpdate(bson.M{"$set": bson.M{
				"consumer":        m.Consumer,
				"service_id":      m.ServiceID,
				"calls_purchased": m.CallsPurchased,
				"calls_remaining": m.CallsRemaining,
				"expires_at":      m.ExpiresAt,
				"active":          m.Active,
				"created_at":      m.CreatedAt,
				"updated_at":      m.UpdatedAt,
			}}).
			Upsert().
			Exec(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("subscription %s: %w", sub.ID, err))
		}
	}

	st := toStateModel(cs)
	_, err := s.mdb.NewUpdate(st).
		Filter(bson.M{"_id": st.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"seq":                  st.Seq,
			"owner":                st.Owner,
			"platform_fee":         st.PlatformFee,
			"retained":             st.Retained,
			"next_service_id":      st.NextServiceID,
			"next_subscription_id": st.NextSubscriptionID,
			"updated_at":           st.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("state: %w", err))
	}

	nm, err := toNotificationModel(&cs.Notification)
	if err == nil {
		_, err = s.mdb.NewInsert(nm).Exec(ctx)
		if mongo.IsDuplicateKeyError(err) {
			err = nil
		}
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("notification %d: %w", cs.Notification.Seq, err))
	}

	return errors.Join(errs...)
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCommits: {
			{
				Keys:    bson.D{{Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colServices: {
			{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "consumer", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "service_id", Value: 1}}},
		},
		colState: {},
		colNotifications: {
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "_id", Value: 1}}},
			{
				Keys:    bson.D{{Key: "event_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
