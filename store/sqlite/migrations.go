package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the marketplace store (SQLite).
var Migrations = migrate.NewGroup("apimarket")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_apimarket_commits",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS apimarket_commits (
    id             TEXT PRIMARY KEY,
    seq            INTEGER NOT NULL,
    schema_version INTEGER NOT NULL DEFAULT 1,
    operation      TEXT NOT NULL DEFAULT '',
    payload        TEXT NOT NULL,
    created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_apimarket_commits_seq ON apimarket_commits (seq);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS apimarket_commits`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_apimarket_services",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS apimarket_services (
    id             INTEGER PRIMARY KEY,
    provider       TEXT NOT NULL,
    name           TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    price_per_call INTEGER NOT NULL,
    total_calls    INTEGER NOT NULL DEFAULT 0,
    active         INTEGER NOT NULL DEFAULT 1,
    created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_apimarket_services_provider ON apimarket_services (provider, id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS apimarket_services`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_apimarket_subscriptions",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS apimarket_subscriptions (
    id              INTEGER PRIMARY KEY,
    consumer        TEXT NOT NULL,
    service_id      INTEGER NOT NULL,
    calls_purchased INTEGER NOT NULL,
    calls_remaining INTEGER NOT NULL,
    expires_at      TIMESTAMP NOT NULL,
    active          INTEGER NOT NULL DEFAULT 1,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_apimarket_subs_consumer ON apimarket_subscriptions (consumer, id);
CREATE INDEX IF NOT EXISTS idx_apimarket_subs_service ON apimarket_subscriptions (service_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS apimarket_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_apimarket_state",
			Version: "20260101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS apimarket_state (
    id                   INTEGER PRIMARY KEY,
    seq                  INTEGER NOT NULL,
    owner                TEXT NOT NULL,
    platform_fee         INTEGER NOT NULL,
    retained             INTEGER NOT NULL DEFAULT 0,
    next_service_id      INTEGER NOT NULL,
    next_subscription_id INTEGER NOT NULL,
    updated_at           TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS apimarket_state`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_apimarket_notifications",
			Version: "20260101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS apimarket_notifications (
    seq             INTEGER PRIMARY KEY,
    id              TEXT NOT NULL,
    kind            TEXT NOT NULL,
    service_id      INTEGER NOT NULL DEFAULT 0,
    subscription_id INTEGER NOT NULL DEFAULT 0,
    payload         TEXT NOT NULL,
    at              TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_apimarket_notifications_kind ON apimarket_notifications (kind, seq);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS apimarket_notifications`)
				return err
			},
		},
	)
}
