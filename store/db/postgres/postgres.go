// Package postgres is the store.Driver implementation backed by
// github.com/lib/pq, for multi-node production deployments (spec.md §9's
// driver split).
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"leadwatch/internal/profile"
	"leadwatch/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the Postgres connection named by profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, fmt.Errorf("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open db with dsn %s: %w", profile.DSN, err)
	}

	pgDB.SetMaxOpenConns(20)
	pgDB.SetMaxIdleConns(5)

	return &DB{db: pgDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB { return d.db }

func (d *DB) Close() error { return d.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS "user" (
	user_id BIGINT PRIMARY KEY,
	username TEXT NOT NULL DEFAULT '',
	full_name TEXT NOT NULL DEFAULT '',
	balance BIGINT NOT NULL DEFAULT 0,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	referrer_code TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS referral_link (
	code TEXT PRIMARY KEY,
	created_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS payment_history (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES "user"(user_id),
	amount BIGINT NOT NULL,
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_payment_history_user ON payment_history(user_id);

CREATE TABLE IF NOT EXISTS tariff_plan (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	price BIGINT NOT NULL,
	max_projects INTEGER NOT NULL,
	max_chats_per_project INTEGER NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS user_tariff (
	user_id BIGINT PRIMARY KEY REFERENCES "user"(user_id),
	tariff_plan_id BIGINT NOT NULL REFERENCES tariff_plan(id),
	start_date BIGINT NOT NULL,
	end_date BIGINT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_user_tariff_active_end ON user_tariff(is_active, end_date);

CREATE TABLE IF NOT EXISTS project (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES "user"(user_id),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_project_user ON project(user_id);

CREATE TABLE IF NOT EXISTS monitored_chat (
	id BIGSERIAL PRIMARY KEY,
	project_id BIGINT NOT NULL REFERENCES project(id),
	chat_handle TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	keywords TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	UNIQUE(project_id, chat_handle)
);
CREATE INDEX IF NOT EXISTS idx_monitored_chat_project ON monitored_chat(project_id);

CREATE TABLE IF NOT EXISTS admin_audit_entry (
	id BIGSERIAL PRIMARY KEY,
	actor_user_id BIGINT NOT NULL,
	action TEXT NOT NULL,
	target TEXT NOT NULL,
	created_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS notification_dedupe_mark (
	user_id BIGINT NOT NULL,
	kind TEXT NOT NULL,
	window_start BIGINT NOT NULL,
	PRIMARY KEY (user_id, kind)
);

INSERT INTO tariff_plan (id, name, price, max_projects, max_chats_per_project, is_active, description)
VALUES (1, 'free', 0, 1, 1, TRUE, 'auto-assigned on signup')
ON CONFLICT (id) DO NOTHING;
`

// Migrate creates every table idempotently and seeds the zero tariff plan.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
