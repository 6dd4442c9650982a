// Package sqlite is the store.Driver implementation backed by
// github.com/mattn/go-sqlite3, for development and small single-node
// deployments (spec.md §9's driver split).
package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	_ "github.com/mattn/go-sqlite3"

	"leadwatch/internal/profile"
	"leadwatch/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the sqlite file named by profile.DSN and configures it for
// single-writer WAL access.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	sqliteDB, err := sql.Open("sqlite3", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
	}
	for _, pragma := range pragmas {
		if _, err := sqliteDB.Exec(pragma); err != nil {
			return nil, errors.Wrapf(err, "failed to set pragma: %s", pragma)
		}
	}

	// SQLite handles concurrency via its own file locking; one connection
	// avoids "database is locked" churn under WAL.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB { return d.db }

func (d *DB) Close() error { return d.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS user (
	user_id INTEGER PRIMARY KEY,
	username TEXT NOT NULL DEFAULT '',
	full_name TEXT NOT NULL DEFAULT '',
	balance INTEGER NOT NULL DEFAULT 0,
	is_admin INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	referrer_code TEXT NOT NULL DEFAULT '',
	created_ts INTEGER NOT NULL,
	updated_ts INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS referral_link (
	code TEXT PRIMARY KEY,
	created_ts INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS payment_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES user(user_id),
	amount INTEGER NOT NULL,
	created_ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_payment_history_user ON payment_history(user_id);

CREATE TABLE IF NOT EXISTS tariff_plan (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	price INTEGER NOT NULL,
	max_projects INTEGER NOT NULL,
	max_chats_per_project INTEGER NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS user_tariff (
	user_id INTEGER PRIMARY KEY REFERENCES user(user_id),
	tariff_plan_id INTEGER NOT NULL REFERENCES tariff_plan(id),
	start_date INTEGER NOT NULL,
	end_date INTEGER NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_user_tariff_active_end ON user_tariff(is_active, end_date);

CREATE TABLE IF NOT EXISTS project (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES user(user_id),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_project_user ON project(user_id);

CREATE TABLE IF NOT EXISTS monitored_chat (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES project(id),
	chat_handle TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	keywords TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1,
	UNIQUE(project_id, chat_handle)
);
CREATE INDEX IF NOT EXISTS idx_monitored_chat_project ON monitored_chat(project_id);

CREATE TABLE IF NOT EXISTS admin_audit_entry (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	actor_user_id INTEGER NOT NULL,
	action TEXT NOT NULL,
	target TEXT NOT NULL,
	created_ts INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notification_dedupe_mark (
	user_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	window_start INTEGER NOT NULL,
	PRIMARY KEY (user_id, kind)
);

INSERT OR IGNORE INTO tariff_plan (id, name, price, max_projects, max_chats_per_project, is_active, description)
VALUES (1, 'free', 0, 1, 1, 1, 'auto-assigned on signup');
`

// Migrate creates every table idempotently and seeds the zero tariff plan.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}
