package postgres

import (
	"context"
	"fmt"
	"time"

	"leadwatch/store"
)

func (d *DB) GetDedupeMark(ctx context.Context, userID int64, kind store.DedupeKind) (*store.NotificationDedupeMark, error) {
	var m store.NotificationDedupeMark
	var windowStart int64
	var kindStr string
	err := d.db.QueryRowContext(ctx, `
		SELECT user_id, kind, window_start FROM notification_dedupe_mark WHERE user_id = $1 AND kind = $2
	`, userID, string(kind)).Scan(&m.UserID, &kindStr, &windowStart)
	if err != nil {
		return nil, fmt.Errorf("failed to get dedupe mark: %w", err)
	}
	m.Kind = store.DedupeKind(kindStr)
	m.WindowStart = time.Unix(windowStart, 0).UTC()
	return &m, nil
}

func (d *DB) UpsertDedupeMark(ctx context.Context, mark *store.NotificationDedupeMark) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO notification_dedupe_mark (user_id, kind, window_start) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, kind) DO UPDATE SET window_start = EXCLUDED.window_start
	`, mark.UserID, string(mark.Kind), mark.WindowStart.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert dedupe mark: %w", err)
	}
	return nil
}

func (d *DB) ListDedupeMarks(ctx context.Context) ([]*store.NotificationDedupeMark, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT user_id, kind, window_start FROM notification_dedupe_mark`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dedupe marks: %w", err)
	}
	defer rows.Close()

	var marks []*store.NotificationDedupeMark
	for rows.Next() {
		var m store.NotificationDedupeMark
		var windowStart int64
		var kind string
		if err := rows.Scan(&m.UserID, &kind, &windowStart); err != nil {
			return nil, fmt.Errorf("failed to scan dedupe mark: %w", err)
		}
		m.Kind = store.DedupeKind(kind)
		m.WindowStart = time.Unix(windowStart, 0).UTC()
		marks = append(marks, &m)
	}
	return marks, rows.Err()
}

func (d *DB) DeleteDedupeMark(ctx context.Context, userID int64, kind store.DedupeKind) error {
	_, err := d.db.ExecContext(ctx, `
		DELETE FROM notification_dedupe_mark WHERE user_id = $1 AND kind = $2
	`, userID, string(kind))
	if err != nil {
		return fmt.Errorf("failed to delete dedupe mark: %w", err)
	}
	return nil
}
