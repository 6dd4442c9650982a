package sqlite

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"leadwatch/store"
)

func (d *DB) GetDedupeMark(ctx context.Context, userID int64, kind store.DedupeKind) (*store.NotificationDedupeMark, error) {
	var m store.NotificationDedupeMark
	var windowStart int64
	var kindStr string
	err := d.db.QueryRowContext(ctx, `
		SELECT user_id, kind, window_start FROM notification_dedupe_mark WHERE user_id = ? AND kind = ?
	`, userID, string(kind)).Scan(&m.UserID, &kindStr, &windowStart)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get dedupe mark")
	}
	m.Kind = store.DedupeKind(kindStr)
	m.WindowStart = time.Unix(windowStart, 0).UTC()
	return &m, nil
}

func (d *DB) UpsertDedupeMark(ctx context.Context, mark *store.NotificationDedupeMark) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO notification_dedupe_mark (user_id, kind, window_start) VALUES (?, ?, ?)
		ON CONFLICT (user_id, kind) DO UPDATE SET window_start = excluded.window_start
	`, mark.UserID, string(mark.Kind), mark.WindowStart.Unix())
	return errors.Wrap(err, "failed to upsert dedupe mark")
}

func (d *DB) ListDedupeMarks(ctx context.Context) ([]*store.NotificationDedupeMark, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT user_id, kind, window_start FROM notification_dedupe_mark`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list dedupe marks")
	}
	defer rows.Close()

	var marks []*store.NotificationDedupeMark
	for rows.Next() {
		var m store.NotificationDedupeMark
		var windowStart int64
		var kind string
		if err := rows.Scan(&m.UserID, &kind, &windowStart); err != nil {
			return nil, errors.Wrap(err, "failed to scan dedupe mark")
		}
		m.Kind = store.DedupeKind(kind)
		m.WindowStart = time.Unix(windowStart, 0).UTC()
		marks = append(marks, &m)
	}
	return marks, rows.Err()
}

func (d *DB) DeleteDedupeMark(ctx context.Context, userID int64, kind store.DedupeKind) error {
	_, err := d.db.ExecContext(ctx, `
		DELETE FROM notification_dedupe_mark WHERE user_id = ? AND kind = ?
	`, userID, string(kind))
	return errors.Wrap(err, "failed to delete dedupe mark")
}
