package sqlite

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"leadwatch/store"
)

func (d *DB) LogAdminAction(ctx context.Context, create *store.CreateAdminAuditEntry) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO admin_audit_entry (actor_user_id, action, target, created_ts) VALUES (?, ?, ?, ?)
	`, create.ActorUserID, create.Action, create.Target, time.Now().Unix())
	return errors.Wrap(err, "failed to log admin action")
}

func (d *DB) ListAdminAuditEntries(ctx context.Context, find *store.FindAdminAuditEntry) ([]*store.AdminAuditEntry, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find != nil && find.ActorUserID != nil {
		where, args = append(where, "actor_user_id = ?"), append(args, *find.ActorUserID)
	}

	query := `SELECT id, actor_user_id, action, target, created_ts FROM admin_audit_entry WHERE ` + joinWhere(where) + ` ORDER BY created_ts DESC`
	if find != nil {
		if find.Limit != nil {
			query += " LIMIT ?"
			args = append(args, *find.Limit)
		}
		if find.Offset != nil {
			query += " OFFSET ?"
			args = append(args, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list admin audit entries")
	}
	defer rows.Close()

	var entries []*store.AdminAuditEntry
	for rows.Next() {
		var e store.AdminAuditEntry
		var createdTs int64
		if err := rows.Scan(&e.ID, &e.ActorUserID, &e.Action, &e.Target, &createdTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan admin audit entry")
		}
		e.CreatedAt = time.Unix(createdTs, 0).UTC()
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
