package postgres

import (
	"context"
	"fmt"
	"time"

	"leadwatch/store"
)

func (d *DB) LogAdminAction(ctx context.Context, create *store.CreateAdminAuditEntry) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO admin_audit_entry (actor_user_id, action, target, created_ts) VALUES ($1, $2, $3, $4)
	`, create.ActorUserID, create.Action, create.Target, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to log admin action: %w", err)
	}
	return nil
}

func (d *DB) ListAdminAuditEntries(ctx context.Context, find *store.FindAdminAuditEntry) ([]*store.AdminAuditEntry, error) {
	query := `SELECT id, actor_user_id, action, target, created_ts FROM admin_audit_entry WHERE 1=1`
	var args []any
	idx := 1

	if find != nil {
		if find.ActorUserID != nil {
			query += fmt.Sprintf(" AND actor_user_id = $%d", idx)
			args = append(args, *find.ActorUserID)
			idx++
		}
	}
	query += " ORDER BY created_ts DESC"
	if find != nil {
		if find.Limit != nil {
			query += fmt.Sprintf(" LIMIT $%d", idx)
			args = append(args, *find.Limit)
			idx++
		}
		if find.Offset != nil {
			query += fmt.Sprintf(" OFFSET $%d", idx)
			args = append(args, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*store.AdminAuditEntry
	for rows.Next() {
		var e store.AdminAuditEntry
		var createdTs int64
		if err := rows.Scan(&e.ID, &e.ActorUserID, &e.Action, &e.Target, &createdTs); err != nil {
			return nil, fmt.Errorf("failed to scan admin audit entry: %w", err)
		}
		e.CreatedAt = time.Unix(createdTs, 0).UTC()
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
