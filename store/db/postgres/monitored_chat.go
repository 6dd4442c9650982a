package postgres

import (
	"context"
	"fmt"

	"leadwatch/store"
)

func (d *DB) CreateMonitoredChat(ctx context.Context, create *store.CreateMonitoredChat) (*store.MonitoredChat, error) {
	var id int64
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO monitored_chat (project_id, chat_handle, title, type, keywords, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE) RETURNING id
	`, create.ProjectID, create.ChatHandle, create.Title, string(create.Type), create.Keywords).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create monitored chat: %w", err)
	}
	return d.GetMonitoredChat(ctx, id)
}

func (d *DB) GetMonitoredChat(ctx context.Context, id int64) (*store.MonitoredChat, error) {
	c, err := scanMonitoredChatRow(d.db.QueryRowContext(ctx, `
		SELECT id, project_id, chat_handle, title, type, keywords, is_active
		FROM monitored_chat WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get monitored chat: %w", err)
	}
	return c, nil
}

func (d *DB) ListMonitoredChats(ctx context.Context, find *store.FindMonitoredChat) ([]*store.MonitoredChat, error) {
	query := `SELECT id, project_id, chat_handle, title, type, keywords, is_active FROM monitored_chat WHERE 1=1`
	var args []any
	idx := 1

	if find != nil {
		if find.ProjectID != nil {
			query += fmt.Sprintf(" AND project_id = $%d", idx)
			args = append(args, *find.ProjectID)
			idx++
		}
		if find.IsActive != nil {
			query += fmt.Sprintf(" AND is_active = $%d", idx)
			args = append(args, *find.IsActive)
			idx++
		}
	}
	query += " ORDER BY id ASC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitored chats: %w", err)
	}
	defer rows.Close()

	var chats []*store.MonitoredChat
	for rows.Next() {
		c, err := scanMonitoredChatRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monitored chat: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (d *DB) UpdateMonitoredChat(ctx context.Context, update *store.UpdateMonitoredChat) (*store.MonitoredChat, error) {
	var sets []string
	var args []any
	idx := 1

	addSet := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}
	if update.Title != nil {
		addSet("title", *update.Title)
	}
	if update.Keywords != nil {
		addSet("keywords", *update.Keywords)
	}
	if update.IsActive != nil {
		addSet("is_active", *update.IsActive)
	}
	if len(sets) == 0 {
		return d.GetMonitoredChat(ctx, update.ID)
	}

	query := "UPDATE monitored_chat SET " + joinComma(sets) + fmt.Sprintf(" WHERE id = $%d", idx)
	args = append(args, update.ID)

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update monitored chat: %w", err)
	}
	return d.GetMonitoredChat(ctx, update.ID)
}

func (d *DB) DeleteMonitoredChat(ctx context.Context, id int64) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM monitored_chat WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete monitored chat: %w", err)
	}
	return nil
}

func (d *DB) CountActiveChats(ctx context.Context, projectID int64) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM monitored_chat WHERE project_id = $1 AND is_active = TRUE
	`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active chats: %w", err)
	}
	return count, nil
}

func scanMonitoredChatRow(row rowScanner) (*store.MonitoredChat, error) {
	var c store.MonitoredChat
	var chatType string
	if err := row.Scan(&c.ID, &c.ProjectID, &c.ChatHandle, &c.Title, &chatType, &c.Keywords, &c.IsActive); err != nil {
		return nil, err
	}
	c.Type = store.ChatType(chatType)
	return &c, nil
}
