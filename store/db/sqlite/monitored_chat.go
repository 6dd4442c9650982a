package sqlite

import (
	"context"

	"github.com/pkg/errors"

	"leadwatch/store"
)

func (d *DB) CreateMonitoredChat(ctx context.Context, create *store.CreateMonitoredChat) (*store.MonitoredChat, error) {
	result, err := d.db.ExecContext(ctx, `
		INSERT INTO monitored_chat (project_id, chat_handle, title, type, keywords, is_active)
		VALUES (?, ?, ?, ?, ?, 1)
	`, create.ProjectID, create.ChatHandle, create.Title, string(create.Type), create.Keywords)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create monitored chat")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read inserted id")
	}
	return d.GetMonitoredChat(ctx, id)
}

func (d *DB) GetMonitoredChat(ctx context.Context, id int64) (*store.MonitoredChat, error) {
	c, err := scanMonitoredChatRow(d.db.QueryRowContext(ctx, `
		SELECT id, project_id, chat_handle, title, type, keywords, is_active
		FROM monitored_chat WHERE id = ?
	`, id))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get monitored chat")
	}
	return c, nil
}

func (d *DB) ListMonitoredChats(ctx context.Context, find *store.FindMonitoredChat) ([]*store.MonitoredChat, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find != nil {
		if find.ProjectID != nil {
			where, args = append(where, "project_id = ?"), append(args, *find.ProjectID)
		}
		if find.IsActive != nil {
			where, args = append(where, "is_active = ?"), append(args, boolToInt(*find.IsActive))
		}
	}

	query := `SELECT id, project_id, chat_handle, title, type, keywords, is_active
		FROM monitored_chat WHERE ` + joinWhere(where) + ` ORDER BY id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list monitored chats")
	}
	defer rows.Close()

	var chats []*store.MonitoredChat
	for rows.Next() {
		c, err := scanMonitoredChatRow(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan monitored chat")
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (d *DB) UpdateMonitoredChat(ctx context.Context, update *store.UpdateMonitoredChat) (*store.MonitoredChat, error) {
	sets, args := []string{}, []any{}
	if update.Title != nil {
		sets, args = append(sets, "title = ?"), append(args, *update.Title)
	}
	if update.Keywords != nil {
		sets, args = append(sets, "keywords = ?"), append(args, *update.Keywords)
	}
	if update.IsActive != nil {
		sets, args = append(sets, "is_active = ?"), append(args, boolToInt(*update.IsActive))
	}
	if len(sets) == 0 {
		return d.GetMonitoredChat(ctx, update.ID)
	}
	args = append(args, update.ID)

	stmt := "UPDATE monitored_chat SET " + joinSet(sets) + " WHERE id = ?"
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update monitored chat")
	}
	return d.GetMonitoredChat(ctx, update.ID)
}

func (d *DB) DeleteMonitoredChat(ctx context.Context, id int64) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM monitored_chat WHERE id = ?`, id); err != nil {
		return errors.Wrap(err, "failed to delete monitored chat")
	}
	return nil
}

func (d *DB) CountActiveChats(ctx context.Context, projectID int64) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM monitored_chat WHERE project_id = ? AND is_active = 1
	`, projectID).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count active chats")
	}
	return count, nil
}

func scanMonitoredChatRow(row rowScanner) (*store.MonitoredChat, error) {
	var c store.MonitoredChat
	var chatType string
	var isActive int
	if err := row.Scan(&c.ID, &c.ProjectID, &c.ChatHandle, &c.Title, &chatType, &c.Keywords, &isActive); err != nil {
		return nil, err
	}
	c.Type = store.ChatType(chatType)
	c.IsActive = isActive != 0
	return &c, nil
}
