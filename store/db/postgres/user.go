package postgres

import (
	"context"
	"fmt"
	"time"

	"leadwatch/store"
)

func (d *DB) CreateUser(ctx context.Context, create *store.CreateUser) (*store.User, error) {
	now := time.Now().Unix()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO "user" (user_id, username, full_name, referrer_code, created_ts, updated_ts)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, create.UserID, create.Username, create.FullName, create.ReferrerCode, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return d.GetUser(ctx, create.UserID)
}

func (d *DB) GetUser(ctx context.Context, userID int64) (*store.User, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT user_id, username, full_name, balance, is_admin, is_active, referrer_code, created_ts, updated_ts
		FROM "user" WHERE user_id = $1
	`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	query := `SELECT user_id, username, full_name, balance, is_admin, is_active, referrer_code, created_ts, updated_ts FROM "user" WHERE 1=1`
	var args []any
	idx := 1

	if find.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", idx)
		args = append(args, *find.UserID)
		idx++
	}
	if find.IsActive != nil {
		query += fmt.Sprintf(" AND is_active = $%d", idx)
		args = append(args, *find.IsActive)
		idx++
	}
	if find.IsAdmin != nil {
		query += fmt.Sprintf(" AND is_admin = $%d", idx)
		args = append(args, *find.IsAdmin)
		idx++
	}
	query += " ORDER BY created_ts DESC"
	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, *find.Limit)
		idx++
	}
	if find.Offset != nil {
		query += fmt.Sprintf(" OFFSET $%d", idx)
		args = append(args, *find.Offset)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (d *DB) UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error) {
	query := `UPDATE "user" SET updated_ts = $1`
	args := []any{time.Now().Unix()}
	idx := 2

	if update.Username != nil {
		query += fmt.Sprintf(", username = $%d", idx)
		args = append(args, *update.Username)
		idx++
	}
	if update.FullName != nil {
		query += fmt.Sprintf(", full_name = $%d", idx)
		args = append(args, *update.FullName)
		idx++
	}
	if update.IsActive != nil {
		query += fmt.Sprintf(", is_active = $%d", idx)
		args = append(args, *update.IsActive)
		idx++
	}
	if update.IsAdmin != nil {
		query += fmt.Sprintf(", is_admin = $%d", idx)
		args = append(args, *update.IsAdmin)
		idx++
	}
	query += fmt.Sprintf(" WHERE user_id = $%d", idx)
	args = append(args, update.UserID)

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return d.GetUser(ctx, update.UserID)
}

func (d *DB) AdjustBalance(ctx context.Context, userID int64, delta int64) (*store.User, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowContext(ctx, `SELECT balance FROM "user" WHERE user_id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	if balance+delta < 0 {
		return nil, fmt.Errorf("balance adjustment would go negative: %d + %d", balance, delta)
	}

	_, err = tx.ExecContext(ctx, `UPDATE "user" SET balance = $1, updated_ts = $2 WHERE user_id = $3`,
		balance+delta, time.Now().Unix(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return d.GetUser(ctx, userID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*store.User, error) {
	var u store.User
	var createdTs, updatedTs int64
	err := row.Scan(&u.UserID, &u.Username, &u.FullName, &u.Balance, &u.IsAdmin, &u.IsActive, &u.ReferrerCode, &createdTs, &updatedTs)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(createdTs, 0).UTC()
	u.UpdatedAt = time.Unix(updatedTs, 0).UTC()
	return &u, nil
}
