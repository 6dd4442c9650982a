package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"leadwatch/store"
)

func (d *DB) CreateUser(ctx context.Context, create *store.CreateUser) (*store.User, error) {
	now := time.Now().Unix()
	stmt := `
		INSERT INTO user (user_id, username, full_name, referrer_code, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := d.db.ExecContext(ctx, stmt, create.UserID, create.Username, create.FullName, create.ReferrerCode, now, now); err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}
	return d.GetUser(ctx, create.UserID)
}

func (d *DB) GetUser(ctx context.Context, userID int64) (*store.User, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT user_id, username, full_name, balance, is_admin, is_active, referrer_code, created_ts, updated_ts
		FROM user WHERE user_id = ?
	`, userID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user")
	}
	return u, nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.IsActive != nil {
		where, args = append(where, "is_active = ?"), append(args, boolToInt(*find.IsActive))
	}
	if find.IsAdmin != nil {
		where, args = append(where, "is_admin = ?"), append(args, boolToInt(*find.IsAdmin))
	}

	query := `SELECT user_id, username, full_name, balance, is_admin, is_active, referrer_code, created_ts, updated_ts
		FROM user WHERE ` + joinWhere(where) + ` ORDER BY created_ts DESC`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}
	if find.Offset != nil {
		query += " OFFSET ?"
		args = append(args, *find.Offset)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (d *DB) UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error) {
	sets, args := []string{"updated_ts = ?"}, []any{time.Now().Unix()}
	if update.Username != nil {
		sets, args = append(sets, "username = ?"), append(args, *update.Username)
	}
	if update.FullName != nil {
		sets, args = append(sets, "full_name = ?"), append(args, *update.FullName)
	}
	if update.IsActive != nil {
		sets, args = append(sets, "is_active = ?"), append(args, boolToInt(*update.IsActive))
	}
	if update.IsAdmin != nil {
		sets, args = append(sets, "is_admin = ?"), append(args, boolToInt(*update.IsAdmin))
	}
	args = append(args, update.UserID)

	stmt := "UPDATE user SET " + joinSet(sets) + " WHERE user_id = ?"
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update user")
	}
	return d.GetUser(ctx, update.UserID)
}

func (d *DB) AdjustBalance(ctx context.Context, userID int64, delta int64) (*store.User, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowContext(ctx, `SELECT balance FROM user WHERE user_id = ?`, userID).Scan(&balance)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read balance")
	}
	if balance+delta < 0 {
		return nil, errors.Errorf("balance adjustment would go negative: %d + %d", balance, delta)
	}

	_, err = tx.ExecContext(ctx, `UPDATE user SET balance = ?, updated_ts = ? WHERE user_id = ?`,
		balance+delta, time.Now().Unix(), userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to adjust balance")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return d.GetUser(ctx, userID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*store.User, error) {
	var u store.User
	var isAdmin, isActive int
	var createdTs, updatedTs int64
	err := row.Scan(&u.UserID, &u.Username, &u.FullName, &u.Balance, &isAdmin, &isActive, &u.ReferrerCode, &createdTs, &updatedTs)
	if err != nil {
		return nil, err
	}
	u.IsAdmin = isAdmin != 0
	u.IsActive = isActive != 0
	u.CreatedAt = time.Unix(createdTs, 0).UTC()
	u.UpdatedAt = time.Unix(updatedTs, 0).UTC()
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinWhere(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}
	return out
}

func joinSet(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += ", " + c
	}
	return out
}
