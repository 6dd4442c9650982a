package sqlite

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"leadwatch/store"
)

func (d *DB) CreatePaymentHistory(ctx context.Context, create *store.CreatePaymentHistory) (*store.PaymentHistory, error) {
	now := time.Now().Unix()
	result, err := d.db.ExecContext(ctx, `
		INSERT INTO payment_history (user_id, amount, created_ts) VALUES (?, ?, ?)
	`, create.UserID, create.Amount, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create payment history")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read inserted id")
	}
	return &store.PaymentHistory{ID: id, UserID: create.UserID, Amount: create.Amount, CreatedAt: time.Unix(now, 0).UTC()}, nil
}

func (d *DB) ListPaymentHistory(ctx context.Context, find *store.FindPaymentHistory) ([]*store.PaymentHistory, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.Since != nil {
		where, args = append(where, "created_ts >= ?"), append(args, find.Since.Unix())
	}

	query := `SELECT id, user_id, amount, created_ts FROM payment_history WHERE ` + joinWhere(where) + ` ORDER BY created_ts DESC`
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
		return nil, errors.Wrap(err, "failed to list payment history")
	}
	defer rows.Close()

	var history []*store.PaymentHistory
	for rows.Next() {
		var p store.PaymentHistory
		var createdTs int64
		if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &createdTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan payment history")
		}
		p.CreatedAt = time.Unix(createdTs, 0).UTC()
		history = append(history, &p)
	}
	return history, rows.Err()
}
