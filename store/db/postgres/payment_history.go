package postgres

import (
	"context"
	"fmt"
	"time"

	"leadwatch/store"
)

func (d *DB) CreatePaymentHistory(ctx context.Context, create *store.CreatePaymentHistory) (*store.PaymentHistory, error) {
	now := time.Now().Unix()
	var id int64
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO payment_history (user_id, amount, created_ts) VALUES ($1, $2, $3) RETURNING id
	`, create.UserID, create.Amount, now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment history: %w", err)
	}
	return &store.PaymentHistory{ID: id, UserID: create.UserID, Amount: create.Amount, CreatedAt: time.Unix(now, 0).UTC()}, nil
}

func (d *DB) ListPaymentHistory(ctx context.Context, find *store.FindPaymentHistory) ([]*store.PaymentHistory, error) {
	query := `SELECT id, user_id, amount, created_ts FROM payment_history WHERE 1=1`
	var args []any
	idx := 1

	if find.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", idx)
		args = append(args, *find.UserID)
		idx++
	}
	if find.Since != nil {
		query += fmt.Sprintf(" AND created_ts >= $%d", idx)
		args = append(args, find.Since.Unix())
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
		return nil, fmt.Errorf("failed to list payment history: %w", err)
	}
	defer rows.Close()

	var history []*store.PaymentHistory
	for rows.Next() {
		var p store.PaymentHistory
		var createdTs int64
		if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &createdTs); err != nil {
			return nil, fmt.Errorf("failed to scan payment history: %w", err)
		}
		p.CreatedAt = time.Unix(createdTs, 0).UTC()
		history = append(history, &p)
	}
	return history, rows.Err()
}
