package postgres

import (
	"context"
	"fmt"
	"time"

	"leadwatch/store"
)

func (d *DB) CreateReferralLink(ctx context.Context, code string) (*store.ReferralLink, error) {
	now := time.Now().Unix()
	if _, err := d.db.ExecContext(ctx, `INSERT INTO referral_link (code, created_ts) VALUES ($1, $2)`, code, now); err != nil {
		return nil, fmt.Errorf("failed to create referral link: %w", err)
	}
	return &store.ReferralLink{Code: code, CreatedAt: time.Unix(now, 0).UTC()}, nil
}

func (d *DB) GetReferralLink(ctx context.Context, code string) (*store.ReferralLink, error) {
	var link store.ReferralLink
	var createdTs int64
	err := d.db.QueryRowContext(ctx, `SELECT code, created_ts FROM referral_link WHERE code = $1`, code).
		Scan(&link.Code, &createdTs)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral link: %w", err)
	}
	link.CreatedAt = time.Unix(createdTs, 0).UTC()
	return &link, nil
}

func (d *DB) ListReferralLinks(ctx context.Context, find *store.FindReferralLink) ([]*store.ReferralLink, error) {
	query := `SELECT code, created_ts FROM referral_link WHERE 1=1`
	var args []any
	if find != nil && find.Code != nil {
		query += " AND code = $1"
		args = append(args, *find.Code)
	}
	query += " ORDER BY created_ts DESC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list referral links: %w", err)
	}
	defer rows.Close()

	var links []*store.ReferralLink
	for rows.Next() {
		var link store.ReferralLink
		var createdTs int64
		if err := rows.Scan(&link.Code, &createdTs); err != nil {
			return nil, fmt.Errorf("failed to scan referral link: %w", err)
		}
		link.CreatedAt = time.Unix(createdTs, 0).UTC()
		links = append(links, &link)
	}
	return links, rows.Err()
}

func (d *DB) DeleteReferralLink(ctx context.Context, code string) error {
	var referenced int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM "user" WHERE referrer_code = $1`, code).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("failed to check referral link usage: %w", err)
	}
	if referenced > 0 {
		return fmt.Errorf("referral link %q is still referenced by %d user(s)", code, referenced)
	}
	if _, err := d.db.ExecContext(ctx, `DELETE FROM referral_link WHERE code = $1`, code); err != nil {
		return fmt.Errorf("failed to delete referral link: %w", err)
	}
	return nil
}
