package sqlite

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"leadwatch/store"
)

func (d *DB) CreateReferralLink(ctx context.Context, code string) (*store.ReferralLink, error) {
	now := time.Now().Unix()
	if _, err := d.db.ExecContext(ctx, `INSERT INTO referral_link (code, created_ts) VALUES (?, ?)`, code, now); err != nil {
		return nil, errors.Wrap(err, "failed to create referral link")
	}
	return &store.ReferralLink{Code: code, CreatedAt: time.Unix(now, 0).UTC()}, nil
}

func (d *DB) GetReferralLink(ctx context.Context, code string) (*store.ReferralLink, error) {
	var link store.ReferralLink
	var createdTs int64
	err := d.db.QueryRowContext(ctx, `SELECT code, created_ts FROM referral_link WHERE code = ?`, code).
		Scan(&link.Code, &createdTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get referral link")
	}
	link.CreatedAt = time.Unix(createdTs, 0).UTC()
	return &link, nil
}

func (d *DB) ListReferralLinks(ctx context.Context, find *store.FindReferralLink) ([]*store.ReferralLink, error) {
	query, args := `SELECT code, created_ts FROM referral_link WHERE 1 = 1`, []any{}
	if find != nil && find.Code != nil {
		query += " AND code = ?"
		args = append(args, *find.Code)
	}
	query += " ORDER BY created_ts DESC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list referral links")
	}
	defer rows.Close()

	var links []*store.ReferralLink
	for rows.Next() {
		var link store.ReferralLink
		var createdTs int64
		if err := rows.Scan(&link.Code, &createdTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan referral link")
		}
		link.CreatedAt = time.Unix(createdTs, 0).UTC()
		links = append(links, &link)
	}
	return links, rows.Err()
}

func (d *DB) DeleteReferralLink(ctx context.Context, code string) error {
	var referenced int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM user WHERE referrer_code = ?`, code).Scan(&referenced)
	if err != nil {
		return errors.Wrap(err, "failed to check referral link usage")
	}
	if referenced > 0 {
		return errors.Errorf("referral link %q is still referenced by %d user(s)", code, referenced)
	}
	if _, err := d.db.ExecContext(ctx, `DELETE FROM referral_link WHERE code = ?`, code); err != nil {
		return errors.Wrap(err, "failed to delete referral link")
	}
	return nil
}
