package postgres

import (
	"context"
	"fmt"
	"time"

	"leadwatch/store"
)

func (d *DB) GetUserTariff(ctx context.Context, userID int64) (*store.UserTariff, error) {
	ut, err := scanUserTariffRow(d.db.QueryRowContext(ctx, `
		SELECT user_id, tariff_plan_id, start_date, end_date, is_active
		FROM user_tariff WHERE user_id = $1
	`, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user tariff: %w", err)
	}
	return ut, nil
}

func (d *DB) UpsertUserTariff(ctx context.Context, upsert *store.UpsertUserTariff) (*store.UserTariff, error) {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO user_tariff (user_id, tariff_plan_id, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			tariff_plan_id = EXCLUDED.tariff_plan_id,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			is_active = EXCLUDED.is_active
	`, upsert.UserID, upsert.TariffPlanID, upsert.StartDate.Unix(), upsert.EndDate.Unix(), upsert.IsActive)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user tariff: %w", err)
	}
	return d.GetUserTariff(ctx, upsert.UserID)
}

func (d *DB) ListUserTariffs(ctx context.Context, find *store.FindUserTariff) ([]*store.UserTariff, error) {
	query := `SELECT user_id, tariff_plan_id, start_date, end_date, is_active FROM user_tariff WHERE 1=1`
	var args []any
	idx := 1

	if find != nil {
		if find.IsActive != nil {
			query += fmt.Sprintf(" AND is_active = $%d", idx)
			args = append(args, *find.IsActive)
			idx++
		}
		if find.ExpiringBefore != nil {
			query += fmt.Sprintf(" AND end_date <= $%d", idx)
			args = append(args, find.ExpiringBefore.Unix())
			idx++
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list user tariffs: %w", err)
	}
	defer rows.Close()

	var out []*store.UserTariff
	for rows.Next() {
		ut, err := scanUserTariffRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user tariff: %w", err)
		}
		out = append(out, ut)
	}
	return out, rows.Err()
}

func (d *DB) DeactivateExpired(ctx context.Context, asOf time.Time) ([]*store.UserTariff, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT user_id, tariff_plan_id, start_date, end_date, is_active
		FROM user_tariff WHERE is_active = TRUE AND end_date <= $1
		FOR UPDATE
	`, asOf.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query expired tariffs: %w", err)
	}
	var expired []*store.UserTariff
	for rows.Next() {
		ut, err := scanUserTariffRow(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expired tariff: %w", err)
		}
		expired = append(expired, ut)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, ut := range expired {
		if _, err := tx.ExecContext(ctx, `UPDATE user_tariff SET is_active = FALSE WHERE user_id = $1`, ut.UserID); err != nil {
			return nil, fmt.Errorf("failed to deactivate tariff for user %d: %w", ut.UserID, err)
		}
		ut.IsActive = false
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return expired, nil
}

func scanUserTariffRow(row rowScanner) (*store.UserTariff, error) {
	var ut store.UserTariff
	var start, end int64
	if err := row.Scan(&ut.UserID, &ut.TariffPlanID, &start, &end, &ut.IsActive); err != nil {
		return nil, err
	}
	ut.StartDate = time.Unix(start, 0).UTC()
	ut.EndDate = time.Unix(end, 0).UTC()
	return &ut, nil
}
