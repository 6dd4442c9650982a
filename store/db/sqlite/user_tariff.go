package sqlite

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"leadwatch/store"
)

func (d *DB) GetUserTariff(ctx context.Context, userID int64) (*store.UserTariff, error) {
	ut, err := scanUserTariffRow(d.db.QueryRowContext(ctx, `
		SELECT user_id, tariff_plan_id, start_date, end_date, is_active
		FROM user_tariff WHERE user_id = ?
	`, userID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user tariff")
	}
	return ut, nil
}

func (d *DB) UpsertUserTariff(ctx context.Context, upsert *store.UpsertUserTariff) (*store.UserTariff, error) {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO user_tariff (user_id, tariff_plan_id, start_date, end_date, is_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			tariff_plan_id = excluded.tariff_plan_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			is_active = excluded.is_active
	`, upsert.UserID, upsert.TariffPlanID, upsert.StartDate.Unix(), upsert.EndDate.Unix(), boolToInt(upsert.IsActive))
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert user tariff")
	}
	return d.GetUserTariff(ctx, upsert.UserID)
}

func (d *DB) ListUserTariffs(ctx context.Context, find *store.FindUserTariff) ([]*store.UserTariff, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find != nil {
		if find.IsActive != nil {
			where, args = append(where, "is_active = ?"), append(args, boolToInt(*find.IsActive))
		}
		if find.ExpiringBefore != nil {
			where, args = append(where, "end_date <= ?"), append(args, find.ExpiringBefore.Unix())
		}
	}

	query := `SELECT user_id, tariff_plan_id, start_date, end_date, is_active FROM user_tariff WHERE ` + joinWhere(where)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user tariffs")
	}
	defer rows.Close()

	var out []*store.UserTariff
	for rows.Next() {
		ut, err := scanUserTariffRow(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan user tariff")
		}
		out = append(out, ut)
	}
	return out, rows.Err()
}

func (d *DB) DeactivateExpired(ctx context.Context, asOf time.Time) ([]*store.UserTariff, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT user_id, tariff_plan_id, start_date, end_date, is_active
		FROM user_tariff WHERE is_active = 1 AND end_date <= ?
	`, asOf.Unix())
	if err != nil {
		return nil, errors.Wrap(err, "failed to query expired tariffs")
	}
	var expired []*store.UserTariff
	for rows.Next() {
		ut, err := scanUserTariffRow(rows)
		if err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan expired tariff")
		}
		expired = append(expired, ut)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, ut := range expired {
		if _, err := tx.ExecContext(ctx, `UPDATE user_tariff SET is_active = 0 WHERE user_id = ?`, ut.UserID); err != nil {
			return nil, errors.Wrapf(err, "failed to deactivate tariff for user %d", ut.UserID)
		}
		ut.IsActive = false
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return expired, nil
}

func scanUserTariffRow(row rowScanner) (*store.UserTariff, error) {
	var ut store.UserTariff
	var start, end int64
	var isActive int
	if err := row.Scan(&ut.UserID, &ut.TariffPlanID, &start, &end, &isActive); err != nil {
		return nil, err
	}
	ut.StartDate = time.Unix(start, 0).UTC()
	ut.EndDate = time.Unix(end, 0).UTC()
	ut.IsActive = isActive != 0
	return &ut, nil
}
