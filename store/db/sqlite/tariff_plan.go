package sqlite

import (
	"context"

	"github.com/pkg/errors"

	"leadwatch/store"
)

func (d *DB) CreateTariffPlan(ctx context.Context, create *store.CreateTariffPlan) (*store.TariffPlan, error) {
	result, err := d.db.ExecContext(ctx, `
		INSERT INTO tariff_plan (name, price, max_projects, max_chats_per_project, is_active, description)
		VALUES (?, ?, ?, ?, 1, ?)
	`, create.Name, create.Price, create.MaxProjects, create.MaxChatsPerProject, create.Description)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create tariff plan")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read inserted id")
	}
	return d.GetTariffPlan(ctx, id)
}

func (d *DB) GetTariffPlan(ctx context.Context, id int64) (*store.TariffPlan, error) {
	var p store.TariffPlan
	var isActive int
	err := d.db.QueryRowContext(ctx, `
		SELECT id, name, price, max_projects, max_chats_per_project, is_active, description
		FROM tariff_plan WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.MaxProjects, &p.MaxChatsPerProject, &isActive, &p.Description)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get tariff plan")
	}
	p.IsActive = isActive != 0
	return &p, nil
}

func (d *DB) ListTariffPlans(ctx context.Context, find *store.FindTariffPlan) ([]*store.TariffPlan, error) {
	query, args := `SELECT id, name, price, max_projects, max_chats_per_project, is_active, description FROM tariff_plan WHERE 1 = 1`, []any{}
	if find != nil && find.IsActive != nil {
		query += " AND is_active = ?"
		args = append(args, boolToInt(*find.IsActive))
	}
	query += " ORDER BY price ASC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tariff plans")
	}
	defer rows.Close()

	var plans []*store.TariffPlan
	for rows.Next() {
		var p store.TariffPlan
		var isActive int
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.MaxProjects, &p.MaxChatsPerProject, &isActive, &p.Description); err != nil {
			return nil, errors.Wrap(err, "failed to scan tariff plan")
		}
		p.IsActive = isActive != 0
		plans = append(plans, &p)
	}
	return plans, rows.Err()
}

func (d *DB) UpdateTariffPlan(ctx context.Context, update *store.UpdateTariffPlan) (*store.TariffPlan, error) {
	sets, args := []string{}, []any{}
	if update.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *update.Name)
	}
	if update.Price != nil {
		sets, args = append(sets, "price = ?"), append(args, *update.Price)
	}
	if update.MaxProjects != nil {
		sets, args = append(sets, "max_projects = ?"), append(args, *update.MaxProjects)
	}
	if update.MaxChatsPerProject != nil {
		sets, args = append(sets, "max_chats_per_project = ?"), append(args, *update.MaxChatsPerProject)
	}
	if update.IsActive != nil {
		sets, args = append(sets, "is_active = ?"), append(args, boolToInt(*update.IsActive))
	}
	if update.Description != nil {
		sets, args = append(sets, "description = ?"), append(args, *update.Description)
	}
	if len(sets) == 0 {
		return d.GetTariffPlan(ctx, update.ID)
	}
	args = append(args, update.ID)

	stmt := "UPDATE tariff_plan SET " + joinSet(sets) + " WHERE id = ?"
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update tariff plan")
	}
	return d.GetTariffPlan(ctx, update.ID)
}

func (d *DB) DeleteTariffPlan(ctx context.Context, id int64) error {
	var referenced int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM user_tariff WHERE tariff_plan_id = ?`, id).Scan(&referenced)
	if err != nil {
		return errors.Wrap(err, "failed to check tariff plan usage")
	}
	if referenced > 0 {
		return errors.Errorf("tariff plan %d is still referenced by %d assignment(s)", id, referenced)
	}
	if _, err := d.db.ExecContext(ctx, `DELETE FROM tariff_plan WHERE id = ?`, id); err != nil {
		return errors.Wrap(err, "failed to delete tariff plan")
	}
	return nil
}
