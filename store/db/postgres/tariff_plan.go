package postgres

import (
	"context"
	"fmt"

	"leadwatch/store"
)

func (d *DB) CreateTariffPlan(ctx context.Context, create *store.CreateTariffPlan) (*store.TariffPlan, error) {
	var id int64
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO tariff_plan (name, price, max_projects, max_chats_per_project, is_active, description)
		VALUES ($1, $2, $3, $4, TRUE, $5) RETURNING id
	`, create.Name, create.Price, create.MaxProjects, create.MaxChatsPerProject, create.Description).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create tariff plan: %w", err)
	}
	return d.GetTariffPlan(ctx, id)
}

func (d *DB) GetTariffPlan(ctx context.Context, id int64) (*store.TariffPlan, error) {
	var p store.TariffPlan
	err := d.db.QueryRowContext(ctx, `
		SELECT id, name, price, max_projects, max_chats_per_project, is_active, description
		FROM tariff_plan WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.MaxProjects, &p.MaxChatsPerProject, &p.IsActive, &p.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to get tariff plan: %w", err)
	}
	return &p, nil
}

func (d *DB) ListTariffPlans(ctx context.Context, find *store.FindTariffPlan) ([]*store.TariffPlan, error) {
	query := `SELECT id, name, price, max_projects, max_chats_per_project, is_active, description FROM tariff_plan WHERE 1=1`
	var args []any
	if find != nil && find.IsActive != nil {
		query += " AND is_active = $1"
		args = append(args, *find.IsActive)
	}
	query += " ORDER BY price ASC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tariff plans: %w", err)
	}
	defer rows.Close()

	var plans []*store.TariffPlan
	for rows.Next() {
		var p store.TariffPlan
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.MaxProjects, &p.MaxChatsPerProject, &p.IsActive, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan tariff plan: %w", err)
		}
		plans = append(plans, &p)
	}
	return plans, rows.Err()
}

func (d *DB) UpdateTariffPlan(ctx context.Context, update *store.UpdateTariffPlan) (*store.TariffPlan, error) {
	query := `UPDATE tariff_plan SET `
	var sets []string
	var args []any
	idx := 1

	addSet := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}
	if update.Name != nil {
		addSet("name", *update.Name)
	}
	if update.Price != nil {
		addSet("price", *update.Price)
	}
	if update.MaxProjects != nil {
		addSet("max_projects", *update.MaxProjects)
	}
	if update.MaxChatsPerProject != nil {
		addSet("max_chats_per_project", *update.MaxChatsPerProject)
	}
	if update.IsActive != nil {
		addSet("is_active", *update.IsActive)
	}
	if update.Description != nil {
		addSet("description", *update.Description)
	}
	if len(sets) == 0 {
		return d.GetTariffPlan(ctx, update.ID)
	}

	query += joinComma(sets) + fmt.Sprintf(" WHERE id = $%d", idx)
	args = append(args, update.ID)

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update tariff plan: %w", err)
	}
	return d.GetTariffPlan(ctx, update.ID)
}

func (d *DB) DeleteTariffPlan(ctx context.Context, id int64) error {
	var referenced int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM user_tariff WHERE tariff_plan_id = $1`, id).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("failed to check tariff plan usage: %w", err)
	}
	if referenced > 0 {
		return fmt.Errorf("tariff plan %d is still referenced by %d assignment(s)", id, referenced)
	}
	if _, err := d.db.ExecContext(ctx, `DELETE FROM tariff_plan WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete tariff plan: %w", err)
	}
	return nil
}

func joinComma(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}
