package postgres

import (
	"context"
	"fmt"

	"leadwatch/store"
)

func (d *DB) CreateProject(ctx context.Context, create *store.CreateProject) (*store.Project, error) {
	var id int64
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO project (user_id, name, description, is_active) VALUES ($1, $2, $3, TRUE) RETURNING id
	`, create.UserID, create.Name, create.Description).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return d.GetProject(ctx, id)
}

func (d *DB) GetProject(ctx context.Context, id int64) (*store.Project, error) {
	p, err := scanProjectRow(d.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, description, is_active FROM project WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

func (d *DB) ListProjects(ctx context.Context, find *store.FindProject) ([]*store.Project, error) {
	query := `SELECT id, user_id, name, description, is_active FROM project WHERE 1=1`
	var args []any
	idx := 1

	if find != nil {
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
	}
	query += " ORDER BY id ASC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*store.Project
	for rows.Next() {
		p, err := scanProjectRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (d *DB) UpdateProject(ctx context.Context, update *store.UpdateProject) (*store.Project, error) {
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
	if update.Description != nil {
		addSet("description", *update.Description)
	}
	if update.IsActive != nil {
		addSet("is_active", *update.IsActive)
	}
	if len(sets) == 0 {
		return d.GetProject(ctx, update.ID)
	}

	query := "UPDATE project SET " + joinComma(sets) + fmt.Sprintf(" WHERE id = $%d", idx)
	args = append(args, update.ID)

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return d.GetProject(ctx, update.ID)
}

func (d *DB) DeleteProject(ctx context.Context, id int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM monitored_chat WHERE project_id = $1`, id); err != nil {
		return fmt.Errorf("failed to cascade-delete monitored chats: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM project WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (d *DB) CountActiveProjects(ctx context.Context, userID int64) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM project WHERE user_id = $1 AND is_active = TRUE
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active projects: %w", err)
	}
	return count, nil
}

func scanProjectRow(row rowScanner) (*store.Project, error) {
	var p store.Project
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.IsActive); err != nil {
		return nil, err
	}
	return &p, nil
}
