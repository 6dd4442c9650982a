package sqlite

import (
	"context"

	"github.com/pkg/errors"

	"leadwatch/store"
)

func (d *DB) CreateProject(ctx context.Context, create *store.CreateProject) (*store.Project, error) {
	result, err := d.db.ExecContext(ctx, `
		INSERT INTO project (user_id, name, description, is_active) VALUES (?, ?, ?, 1)
	`, create.UserID, create.Name, create.Description)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create project")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read inserted id")
	}
	return d.GetProject(ctx, id)
}

func (d *DB) GetProject(ctx context.Context, id int64) (*store.Project, error) {
	p, err := scanProjectRow(d.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, description, is_active FROM project WHERE id = ?
	`, id))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get project")
	}
	return p, nil
}

func (d *DB) ListProjects(ctx context.Context, find *store.FindProject) ([]*store.Project, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find != nil {
		if find.UserID != nil {
			where, args = append(where, "user_id = ?"), append(args, *find.UserID)
		}
		if find.IsActive != nil {
			where, args = append(where, "is_active = ?"), append(args, boolToInt(*find.IsActive))
		}
	}

	query := `SELECT id, user_id, name, description, is_active FROM project WHERE ` + joinWhere(where) + ` ORDER BY id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list projects")
	}
	defer rows.Close()

	var projects []*store.Project
	for rows.Next() {
		p, err := scanProjectRow(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan project")
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (d *DB) UpdateProject(ctx context.Context, update *store.UpdateProject) (*store.Project, error) {
	sets, args := []string{}, []any{}
	if update.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *update.Name)
	}
	if update.Description != nil {
		sets, args = append(sets, "description = ?"), append(args, *update.Description)
	}
	if update.IsActive != nil {
		sets, args = append(sets, "is_active = ?"), append(args, boolToInt(*update.IsActive))
	}
	if len(sets) == 0 {
		return d.GetProject(ctx, update.ID)
	}
	args = append(args, update.ID)

	stmt := "UPDATE project SET " + joinSet(sets) + " WHERE id = ?"
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update project")
	}
	return d.GetProject(ctx, update.ID)
}

func (d *DB) DeleteProject(ctx context.Context, id int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM monitored_chat WHERE project_id = ?`, id); err != nil {
		return errors.Wrap(err, "failed to cascade-delete monitored chats")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM project WHERE id = ?`, id); err != nil {
		return errors.Wrap(err, "failed to delete project")
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

func (d *DB) CountActiveProjects(ctx context.Context, userID int64) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM project WHERE user_id = ? AND is_active = 1
	`, userID).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count active projects")
	}
	return count, nil
}

func scanProjectRow(row rowScanner) (*store.Project, error) {
	var p store.Project
	var isActive int
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &isActive); err != nil {
		return nil, err
	}
	p.IsActive = isActive != 0
	return &p, nil
}
