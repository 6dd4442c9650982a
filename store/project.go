package store

import "context"

// Project groups a tenant's monitored chats (spec §3).
type Project struct {
	ID          int64
	UserID      int64
	Name        string // at most 50 characters
	Description string
	IsActive    bool
}

// CreateProject creates a project owned by UserID.
type CreateProject struct {
	UserID      int64
	Name        string
	Description string
}

// UpdateProject patches mutable project fields; nil fields are left unchanged.
type UpdateProject struct {
	ID          int64
	Name        *string
	Description *string
	IsActive    *bool
}

// FindProject filters ListProjects.
type FindProject struct {
	UserID   *int64
	IsActive *bool
}

// ProjectStore persists Project rows.
type ProjectStore interface {
	CreateProject(ctx context.Context, create *CreateProject) (*Project, error)
	GetProject(ctx context.Context, id int64) (*Project, error)
	ListProjects(ctx context.Context, find *FindProject) ([]*Project, error)
	UpdateProject(ctx context.Context, update *UpdateProject) (*Project, error)
	// DeleteProject cascades to every MonitoredChat row under id.
	DeleteProject(ctx context.Context, id int64) error
	// CountActiveProjects is used to enforce TariffPlan.MaxProjects on creation.
	CountActiveProjects(ctx context.Context, userID int64) (int, error)
}
