package store

import "context"

// ZeroTariffPlanID is the well-known id of the distinguished free plan
// auto-assigned on user creation (spec §3).
const ZeroTariffPlanID int64 = 1

// TariffPlan is a billable subscription tier (spec §3).
type TariffPlan struct {
	ID                 int64
	Name               string
	Price              int64
	MaxProjects        int
	MaxChatsPerProject int
	IsActive           bool
	Description        string
}

// CreateTariffPlan creates a new plan.
type CreateTariffPlan struct {
	Name               string
	Price              int64
	MaxProjects        int
	MaxChatsPerProject int
	Description        string
}

// UpdateTariffPlan patches mutable plan fields; nil fields are left unchanged.
type UpdateTariffPlan struct {
	ID                 int64
	Name               *string
	Price              *int64
	MaxProjects        *int
	MaxChatsPerProject *int
	IsActive           *bool
	Description        *string
}

// FindTariffPlan filters ListTariffPlans.
type FindTariffPlan struct {
	IsActive *bool
}

// TariffPlanStore persists TariffPlan rows.
type TariffPlanStore interface {
	CreateTariffPlan(ctx context.Context, create *CreateTariffPlan) (*TariffPlan, error)
	GetTariffPlan(ctx context.Context, id int64) (*TariffPlan, error)
	ListTariffPlans(ctx context.Context, find *FindTariffPlan) ([]*TariffPlan, error)
	UpdateTariffPlan(ctx context.Context, update *UpdateTariffPlan) (*TariffPlan, error)
	// DeleteTariffPlan must fail if any UserTariff row still references id.
	DeleteTariffPlan(ctx context.Context, id int64) error
}
