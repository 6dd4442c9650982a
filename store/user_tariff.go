package store

import (
	"context"
	"time"
)

// UserTariff is the single active tariff assignment for a user (spec §3).
// Reads return rows as stored: a row can have IsActive set with an EndDate
// in the past until C6's scan clears it through DeactivateExpired; reads do
// not clear it themselves.
type UserTariff struct {
	UserID       int64
	TariffPlanID int64
	StartDate    time.Time
	EndDate      time.Time
	IsActive     bool
}

// UpsertUserTariff creates or replaces the single row for a user.
type UpsertUserTariff struct {
	UserID       int64
	TariffPlanID int64
	StartDate    time.Time
	EndDate      time.Time
	IsActive     bool
}

// FindUserTariff filters ListUserTariffs.
type FindUserTariff struct {
	IsActive       *bool
	ExpiringBefore *time.Time
}

// UserTariffStore persists UserTariff rows.
type UserTariffStore interface {
	GetUserTariff(ctx context.Context, userID int64) (*UserTariff, error)
	UpsertUserTariff(ctx context.Context, upsert *UpsertUserTariff) (*UserTariff, error)
	ListUserTariffs(ctx context.Context, find *FindUserTariff) ([]*UserTariff, error)
	// DeactivateExpired clears IsActive on every row with IsActive = true and
	// EndDate <= asOf, returning the rows it touched. Used by C6's scan;
	// GetUserTariff and ListUserTariffs do not call it.
	DeactivateExpired(ctx context.Context, asOf time.Time) ([]*UserTariff, error)
}
