package store

import (
	"context"
	"time"
)

// AdminAuditEntry is an append-only log row for an admin-driven mutation
// (tariff changes, referral code issuance, manual balance adjustments).
// Ambient addition grounded on the teacher's SecurityAuditStore pattern;
// C10's UI is out of scope, but the store exposes the sink so a future
// admin surface does not need a new storage layer.
type AdminAuditEntry struct {
	ID          int64
	ActorUserID int64
	Action      string
	Target      string
	CreatedAt   time.Time
}

// CreateAdminAuditEntry appends an entry.
type CreateAdminAuditEntry struct {
	ActorUserID int64
	Action      string
	Target      string
}

// FindAdminAuditEntry filters ListAdminAuditEntries.
type FindAdminAuditEntry struct {
	ActorUserID *int64
	Limit       *int
	Offset      *int
}

// AdminAuditStore persists AdminAuditEntry rows.
type AdminAuditStore interface {
	LogAdminAction(ctx context.Context, create *CreateAdminAuditEntry) error
	ListAdminAuditEntries(ctx context.Context, find *FindAdminAuditEntry) ([]*AdminAuditEntry, error)
}
