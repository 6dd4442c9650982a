package store

import (
	"context"
	"time"
)

// ReferralLink is an admin-issued code users can be attributed to (spec §3).
type ReferralLink struct {
	Code      string
	CreatedAt time.Time
}

// FindReferralLink filters ListReferralLinks.
type FindReferralLink struct {
	Code *string
}

// ReferralLinkStore persists ReferralLink rows.
type ReferralLinkStore interface {
	CreateReferralLink(ctx context.Context, code string) (*ReferralLink, error)
	GetReferralLink(ctx context.Context, code string) (*ReferralLink, error)
	ListReferralLinks(ctx context.Context, find *FindReferralLink) ([]*ReferralLink, error)
	// DeleteReferralLink removes a code. Implementations must refuse
	// deletion while any user still references it via referrer_code.
	DeleteReferralLink(ctx context.Context, code string) error
}
