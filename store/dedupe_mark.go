package store

import (
	"context"
	"time"
)

// DedupeKind names a tariff-reminder stage (spec §4.5).
type DedupeKind string

const (
	DedupeKindDay         DedupeKind = "day"
	DedupeKindHour        DedupeKind = "hour"
	DedupeKindExpired     DedupeKind = "expired"
	DedupeKindPostExpired DedupeKind = "post_expired"
)

// NotificationDedupeMark is the persisted form of C6's in-memory
// de-duplication set: it records that a reminder of Kind was already sent
// to UserID within the 24h window starting at WindowStart, so a process
// restart mid-window does not re-send it.
type NotificationDedupeMark struct {
	UserID      int64
	Kind        DedupeKind
	WindowStart time.Time
}

// DedupeMarkStore persists NotificationDedupeMark rows.
type DedupeMarkStore interface {
	GetDedupeMark(ctx context.Context, userID int64, kind DedupeKind) (*NotificationDedupeMark, error)
	UpsertDedupeMark(ctx context.Context, mark *NotificationDedupeMark) error
	// ListDedupeMarks returns the full set, used to hydrate C6's in-memory
	// map on startup.
	ListDedupeMarks(ctx context.Context) ([]*NotificationDedupeMark, error)
	// DeleteDedupeMark removes a mark. The checker's 24h window rollover
	// clears only its in-memory set and does not call this.
	DeleteDedupeMark(ctx context.Context, userID int64, kind DedupeKind) error
}
