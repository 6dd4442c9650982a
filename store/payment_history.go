package store

import (
	"context"
	"time"
)

// PaymentHistory is an append-only audit row for one settled credit event (spec §3).
type PaymentHistory struct {
	ID        int64
	UserID    int64
	Amount    int64
	CreatedAt time.Time
}

// CreatePaymentHistory records a settled credit event.
type CreatePaymentHistory struct {
	UserID int64
	Amount int64
}

// FindPaymentHistory filters ListPaymentHistory.
type FindPaymentHistory struct {
	UserID *int64
	Since  *time.Time
	Limit  *int
	Offset *int
}

// PaymentHistoryStore persists PaymentHistory rows.
type PaymentHistoryStore interface {
	CreatePaymentHistory(ctx context.Context, create *CreatePaymentHistory) (*PaymentHistory, error)
	ListPaymentHistory(ctx context.Context, find *FindPaymentHistory) ([]*PaymentHistory, error)
}
