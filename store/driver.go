package store

import "context"

// Driver is the storage backend contract. sqlite and postgres each provide
// one implementation (store/db/sqlite, store/db/postgres); Store wraps
// whichever is configured and adds caching on top.
type Driver interface {
	UserStore
	ReferralLinkStore
	PaymentHistoryStore
	TariffPlanStore
	UserTariffStore
	ProjectStore
	MonitoredChatStore
	AdminAuditStore
	DedupeMarkStore

	// Migrate brings the schema up to date. Called once at startup.
	Migrate(ctx context.Context) error
	Close() error
}
