// Package tariff implements the tariff checker (C6): a periodic scan that
// enforces time-bounded entitlements and keeps tenants informed of upcoming
// or past expiry (spec.md §4.5).
package tariff

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"leadwatch/store"
)

const (
	checkSchedule = "@every 30m"
	dedupeWindow  = 24 * time.Hour

	dayWindowLowHours  = 23.0
	dayWindowHighHours = 24.0
	hourWindowLow      = 0.5
	hourWindowHigh     = 1.0
)

// Notifier delivers one of the checker's four reminder kinds to a user.
// The composition root wires this to C8.
type Notifier interface {
	NotifyTariff(ctx context.Context, userID int64, kind store.DedupeKind) error
}

// tariffStore is the slice of C1 the checker needs.
type tariffStore interface {
	ListUserTariffs(ctx context.Context, find *store.FindUserTariff) ([]*store.UserTariff, error)
	DeactivateExpired(ctx context.Context, asOf time.Time) ([]*store.UserTariff, error)
	GetDedupeMark(ctx context.Context, userID int64, kind store.DedupeKind) (*store.NotificationDedupeMark, error)
	UpsertDedupeMark(ctx context.Context, mark *store.NotificationDedupeMark) error
	ListDedupeMarks(ctx context.Context) ([]*store.NotificationDedupeMark, error)
	DeleteDedupeMark(ctx context.Context, userID int64, kind store.DedupeKind) error
}

// Checker runs the 30-minute scan loop described in spec.md §4.5. Its
// de-duplication set is hydrated from C1 on Start so a restart mid-window
// does not re-send a reminder, and is itself cleared every 24h.
type Checker struct {
	store    tariffStore
	notifier Notifier
	logger   *slog.Logger

	mu          sync.Mutex
	sent        map[dedupeKey]time.Time // window-start recorded at send time
	expiredAt   map[int64]time.Time     // user -> expiry timestamp, for the post_expired stage
	windowStart time.Time

	cron *cron.Cron
}

type dedupeKey struct {
	userID int64
	kind   store.DedupeKind
}

// New builds a Checker. Call Start to launch the scan loop.
func New(st tariffStore, notifier Notifier, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		store:     st,
		notifier:  notifier,
		logger:    logger,
		sent:      make(map[dedupeKey]time.Time),
		expiredAt: make(map[int64]time.Time),
	}
}

// Start hydrates the in-memory dedupe set from C1 and launches the scan
// schedule. Call Stop to halt it.
func (c *Checker) Start(ctx context.Context) error {
	if err := c.hydrate(ctx); err != nil {
		return err
	}

	c.cron = cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := c.cron.AddFunc(checkSchedule, func() { c.scan(ctx) }); err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

// Stop halts the scan schedule and waits for any in-flight scan to finish.
func (c *Checker) Stop() {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
}

func (c *Checker) hydrate(ctx context.Context) error {
	marks, err := c.store.ListDedupeMarks(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windowStart = time.Now()
	for _, m := range marks {
		c.sent[dedupeKey{m.UserID, m.Kind}] = m.WindowStart
		if m.Kind == store.DedupeKindExpired {
			c.expiredAt[m.UserID] = m.WindowStart
		}
	}
	return nil
}

// scan runs exactly one pass of spec.md §4.5's algorithm. Tests in this
// package call it directly for deterministic control over when a pass happens.
func (c *Checker) scan(ctx context.Context) {
	c.maybeResetWindow()

	now := time.Now()
	active := true
	tariffs, err := c.store.ListUserTariffs(ctx, &store.FindUserTariff{IsActive: &active})
	if err != nil {
		c.logger.Error("tariff: list active tariffs failed", slog.String("error", err.Error()))
		return
	}

	var toExpire []*store.UserTariff
	for _, t := range tariffs {
		if !t.EndDate.After(now) {
			toExpire = append(toExpire, t)
			continue
		}
		c.checkUpcoming(ctx, t, now)
	}

	if len(toExpire) > 0 {
		expired, err := c.store.DeactivateExpired(ctx, now)
		if err != nil {
			c.logger.Error("tariff: deactivate expired failed", slog.String("error", err.Error()))
		} else {
			for _, t := range expired {
				c.mark(ctx, t.UserID, store.DedupeKindExpired, func() {
					c.mu.Lock()
					c.expiredAt[t.UserID] = now
					c.mu.Unlock()
				})
			}
		}
	}

	c.checkPostExpired(ctx, now)
}

func (c *Checker) checkUpcoming(ctx context.Context, t *store.UserTariff, now time.Time) {
	hoursLeft := t.EndDate.Sub(now).Hours()
	switch {
	case hoursLeft >= dayWindowLowHours && hoursLeft <= dayWindowHighHours:
		c.mark(ctx, t.UserID, store.DedupeKindDay, nil)
	case hoursLeft >= hourWindowLow && hoursLeft <= hourWindowHigh:
		c.mark(ctx, t.UserID, store.DedupeKindHour, nil)
	}
}

func (c *Checker) checkPostExpired(ctx context.Context, now time.Time) {
	c.mu.Lock()
	due := make([]int64, 0)
	for userID, expiredAt := range c.expiredAt {
		if now.Sub(expiredAt) >= dedupeWindow {
			due = append(due, userID)
		}
	}
	c.mu.Unlock()

	for _, userID := range due {
		c.mark(ctx, userID, store.DedupeKindPostExpired, func() {
			c.mu.Lock()
			delete(c.expiredAt, userID)
			c.mu.Unlock()
		})
	}
}

// mark sends the reminder exactly once per (user, kind) per window,
// persisting the mark before invoking the optional cleanup callback.
func (c *Checker) mark(ctx context.Context, userID int64, kind store.DedupeKind, onSent func()) {
	key := dedupeKey{userID, kind}

	c.mu.Lock()
	_, already := c.sent[key]
	c.mu.Unlock()
	if already {
		return
	}

	if err := c.notifier.NotifyTariff(ctx, userID, kind); err != nil {
		c.logger.Warn("tariff: notify failed", slog.Int64("user_id", userID), slog.String("kind", string(kind)), slog.String("error", err.Error()))
		return
	}

	now := time.Now()
	if err := c.store.UpsertDedupeMark(ctx, &store.NotificationDedupeMark{UserID: userID, Kind: kind, WindowStart: now}); err != nil {
		c.logger.Warn("tariff: persist dedupe mark failed", slog.Int64("user_id", userID), slog.String("kind", string(kind)), slog.String("error", err.Error()))
	}

	c.mu.Lock()
	c.sent[key] = now
	c.mu.Unlock()

	if onSent != nil {
		onSent()
	}
}

// maybeResetWindow clears the in-memory dedupe set every 24h so a
// re-purchased-then-re-expired tariff can re-notify (spec.md §4.5).
func (c *Checker) maybeResetWindow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.windowStart) < dedupeWindow {
		return
	}
	c.sent = make(map[dedupeKey]time.Time)
	c.windowStart = time.Now()
}

// IsTariffActive is a pure read used by C10 (spec.md §4.5).
func IsTariffActive(t *store.UserTariff, now time.Time) bool {
	return t != nil && t.IsActive && t.EndDate.After(now)
}

// CanCreateProject is a pure read used by C10: active tariff and under the
// plan's project cap.
func CanCreateProject(t *store.UserTariff, plan *store.TariffPlan, currentProjects int, now time.Time) bool {
	return IsTariffActive(t, now) && plan != nil && currentProjects < plan.MaxProjects
}

// CanAddChat is a pure read used by C10: active tariff and under the plan's
// per-project chat cap.
func CanAddChat(t *store.UserTariff, plan *store.TariffPlan, currentChats int, now time.Time) bool {
	return IsTariffActive(t, now) && plan != nil && currentChats < plan.MaxChatsPerProject
}
