package tariff

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadwatch/store"
)

type fakeTariffStore struct {
	mu      sync.Mutex
	tariffs map[int64]*store.UserTariff
	marks   map[dedupeKey]*store.NotificationDedupeMark
}

func newFakeTariffStore() *fakeTariffStore {
	return &fakeTariffStore{
		tariffs: make(map[int64]*store.UserTariff),
		marks:   make(map[dedupeKey]*store.NotificationDedupeMark),
	}
}

func (f *fakeTariffStore) ListUserTariffs(ctx context.Context, find *store.FindUserTariff) ([]*store.UserTariff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.UserTariff
	for _, t := range f.tariffs {
		if find.IsActive != nil && t.IsActive != *find.IsActive {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTariffStore) DeactivateExpired(ctx context.Context, asOf time.Time) ([]*store.UserTariff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.UserTariff
	for _, t := range f.tariffs {
		if t.IsActive && !t.EndDate.After(asOf) {
			t.IsActive = false
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTariffStore) GetDedupeMark(ctx context.Context, userID int64, kind store.DedupeKind) (*store.NotificationDedupeMark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.marks[dedupeKey{userID, kind}]; ok {
		return m, nil
	}
	return nil, nil
}

func (f *fakeTariffStore) UpsertDedupeMark(ctx context.Context, mark *store.NotificationDedupeMark) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marks[dedupeKey{mark.UserID, mark.Kind}] = mark
	return nil
}

func (f *fakeTariffStore) ListDedupeMarks(ctx context.Context) ([]*store.NotificationDedupeMark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.NotificationDedupeMark
	for _, m := range f.marks {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeTariffStore) DeleteDedupeMark(ctx context.Context, userID int64, kind store.DedupeKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.marks, dedupeKey{userID, kind})
	return nil
}

type fakeNotifier struct {
	mu  sync.Mutex
	got []dedupeKey
}

func (f *fakeNotifier) NotifyTariff(ctx context.Context, userID int64, kind store.DedupeKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, dedupeKey{userID, kind})
	return nil
}

func (f *fakeNotifier) count(userID int64, kind store.DedupeKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.got {
		if k == (dedupeKey{userID, kind}) {
			n++
		}
	}
	return n
}

func TestScan_ExpiredTariffDeactivatesAndNotifiesOnce(t *testing.T) {
	st := newFakeTariffStore()
	st.tariffs[1] = &store.UserTariff{UserID: 1, IsActive: true, EndDate: time.Now().Add(-time.Hour)}
	notifier := &fakeNotifier{}
	c := New(st, notifier, nil)
	c.windowStart = time.Now()

	c.scan(context.Background())
	c.scan(context.Background())

	if st.tariffs[1].IsActive {
		t.Fatal("expected tariff to be deactivated")
	}
	if got := notifier.count(1, store.DedupeKindExpired); got != 1 {
		t.Fatalf("expected exactly one expired notification, got %d", got)
	}
}

func TestScan_DayWindowFiresOnce(t *testing.T) {
	st := newFakeTariffStore()
	st.tariffs[1] = &store.UserTariff{UserID: 1, IsActive: true, EndDate: time.Now().Add(23*time.Hour + 30*time.Minute)}
	notifier := &fakeNotifier{}
	c := New(st, notifier, nil)
	c.windowStart = time.Now()

	c.scan(context.Background())
	c.scan(context.Background())

	if got := notifier.count(1, store.DedupeKindDay); got != 1 {
		t.Fatalf("expected exactly one day notification, got %d", got)
	}
}

func TestScan_HourWindowFiresOnce(t *testing.T) {
	st := newFakeTariffStore()
	st.tariffs[1] = &store.UserTariff{UserID: 1, IsActive: true, EndDate: time.Now().Add(45 * time.Minute)}
	notifier := &fakeNotifier{}
	c := New(st, notifier, nil)
	c.windowStart = time.Now()

	c.scan(context.Background())

	if got := notifier.count(1, store.DedupeKindHour); got != 1 {
		t.Fatalf("expected exactly one hour notification, got %d", got)
	}
}

func TestScan_PostExpiredFiresAfter24h(t *testing.T) {
	st := newFakeTariffStore()
	notifier := &fakeNotifier{}
	c := New(st, notifier, nil)
	c.windowStart = time.Now()
	c.expiredAt[1] = time.Now().Add(-25 * time.Hour)

	c.scan(context.Background())

	if got := notifier.count(1, store.DedupeKindPostExpired); got != 1 {
		t.Fatalf("expected exactly one post_expired notification, got %d", got)
	}
	if _, still := c.expiredAt[1]; still {
		t.Fatal("expected the user to be removed from the expiry map after notifying")
	}
}

func TestScan_PostExpiredNotDueYet(t *testing.T) {
	st := newFakeTariffStore()
	notifier := &fakeNotifier{}
	c := New(st, notifier, nil)
	c.windowStart = time.Now()
	c.expiredAt[1] = time.Now().Add(-1 * time.Hour)

	c.scan(context.Background())

	if got := notifier.count(1, store.DedupeKindPostExpired); got != 0 {
		t.Fatalf("expected no post_expired notification yet, got %d", got)
	}
}

func TestMaybeResetWindow_ClearsDedupeSetAfter24h(t *testing.T) {
	st := newFakeTariffStore()
	notifier := &fakeNotifier{}
	c := New(st, notifier, nil)
	c.windowStart = time.Now().Add(-25 * time.Hour)
	c.sent[dedupeKey{1, store.DedupeKindDay}] = time.Now().Add(-25 * time.Hour)

	c.maybeResetWindow()

	if _, ok := c.sent[dedupeKey{1, store.DedupeKindDay}]; ok {
		t.Fatal("expected the dedupe set to be cleared after 24h")
	}
}

func TestIsTariffActive(t *testing.T) {
	now := time.Now()
	if IsTariffActive(nil, now) {
		t.Fatal("nil tariff must not be active")
	}
	if IsTariffActive(&store.UserTariff{IsActive: true, EndDate: now.Add(-time.Minute)}, now) {
		t.Fatal("expired tariff must not be active")
	}
	if !IsTariffActive(&store.UserTariff{IsActive: true, EndDate: now.Add(time.Minute)}, now) {
		t.Fatal("expected an active, unexpired tariff to be active")
	}
}

func TestCanCreateProject_RespectsCap(t *testing.T) {
	now := time.Now()
	tariff := &store.UserTariff{IsActive: true, EndDate: now.Add(time.Hour)}
	plan := &store.TariffPlan{MaxProjects: 2}
	if !CanCreateProject(tariff, plan, 1, now) {
		t.Fatal("expected room under the cap to allow creation")
	}
	if CanCreateProject(tariff, plan, 2, now) {
		t.Fatal("expected at-cap to deny creation")
	}
}
