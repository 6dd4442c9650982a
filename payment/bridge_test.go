package payment

import (
	"context"
	"sync"
	"testing"

	"leadwatch/store"
)

type fakeBridgeStore struct {
	mu             sync.Mutex
	balances       map[int64]int64
	tariffs        map[int64]*store.UserTariff
	historyEntries []*store.CreatePaymentHistory
}

func newFakeBridgeStore() *fakeBridgeStore {
	return &fakeBridgeStore{
		balances: make(map[int64]int64),
		tariffs:  make(map[int64]*store.UserTariff),
	}
}

func (f *fakeBridgeStore) AdjustBalance(ctx context.Context, userID int64, delta int64) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[userID] += delta
	return &store.User{UserID: userID, Balance: f.balances[userID]}, nil
}

func (f *fakeBridgeStore) UpsertUserTariff(ctx context.Context, upsert *store.UpsertUserTariff) (*store.UserTariff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &store.UserTariff{
		UserID:       upsert.UserID,
		TariffPlanID: upsert.TariffPlanID,
		StartDate:    upsert.StartDate,
		EndDate:      upsert.EndDate,
		IsActive:     upsert.IsActive,
	}
	f.tariffs[upsert.UserID] = t
	return t, nil
}

func (f *fakeBridgeStore) CreatePaymentHistory(ctx context.Context, create *store.CreatePaymentHistory) (*store.PaymentHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyEntries = append(f.historyEntries, create)
	return &store.PaymentHistory{UserID: create.UserID, Amount: create.Amount}, nil
}

type fakePaymentNotifier struct {
	mu       sync.Mutex
	payments int
	admins   int
}

func (f *fakePaymentNotifier) NotifyPayment(ctx context.Context, userID int64, amount string, kind PayloadKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments++
	return nil
}

func (f *fakePaymentNotifier) NotifyAdmins(ctx context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admins++
	return nil
}

func TestBridge_Settle_BalanceCredit(t *testing.T) {
	st := newFakeBridgeStore()
	notifier := &fakePaymentNotifier{}
	b := New(st, notifier, nil)

	err := b.Settle(context.Background(), "42_1700000000", 500, "500", Payload{Kind: PayloadKindBalance, UserID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.balances[42] != 500 {
		t.Fatalf("expected balance 500, got %d", st.balances[42])
	}
	if len(st.historyEntries) != 1 {
		t.Fatalf("expected one history row, got %d", len(st.historyEntries))
	}
	if notifier.payments != 1 || notifier.admins != 1 {
		t.Fatalf("expected exactly one buyer and one admin notification, got %d/%d", notifier.payments, notifier.admins)
	}
}

func TestBridge_Settle_TariffActivation(t *testing.T) {
	st := newFakeBridgeStore()
	notifier := &fakePaymentNotifier{}
	b := New(st, notifier, nil)

	err := b.Settle(context.Background(), "tariff_7_3_1700000000", 0, "0", Payload{Kind: PayloadKindTariff, UserID: 7, TariffPlanID: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := st.tariffs[7]
	if got == nil || !got.IsActive || got.TariffPlanID != 3 {
		t.Fatalf("expected an active tariff 3 for user 7, got %+v", got)
	}
	if got.EndDate.Sub(got.StartDate) != tariffDuration {
		t.Fatalf("expected a 30-day tariff window, got %v", got.EndDate.Sub(got.StartDate))
	}
}

type fakeMetricsRecorder struct {
	mu    sync.Mutex
	kinds []string
}

func (f *fakeMetricsRecorder) IncPaymentSettled(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
}

func TestBridge_Settle_RecordsMetricsByKind(t *testing.T) {
	st := newFakeBridgeStore()
	notifier := &fakePaymentNotifier{}
	b := New(st, notifier, nil)
	metrics := &fakeMetricsRecorder{}
	b.SetMetrics(metrics)

	_ = b.Settle(context.Background(), "42_1700000000", 500, "500", Payload{Kind: PayloadKindBalance, UserID: 42})
	_ = b.Settle(context.Background(), "tariff_7_3_1700000001", 0, "0", Payload{Kind: PayloadKindTariff, UserID: 7, TariffPlanID: 3})

	if len(metrics.kinds) != 2 || metrics.kinds[0] != "balance" || metrics.kinds[1] != "tariff" {
		t.Fatalf("expected [balance tariff], got %v", metrics.kinds)
	}
}

func TestBridge_Settle_DuplicateOrderIDSettlesOnce(t *testing.T) {
	st := newFakeBridgeStore()
	notifier := &fakePaymentNotifier{}
	b := New(st, notifier, nil)

	payload := Payload{Kind: PayloadKindBalance, UserID: 42}
	_ = b.Settle(context.Background(), "42_1700000000", 500, "500", payload)
	_ = b.Settle(context.Background(), "42_1700000000", 500, "500", payload)

	if st.balances[42] != 500 {
		t.Fatalf("expected balance to reflect exactly one settlement, got %d", st.balances[42])
	}
	if notifier.payments != 1 {
		t.Fatalf("expected exactly one notification across both deliveries, got %d", notifier.payments)
	}
}
