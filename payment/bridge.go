package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"leadwatch/store"
	"leadwatch/store/cache"
)

const (
	tariffDuration = 30 * 24 * time.Hour
	orderCacheTTL  = 10 * time.Minute
	orderCacheSize = 4096
)

// Notifier delivers settlement outcomes through C8.
type Notifier interface {
	NotifyPayment(ctx context.Context, userID int64, amount string, kind PayloadKind) error
	NotifyAdmins(ctx context.Context, message string) error
}

// bridgeStore is the slice of C1 the bridge needs.
type bridgeStore interface {
	AdjustBalance(ctx context.Context, userID int64, delta int64) (*store.User, error)
	UpsertUserTariff(ctx context.Context, upsert *store.UpsertUserTariff) (*store.UserTariff, error)
	CreatePaymentHistory(ctx context.Context, create *store.CreatePaymentHistory) (*store.PaymentHistory, error)
}

// MetricsRecorder is the server package's metrics sink, consumed here
// through this narrow interface so payment never imports server.
type MetricsRecorder interface {
	IncPaymentSettled(kind string)
}

// Bridge commits settled payment events from either channel idempotently
// (spec.md §4.6).
type Bridge struct {
	store    bridgeStore
	notifier Notifier
	logger   *slog.Logger
	metrics  MetricsRecorder

	// seen guards retries on both channels: the same Channel A order id or
	// Channel B charge id delivered twice within orderCacheTTL settles once.
	seen *cache.LRUCache[string, struct{}]
}

// SetMetrics attaches the composition root's metrics sink. Optional — a nil
// recorder (the zero value) is a no-op.
func (b *Bridge) SetMetrics(m MetricsRecorder) { b.metrics = m }

// New builds a Bridge.
func New(st bridgeStore, notifier Notifier, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		store:    st,
		notifier: notifier,
		logger:   logger,
		seen:     cache.New[string, struct{}](orderCacheSize, orderCacheTTL),
	}
}

// Settle commits one parsed payload's effect — activating a tariff for 30
// days or crediting the balance and appending an audit row — then notifies
// the buyer and admins via C8. orderID is the webhook's MERCHANT_ORDER_ID or
// the in-band provider's charge id; amountDisplay is the amount as received,
// used only for notification text.
func (b *Bridge) Settle(ctx context.Context, orderID string, amountUnits int64, amountDisplay string, payload Payload) error {
	if orderID != "" {
		if _, dup := b.seen.Get(orderID); dup {
			b.logger.Info("payment: duplicate settlement ignored", slog.String("order_id", orderID))
			return nil
		}
		b.seen.SetDefault(orderID, struct{}{})
	}

	switch payload.Kind {
	case PayloadKindTariff:
		now := time.Now()
		if _, err := b.store.UpsertUserTariff(ctx, &store.UpsertUserTariff{
			UserID:       payload.UserID,
			TariffPlanID: payload.TariffPlanID,
			StartDate:    now,
			EndDate:      now.Add(tariffDuration),
			IsActive:     true,
		}); err != nil {
			return fmt.Errorf("payment: activate tariff: %w", err)
		}
	default:
		if _, err := b.store.AdjustBalance(ctx, payload.UserID, amountUnits); err != nil {
			return fmt.Errorf("payment: credit balance: %w", err)
		}
		if _, err := b.store.CreatePaymentHistory(ctx, &store.CreatePaymentHistory{UserID: payload.UserID, Amount: amountUnits}); err != nil {
			b.logger.Warn("payment: history append failed", slog.Int64("user_id", payload.UserID), slog.String("error", err.Error()))
		}
	}

	if b.metrics != nil {
		b.metrics.IncPaymentSettled(paymentKindLabel(payload.Kind))
	}

	if err := b.notifier.NotifyPayment(ctx, payload.UserID, amountDisplay, payload.Kind); err != nil {
		b.logger.Warn("payment: notify buyer failed", slog.Int64("user_id", payload.UserID), slog.String("error", err.Error()))
	}
	if err := b.notifier.NotifyAdmins(ctx, fmt.Sprintf("settled payment: user=%d amount=%s kind=%d", payload.UserID, amountDisplay, payload.Kind)); err != nil {
		b.logger.Warn("payment: notify admins failed", slog.String("error", err.Error()))
	}
	return nil
}

func paymentKindLabel(kind PayloadKind) string {
	if kind == PayloadKindTariff {
		return "tariff"
	}
	return "balance"
}
