package egress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"leadwatch/dispatch"
	"leadwatch/payment"
	"leadwatch/store"
)

// botAPIRate and botAPIBurst throttle every outbound call this package makes
// to the Telegram Bot API's documented global limit of ~30 messages/second,
// with enough burst to absorb NotifyAdmins fanning a message out to a handful
// of admins in one loop without waiting on the steady-state rate.
const (
	botAPIRate  = 30
	botAPIBurst = 30
)

// adminLister is the slice of C1 Telegram needs to fan NotifyAdmins out to
// every admin account.
type adminLister interface {
	ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error)
}

// botAPI is narrowed from *tgbotapi.BotAPI to the one call this package
// makes, mirroring the pattern payment/inband.go uses for its own bot
// dependency so tests don't need a live HTTP client.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// MetricsRecorder is the server package's metrics sink, consumed here
// through this narrow interface so egress never imports server.
type MetricsRecorder interface {
	IncNotification(kind string)
	IncTariffReminder(stage string)
}

// Telegram implements every narrow Notifier/Sender interface C3, C4, C6, and
// C7 define, over a single `github.com/go-telegram-bot-api/telegram-bot-api/v5`
// bot client. Grounded on the teacher's `plugin/chat_apps/channels/telegram`
// package, narrowed to the two operations this service actually needs
// (Send, SendDocument) instead of the teacher's full multi-platform surface.
type Telegram struct {
	bot     botAPI
	store   adminLister
	logger  *slog.Logger
	metrics MetricsRecorder
	limiter *rate.Limiter
}

// New builds a Telegram egress adapter. bot is typically a *tgbotapi.BotAPI.
func New(bot botAPI, st adminLister, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{
		bot:     bot,
		store:   st,
		logger:  logger,
		limiter: rate.NewLimiter(botAPIRate, botAPIBurst),
	}
}

// SetMetrics attaches the composition root's metrics sink. Optional — a nil
// recorder (the zero value) is a no-op.
func (t *Telegram) SetMetrics(m MetricsRecorder) { t.metrics = m }

// Send implements the egress.Sender primitive.
func (t *Telegram) Send(ctx context.Context, userID int64, body string, buttons []Button) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(userID, body)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if len(buttons) > 0 {
		msg.ReplyMarkup = buildKeyboard(buttons)
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := t.bot.Send(msg); err != nil {
		if isRecipientUnreachable(err) {
			return fmt.Errorf("%w: %w", dispatch.ErrRecipientUnreachable, err)
		}
		return err
	}
	return nil
}

// SendDocument implements the egress.Sender primitive, used by C5 to deliver
// a completed history export.
func (t *Telegram) SendDocument(ctx context.Context, userID int64, filename string, data []byte, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(userID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := t.bot.Send(doc); err != nil {
		if isRecipientUnreachable(err) {
			return fmt.Errorf("%w: %w", dispatch.ErrRecipientUnreachable, err)
		}
		return err
	}
	return nil
}

// DispatchSender adapts Telegram to dispatch.Sender. A separate type is
// needed because dispatch.Sender and egress.Sender both declare a method
// named Send with different signatures, which one type cannot implement
// at once.
type DispatchSender struct {
	*Telegram
}

// Send satisfies dispatch.Sender: render a C4 Notification and deliver it,
// translating a non-transient failure into dispatch.ErrRecipientUnreachable
// so the processor can flip is_active.
func (s DispatchSender) Send(ctx context.Context, n dispatch.Notification) error {
	err := s.Telegram.Send(ctx, n.RecipientUserID, renderNotificationBody(n), renderNotificationButtons(n.Buttons))
	if err == nil && s.Telegram.metrics != nil {
		kind := "full"
		if n.Stub {
			kind = "stub"
		}
		s.Telegram.metrics.IncNotification(kind)
	}
	return err
}

func renderNotificationButtons(buttons []dispatch.Button) []Button {
	out := make([]Button, len(buttons))
	for i, b := range buttons {
		out[i] = Button{Label: b.Label, URL: b.URL}
	}
	return out
}

func renderNotificationBody(n dispatch.Notification) string {
	if n.Stub {
		return "A new matching message was just posted. Upgrade your tariff to see who sent it and what it said."
	}

	var b strings.Builder
	if n.SenderName != "" {
		b.WriteString(fmt.Sprintf("*%s*", escapeMarkdown(n.SenderName)))
		if n.SenderHandle != "" {
			b.WriteString(fmt.Sprintf(" (%s)", n.SenderHandle))
		}
		b.WriteString("\n")
	}
	if n.MatchedKeyword != "" {
		b.WriteString(fmt.Sprintf("_matched: %s_\n", escapeMarkdown(n.MatchedKeyword)))
	}
	b.WriteString(n.Snippet)
	return b.String()
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer("_", "\\_", "*", "\\*", "[", "\\[", "`", "\\`")
	return replacer.Replace(s)
}

func buildKeyboard(buttons []Button) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, len(buttons))
	for i, btn := range buttons {
		row[i] = tgbotapi.NewInlineKeyboardButtonURL(btn.Label, btn.URL)
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// NotifyTariff satisfies tariff.Notifier: deliver one of the four reminder
// stages (spec.md §4.5).
func (t *Telegram) NotifyTariff(ctx context.Context, userID int64, kind store.DedupeKind) error {
	if err := t.Send(ctx, userID, tariffMessage(kind), nil); err != nil {
		return err
	}
	if t.metrics != nil {
		t.metrics.IncTariffReminder(string(kind))
	}
	return nil
}

func tariffMessage(kind store.DedupeKind) string {
	switch kind {
	case store.DedupeKindDay:
		return "Your tariff expires in about a day. Renew to avoid a gap in monitoring."
	case store.DedupeKindHour:
		return "Your tariff expires in under an hour. Renew now to avoid a gap in monitoring."
	case store.DedupeKindExpired:
		return "Your tariff has expired. Monitoring notifications are now limited until you renew."
	case store.DedupeKindPostExpired:
		return "It's been a day since your tariff expired. Renew to restore full notifications."
	default:
		return "Your tariff status has changed."
	}
}

// NotifyPayment satisfies payment.Notifier: confirm a settled payment to the
// buyer (spec.md §4.6).
func (t *Telegram) NotifyPayment(ctx context.Context, userID int64, amount string, kind payment.PayloadKind) error {
	var body string
	switch kind {
	case payment.PayloadKindTariff:
		body = fmt.Sprintf("Payment of %s received. Your tariff is now active.", amount)
	default:
		body = fmt.Sprintf("Payment of %s received. Your balance has been credited.", amount)
	}
	return t.Send(ctx, userID, body, nil)
}

// NotifyAdmins satisfies payment.Notifier: fan a message out to every
// account flagged IsAdmin.
func (t *Telegram) NotifyAdmins(ctx context.Context, message string) error {
	isAdmin := true
	admins, err := t.store.ListUsers(ctx, &store.FindUser{IsAdmin: &isAdmin})
	if err != nil {
		return fmt.Errorf("egress: list admins: %w", err)
	}

	var lastErr error
	for _, admin := range admins {
		if err := t.Send(ctx, admin.UserID, message, nil); err != nil {
			t.logger.Warn("egress: admin notify failed", slog.Int64("user_id", admin.UserID), slog.String("error", err.Error()))
			lastErr = err
		}
	}
	return lastErr
}

// isRecipientUnreachable recognizes the Telegram Bot API's non-transient
// delivery failures: the account blocked the bot, was deactivated, or the
// chat no longer exists. Anything else (rate limits, network errors) is
// left transient for the caller's retry loop.
func isRecipientUnreachable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"blocked by the user",
		"user is deactivated",
		"chat not found",
		"bot was kicked",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
