package egress

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"leadwatch/dispatch"
	"leadwatch/payment"
	"leadwatch/store"
)

type fakeListUsers struct {
	admins []*store.User
}

func (f *fakeListUsers) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	return f.admins, nil
}

// fakeBot records every Chattable handed to Send and never touches the
// network, so tests exercise rendering and routing without a live bot token.
type fakeBot struct {
	sent    []tgbotapi.Chattable
	failFor map[int64]error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	if f.failFor != nil {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			if err, ok := f.failFor[msg.ChatID]; ok {
				return tgbotapi.Message{}, err
			}
		}
	}
	return tgbotapi.Message{}, nil
}

func TestIsRecipientUnreachable(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"Forbidden: bot was blocked by the user", true},
		{"Forbidden: user is deactivated", true},
		{"Bad Request: chat not found", true},
		{"Forbidden: bot was kicked from the group chat", true},
		{"Too Many Requests: retry after 30", false},
		{"context deadline exceeded", false},
	}
	for _, tc := range cases {
		got := isRecipientUnreachable(errors.New(tc.msg))
		if got != tc.want {
			t.Errorf("isRecipientUnreachable(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestSend_ConsumesRateLimiterToken(t *testing.T) {
	bot := &fakeBot{}
	tg := New(bot, &fakeListUsers{}, nil)

	before := tg.limiter.Tokens()
	if err := tg.Send(context.Background(), 1, "hello", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := tg.limiter.Tokens()
	if after >= before {
		t.Fatalf("expected Send to consume a rate limiter token, before=%v after=%v", before, after)
	}
}

func TestRenderNotificationBody_Stub(t *testing.T) {
	n := dispatch.Notification{Stub: true, Snippet: "should not leak"}
	body := renderNotificationBody(n)
	if body == "" {
		t.Fatal("expected non-empty stub body")
	}
	if containsSnippet(body, "should not leak") {
		t.Fatal("stub notification must not leak the underlying snippet")
	}
}

func containsSnippet(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func TestRenderNotificationBody_FullIncludesSenderAndKeyword(t *testing.T) {
	n := dispatch.Notification{
		SenderName:     "Alice",
		SenderHandle:   "@alice",
		MatchedKeyword: "hiring",
		Snippet:        "we are hiring a backend engineer",
	}
	body := renderNotificationBody(n)
	for _, want := range []string{"Alice", "@alice", "hiring", "we are hiring a backend engineer"} {
		if !containsSnippet(body, want) {
			t.Fatalf("expected rendered body to contain %q, got %q", want, body)
		}
	}
}

func TestTariffMessage_CoversEveryKind(t *testing.T) {
	kinds := []store.DedupeKind{
		store.DedupeKindDay,
		store.DedupeKindHour,
		store.DedupeKindExpired,
		store.DedupeKindPostExpired,
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		msg := tariffMessage(k)
		if msg == "" {
			t.Fatalf("empty message for kind %q", k)
		}
		if seen[msg] {
			t.Fatalf("kind %q reused a message already used by another kind", k)
		}
		seen[msg] = true
	}
}

func TestNotifyAdmins_BroadcastsToEveryAdmin(t *testing.T) {
	bot := &fakeBot{}
	lister := &fakeListUsers{admins: []*store.User{{UserID: 1}, {UserID: 2}, {UserID: 3}}}
	tg := New(bot, lister, nil)

	if err := tg.NotifyAdmins(context.Background(), "payment settled"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bot.sent) != 3 {
		t.Fatalf("expected one send per admin, got %d", len(bot.sent))
	}
}

func TestNotifyAdmins_ContinuesPastIndividualFailure(t *testing.T) {
	bot := &fakeBot{failFor: map[int64]error{2: errors.New("Forbidden: bot was blocked by the user")}}
	lister := &fakeListUsers{admins: []*store.User{{UserID: 1}, {UserID: 2}, {UserID: 3}}}
	tg := New(bot, lister, nil)

	if err := tg.NotifyAdmins(context.Background(), "payment settled"); err == nil {
		t.Fatal("expected the blocked admin's failure to surface")
	}
	if len(bot.sent) != 3 {
		t.Fatalf("expected the broadcast to continue past the failed admin, got %d sends", len(bot.sent))
	}
}

func TestNotifyPayment_MessageVariesByKind(t *testing.T) {
	tg := New(&fakeBot{}, &fakeListUsers{}, nil)

	if err := tg.NotifyPayment(context.Background(), 1, "500", payment.PayloadKindBalance); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tg.NotifyPayment(context.Background(), 1, "500", payment.PayloadKindTariff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSend_BlockedRecipientWrapsErrRecipientUnreachable(t *testing.T) {
	bot := &fakeBot{failFor: map[int64]error{7: errors.New("Forbidden: bot was blocked by the user")}}
	tg := New(bot, &fakeListUsers{}, nil)
	sender := DispatchSender{tg}

	err := sender.Send(context.Background(), dispatch.Notification{RecipientUserID: 7, Snippet: "hi"})
	if !errors.Is(err, dispatch.ErrRecipientUnreachable) {
		t.Fatalf("expected ErrRecipientUnreachable, got %v", err)
	}
}

func TestSend_TransientFailurePassesThrough(t *testing.T) {
	bot := &fakeBot{failFor: map[int64]error{7: errors.New("Too Many Requests: retry after 30")}}
	tg := New(bot, &fakeListUsers{}, nil)
	sender := DispatchSender{tg}

	err := sender.Send(context.Background(), dispatch.Notification{RecipientUserID: 7, Snippet: "hi"})
	if err == nil || errors.Is(err, dispatch.ErrRecipientUnreachable) {
		t.Fatalf("expected a plain transient error, got %v", err)
	}
}

type fakeMetricsRecorder struct {
	notifications []string
	reminders     []string
}

func (f *fakeMetricsRecorder) IncNotification(kind string)    { f.notifications = append(f.notifications, kind) }
func (f *fakeMetricsRecorder) IncTariffReminder(stage string) { f.reminders = append(f.reminders, stage) }

func TestDispatchSenderSend_RecordsNotificationKind(t *testing.T) {
	tg := New(&fakeBot{}, &fakeListUsers{}, nil)
	metrics := &fakeMetricsRecorder{}
	tg.SetMetrics(metrics)
	sender := DispatchSender{tg}

	if err := sender.Send(context.Background(), dispatch.Notification{RecipientUserID: 1, Stub: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sender.Send(context.Background(), dispatch.Notification{RecipientUserID: 1, Snippet: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(metrics.notifications) != 2 || metrics.notifications[0] != "stub" || metrics.notifications[1] != "full" {
		t.Fatalf("expected [stub full], got %v", metrics.notifications)
	}
}

func TestNotifyTariff_RecordsReminderStage(t *testing.T) {
	tg := New(&fakeBot{}, &fakeListUsers{}, nil)
	metrics := &fakeMetricsRecorder{}
	tg.SetMetrics(metrics)

	if err := tg.NotifyTariff(context.Background(), 1, store.DedupeKindHour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metrics.reminders) != 1 || metrics.reminders[0] != "hour" {
		t.Fatalf("expected [hour], got %v", metrics.reminders)
	}
}
