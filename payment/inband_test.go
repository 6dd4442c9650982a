package payment

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeBotAPI struct {
	requests []tgbotapi.Chattable
}

func (f *fakeBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestInbandHandler_PreCheckoutAlwaysConfirms(t *testing.T) {
	bot := &fakeBotAPI{}
	h := NewInbandHandler(bot, nil, nil)

	if err := h.HandlePreCheckout(&tgbotapi.PreCheckoutQuery{ID: "q1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bot.requests) != 1 {
		t.Fatalf("expected exactly one pre-checkout confirmation, got %d", len(bot.requests))
	}
	cfg, ok := bot.requests[0].(tgbotapi.PreCheckoutConfig)
	if !ok || !cfg.OK || cfg.PreCheckoutQueryID != "q1" {
		t.Fatalf("unexpected pre-checkout config: %+v", bot.requests[0])
	}
}

func TestInbandHandler_SuccessfulPaymentParsesTariffPayload(t *testing.T) {
	st := newFakeBridgeStore()
	notifier := &fakePaymentNotifier{}
	bridge := New(st, notifier, nil)
	h := NewInbandHandler(&fakeBotAPI{}, bridge, nil)

	sp := &tgbotapi.SuccessfulPayment{
		InvoicePayload:          "tariff_7_3_1700000000",
		TotalAmount:             50000,
		TelegramPaymentChargeID: "charge-1",
	}
	if err := h.HandleSuccessfulPayment(context.Background(), 7, sp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := st.tariffs[7]
	if got == nil || !got.IsActive || got.TariffPlanID != 3 {
		t.Fatalf("expected an active tariff 3 for user 7, got %+v", got)
	}
}

func TestInbandHandler_UnparsablePayloadFallsBackToKnownSender(t *testing.T) {
	st := newFakeBridgeStore()
	notifier := &fakePaymentNotifier{}
	bridge := New(st, notifier, nil)
	h := NewInbandHandler(&fakeBotAPI{}, bridge, nil)

	sp := &tgbotapi.SuccessfulPayment{
		InvoicePayload:          "garbage",
		TotalAmount:             500,
		TelegramPaymentChargeID: "charge-2",
	}
	if err := h.HandleSuccessfulPayment(context.Background(), 99, sp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.balances[99] != 500 {
		t.Fatalf("expected user 99's balance to be credited 500, got %d", st.balances[99])
	}
}

func TestInbandHandler_DuplicateChargeIDSettlesOnce(t *testing.T) {
	st := newFakeBridgeStore()
	notifier := &fakePaymentNotifier{}
	bridge := New(st, notifier, nil)
	h := NewInbandHandler(&fakeBotAPI{}, bridge, nil)

	sp := &tgbotapi.SuccessfulPayment{
		InvoicePayload:          "42_1700000000",
		TotalAmount:             500,
		TelegramPaymentChargeID: "charge-3",
	}
	_ = h.HandleSuccessfulPayment(context.Background(), 42, sp)
	_ = h.HandleSuccessfulPayment(context.Background(), 42, sp)

	if st.balances[42] != 500 {
		t.Fatalf("expected balance to reflect exactly one settlement, got %d", st.balances[42])
	}
}
