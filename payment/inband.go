package payment

import (
	"context"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botAPI is the slice of tgbotapi.BotAPI the in-band handler needs, narrowed
// so tests can fake it without a live bot token.
type botAPI interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// InbandHandler serves Channel B: the bot channel's pre-checkout and
// successful-payment events (spec.md §4.6).
type InbandHandler struct {
	bot    botAPI
	bridge *Bridge
	logger *slog.Logger
}

// NewInbandHandler builds an InbandHandler.
func NewInbandHandler(bot botAPI, bridge *Bridge, logger *slog.Logger) *InbandHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InbandHandler{bot: bot, bridge: bridge, logger: logger}
}

// HandlePreCheckout always confirms OK: the provider already reserved funds
// before sending this query, and withholding confirmation would only strand
// the charge.
func (h *InbandHandler) HandlePreCheckout(query *tgbotapi.PreCheckoutQuery) error {
	_, err := h.bot.Request(tgbotapi.PreCheckoutConfig{PreCheckoutQueryID: query.ID, OK: true})
	return err
}

// HandleSuccessfulPayment settles a charge Telegram has already cleared.
// The payload is parsed identically to Channel A's MERCHANT_ORDER_ID, but a
// parse failure falls back to a balance credit for the known sender rather
// than rejecting the event — unlike Channel A, this update always carries a
// trustworthy user id, so there's nothing to reject.
func (h *InbandHandler) HandleSuccessfulPayment(ctx context.Context, fromUserID int64, sp *tgbotapi.SuccessfulPayment) error {
	payload, err := ParsePayload(sp.InvoicePayload)
	if err != nil {
		h.logger.Info("payment: in-band payload fell back to balance credit",
			slog.Int64("user_id", fromUserID), slog.String("payload", sp.InvoicePayload))
		payload = Payload{Kind: PayloadKindBalance, UserID: fromUserID}
	}

	amountUnits := int64(sp.TotalAmount)
	amountDisplay := strconv.FormatInt(amountUnits, 10)
	return h.bridge.Settle(ctx, sp.TelegramPaymentChargeID, amountUnits, amountDisplay, payload)
}
