package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"leadwatch/config"
)

// WebhookHandler serves Channel A: POST /tracking/payment/notification
// (spec.md §4.6, §6).
type WebhookHandler struct {
	bridge *Bridge
	config *config.Store
}

// NewWebhookHandler builds a WebhookHandler. cfg supplies shop_id/secret_word_2
// on every request so a hot-reloaded credential takes effect immediately.
func NewWebhookHandler(bridge *Bridge, cfg *config.Store) *WebhookHandler {
	return &WebhookHandler{bridge: bridge, config: cfg}
}

// Handle implements echo.HandlerFunc.
func (h *WebhookHandler) Handle(c echo.Context) error {
	form, err := parseNotificationForm(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	params := h.config.Snapshot()
	if !VerifyWebhookSignature(params.ShopID, form.Amount, params.SecretWord2, form.OrderID, form.Sign) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid signature"})
	}

	payload, err := ParsePayload(form.OrderID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	amountUnits, err := ParseAmount(form.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.bridge.Settle(c.Request().Context(), form.OrderID, amountUnits, form.Amount, payload); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.String(http.StatusOK, "YES")
}

type notificationForm struct {
	MerchantID string
	Amount     string
	OrderID    string
	Sign       string
}

type jsonNotification struct {
	MerchantID string `json:"MERCHANT_ID"`
	Amount     string `json:"AMOUNT"`
	OrderID    string `json:"MERCHANT_ORDER_ID"`
	Sign       string `json:"SIGN"`
}

// parseNotificationForm accepts either a plain application/x-www-form-urlencoded
// body or a single-key form whose one value is a JSON body carrying the same
// fields (spec.md §6) — some providers deliver notifications that way.
func parseNotificationForm(c echo.Context) (notificationForm, error) {
	if err := c.Request().ParseForm(); err != nil {
		return notificationForm{}, fmt.Errorf("payment: parse form: %w", err)
	}
	values := c.Request().PostForm

	if orderID := values.Get("MERCHANT_ORDER_ID"); orderID != "" {
		return notificationForm{
			MerchantID: values.Get("MERCHANT_ID"),
			Amount:     values.Get("AMOUNT"),
			OrderID:    orderID,
			Sign:       values.Get("SIGN"),
		}, nil
	}

	if len(values) == 1 {
		for _, vs := range values {
			if len(vs) == 0 {
				continue
			}
			var j jsonNotification
			if err := json.Unmarshal([]byte(vs[0]), &j); err != nil {
				return notificationForm{}, fmt.Errorf("payment: parse json notification: %w", err)
			}
			return notificationForm{MerchantID: j.MerchantID, Amount: j.Amount, OrderID: j.OrderID, Sign: j.Sign}, nil
		}
	}

	return notificationForm{}, errors.New("payment: empty notification body")
}
