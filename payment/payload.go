// Package payment implements the payment bridge (C7): signature
// verification and idempotent settlement for both payment channels
// (spec.md §4.6).
package payment

import (
	"fmt"
	"strconv"
	"strings"
)

// PayloadKind distinguishes the two settlement shapes a dispatch payload can
// carry.
type PayloadKind int

const (
	PayloadKindBalance PayloadKind = iota
	PayloadKindTariff
)

const tariffPayloadPrefix = "tariff_"

// Payload is the parsed form of MERCHANT_ORDER_ID (Channel A) or
// invoice_payload (Channel B).
type Payload struct {
	Kind         PayloadKind
	UserID       int64
	TariffPlanID int64
}

// ParsePayload dispatches by prefix: "tariff_<user_id>_<tariff_id>_<timestamp>"
// activates a tariff; "<user_id>_<timestamp>" (legacy) credits the balance.
// Anything that fits neither shape is an error. Channel A rejects that error
// outright; Channel B instead falls back to crediting the already-known
// sender, since it never needs the payload to learn who paid.
func ParsePayload(raw string) (Payload, error) {
	if rest, ok := strings.CutPrefix(raw, tariffPayloadPrefix); ok {
		parts := strings.Split(rest, "_")
		if len(parts) != 3 {
			return Payload{}, fmt.Errorf("payment: malformed tariff payload %q", raw)
		}
		userID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return Payload{}, fmt.Errorf("payment: malformed tariff payload %q: %w", raw, err)
		}
		tariffID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return Payload{}, fmt.Errorf("payment: malformed tariff payload %q: %w", raw, err)
		}
		if _, err := strconv.ParseInt(parts[2], 10, 64); err != nil {
			return Payload{}, fmt.Errorf("payment: malformed tariff payload %q: %w", raw, err)
		}
		return Payload{Kind: PayloadKindTariff, UserID: userID, TariffPlanID: tariffID}, nil
	}

	parts := strings.Split(raw, "_")
	if len(parts) != 2 {
		return Payload{}, fmt.Errorf("payment: malformed legacy payload %q", raw)
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Payload{}, fmt.Errorf("payment: malformed legacy payload %q: %w", raw, err)
	}
	if _, err := strconv.ParseInt(parts[1], 10, 64); err != nil {
		return Payload{}, fmt.Errorf("payment: malformed legacy payload %q: %w", raw, err)
	}
	return Payload{Kind: PayloadKindBalance, UserID: userID}, nil
}

// ParseAmount converts a decimal or whole amount string ("500", "100.00")
// to the integer unit the store's Balance/PaymentHistory columns use.
// Fractional digits beyond the decimal point are rounded, not scaled up —
// the provider's AMOUNT field is already denominated in the same unit the
// store tracks.
func ParseAmount(amount string) (int64, error) {
	f, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return 0, fmt.Errorf("payment: malformed amount %q: %w", amount, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("payment: negative amount %q", amount)
	}
	return int64(f + 0.5), nil
}
