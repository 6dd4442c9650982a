package payment

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifyWebhookSignature checks sign against
// md5(shopID:amount:secretWord2:orderID), comparing case-insensitively in
// constant time to avoid a timing oracle on the hex digest (spec.md §6).
func VerifyWebhookSignature(shopID, amount, secretWord2, orderID, sign string) bool {
	expected := md5Hex(shopID + ":" + amount + ":" + secretWord2 + ":" + orderID)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(expected)), []byte(strings.ToLower(sign))) == 1
}

// BuildPaymentFormURL builds the FreeKassa-style outbound payment-form URL
// (spec.md §6), used when presenting a purchase link to a buyer.
func BuildPaymentFormURL(shopID, amount, secretWord1, orderID string) string {
	sign := md5Hex(shopID + ":" + amount + ":" + secretWord1 + ":RUB:" + orderID)
	return fmt.Sprintf("https://pay.fk.money/?m=%s&oa=%s&currency=RUB&o=%s&s=%s", shopID, amount, orderID, sign)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
