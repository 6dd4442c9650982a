package payment

// Receipt is the tax-receipt enrichment payload some in-band providers
// require alongside a charge (spec.md §6). C10 attaches it to the outbound
// invoice's provider data when the configured provider calls for one.
type Receipt struct {
	Receipt receiptBody `json:"receipt"`
}

type receiptBody struct {
	Items []receiptItem `json:"items"`
}

type receiptItem struct {
	Description    string        `json:"description"`
	Quantity       int           `json:"quantity"`
	Amount         receiptAmount `json:"amount"`
	VATCode        int           `json:"vat_code"`
	PaymentMode    string        `json:"payment_mode"`
	PaymentSubject string        `json:"payment_subject"`
}

type receiptAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// BuildReceipt composes a single-line-item receipt. Defaults
// (vat_code=1, full_payment, commodity) apply when the corresponding
// argument is the zero value, matching spec.md §6's operator-overridable
// defaults.
func BuildReceipt(title, amount string, vatCode int, paymentMode, paymentSubject string) Receipt {
	if vatCode == 0 {
		vatCode = 1
	}
	if paymentMode == "" {
		paymentMode = "full_payment"
	}
	if paymentSubject == "" {
		paymentSubject = "commodity"
	}
	return Receipt{
		Receipt: receiptBody{
			Items: []receiptItem{{
				Description:    title,
				Quantity:       1,
				Amount:         receiptAmount{Value: amount, Currency: "RUB"},
				VATCode:        vatCode,
				PaymentMode:    paymentMode,
				PaymentSubject: paymentSubject,
			}},
		},
	}
}
