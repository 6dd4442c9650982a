package payment

import "testing"

func TestVerifyWebhookSignature_AcceptsComputedSignature(t *testing.T) {
	const shopID, amount, secret, orderID = "1", "100.00", "s", "42_1700000000"
	sign := md5Hex(shopID + ":" + amount + ":" + secret + ":" + orderID)

	if !VerifyWebhookSignature(shopID, amount, secret, orderID, sign) {
		t.Fatal("expected the correctly computed signature to be accepted")
	}
}

func TestVerifyWebhookSignature_IsCaseInsensitive(t *testing.T) {
	const shopID, amount, secret, orderID = "1", "100.00", "s", "42_1700000000"
	sign := md5Hex(shopID + ":" + amount + ":" + secret + ":" + orderID)

	upper := ""
	for _, r := range sign {
		if r >= 'a' && r <= 'f' {
			r -= 'a' - 'A'
		}
		upper += string(r)
	}

	if !VerifyWebhookSignature(shopID, amount, secret, orderID, upper) {
		t.Fatal("expected an uppercased signature to still be accepted")
	}
}

func TestVerifyWebhookSignature_RejectsBitFlip(t *testing.T) {
	const shopID, amount, secret, orderID = "1", "100.00", "s", "42_1700000000"
	sign := md5Hex(shopID + ":" + amount + ":" + secret + ":" + orderID)

	flipped := []byte(sign)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}

	if VerifyWebhookSignature(shopID, amount, secret, orderID, string(flipped)) {
		t.Fatal("expected a bit-flipped signature to be rejected")
	}
}

func TestVerifyWebhookSignature_RejectsWrongSecret(t *testing.T) {
	sign := md5Hex("1:100.00:wrong:42_1700000000")
	if VerifyWebhookSignature("1", "100.00", "s", "42_1700000000", sign) {
		t.Fatal("expected a signature computed with the wrong secret to be rejected")
	}
}

func TestBuildPaymentFormURL(t *testing.T) {
	url := BuildPaymentFormURL("1", "100.00", "s1", "42_1700000000")
	want := "https://pay.fk.money/?m=1&oa=100.00&currency=RUB&o=42_1700000000&s=" + md5Hex("1:100.00:s1:RUB:42_1700000000")
	if url != want {
		t.Fatalf("BuildPaymentFormURL = %q, want %q", url, want)
	}
}
