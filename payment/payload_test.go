package payment

import "testing"

func TestParsePayload_TariffFormat(t *testing.T) {
	p, err := ParsePayload("tariff_7_3_1700000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Kind != PayloadKindTariff || p.UserID != 7 || p.TariffPlanID != 3 {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestParsePayload_LegacyFormat(t *testing.T) {
	p, err := ParsePayload("7_1700000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Kind != PayloadKindBalance || p.UserID != 7 {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestParsePayload_GarbageRejected(t *testing.T) {
	if _, err := ParsePayload("garbage"); err == nil {
		t.Fatal("expected an error for an unparseable payload")
	}
}

func TestParsePayload_MalformedTariffRejected(t *testing.T) {
	if _, err := ParsePayload("tariff_7_notanumber_1700000000"); err == nil {
		t.Fatal("expected an error for a malformed tariff payload")
	}
	if _, err := ParsePayload("tariff_7_3"); err == nil {
		t.Fatal("expected an error for a short tariff payload")
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]int64{
		"500":    500,
		"100.00": 100,
		"100.6":  101,
	}
	for in, want := range cases {
		got, err := ParseAmount(in)
		if err != nil {
			t.Fatalf("ParseAmount(%q): unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseAmount(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseAmount_RejectsNegative(t *testing.T) {
	if _, err := ParseAmount("-5"); err == nil {
		t.Fatal("expected an error for a negative amount")
	}
}
