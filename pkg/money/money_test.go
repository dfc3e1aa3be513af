package money

import "testing"

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		amount   int64
		currency string
		want     string
	}{
		{amount: 1050, currency: "jpy", want: "1050"},
		{amount: 1050, currency: "JPY", want: "1050"},
		{amount: 1050, currency: "inr", want: "10.50"},
		{amount: 2000, currency: "inr", want: "20.00"},
		{amount: 5, currency: "usd", want: "0.05"},
		{amount: 0, currency: "inr", want: "0.00"},
		{amount: 999, currency: "krw", want: "999"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.amount, tc.currency); got != tc.want {
			t.Fatalf("FormatAmount(%d, %q) = %q, want %q", tc.amount, tc.currency, got, tc.want)
		}
	}
}

func TestParseAmountRoundTripsFormattedValues(t *testing.T) {
	cases := []struct {
		value    string
		currency string
		want     int64
	}{
		{value: "20.00", currency: "inr", want: 2000},
		{value: "10.5", currency: "inr", want: 1050},
		{value: "1050", currency: "jpy", want: 1050},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.value, tc.currency)
		if err != nil {
			t.Fatalf("ParseAmount(%q) returned error: %v", tc.value, err)
		}
		if got != tc.want {
			t.Fatalf("ParseAmount(%q, %q) = %d, want %d", tc.value, tc.currency, got, tc.want)
		}
	}

	if _, err := ParseAmount("abc", "inr"); err == nil {
		t.Fatal("expected error for malformed amount")
	}
}

func TestIsZeroDecimal(t *testing.T) {
	if !IsZeroDecimal(" VND ") {
		t.Fatal("expected vnd to be zero-decimal")
	}
	if IsZeroDecimal("inr") {
		t.Fatal("expected inr to use two decimals")
	}
}

func TestMin(t *testing.T) {
	if Min(2000, 5000) != 2000 || Min(5000, 2000) != 2000 {
		t.Fatal("Min returned the larger value")
	}
}
