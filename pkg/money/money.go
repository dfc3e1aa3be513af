// Package money converts minor-unit integer amounts into the decimal strings the gateway expects.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {},
	"krw": {}, "mga": {}, "pyg": {}, "rwf": {}, "ugx": {}, "vnd": {},
	"vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// IsZeroDecimal reports whether the currency has no minor unit.
func IsZeroDecimal(currency string) bool {
	_, ok := zeroDecimalCurrencies[strings.ToLower(strings.TrimSpace(currency))]
	return ok
}

// FormatAmount renders a minor-unit amount for the currency. Zero-decimal
// currencies render as the bare integer, everything else with exactly two
// decimal places.
func FormatAmount(amount int64, currency string) string {
	if IsZeroDecimal(currency) {
		return decimal.NewFromInt(amount).String()
	}
	return decimal.New(amount, -2).StringFixed(2)
}

// ParseAmount converts a gateway decimal string back into minor units.
func ParseAmount(value, currency string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if IsZeroDecimal(currency) {
		return d.Round(0).IntPart(), nil
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

// Min returns the smaller of two minor-unit amounts.
func Min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
