// Package money converts the integer cent amounts stored in Postgres into
// decimal values for API responses and report folds, keeping float arithmetic
// out of the financial paths.
package money

import "github.com/shopspring/decimal"

// FromCents converts an integer cent amount into a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ToCents converts a decimal amount into cents, rounding half away from zero
// at two decimal places.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

// Format renders a cent amount with its currency symbol, e.g. "GH₵12.50".
func Format(symbol string, cents int64) string {
	return symbol + FromCents(cents).StringFixed(2)
}
