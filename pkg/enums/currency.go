package enums

import "fmt"

// Currency identifies the denominations sellers can price their catalog in.
type Currency string

const (
	CurrencyGHS Currency = "GHS"
	CurrencyNGN Currency = "NGN"
	CurrencyKES Currency = "KES"
	CurrencyUSD Currency = "USD"
)

var validCurrencies = []Currency{
	CurrencyGHS,
	CurrencyNGN,
	CurrencyKES,
	CurrencyUSD,
}

var currencySymbols = map[Currency]string{
	CurrencyGHS: "GH₵",
	CurrencyNGN: "₦",
	CurrencyKES: "KSh",
	CurrencyUSD: "$",
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// Symbol returns the display symbol shown on marketplace listings.
func (c Currency) Symbol() string {
	if symbol, ok := currencySymbols[c]; ok {
		return symbol
	}
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
