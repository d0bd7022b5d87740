package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// maxPriceMagnitude guards against garbage provider values (scientific-notation
// glitches, overflow artifacts) slipping into the cache.
var maxPriceMagnitude = decimal.NewFromInt(1_000_000_000_000)

// Price is a fixed-point monetary amount in a specific currency.
type Price struct {
	Amount   decimal.Decimal
	Currency string
}

// NewPrice builds a Price, rejecting negative or absurdly large amounts.
func NewPrice(amount decimal.Decimal, currency string) (Price, error) {
	if currency == "" {
		return Price{}, errors.New("currency is required")
	}
	if amount.IsNegative() {
		return Price{}, fmt.Errorf("price cannot be negative: %s", amount)
	}
	if amount.GreaterThan(maxPriceMagnitude) {
		return Price{}, fmt.Errorf("price out of bounds: %s", amount)
	}
	return Price{Amount: amount, Currency: currency}, nil
}

// Float64 returns the amount as a float64, for display and logging only.
func (p Price) Float64() float64 {
	f, _ := p.Amount.Float64()
	return f
}

func (p Price) String() string {
	return p.Amount.String() + " " + p.Currency
}

// CurrencyForSymbol infers the trading currency from a ticker suffix.
// Unsuffixed symbols default to USD.
func CurrencyForSymbol(symbol string) string {
	suffixes := map[string]string{
		".L":  "GBP",
		".PA": "EUR",
		".DE": "EUR",
		".AS": "EUR",
		".F":  "EUR",
		".TO": "CAD",
	}
	for suffix, currency := range suffixes {
		if len(symbol) > len(suffix) && symbol[len(symbol)-len(suffix):] == suffix {
			return currency
		}
	}
	return "USD"
}
