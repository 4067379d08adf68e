package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrencyDigits is the precision used when a currency is unknown.
const DefaultCurrencyDigits = 2

// Currency maps an ISO 4217 code to the decimal precision used for
// equality and formatting of amounts in that currency.
type Currency struct {
	Code      string
	Label     string
	Digits    int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Round rounds an amount to the currency's precision.
func (c *Currency) Round(a decimal.Decimal) decimal.Decimal {
	return a.Round(c.Digits)
}

// AmountsEqual reports whether two amounts are equal at the currency's
// precision.
func (c *Currency) AmountsEqual(a, b decimal.Decimal) bool {
	return c.Round(a).Equal(c.Round(b))
}

// Format renders an amount as a fixed-point string at the currency's
// precision.
func (c *Currency) Format(a decimal.Decimal) string {
	return a.StringFixed(c.Digits)
}
