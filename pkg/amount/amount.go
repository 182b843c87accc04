// Package amount provides exact monetary amounts tagged with a currency code.
package amount

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Amount is an exact decimal quantity in a currency (or a commodity such as a stock symbol).
type Amount struct {
	Number   decimal.Decimal
	Currency string
}

// New returns an Amount for the given number and currency.
func New(number decimal.Decimal, currency string) Amount {
	return Amount{Number: number, Currency: currency}
}

// Zero returns a zero amount in the currency.
func Zero(currency string) Amount {
	return Amount{Number: decimal.Zero, Currency: currency}
}

func (a Amount) IsZero() bool     { return a.Number.IsZero() }
func (a Amount) IsNegative() bool { return a.Number.IsNegative() }
func (a Amount) IsPositive() bool { return a.Number.IsPositive() }
func (a Amount) Neg() Amount      { return Amount{Number: a.Number.Neg(), Currency: a.Currency} }
func (a Amount) Abs() Amount      { return Amount{Number: a.Number.Abs(), Currency: a.Currency} }

// Mul scales the amount, keeping its currency.
func (a Amount) Mul(d decimal.Decimal) Amount {
	return Amount{Number: a.Number.Mul(d), Currency: a.Currency}
}

// Equal reports whether both number and currency are equal.
func (a Amount) Equal(b Amount) bool {
	return a.Currency == b.Currency && a.Number.Equal(b.Number)
}

// Add adds two amounts of the same currency.
// An empty currency is weak and takes the other side's currency.
func (a Amount) Add(b Amount) Amount {
	return Amount{Number: a.Number.Add(b.Number), Currency: mergeCurrency(a, b)}
}

// Sub subtracts b from a.
func (a Amount) Sub(b Amount) Amount {
	return Amount{Number: a.Number.Sub(b.Number), Currency: mergeCurrency(a, b)}
}

func mergeCurrency(a, b Amount) string {
	if a.Currency == "" {
		return b.Currency
	}
	if b.Currency == "" {
		return a.Currency
	}
	if a.Currency != b.Currency {
		panic("currency mismatch " + a.Currency + " != " + b.Currency)
	}
	return a.Currency
}

// Round rounds the amount to the minor unit of its currency.
// Unknown currencies and commodities are returned unchanged.
func (a Amount) Round() Amount {
	cur := money.GetCurrency(a.Currency)
	if cur == nil {
		return a
	}
	return Amount{Number: a.Number.Round(int32(cur.Fraction)), Currency: a.Currency}
}

// String renders the amount as "<number> <currency>" without exponent.
func (a Amount) String() string {
	if a.Currency == "" {
		return Canonical(a.Number)
	}
	return fmt.Sprintf("%s %s", Canonical(a.Number), a.Currency)
}

// ValidCurrency reports whether code is an ISO 4217 currency known to go-money.
func ValidCurrency(code string) bool {
	return money.GetCurrency(strings.ToUpper(code)) != nil
}

// Canonical renders a decimal in plain notation: "1234.56", "-5", "0.001".
func Canonical(d decimal.Decimal) string {
	return d.String()
}
