// Package currency formats monetary amounts for display and exposes the
// decimal precision each currency is rounded to.
package currency

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrUnknownCurrency is returned when a currency code is not registered.
var ErrUnknownCurrency = errors.New("unknown currency")

// Formatter renders amounts in a given currency and reports its precision.
type Formatter interface {
	Format(amount decimal.Decimal, code string) string
	DecimalPlaces(code string) int32
}

// Currency describes how amounts in one currency are rounded and displayed.
type Currency struct {
	Code          string
	SymbolLeft    string
	SymbolRight   string
	DecimalPlaces int32
	DecimalPoint  string
	ThousandsSep  string
}

// Round rounds amount to the currency precision.
func (c Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.DecimalPlaces)
}

// Format renders amount with the currency symbol and separators, e.g. $1,600.00.
func (c Currency) Format(amount decimal.Decimal) string {
	fixed := amount.Abs().StringFixed(c.DecimalPlaces)

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if amount.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString(c.SymbolLeft)
	b.WriteString(groupThousands(intPart, c.ThousandsSep))
	if fracPart != "" {
		b.WriteString(c.DecimalPoint)
		b.WriteString(fracPart)
	}
	b.WriteString(c.SymbolRight)
	return b.String()
}

func groupThousands(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
