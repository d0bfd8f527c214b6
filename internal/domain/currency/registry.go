package currency

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var _ Formatter = (*Registry)(nil)

// Registry holds the currencies known to the store. Lookups for unknown codes
// fall back to the default currency.
type Registry struct {
	byCode   map[string]Currency
	fallback Currency
}

// Defaults returns the built-in currency set.
func Defaults() []Currency {
	return []Currency{
		{Code: "USD", SymbolLeft: "$", DecimalPlaces: 2, DecimalPoint: ".", ThousandsSep: ","},
		{Code: "EUR", SymbolRight: " €", DecimalPlaces: 2, DecimalPoint: ",", ThousandsSep: "."},
		{Code: "GBP", SymbolLeft: "£", DecimalPlaces: 2, DecimalPoint: ".", ThousandsSep: ","},
		{Code: "AUD", SymbolLeft: "A$", DecimalPlaces: 2, DecimalPoint: ".", ThousandsSep: ","},
		{Code: "JPY", SymbolLeft: "¥", DecimalPlaces: 0, DecimalPoint: ".", ThousandsSep: ","},
	}
}

// NewRegistry builds a Registry from currencies. defaultCode must be one of them.
func NewRegistry(defaultCode string, currencies ...Currency) (*Registry, error) {
	r := &Registry{byCode: make(map[string]Currency, len(currencies))}
	for _, c := range currencies {
		r.byCode[strings.ToUpper(c.Code)] = c
	}
	fallback, ok := r.byCode[strings.ToUpper(defaultCode)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCurrency, "default currency %q", defaultCode)
	}
	r.fallback = fallback
	return r, nil
}

// Lookup returns the currency registered under code.
func (r *Registry) Lookup(code string) (Currency, error) {
	c, ok := r.byCode[strings.ToUpper(code)]
	if !ok {
		return Currency{}, errors.Wrapf(ErrUnknownCurrency, "code %q", code)
	}
	return c, nil
}

func (r *Registry) resolve(code string) Currency {
	if c, err := r.Lookup(code); err == nil {
		return c
	}
	return r.fallback
}

// Format renders amount in the currency identified by code.
func (r *Registry) Format(amount decimal.Decimal, code string) string {
	c := r.resolve(code)
	return c.Format(c.Round(amount))
}

// DecimalPlaces reports the rounding precision for code.
func (r *Registry) DecimalPlaces(code string) int32 {
	return r.resolve(code).DecimalPlaces
}
