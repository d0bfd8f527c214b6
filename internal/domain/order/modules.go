package order

import (
	"context"
	"slices"

	"github.com/xenking/loyalty-discount/internal/domain/currency"
)

// Codes and default sort orders of the built-in order-total modules.
const (
	CodeSubtotal = "ot_subtotal"
	CodeShipping = "ot_shipping"
	CodeTax      = "ot_tax"
	CodeTotal    = "ot_total"

	SortSubtotal = 100
	SortShipping = 200
	SortTax      = 300
	SortTotal    = 999
)

// SubtotalModule displays the order subtotal.
type SubtotalModule struct {
	formatter currency.Formatter
	sortOrder int
}

// NewSubtotalModule creates the subtotal line module.
func NewSubtotalModule(f currency.Formatter, sortOrder int) *SubtotalModule {
	return &SubtotalModule{formatter: f, sortOrder: sortOrder}
}

func (m *SubtotalModule) Code() string   { return CodeSubtotal }
func (m *SubtotalModule) SortOrder() int { return m.sortOrder }

func (m *SubtotalModule) Process(_ context.Context, b *Build) error {
	o := b.Order
	b.Add(TotalLine{
		Code:      CodeSubtotal,
		Title:     "Sub-Total:",
		Text:      m.formatter.Format(o.Subtotal, o.Currency),
		Value:     o.Subtotal,
		SortOrder: m.sortOrder,
	})
	return nil
}

// ShippingModule displays the shipping cost when there is one.
type ShippingModule struct {
	formatter currency.Formatter
	sortOrder int
}

// NewShippingModule creates the shipping line module.
func NewShippingModule(f currency.Formatter, sortOrder int) *ShippingModule {
	return &ShippingModule{formatter: f, sortOrder: sortOrder}
}

func (m *ShippingModule) Code() string   { return CodeShipping }
func (m *ShippingModule) SortOrder() int { return m.sortOrder }

func (m *ShippingModule) Process(_ context.Context, b *Build) error {
	o := b.Order
	if o.ShippingCost.IsZero() {
		return nil
	}
	b.Add(TotalLine{
		Code:      CodeShipping,
		Title:     "Shipping:",
		Text:      m.formatter.Format(o.ShippingCost, o.Currency),
		Value:     o.ShippingCost,
		SortOrder: m.sortOrder,
	})
	return nil
}

// TaxModule emits one line per tax group, or a single line when the order
// carries tax without a group breakdown.
type TaxModule struct {
	formatter currency.Formatter
	sortOrder int
}

// NewTaxModule creates the tax line module.
func NewTaxModule(f currency.Formatter, sortOrder int) *TaxModule {
	return &TaxModule{formatter: f, sortOrder: sortOrder}
}

func (m *TaxModule) Code() string   { return CodeTax }
func (m *TaxModule) SortOrder() int { return m.sortOrder }

func (m *TaxModule) Process(_ context.Context, b *Build) error {
	o := b.Order
	if len(o.TaxGroups) == 0 {
		if !o.Tax.IsZero() {
			b.Add(m.line("Tax:", o))
		}
		return nil
	}

	groups := make([]string, 0, len(o.TaxGroups))
	for g := range o.TaxGroups {
		groups = append(groups, g)
	}
	slices.Sort(groups)

	for _, g := range groups {
		amount := o.TaxGroups[g]
		if amount.IsZero() {
			continue
		}
		b.Add(TotalLine{
			Code:      CodeTax,
			Title:     g + ":",
			Text:      m.formatter.Format(amount, o.Currency),
			Value:     amount,
			SortOrder: m.sortOrder,
		})
	}
	return nil
}

func (m *TaxModule) line(title string, o *Order) TotalLine {
	return TotalLine{
		Code:      CodeTax,
		Title:     title,
		Text:      m.formatter.Format(o.Tax, o.Currency),
		Value:     o.Tax,
		SortOrder: m.sortOrder,
	}
}

// TotalModule displays the final order total.
type TotalModule struct {
	formatter currency.Formatter
	sortOrder int
}

// NewTotalModule creates the grand total module.
func NewTotalModule(f currency.Formatter, sortOrder int) *TotalModule {
	return &TotalModule{formatter: f, sortOrder: sortOrder}
}

func (m *TotalModule) Code() string   { return CodeTotal }
func (m *TotalModule) SortOrder() int { return m.sortOrder }

func (m *TotalModule) Process(_ context.Context, b *Build) error {
	o := b.Order
	b.Add(TotalLine{
		Code:      CodeTotal,
		Title:     "Total:",
		Text:      m.formatter.Format(o.Total, o.Currency),
		Value:     o.Total,
		SortOrder: m.sortOrder,
	})
	return nil
}
