package loyalty

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/loyalty-discount/internal/domain/order"
)

// Basis is the amount a loyalty percentage applies to, together with the
// tax figures the tax recalculation step needs.
type Basis struct {
	Amount decimal.Decimal
	// NonGiftTax is the tax on every line item except gift certificates.
	NonGiftTax decimal.Decimal
	// TaxGroups breaks NonGiftTax down by tax group, plus shipping tax when
	// shipping is included with tax and the order names a shipping group.
	TaxGroups map[string]decimal.Decimal
	// ShippingTax is the shipping tax counted in Amount, zero unless both
	// tax and shipping are included.
	ShippingTax decimal.Decimal
	// GiftCertificates is the value removed from the subtotal.
	GiftCertificates decimal.Decimal
}

// ComputeBasis derives the discountable amount from o. Amounts are rounded
// to places after every accumulation step so the result matches the figures
// customers see.
func ComputeBasis(o *order.Order, places int32, includeTax, includeShipping bool) Basis {
	round := func(v decimal.Decimal) decimal.Decimal { return v.Round(places) }

	b := Basis{
		Amount:           round(o.Subtotal),
		NonGiftTax:       zero,
		TaxGroups:        make(map[string]decimal.Decimal),
		ShippingTax:      zero,
		GiftCertificates: zero,
	}

	for _, item := range o.Items {
		qty := decimal.NewFromInt(int64(item.Quantity))

		if item.IsGiftCertificate() {
			line := round(item.LineTotal())
			b.GiftCertificates = round(b.GiftCertificates.Add(line))
			b.Amount = round(b.Amount.Sub(line))
			continue
		}

		for _, rate := range item.TaxRates {
			unitTax := round(item.Price.Mul(rate.Rate).Div(hundred))
			lineTax := round(unitTax.Mul(qty))
			b.NonGiftTax = round(b.NonGiftTax.Add(lineTax))
			b.TaxGroups[rate.Group] = round(b.TaxGroups[rate.Group].Add(lineTax))
		}
	}

	if includeTax {
		b.Amount = round(b.Amount.Add(b.NonGiftTax))
		if includeShipping {
			b.ShippingTax = round(o.ShippingTax)
			b.Amount = round(b.Amount.Add(b.ShippingTax))
			if o.ShippingTaxGroup != "" {
				g := o.ShippingTaxGroup
				b.TaxGroups[g] = round(b.TaxGroups[g].Add(b.ShippingTax))
			}
		}
	}

	if includeShipping {
		b.Amount = round(b.Amount.Add(o.ShippingCost))
	}

	if b.Amount.IsNegative() {
		b.Amount = zero
	}
	return b
}
