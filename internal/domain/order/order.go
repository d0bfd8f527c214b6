// Package order models order snapshots and the order-total pipeline that
// turns them into an itemized breakdown.
package order

import (
	"strings"

	"github.com/shopspring/decimal"
)

// GiftCertificatePrefix marks products whose model code identifies a gift
// certificate. Gift certificates are never discounted.
const GiftCertificatePrefix = "GIFT"

// Order is the mutable order aggregate assembled by the order-total pipeline.
// Totals modules may only write the fields they declare ownership of.
type Order struct {
	ID         string
	CustomerID string
	// Guest is true for checkouts without a customer account.
	Guest      bool
	CouponCode string
	Currency   string

	Subtotal     decimal.Decimal
	Total        decimal.Decimal
	Tax          decimal.Decimal
	TaxGroups    map[string]decimal.Decimal
	ShippingCost decimal.Decimal
	ShippingTax  decimal.Decimal
	// ShippingTaxGroup names the tax group shipping tax is booked under, if any.
	ShippingTaxGroup string

	Items []LineItem
}

// LineItem represents a single product line in an order.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	ModelCode string          `json:"model_code"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	TaxRates  []TaxRate       `json:"tax_rates"`
}

// TaxRate is a percentage rate booked under a named tax group.
type TaxRate struct {
	Group string          `json:"group"`
	Rate  decimal.Decimal `json:"rate"`
}

// IsGiftCertificate reports whether the item is a gift certificate.
func (li LineItem) IsGiftCertificate() bool {
	return strings.HasPrefix(li.ModelCode, GiftCertificatePrefix)
}

// LineTotal returns price * quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// TotalLine is one row of the itemized order-total breakdown shown to the
// customer.
type TotalLine struct {
	Code      string          `json:"code"`
	Title     string          `json:"title"`
	Text      string          `json:"text"`
	Value     decimal.Decimal `json:"value"`
	SortOrder int             `json:"sort_order"`
}

// EnsureTaxGroups initialises the tax group map so modules can write to it.
func (o *Order) EnsureTaxGroups() {
	if o.TaxGroups == nil {
		o.TaxGroups = make(map[string]decimal.Decimal)
	}
}
