package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/loyalty-discount/internal/domain/loyalty"
	"github.com/xenking/loyalty-discount/internal/domain/order"
)

const maxBodyBytes = 1 << 20

type orderTotalRequest struct {
	ID               string                     `json:"id"`
	CustomerID       string                     `json:"customer_id"`
	Guest            bool                       `json:"guest"`
	CouponCode       string                     `json:"coupon_code"`
	Currency         string                     `json:"currency"`
	Subtotal         decimal.Decimal            `json:"subtotal"`
	Total            decimal.Decimal            `json:"total"`
	Tax              decimal.Decimal            `json:"tax"`
	TaxGroups        map[string]decimal.Decimal `json:"tax_groups"`
	ShippingCost     decimal.Decimal            `json:"shipping_cost"`
	ShippingTax      decimal.Decimal            `json:"shipping_tax"`
	ShippingTaxGroup string                     `json:"shipping_tax_group"`
	Items            []order.LineItem           `json:"items"`
}

func (r *orderTotalRequest) validate() error {
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	if r.Total.IsNegative() {
		return errors.New("total must not be negative")
	}
	for i, it := range r.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("item %d: quantity must be positive", i)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("item %d: price must not be negative", i)
		}
	}
	return nil
}

func (r *orderTotalRequest) order() *order.Order {
	groups := make(map[string]decimal.Decimal, len(r.TaxGroups))
	for g, v := range r.TaxGroups {
		groups[g] = v
	}
	return &order.Order{
		ID:               r.ID,
		CustomerID:       r.CustomerID,
		Guest:            r.Guest,
		CouponCode:       r.CouponCode,
		Currency:         r.Currency,
		Subtotal:         r.Subtotal,
		Total:            r.Total,
		Tax:              r.Tax,
		TaxGroups:        groups,
		ShippingCost:     r.ShippingCost,
		ShippingTax:      r.ShippingTax,
		ShippingTaxGroup: r.ShippingTaxGroup,
		Items:            r.Items,
	}
}

type orderFigures struct {
	Subtotal  decimal.Decimal            `json:"subtotal"`
	Total     decimal.Decimal            `json:"total"`
	Tax       decimal.Decimal            `json:"tax"`
	TaxGroups map[string]decimal.Decimal `json:"tax_groups"`
}

type orderTotalResponse struct {
	Order orderFigures      `json:"order"`
	Lines []order.TotalLine `json:"lines"`
}

// OrderTotal runs the order-total pipeline once over the posted snapshot.
func (h *Handler) OrderTotal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req orderTotalRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid order: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid order: "+err.Error())
		return
	}

	o := req.order()
	lines, err := h.totals.Run(ctx, o)
	if err != nil {
		if errors.Is(err, loyalty.ErrDataSource) {
			zctx.From(ctx).Warn("Order history unavailable", zap.String("order_id", o.ID), zap.Error(err))
			writeError(ctx, w, http.StatusServiceUnavailable, "order history unavailable")
			return
		}
		zctx.From(ctx).Error("Order total failed", zap.String("order_id", o.ID), zap.Error(err))
		writeError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}
	if lines == nil {
		lines = []order.TotalLine{}
	}

	writeJSON(ctx, w, http.StatusOK, orderTotalResponse{
		Order: orderFigures{
			Subtotal:  o.Subtotal,
			Total:     o.Total,
			Tax:       o.Tax,
			TaxGroups: o.TaxGroups,
		},
		Lines: lines,
	})
}
