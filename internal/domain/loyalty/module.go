package loyalty

import (
	"context"

	"github.com/xenking/loyalty-discount/internal/domain/order"
)

// Code identifies the loyalty discount in the order-total breakdown.
const Code = "ot_loyalty_discount"

var _ order.Module = (*Module)(nil)

// Module plugs the Engine into the order-total pipeline.
type Module struct {
	engine *Engine
}

// NewModule wraps e as an order-total module.
func NewModule(e *Engine) *Module {
	return &Module{engine: e}
}

func (m *Module) Code() string   { return Code }
func (m *Module) SortOrder() int { return m.engine.SortOrder() }

// Process applies the discount to the build's order and emits the loyalty
// line. When the subtotal line has not been produced yet, the displayed
// subtotal is reduced as well so that it reflects the discount.
func (m *Module) Process(ctx context.Context, b *order.Build) error {
	res, err := m.engine.Process(ctx, b.Order)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}

	if !b.Finalized(order.CodeSubtotal) {
		b.Order.Subtotal = b.Order.Subtotal.Sub(res.NetAmount)
	}
	b.Add(res.Line(Code, m.SortOrder()))
	return nil
}
