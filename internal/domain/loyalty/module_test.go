package loyalty

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/loyalty-discount/internal/domain/order"
)

func newPipeline(t *testing.T, e *Engine) *order.Pipeline {
	t.Helper()
	reg := newRegistry(t)
	p, err := order.NewPipeline(
		order.NewSubtotalModule(reg, order.SortSubtotal),
		order.NewShippingModule(reg, order.SortShipping),
		order.NewTaxModule(reg, order.SortTax),
		NewModule(e),
		order.NewTotalModule(reg, order.SortTotal),
	)
	require.NoError(t, err)
	return p
}

func lineByCode(lines []order.TotalLine, code string) (order.TotalLine, bool) {
	for _, l := range lines {
		if l.Code == code {
			return l, true
		}
	}
	return order.TotalLine{}, false
}

func TestModule_AfterSubtotal(t *testing.T) {
	e := newTestEngine(t, baseConfig(), spentRepo("1600"))
	o := plainOrder()

	lines, err := newPipeline(t, e).Run(context.Background(), o)
	require.NoError(t, err)

	codes := make([]string, len(lines))
	for i, l := range lines {
		codes[i] = l.Code
	}
	assert.Equal(t, []string{order.CodeSubtotal, Code, order.CodeTotal}, codes)

	loyaltyLine, _ := lineByCode(lines, Code)
	assertDecimal(t, "15.00", loyaltyLine.Value)
	assert.Equal(t, "$15.00", loyaltyLine.Text)
	assert.Equal(t, 998, loyaltyLine.SortOrder)
	assert.Contains(t, loyaltyLine.Title, "Loyalty Discount: Because of your previous purchases")

	subtotal, _ := lineByCode(lines, order.CodeSubtotal)
	assertDecimal(t, "200.00", subtotal.Value)
	assertDecimal(t, "200.00", o.Subtotal)

	total, _ := lineByCode(lines, order.CodeTotal)
	assertDecimal(t, "185.00", total.Value)
}

func TestModule_BeforeSubtotal(t *testing.T) {
	cfg := baseConfig()
	cfg.SortOrder = 50
	e := newTestEngine(t, cfg, spentRepo("1600"))
	o := plainOrder()

	lines, err := newPipeline(t, e).Run(context.Background(), o)
	require.NoError(t, err)

	require.Equal(t, Code, lines[0].Code)
	subtotal, _ := lineByCode(lines, order.CodeSubtotal)
	assertDecimal(t, "185.00", subtotal.Value)
	assertDecimal(t, "185.00", o.Subtotal)
}

func TestModule_NoDiscountEmitsNoLine(t *testing.T) {
	e := newTestEngine(t, baseConfig(), spentRepo("10"))

	lines, err := newPipeline(t, e).Run(context.Background(), plainOrder())
	require.NoError(t, err)

	_, found := lineByCode(lines, Code)
	assert.False(t, found)
}

func TestModule_DataSourceErrorFailsBuild(t *testing.T) {
	e := newTestEngine(t, baseConfig(), &mockHistoryRepo{err: errors.New("timeout")})

	_, err := newPipeline(t, e).Run(context.Background(), plainOrder())
	require.ErrorIs(t, err, ErrDataSource)
}
