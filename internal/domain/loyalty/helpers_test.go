package loyalty

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/loyalty-discount/internal/domain/currency"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type mockHistoryRepo struct {
	records   []Record
	err       error
	calls     int
	gotFilter StatusFilter
}

func (m *mockHistoryRepo) OrderHistory(_ context.Context, _ string, f StatusFilter) ([]Record, error) {
	m.calls++
	m.gotFilter = f
	return m.records, m.err
}

// spentRepo returns a history with a single qualifying order of total.
func spentRepo(total string) *mockHistoryRepo {
	return &mockHistoryRepo{records: []Record{
		{PurchasedAt: fixedNow.AddDate(0, 0, -10), Total: d(total), Status: 3},
	}}
}

func newRegistry(t *testing.T) *currency.Registry {
	t.Helper()
	r, err := currency.NewRegistry("USD", currency.Defaults()...)
	require.NoError(t, err)
	return r
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "expected %s, got %s", want, got)
}
