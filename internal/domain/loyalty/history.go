package loyalty

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one past order of a customer. A zero PurchasedAt means the
// purchase date was missing or unreadable.
type Record struct {
	PurchasedAt time.Time
	Total       decimal.Decimal
	Status      int
}

// HistoryRepository returns a customer's past orders, newest first.
// Implementations should apply filter where they can; the aggregator
// re-checks it regardless.
type HistoryRepository interface {
	OrderHistory(ctx context.Context, customerID string, filter StatusFilter) ([]Record, error)
}

// Aggregator sums a customer's qualifying historical spend.
type Aggregator struct {
	repo HistoryRepository
	now  func() time.Time
}

// NewAggregator creates an Aggregator reading from repo.
func NewAggregator(repo HistoryRepository) *Aggregator {
	return &Aggregator{repo: repo, now: time.Now}
}

// CumulativeSpend returns the summed order totals of customerID whose status
// passes filter and whose purchase date falls inside period. Records without
// a purchase date never count. Repository failures are returned as
// *DataSourceError.
func (a *Aggregator) CumulativeSpend(
	ctx context.Context,
	customerID string,
	filter StatusFilter,
	period Period,
) (decimal.Decimal, error) {
	records, err := a.repo.OrderHistory(ctx, customerID, filter)
	if err != nil {
		return zero, &DataSourceError{CustomerID: customerID, Err: err}
	}

	cutoff, bounded := period.Cutoff(a.now())

	sum := zero
	for _, r := range records {
		if r.PurchasedAt.IsZero() {
			continue
		}
		if bounded && r.PurchasedAt.Before(cutoff) {
			continue
		}
		if !filter.Matches(r.Status) {
			continue
		}
		sum = sum.Add(r.Total)
	}
	return sum, nil
}
