package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/loyalty-discount/internal/domain/loyalty"
	"github.com/xenking/loyalty-discount/internal/domain/order"
)

// Order totals are read from the grand-total line of each stored order.
const historySQL = `SELECT o.purchased_at, ot.value, o.status
	FROM orders o
	JOIN order_totals ot ON ot.order_id = o.id AND ot.class = '` + order.CodeTotal + `'
	WHERE o.customer_id = $1`

const historyOrderBy = ` ORDER BY o.purchased_at DESC NULLS LAST`

var _ loyalty.HistoryRepository = (*HistoryRepository)(nil)

// HistoryRepository reads customer order history from PostgreSQL.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository returns a HistoryRepository that uses the given pool.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// OrderHistory returns the customer's orders that pass filter, newest first.
// Orders without a purchase date are returned with a zero PurchasedAt.
func (r *HistoryRepository) OrderHistory(ctx context.Context, customerID string, filter loyalty.StatusFilter) ([]loyalty.Record, error) {
	query, args := historyQuery(customerID, filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying order history for %q: %w", customerID, err)
	}
	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("reading order history for %q: %w", customerID, err)
	}
	return records, nil
}

func historyQuery(customerID string, filter loyalty.StatusFilter) (string, []any) {
	args := []any{customerID}
	query := historySQL
	if filter.Unrestricted() {
		return query + historyOrderBy, args
	}
	if minStatus, ok := filter.MinStatus(); ok {
		query += ` AND o.status >= $2`
		args = append(args, minStatus)
	} else if set := filter.Statuses(); len(set) > 0 {
		query += ` AND o.status = ANY($2)`
		args = append(args, set)
	}
	return query + historyOrderBy, args
}

func scanRecord(row pgx.CollectableRow) (loyalty.Record, error) {
	var (
		rec         loyalty.Record
		purchasedAt *time.Time
		total       decimal.Decimal
	)
	if err := row.Scan(&purchasedAt, &total, &rec.Status); err != nil {
		return rec, err
	}
	if purchasedAt != nil {
		rec.PurchasedAt = *purchasedAt
	}
	rec.Total = total
	return rec, nil
}
