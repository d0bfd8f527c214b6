package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/loyalty-discount/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, customer_id, status, currency, purchased_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	insertOrderTotalSQL = `INSERT INTO order_totals (order_id, class, title, text, value, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

// StoredOrder is a completed order together with its order-total lines.
type StoredOrder struct {
	ID          string
	CustomerID  string
	Status      int
	Currency    string
	PurchasedAt time.Time
	Lines       []order.TotalLine
}

// OrderRepository writes order history to PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Save stores o and its lines in one transaction. It reports false without
// writing anything when an order with the same id already exists.
func (r *OrderRepository) Save(ctx context.Context, o StoredOrder) (bool, error) {
	var purchasedAt *time.Time
	if !o.PurchasedAt.IsZero() {
		purchasedAt = &o.PurchasedAt
	}

	inserted := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, insertOrderSQL, o.ID, o.CustomerID, o.Status, o.Currency, purchasedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		inserted = true

		batch := &pgx.Batch{}
		for _, l := range o.Lines {
			batch.Queue(insertOrderTotalSQL, o.ID, l.Code, l.Title, l.Text, l.Value, l.SortOrder)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return false, fmt.Errorf("saving order %q: %w", o.ID, err)
	}
	return inserted, nil
}
