// Command seed-db applies migrations, stores API keys and loads sample order
// history.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/loyalty-discount/db"
	"github.com/xenking/loyalty-discount/internal/domain/auth"
	"github.com/xenking/loyalty-discount/internal/domain/order"
	"github.com/xenking/loyalty-discount/internal/repository"
)

type historyJSON struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customer_id"`
	Status     int             `json:"status"`
	Currency   string          `json:"currency"`
	DaysAgo    *int            `json:"days_ago"`
	Total      decimal.Decimal `json:"total"`
}

// seedKey is an API key created by the tool.
type seedKey struct {
	id     string
	name   string
	key    string
	scopes []string
}

func main() {
	var (
		databaseURL  string
		historyFile  string
		apiKey       string
		adminKey     string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&historyFile, "history-file", "", "path to order history JSON (defaults to the embedded sample)")
	flag.StringVar(&apiKey, "api-key", "", "order-total API key to seed (or LOYALTY_SEED_API_KEY env)")
	flag.StringVar(&adminKey, "admin-key", "", "loyalty admin API key to seed (or LOYALTY_SEED_ADMIN_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or LOYALTY_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("LOYALTY_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or LOYALTY_SEED_API_KEY")
		os.Exit(1)
	}
	if adminKey == "" {
		adminKey = os.Getenv("LOYALTY_SEED_ADMIN_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("LOYALTY_API_KEY_PEPPER")
	}

	keys := []seedKey{{id: "default", name: "Default order-total key", key: apiKey, scopes: []string{auth.ScopeOrderTotal}}}
	if adminKey != "" {
		keys = append(keys, seedKey{id: "admin", name: "Loyalty admin key", key: adminKey, scopes: []string{auth.ScopeLoyaltyAdmin}})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, historyFile, []byte(apiKeyPepper), keys); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, historyFile string, pepper []byte, keys []seedKey) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	apikeys := repository.NewAPIKeyRepository(pool)
	for _, k := range keys {
		if err := apikeys.Upsert(ctx, auth.APIKeyInfo{
			ID:      k.id,
			KeyHash: auth.Hash(pepper, k.key),
			Name:    k.name,
			Scopes:  k.scopes,
		}); err != nil {
			return errors.Wrapf(err, "seed api key %s", k.id)
		}
		slog.Info("upserted API key", slog.String("id", k.id), slog.Any("scopes", k.scopes))
	}

	data := db.SeedHistory
	if historyFile != "" {
		slog.Info("reading history file", slog.String("path", historyFile))
		if data, err = os.ReadFile(historyFile); err != nil {
			return errors.Wrap(err, "read history file")
		}
	}

	orders, err := parseHistory(data, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "parse history")
	}

	repo := repository.NewOrderRepository(pool)
	for _, o := range orders {
		inserted, err := repo.Save(ctx, o)
		if err != nil {
			return errors.Wrapf(err, "seed order %s", o.ID)
		}
		slog.Info("seeded order",
			slog.String("id", o.ID),
			slog.String("customer_id", o.CustomerID),
			slog.Bool("inserted", inserted),
		)
	}
	return nil
}

// parseHistory converts seed entries to stored orders. days_ago is relative
// to now so the sample stays inside the lookback periods; a missing value
// stores the order without a purchase date.
func parseHistory(data []byte, now time.Time) ([]repository.StoredOrder, error) {
	var entries []historyJSON
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "decode JSON")
	}

	orders := make([]repository.StoredOrder, 0, len(entries))
	for _, e := range entries {
		if e.CustomerID == "" {
			return nil, errors.Errorf("order %q: customer_id is required", e.ID)
		}
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		cur := e.Currency
		if cur == "" {
			cur = "USD"
		}
		var purchasedAt time.Time
		if e.DaysAgo != nil {
			purchasedAt = now.AddDate(0, 0, -*e.DaysAgo)
		}
		orders = append(orders, repository.StoredOrder{
			ID:          id,
			CustomerID:  e.CustomerID,
			Status:      e.Status,
			Currency:    cur,
			PurchasedAt: purchasedAt,
			Lines: []order.TotalLine{{
				Code:      order.CodeTotal,
				Title:     "Total:",
				Text:      e.Total.StringFixed(2),
				Value:     e.Total,
				SortOrder: order.SortTotal,
			}},
		})
	}
	return orders, nil
}
