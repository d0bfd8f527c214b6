// Command history-import loads exported order history into the database.
//
// Input is a directory of gzip-compressed CSV shards (*.csv.gz) with the
// columns order_id, customer_id, status, currency, purchased_at, total. An
// empty purchased_at stores an order without a purchase date. Order ids seen
// in more than one shard are imported once, from the first shard in name
// order.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/loyalty-discount/internal/domain/order"
	"github.com/xenking/loyalty-discount/internal/repository"
)

const (
	bloomFPR      = 0.001
	maxShards     = 64
	progressEvery = 100_000
)

var header = []string{"order_id", "customer_id", "status", "currency", "purchased_at", "total"}

type options struct {
	dataDir     string
	databaseURL string
	capacity    uint
	workers     int
}

func main() {
	var opts options
	flag.StringVar(&opts.dataDir, "data-dir", "data", "directory containing *.csv.gz history shards")
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&opts.capacity, "expected-orders", 1_000_000, "expected orders per shard, sizes the bloom filters")
	flag.IntVar(&opts.workers, "workers", 8, "concurrent database writers")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("history import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("history import completed successfully")
}

func run(ctx context.Context, opts options) error {
	shards, err := filepath.Glob(filepath.Join(opts.dataDir, "*.csv.gz"))
	if err != nil {
		return errors.Wrap(err, "list shards")
	}
	if len(shards) == 0 {
		return errors.Errorf("no *.csv.gz shards in %s", opts.dataDir)
	}
	if len(shards) > maxShards {
		return errors.Errorf("%d shards exceed the limit of %d", len(shards), maxShards)
	}
	slices.Sort(shards)

	slog.Info("pass 1: building bloom filters", slog.Int("shards", len(shards)))
	filters, err := buildFilters(ctx, shards, opts.capacity)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: resolving duplicate order ids")
	owners, err := findDuplicates(ctx, shards, filters)
	if err != nil {
		return errors.Wrap(err, "find duplicates")
	}
	slog.Info("duplicate order ids", slog.Int("count", len(owners)))

	slog.Info("connecting to database")
	pool, err := repository.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return importShards(ctx, repository.NewOrderRepository(pool), shards, owners, opts.workers)
}

// record is one parsed CSV row.
type record struct {
	ID          string
	CustomerID  string
	Status      int
	Currency    string
	PurchasedAt time.Time
	Total       decimal.Decimal
}

func parseRecord(fields []string) (record, error) {
	if len(fields) != len(header) {
		return record{}, errors.Errorf("want %d columns, got %d", len(header), len(fields))
	}
	r := record{
		ID:         strings.TrimSpace(fields[0]),
		CustomerID: strings.TrimSpace(fields[1]),
		Currency:   strings.ToUpper(strings.TrimSpace(fields[3])),
	}
	if r.ID == "" || r.CustomerID == "" {
		return record{}, errors.New("order_id and customer_id are required")
	}

	status, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return record{}, errors.Wrap(err, "status")
	}
	r.Status = status

	if v := strings.TrimSpace(fields[4]); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return record{}, errors.Wrap(err, "purchased_at")
		}
		r.PurchasedAt = t
	}

	total, err := decimal.NewFromString(strings.TrimSpace(fields[5]))
	if err != nil {
		return record{}, errors.Wrap(err, "total")
	}
	r.Total = total
	return r, nil
}

func (r record) stored() repository.StoredOrder {
	return repository.StoredOrder{
		ID:          r.ID,
		CustomerID:  r.CustomerID,
		Status:      r.Status,
		Currency:    r.Currency,
		PurchasedAt: r.PurchasedAt,
		Lines: []order.TotalLine{{
			Code:      order.CodeTotal,
			Title:     "Total:",
			Text:      r.Total.StringFixed(2),
			Value:     r.Total,
			SortOrder: order.SortTotal,
		}},
	}
}

// streamShard decodes a gzip CSV shard and calls fn for every row. Rows that
// fail to parse are logged and skipped.
func streamShard(ctx context.Context, path string, fn func(record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	return readRecords(ctx, path, gz, fn)
}

func readRecords(ctx context.Context, name string, r io.Reader, fn func(record) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", name)
		}
		if line == 1 && slices.Equal(fields, header) {
			continue
		}
		rec, err := parseRecord(fields)
		if err != nil {
			slog.Warn("skipping row", slog.String("shard", name), slog.Int("line", line), slog.String("error", err.Error()))
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

func buildFilters(ctx context.Context, shards []string, capacity uint) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(shards))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range shards {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(capacity, bloomFPR)
			var count int
			if err := streamShard(ctx, path, func(r record) error {
				filter.AddString(r.ID)
				count++
				return nil
			}); err != nil {
				return err
			}
			slog.Info("pass 1 complete", slog.String("shard", filepath.Base(path)), slog.Int("orders", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findDuplicates returns, for every order id present in two or more shards,
// the index of the shard that owns it.
func findDuplicates(ctx context.Context, shards []string, filters []*bloom.BloomFilter) (map[string]int, error) {
	candidates := make([]map[string]uint64, len(shards))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range shards {
		g.Go(func() error {
			found := make(map[string]uint64)
			bit := uint64(1) << uint(i)
			err := streamShard(ctx, path, func(r record) error {
				for j, f := range filters {
					if j != i && f.TestString(r.ID) {
						found[r.ID] |= bit
						break
					}
				}
				return nil
			})
			candidates[i] = found
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resolveOwners(candidates), nil
}

// resolveOwners merges per-shard candidate masks and keeps ids confirmed in
// at least two shards. The lowest shard index owns each id.
func resolveOwners(candidates []map[string]uint64) map[string]int {
	merged := make(map[string]uint64)
	for _, c := range candidates {
		for id, mask := range c {
			merged[id] |= mask
		}
	}
	owners := make(map[string]int)
	for id, mask := range merged {
		if bits.OnesCount64(mask) >= 2 {
			owners[id] = bits.TrailingZeros64(mask)
		}
	}
	return owners
}

type saver interface {
	Save(ctx context.Context, o repository.StoredOrder) (bool, error)
}

func importShards(ctx context.Context, repo saver, shards []string, owners map[string]int, workers int) error {
	var inserted, skipped atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers + 1)

	for i, path := range shards {
		if err := streamShard(ctx, path, func(r record) error {
			if owner, dup := owners[r.ID]; dup && owner != i {
				skipped.Add(1)
				return nil
			}
			g.Go(func() error {
				ok, err := repo.Save(ctx, r.stored())
				if err != nil {
					return err
				}
				if !ok {
					skipped.Add(1)
					return nil
				}
				if n := inserted.Add(1); n%progressEvery == 0 {
					slog.Info("write progress", slog.Int64("inserted", n))
				}
				return nil
			})
			return nil
		}); err != nil {
			if werr := g.Wait(); werr != nil {
				return errors.Wrap(werr, "write orders")
			}
			return err
		}
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "write orders")
	}

	slog.Info("orders written",
		slog.Int64("inserted", inserted.Load()),
		slog.Int64("skipped", skipped.Load()),
		slog.Int("shards", len(shards)),
	)
	return nil
}
