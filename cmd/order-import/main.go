package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/gmendes/credit-orders/internal/domain/order"
	"github.com/gmendes/credit-orders/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
	rowBuffer     = 1024
)

// orderRow is one line of a gzipped JSONL export from the legacy system.
type orderRow struct {
	Ref        string          `json:"ref"`
	CustomerID int64           `json:"customerId"`
	PlacedAt   time.Time       `json:"placedAt"`
	Status     string          `json:"status"`
	Total      decimal.Decimal `json:"total"`
	Items      []itemRow       `json:"items"`
}

type itemRow struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing orders-*.jsonl.gz export files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("order import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("order import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "orders-*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob export files")
	}
	if len(files) == 0 {
		return errors.Errorf("no orders-*.jsonl.gz files found in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("streaming export files", slog.Int("files", len(files)))

	return importFiles(ctx, files, func(ctx context.Context, row orderRow) (bool, error) {
		return writeOrder(ctx, pool, row)
	})
}

// sinkFunc stores one deduplicated row. It reports whether the row was
// actually inserted (false means it already existed).
type sinkFunc func(ctx context.Context, row orderRow) (bool, error)

// importFiles fans out one reader per export file and funnels every row into
// a single deduplicating consumer. Readers and consumer share one group
// context, so a failure on either side cancels the other instead of leaving
// readers blocked on a full channel.
func importFiles(ctx context.Context, files []string, sink sinkFunc) error {
	rows := make(chan orderRow, rowBuffer)

	g, ctx := errgroup.WithContext(ctx)

	var readers sync.WaitGroup
	for _, f := range files {
		readers.Add(1)
		g.Go(func() error {
			defer readers.Done()
			return streamFile(ctx, f, rows)()
		})
	}
	go func() {
		readers.Wait()
		close(rows)
	}()

	g.Go(func() error {
		return writeOrders(ctx, rows, sink)
	})

	return g.Wait()
}

// streamFile decompresses one export file and sends each parsed row downstream.
func streamFile(ctx context.Context, path string, rows chan<- orderRow) func() error {
	return func() error {
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

		var count uint64

		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			var row orderRow
			if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
				return errors.Wrapf(err, "parse row %d of %s", count+1, path)
			}
			if err := validateRow(row); err != nil {
				return errors.Wrapf(err, "invalid row %d of %s", count+1, path)
			}

			select {
			case rows <- row:
			case <-ctx.Done():
				return ctx.Err()
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("read progress", slog.String("file", filepath.Base(path)), slog.Uint64("rows", count))
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("file complete", slog.String("file", filepath.Base(path)), slog.Uint64("rows", count))
		return nil
	}
}

func validateRow(row orderRow) error {
	if row.Ref == "" {
		return errors.New("missing ref")
	}
	if row.CustomerID <= 0 {
		return errors.Errorf("bad customer id %d", row.CustomerID)
	}
	if !order.Status(row.Status).Valid() {
		return errors.Errorf("unknown status %q", row.Status)
	}
	if len(row.Items) == 0 {
		return errors.New("no items")
	}
	for _, it := range row.Items {
		if it.Quantity <= 0 {
			return errors.Errorf("bad quantity %d for product %d", it.Quantity, it.ProductID)
		}
	}
	return nil
}

const importOrderSQL = `
INSERT INTO orders (customer_id, placed_at, status, total, external_ref)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (external_ref) DO NOTHING
RETURNING id`

const importItemSQL = `
INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, subtotal)
VALUES ($1, $2, $3, $4, $5, $6)`

// writeOrders is the single consumer: it dedupes external references with a
// bloom filter before touching the database, then relies on the unique
// constraint for the rows the filter lets through.
func writeOrders(ctx context.Context, rows <-chan orderRow, sink sinkFunc) error {
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	var written, skipped uint64

	for row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if seen.TestAndAddString(row.Ref) {
			skipped++
			continue
		}

		inserted, err := sink(ctx, row)
		if err != nil {
			return errors.Wrapf(err, "import order %s", row.Ref)
		}
		if !inserted {
			skipped++
			continue
		}

		written++
		if written%progressEvery == 0 {
			slog.Info("write progress", slog.Uint64("written", written), slog.Uint64("skipped", skipped))
		}
	}

	slog.Info("import summary", slog.Uint64("written", written), slog.Uint64("skipped", skipped))
	return nil
}

func writeOrder(ctx context.Context, pool *pgxpool.Pool, row orderRow) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, errors.Wrap(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orderID int64
	err = tx.QueryRow(ctx, importOrderSQL,
		row.CustomerID, row.PlacedAt, row.Status, row.Total, row.Ref,
	).Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Already imported in a previous run.
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "insert order")
	}

	for _, it := range row.Items {
		if _, err := tx.Exec(ctx, importItemSQL,
			orderID, it.ProductID, it.Name, it.Quantity, it.UnitPrice, it.Subtotal,
		); err != nil {
			return false, errors.Wrapf(err, "insert item for product %d", it.ProductID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, errors.Wrap(err, "commit transaction")
	}

	return true, nil
}
