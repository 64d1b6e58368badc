package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gmendes/credit-orders/internal/storage/postgres"
)

type seedFile struct {
	Customers []customerJSON `json:"customers"`
	Products  []productJSON  `json:"products"`
}

type customerJSON struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	CreditLimit decimal.Decimal `json:"creditLimit"`
}

type productJSON struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func main() {
	var (
		databaseURL string
		dataFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&dataFile, "seed-file", "db/seed/seed.json", "path to seed data JSON file")
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

	if err := run(ctx, databaseURL, dataFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, dataFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("reading seed file", slog.String("path", dataFile))

	data, err := os.ReadFile(dataFile)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed JSON")
	}

	if err := seedCustomers(ctx, pool, seed.Customers); err != nil {
		return errors.Wrap(err, "seed customers")
	}

	if err := seedProducts(ctx, pool, seed.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}

	return nil
}

const upsertCustomerSQL = `
INSERT INTO customers (id, name, credit_limit)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, credit_limit = EXCLUDED.credit_limit`

const upsertProductSQL = `
INSERT INTO products (id, name, price)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price`

func seedCustomers(ctx context.Context, pool *pgxpool.Pool, customers []customerJSON) error {
	slog.Info("upserting customers", slog.Int("count", len(customers)))

	for _, c := range customers {
		if _, err := pool.Exec(ctx, upsertCustomerSQL, c.ID, c.Name, c.CreditLimit); err != nil {
			return errors.Wrapf(err, "upsert customer %d", c.ID)
		}

		slog.Info("upserted customer", slog.Int64("id", c.ID), slog.String("name", c.Name))
	}

	return resetSequence(ctx, pool, "customers")
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price); err != nil {
			return errors.Wrapf(err, "upsert product %d", p.ID)
		}

		slog.Info("upserted product", slog.Int64("id", p.ID), slog.String("name", p.Name))
	}

	return resetSequence(ctx, pool, "products")
}

// resetSequence advances the identity sequence past the explicit IDs so
// subsequent inserts without an ID do not collide with seeded rows.
func resetSequence(ctx context.Context, pool *pgxpool.Pool, table string) error {
	query := `SELECT setval(pg_get_serial_sequence($1, 'id'), COALESCE(MAX(id), 1)) FROM ` + table

	if _, err := pool.Exec(ctx, query, table); err != nil {
		return errors.Wrapf(err, "reset %s id sequence", table)
	}

	return nil
}
