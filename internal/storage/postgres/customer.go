package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gmendes/credit-orders/internal/domain/customer"
)

const (
	getCustomerSQL = `SELECT id, name, credit_limit FROM customers WHERE id = $1`

	listCustomersSQL = `SELECT id, name, credit_limit FROM customers
		ORDER BY id LIMIT $1 OFFSET $2`

	searchCustomersSQL = `SELECT id, name, credit_limit FROM customers
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name LIMIT $2 OFFSET $3`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// GetByID returns a single customer by its identifier.
func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %d: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %d: %w", id, err)
	}
	return &c, nil
}

// List returns a page of customers ordered by ID.
func (r *CustomerRepository) List(ctx context.Context, limit, offset int) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx, listCustomersSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

// SearchByName returns a page of customers whose name contains the fragment,
// case-insensitively, ordered by name.
func (r *CustomerRepository) SearchByName(ctx context.Context, name string, limit, offset int) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx, searchCustomersSQL, name, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("searching customers by name: %w", err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.Name, &c.CreditLimit)
	return c, err
}
