package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gmendes/credit-orders/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, price FROM products
		ORDER BY id LIMIT $1 OFFSET $2`

	getProductByIDSQL = `SELECT id, name, price FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, name, price FROM products WHERE id = ANY($1)`

	searchProductsSQL = `SELECT id, name, price FROM products
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name LIMIT $2 OFFSET $3`

	listProductsByPriceSQL = `SELECT id, name, price FROM products
		WHERE ($1::numeric IS NULL OR price >= $1)
		  AND ($2::numeric IS NULL OR price <= $2)
		ORDER BY price LIMIT $3 OFFSET $4`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns a page of products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context, limit, offset int) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs in a single query.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// SearchByName returns a page of products whose name contains the fragment,
// case-insensitively, ordered by name.
func (r *ProductRepository) SearchByName(ctx context.Context, name string, limit, offset int) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, searchProductsSQL, name, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("searching products by name: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListByPriceRange returns a page of products priced within the given bounds,
// ordered by price. Nil bounds are open.
func (r *ProductRepository) ListByPriceRange(ctx context.Context, minPrice, maxPrice *decimal.Decimal, limit, offset int) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsByPriceSQL, minPrice, maxPrice, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing products by price: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price)
	return p, err
}
