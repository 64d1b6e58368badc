package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gmendes/credit-orders/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (customer_id, placed_at, status, total, external_ref)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	getOrderSQL = `SELECT id, customer_id, placed_at, status, total, COALESCE(external_ref, '')
		FROM orders WHERE id = $1`

	getOrderItemsSQL = `SELECT id, order_id, product_id, product_name, quantity, unit_price, subtotal
		FROM order_items WHERE order_id = $1 ORDER BY id`

	listOrdersSQL = `SELECT id, customer_id, placed_at, status, total, COALESCE(external_ref, '')
		FROM orders ORDER BY placed_at DESC LIMIT $1 OFFSET $2`

	listOrdersByCustomerSQL = `SELECT id, customer_id, placed_at, status, total, COALESCE(external_ref, '')
		FROM orders WHERE customer_id = $1 ORDER BY placed_at DESC LIMIT $2 OFFSET $3`

	listOrdersByStatusSQL = `SELECT id, customer_id, placed_at, status, total, COALESCE(external_ref, '')
		FROM orders WHERE status = $1 ORDER BY placed_at DESC LIMIT $2 OFFSET $3`

	sumApprovedSinceSQL = `SELECT COALESCE(SUM(total), 0) FROM orders
		WHERE customer_id = $1 AND status = 'APPROVED' AND placed_at >= $2`

	sumApprovedInPeriodSQL = `SELECT COALESCE(SUM(total), 0) FROM orders
		WHERE customer_id = $1 AND status = 'APPROVED' AND placed_at BETWEEN $2 AND $3`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and its items in one transaction. On any failure
// the transaction is rolled back and no part of the order graph remains.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	err = tx.QueryRow(ctx, insertOrderSQL,
		o.CustomerID, o.PlacedAt, string(o.Status), o.Total, o.ExternalRef,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err = tx.QueryRow(ctx, insertOrderItemSQL,
			o.ID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.Subtotal,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("inserting order item for product %d: %w", item.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order: %w", err)
	}
	return nil
}

// GetByID returns an order with its items eagerly loaded.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	itemRows, err := r.pool.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %d: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %d: %w", id, err)
	}
	return &o, nil
}

// List returns a page of orders, most recent first. Items are not loaded.
func (r *OrderRepository) List(ctx context.Context, limit, offset int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListByCustomer returns a page of a customer's orders, most recent first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByCustomerSQL, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing orders for customer %d: %w", customerID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListByStatus returns a page of orders with the given status, most recent first.
func (r *OrderRepository) ListByStatus(ctx context.Context, status order.Status, limit, offset int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByStatusSQL, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing orders with status %s: %w", status, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// SumApprovedSince returns the sum of approved order totals for the customer
// placed at or after since. COALESCE makes the empty window sum to zero.
func (r *OrderRepository) SumApprovedSince(ctx context.Context, customerID int64, since time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.pool.QueryRow(ctx, sumApprovedSinceSQL, customerID, since).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing approved orders for customer %d: %w", customerID, err)
	}
	return sum, nil
}

// SumApprovedInPeriod returns the sum of approved order totals for the
// customer placed within [from, to], both bounds inclusive.
func (r *OrderRepository) SumApprovedInPeriod(ctx context.Context, customerID int64, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.pool.QueryRow(ctx, sumApprovedInPeriodSQL, customerID, from, to).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing approved orders for customer %d in period: %w", customerID, err)
	}
	return sum, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(&o.ID, &o.CustomerID, &o.PlacedAt, &status, &o.Total, &o.ExternalRef)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var item order.Item
	err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
		&item.Quantity, &item.UnitPrice, &item.Subtotal)
	return item, err
}
