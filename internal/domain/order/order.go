package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Status is the credit decision outcome of an order. It is assigned exactly
// once at creation and never transitions afterward.
type Status string

const (
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	return s == StatusApproved || s == StatusRejected
}

// Order represents a customer order together with its credit decision.
// A rejected order is still a real, persisted order: it records that the
// request was made and turned down, and it never counts toward consumed
// credit.
type Order struct {
	ID         int64
	CustomerID int64
	PlacedAt   time.Time
	Status     Status
	Total      decimal.Decimal
	Items      []Item

	// ExternalRef identifies an order imported from a legacy export.
	// Empty for orders created through the API.
	ExternalRef string
}

// Item is a single order line. UnitPrice is the product's price frozen at
// order creation time; later catalog price changes never affect it.
type Item struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists an order and all of its items atomically: either the
	// full order graph is stored, or none of it is. On success the order and
	// item IDs are populated.
	Create(ctx context.Context, o *Order) error

	// GetByID returns an order with its items loaded.
	GetByID(ctx context.Context, id int64) (*Order, error)

	List(ctx context.Context, limit, offset int) ([]Order, error)
	ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]Order, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Order, error)

	// SumApprovedSince returns the sum of Total over the customer's APPROVED
	// orders placed at or after the given instant. Returns zero when no
	// qualifying orders exist. The lower bound is inclusive.
	SumApprovedSince(ctx context.Context, customerID int64, since time.Time) (decimal.Decimal, error)

	// SumApprovedInPeriod returns the sum of Total over the customer's
	// APPROVED orders placed within [from, to]. Both bounds are inclusive;
	// zero when no qualifying orders exist.
	SumApprovedInPeriod(ctx context.Context, customerID int64, from, to time.Time) (decimal.Decimal, error)
}
