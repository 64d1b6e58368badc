package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for ordering.
type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	// GetByIDs returns products matching any of the given IDs in a single
	// query. IDs with no matching product are simply absent from the result.
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	// SearchByName returns products whose name contains the given fragment,
	// case-insensitively.
	SearchByName(ctx context.Context, name string, limit, offset int) ([]Product, error)
	// ListByPriceRange returns products priced within [min, max], ordered by
	// price. A nil bound leaves that side open.
	ListByPriceRange(ctx context.Context, min, max *decimal.Decimal, limit, offset int) ([]Product, error)
}
