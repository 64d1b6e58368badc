package customer

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Customer represents an account holder with a credit limit. The limit caps
// the cumulative value of approved orders within the rolling credit window.
type Customer struct {
	ID          int64
	Name        string
	CreditLimit decimal.Decimal
}

// Repository defines read operations for the customer registry.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context, limit, offset int) ([]Customer, error)
	// SearchByName returns customers whose name contains the given
	// fragment, case-insensitively.
	SearchByName(ctx context.Context, name string, limit, offset int) ([]Customer, error)
}
