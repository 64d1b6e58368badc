package order

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/gmendes/credit-orders/internal/domain/customer"
	"github.com/gmendes/credit-orders/internal/domain/product"
)

// CreditWindow is how far back approved orders count toward consumed credit.
const CreditWindow = 30 * 24 * time.Hour

// ErrEmptyItems is returned when an order request carries no items.
var ErrEmptyItems = fmt.Errorf("items required")

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}

// CustomerNotFoundError indicates the requested customer does not exist.
type CustomerNotFoundError struct {
	CustomerID int64
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("customer %d not found", e.CustomerID)
}

// ProductsNotFoundError indicates one or more requested products do not
// exist. It names every missing ID so the caller can fix the whole request
// at once.
type ProductsNotFoundError struct {
	ProductIDs []int64
}

func (e *ProductsNotFoundError) Error() string {
	ids := make([]string, len(e.ProductIDs))
	for i, id := range e.ProductIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("products not found: %s", strings.Join(ids, ", "))
}

// ItemRequest is a single requested order line.
type ItemRequest struct {
	ProductID int64
	Quantity  int
}

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	CustomerID int64
	Items      []ItemRequest
}

// CreditSnapshot captures the credit figures used for a decision.
type CreditSnapshot struct {
	CreditLimit      decimal.Decimal
	ConsumedCredit   decimal.Decimal
	AvailableBalance decimal.Decimal
}

// CreateOrderResult holds the created order and the credit snapshot that
// produced its status.
type CreateOrderResult struct {
	Order  *Order
	Credit CreditSnapshot
}

// Service encapsulates the order creation workflow and the credit balance
// projection.
type Service struct {
	customers customer.Repository
	products  product.Repository
	orders    Repository
	now       func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	customers customer.Repository,
	products product.Repository,
	orders Repository,
) *Service {
	return &Service{
		customers: customers,
		products:  products,
		orders:    orders,
		now:       time.Now,
	}
}

// WithClock overrides the service time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateOrder runs the full order creation workflow: validate the request,
// resolve the customer, batch-resolve the products, freeze unit prices,
// compute the total, evaluate it against the customer's available balance
// over the rolling credit window, and persist the order atomically.
//
// A request that fails the credit check still succeeds: the order is
// persisted with StatusRejected and returned to the caller.
//
// Note that the consumed-credit read and the order write are separate
// statements: two concurrent creations for the same customer can both read
// a balance that ignores the other's uncommitted total and both come out
// approved past the limit. Serializing per-customer evaluation is a pending
// product decision.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	// Validate before any lookup.
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
	}

	cust, err := s.customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, &CustomerNotFoundError{CustomerID: req.CustomerID}
		}
		return nil, errors.Wrap(err, "get customer")
	}

	// Collect distinct product IDs, preserving request order.
	ids := make([]int64, 0, len(req.Items))
	seen := make(map[int64]struct{}, len(req.Items))
	for _, item := range req.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	productMap := make(map[int64]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Any unresolved ID rejects the whole request.
	var missing []int64
	for _, id := range ids {
		if _, ok := productMap[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &ProductsNotFoundError{ProductIDs: missing}
	}

	now := s.now()

	// Freeze unit prices and compute subtotals.
	items := make([]Item, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		p := productMap[item.ProductID]
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))

		items[i] = Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			UnitPrice:   p.Price,
			Subtotal:    subtotal,
		}
		total = total.Add(subtotal)
	}

	consumed, err := s.orders.SumApprovedSince(ctx, cust.ID, now.Add(-CreditWindow))
	if err != nil {
		return nil, errors.Wrap(err, "sum approved orders")
	}

	// Available balance may be negative when the customer is already
	// over-committed. Equal totals approve.
	available := cust.CreditLimit.Sub(consumed)
	status := StatusRejected
	if total.LessThanOrEqual(available) {
		status = StatusApproved
	}

	o := &Order{
		CustomerID: cust.ID,
		PlacedAt:   now,
		Status:     status,
		Total:      total,
		Items:      items,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// The snapshot reflects the committed state: an approved order has
	// already consumed its own total by the time the caller sees it.
	// The order is durable once Create returns, so a failed re-read must
	// not fail the request; fall back to the pre-decision read plus this
	// order's own contribution.
	postConsumed, err := s.orders.SumApprovedSince(ctx, cust.ID, now.Add(-CreditWindow))
	if err != nil {
		postConsumed = consumed
		if status == StatusApproved {
			postConsumed = postConsumed.Add(total)
		}
	}

	return &CreateOrderResult{
		Order: o,
		Credit: CreditSnapshot{
			CreditLimit:      cust.CreditLimit,
			ConsumedCredit:   postConsumed,
			AvailableBalance: cust.CreditLimit.Sub(postConsumed),
		},
	}, nil
}

// CreditBalance returns the customer's credit limit, the credit consumed by
// approved orders within the rolling window, and the remaining balance.
// Read-only and safe to call concurrently with order creation; it may
// observe either side of an in-flight creation.
func (s *Service) CreditBalance(ctx context.Context, customerID int64) (*CreditSnapshot, error) {
	cust, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, &CustomerNotFoundError{CustomerID: customerID}
		}
		return nil, errors.Wrap(err, "get customer")
	}

	consumed, err := s.orders.SumApprovedSince(ctx, cust.ID, s.now().Add(-CreditWindow))
	if err != nil {
		return nil, errors.Wrap(err, "sum approved orders")
	}

	return &CreditSnapshot{
		CreditLimit:      cust.CreditLimit,
		ConsumedCredit:   consumed,
		AvailableBalance: cust.CreditLimit.Sub(consumed),
	}, nil
}

// PeriodTotal returns the sum of the customer's approved order totals placed
// within [from, to], both bounds inclusive. Zero when no orders qualify.
func (s *Service) PeriodTotal(ctx context.Context, customerID int64, from, to time.Time) (decimal.Decimal, error) {
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return decimal.Zero, &CustomerNotFoundError{CustomerID: customerID}
		}
		return decimal.Zero, errors.Wrap(err, "get customer")
	}

	total, err := s.orders.SumApprovedInPeriod(ctx, customerID, from, to)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "sum approved orders in period")
	}
	return total, nil
}
