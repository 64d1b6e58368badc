package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gmendes/credit-orders/internal/domain/customer"
	"github.com/gmendes/credit-orders/internal/domain/order"
	"github.com/gmendes/credit-orders/internal/domain/product"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// errorResponse is the JSON shape of every error reply.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: status, Message: message})
}

// mapDomainError converts tagged domain errors to HTTP responses. Unknown
// errors are logged and surfaced as an opaque 500.
func mapDomainError(c *gin.Context, err error) {
	if errors.Is(err, order.ErrEmptyItems) {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		respondError(c, http.StatusBadRequest, iqErr.Error())
		return
	}

	var cnfErr *order.CustomerNotFoundError
	if errors.As(err, &cnfErr) {
		respondError(c, http.StatusNotFound, cnfErr.Error())
		return
	}

	var pnfErr *order.ProductsNotFoundError
	if errors.As(err, &pnfErr) {
		respondError(c, http.StatusNotFound, pnfErr.Error())
		return
	}

	switch {
	case errors.Is(err, customer.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
		return
	}

	zctx.From(c.Request.Context()).Error("request failed", zap.Error(err))
	respondError(c, http.StatusInternalServerError, "internal error")
}

// pageParams extracts limit/offset query parameters with sane bounds.
func pageParams(c *gin.Context) (limit, offset int) {
	limit = defaultPageSize
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = min(n, maxPageSize)
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// pathID parses the :id path parameter. A non-positive or malformed value
// reports ok=false after writing a 400 response.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// --- Response DTOs ---

type orderItemResponse struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type orderResponse struct {
	ID         int64               `json:"id"`
	CustomerID int64               `json:"customerId"`
	PlacedAt   time.Time           `json:"placedAt"`
	Status     order.Status        `json:"status"`
	Total      decimal.Decimal     `json:"total"`
	Items      []orderItemResponse `json:"items,omitempty"`
}

// createOrderResponse extends the order with the credit snapshot backing
// the decision.
type createOrderResponse struct {
	orderResponse
	CreditLimit      decimal.Decimal `json:"creditLimit"`
	ConsumedCredit   decimal.Decimal `json:"consumedCredit"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

type periodTotalResponse struct {
	CustomerID int64           `json:"customerId"`
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	Total      decimal.Decimal `json:"total"`
}

type creditResponse struct {
	CustomerID       int64           `json:"customerId"`
	CreditLimit      decimal.Decimal `json:"creditLimit"`
	ConsumedCredit   decimal.Decimal `json:"consumedCredit"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

type customerResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	CreditLimit decimal.Decimal `json:"creditLimit"`
}

type productResponse struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		}
	}
	return orderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		PlacedAt:   o.PlacedAt,
		Status:     o.Status,
		Total:      o.Total,
		Items:      items,
	}
}

func toCustomerResponse(c customer.Customer) customerResponse {
	return customerResponse{ID: c.ID, Name: c.Name, CreditLimit: c.CreditLimit}
}

func toProductResponse(p product.Product) productResponse {
	return productResponse{ID: p.ID, Name: p.Name, Price: p.Price}
}
