// Package handler exposes the HTTP API. It converts requests to domain
// calls and maps domain errors to transport status codes; no business rules
// live here.
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/gmendes/credit-orders/internal/domain/customer"
	"github.com/gmendes/credit-orders/internal/domain/order"
	"github.com/gmendes/credit-orders/internal/domain/product"
)

// Handler implements the HTTP endpoints, delegating business logic to the
// order service and the domain repositories.
type Handler struct {
	customers    customer.Repository
	products     product.Repository
	orders       order.Repository
	orderService *order.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	customers customer.Repository,
	products product.Repository,
	orders order.Repository,
	orderService *order.Service,
) *Handler {
	return &Handler{
		customers:    customers,
		products:     products,
		orders:       orders,
		orderService: orderService,
	}
}

// Register attaches all API routes to the given router group.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:id", h.GetOrder)

	r.GET("/customers", h.ListCustomers)
	r.GET("/customers/search", h.SearchCustomers)
	r.GET("/customers/:id", h.GetCustomer)
	r.GET("/customers/:id/credit", h.GetCustomerCredit)
	r.GET("/customers/:id/orders", h.ListCustomerOrders)
	r.GET("/customers/:id/orders/total", h.GetCustomerPeriodTotal)

	r.GET("/products", h.ListProducts)
	r.GET("/products/search", h.SearchProducts)
	r.GET("/products/price", h.ListProductsByPrice)
	r.GET("/products/:id", h.GetProduct)
}
