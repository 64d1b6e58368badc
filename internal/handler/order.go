package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gmendes/credit-orders/internal/domain/order"
)

type createOrderItem struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

type createOrderRequest struct {
	CustomerID int64             `json:"customerId" binding:"required,gt=0"`
	Items      []createOrderItem `json:"items" binding:"required,min=1,dive"`
}

// CreateOrder runs the order creation workflow. A rejected order is a 201
// like an approved one; only validation and lookup failures are errors.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	result, err := h.orderService.CreateOrder(c.Request.Context(), order.CreateOrderRequest{
		CustomerID: req.CustomerID,
		Items:      items,
	})
	if err != nil {
		mapDomainError(c, err)
		return
	}

	zctx.From(c.Request.Context()).Info("order created",
		zap.Int64("order_id", result.Order.ID),
		zap.Int64("customer_id", result.Order.CustomerID),
		zap.String("status", string(result.Order.Status)),
		zap.String("total", result.Order.Total.String()),
	)

	c.JSON(http.StatusCreated, createOrderResponse{
		orderResponse:    toOrderResponse(result.Order),
		CreditLimit:      result.Credit.CreditLimit,
		ConsumedCredit:   result.Credit.ConsumedCredit,
		AvailableBalance: result.Credit.AvailableBalance,
	})
}

// GetOrder returns a single order with its items.
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	o, err := h.orders.GetByID(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}

// ListOrders returns a page of orders, optionally filtered by status.
// Items are omitted from listings.
func (h *Handler) ListOrders(c *gin.Context) {
	limit, offset := pageParams(c)

	var (
		found []order.Order
		err   error
	)
	if s := c.Query("status"); s != "" {
		status := order.Status(s)
		if !status.Valid() {
			respondError(c, http.StatusBadRequest, "invalid status: "+s)
			return
		}
		found, err = h.orders.ListByStatus(c.Request.Context(), status, limit, offset)
	} else {
		found, err = h.orders.List(c.Request.Context(), limit, offset)
	}
	if err != nil {
		mapDomainError(c, err)
		return
	}

	resp := make([]orderResponse, len(found))
	for i := range found {
		resp[i] = toOrderResponse(&found[i])
	}
	c.JSON(http.StatusOK, resp)
}

// ListCustomerOrders returns a page of the customer's orders.
func (h *Handler) ListCustomerOrders(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit, offset := pageParams(c)

	// Resolve the customer first so an unknown ID is a 404, not an empty page.
	if _, err := h.customers.GetByID(c.Request.Context(), id); err != nil {
		mapDomainError(c, err)
		return
	}

	found, err := h.orders.ListByCustomer(c.Request.Context(), id, limit, offset)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	resp := make([]orderResponse, len(found))
	for i := range found {
		resp[i] = toOrderResponse(&found[i])
	}
	c.JSON(http.StatusOK, resp)
}
