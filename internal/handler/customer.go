package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetCustomer returns a single customer.
func (h *Handler) GetCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	cust, err := h.customers.GetByID(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCustomerResponse(*cust))
}

// ListCustomers returns a page of customers.
func (h *Handler) ListCustomers(c *gin.Context) {
	limit, offset := pageParams(c)

	found, err := h.customers.List(c.Request.Context(), limit, offset)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	resp := make([]customerResponse, len(found))
	for i, cust := range found {
		resp[i] = toCustomerResponse(cust)
	}
	c.JSON(http.StatusOK, resp)
}

// SearchCustomers returns a page of customers whose name contains the
// name query parameter, case-insensitively.
func (h *Handler) SearchCustomers(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		respondError(c, http.StatusBadRequest, "name query parameter is required")
		return
	}
	limit, offset := pageParams(c)

	found, err := h.customers.SearchByName(c.Request.Context(), name, limit, offset)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	resp := make([]customerResponse, len(found))
	for i, cust := range found {
		resp[i] = toCustomerResponse(cust)
	}
	c.JSON(http.StatusOK, resp)
}

// GetCustomerPeriodTotal returns the sum of the customer's approved order
// totals placed within [from, to]. Both bounds are required RFC 3339
// timestamps and are inclusive.
func (h *Handler) GetCustomerPeriodTotal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	from, ok := timeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := timeQuery(c, "to")
	if !ok {
		return
	}
	if to.Before(from) {
		respondError(c, http.StatusBadRequest, "to must not precede from")
		return
	}

	total, err := h.orderService.PeriodTotal(c.Request.Context(), id, from, to)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, periodTotalResponse{
		CustomerID: id,
		From:       from,
		To:         to,
		Total:      total,
	})
}

// timeQuery parses a required RFC 3339 query parameter. Reports ok=false
// after writing a 400 response when missing or malformed.
func timeQuery(c *gin.Context, name string) (time.Time, bool) {
	v := c.Query(name)
	if v == "" {
		respondError(c, http.StatusBadRequest, name+" query parameter is required")
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+name+": "+err.Error())
		return time.Time{}, false
	}
	return t, true
}

// GetCustomerCredit returns the customer's credit limit, the credit consumed
// within the rolling window, and the remaining balance.
func (h *Handler) GetCustomerCredit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	snap, err := h.orderService.CreditBalance(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, creditResponse{
		CustomerID:       id,
		CreditLimit:      snap.CreditLimit,
		ConsumedCredit:   snap.ConsumedCredit,
		AvailableBalance: snap.AvailableBalance,
	})
}
