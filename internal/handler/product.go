package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetProduct returns a single product.
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	p, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(*p))
}

// ListProducts returns a page of the product catalog.
func (h *Handler) ListProducts(c *gin.Context) {
	limit, offset := pageParams(c)

	found, err := h.products.List(c.Request.Context(), limit, offset)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	resp := make([]productResponse, len(found))
	for i, p := range found {
		resp[i] = toProductResponse(p)
	}
	c.JSON(http.StatusOK, resp)
}

// SearchProducts returns a page of products whose name contains the name
// query parameter, case-insensitively.
func (h *Handler) SearchProducts(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		respondError(c, http.StatusBadRequest, "name query parameter is required")
		return
	}
	limit, offset := pageParams(c)

	found, err := h.products.SearchByName(c.Request.Context(), name, limit, offset)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	resp := make([]productResponse, len(found))
	for i, p := range found {
		resp[i] = toProductResponse(p)
	}
	c.JSON(http.StatusOK, resp)
}

// ListProductsByPrice returns a page of products priced within the optional
// min/max bounds, ordered by price. Omitting both bounds lists the whole
// catalog.
func (h *Handler) ListProductsByPrice(c *gin.Context) {
	minPrice, ok := decimalQuery(c, "min")
	if !ok {
		return
	}
	maxPrice, ok := decimalQuery(c, "max")
	if !ok {
		return
	}
	limit, offset := pageParams(c)

	found, err := h.products.ListByPriceRange(c.Request.Context(), minPrice, maxPrice, limit, offset)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	resp := make([]productResponse, len(found))
	for i, p := range found {
		resp[i] = toProductResponse(p)
	}
	c.JSON(http.StatusOK, resp)
}

// decimalQuery parses an optional decimal query parameter. A missing
// parameter yields a nil value; a malformed one reports ok=false after
// writing a 400 response.
func decimalQuery(c *gin.Context, name string) (*decimal.Decimal, bool) {
	v := c.Query(name)
	if v == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+name+": "+err.Error())
		return nil, false
	}
	return &d, true
}
