package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmendes/credit-orders/internal/domain/customer"
	"github.com/gmendes/credit-orders/internal/domain/order"
	"github.com/gmendes/credit-orders/internal/domain/product"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mock implementations ---

type mockCustomerRepo struct {
	customers []customer.Customer
	byID      map[int64]*customer.Customer
	listErr   error
}

func (m *mockCustomerRepo) GetByID(_ context.Context, id int64) (*customer.Customer, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return c, nil
}

func (m *mockCustomerRepo) List(_ context.Context, _, _ int) ([]customer.Customer, error) {
	return m.customers, m.listErr
}

func (m *mockCustomerRepo) SearchByName(_ context.Context, name string, _, _ int) ([]customer.Customer, error) {
	var out []customer.Customer
	for _, c := range m.customers {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(name)) {
			out = append(out, c)
		}
	}
	return out, m.listErr
}

type mockProductRepo struct {
	products []product.Product
	byID     map[int64]*product.Product
	listErr  error
}

func (m *mockProductRepo) List(_ context.Context, _, _ int) ([]product.Product, error) {
	return m.products, m.listErr
}

func (m *mockProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	found := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			found = append(found, *p)
		}
	}
	return found, nil
}

func (m *mockProductRepo) SearchByName(_ context.Context, name string, _, _ int) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(name)) {
			out = append(out, p)
		}
	}
	return out, m.listErr
}

func (m *mockProductRepo) ListByPriceRange(_ context.Context, minPrice, maxPrice *decimal.Decimal, _, _ int) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.products {
		if minPrice != nil && p.Price.LessThan(*minPrice) {
			continue
		}
		if maxPrice != nil && p.Price.GreaterThan(*maxPrice) {
			continue
		}
		out = append(out, p)
	}
	return out, m.listErr
}

type mockOrderRepo struct {
	orders    []*order.Order
	nextID    int64
	createErr error
	sum       decimal.Decimal
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	o.ID = m.nextID
	stored := *o
	m.orders = append(m.orders, &stored)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id int64) (*order.Order, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *mockOrderRepo) List(_ context.Context, _, _ int) ([]order.Order, error) {
	out := make([]order.Order, len(m.orders))
	for i, o := range m.orders {
		out[i] = *o
	}
	return out, nil
}

func (m *mockOrderRepo) ListByCustomer(_ context.Context, customerID int64, _, _ int) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListByStatus(_ context.Context, status order.Status, _, _ int) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if o.Status == status {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) SumApprovedSince(_ context.Context, customerID int64, since time.Time) (decimal.Decimal, error) {
	sum := m.sum
	for _, o := range m.orders {
		if o.CustomerID == customerID && o.Status == order.StatusApproved && !o.PlacedAt.Before(since) {
			sum = sum.Add(o.Total)
		}
	}
	return sum, nil
}

func (m *mockOrderRepo) SumApprovedInPeriod(_ context.Context, customerID int64, from, to time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, o := range m.orders {
		if o.CustomerID != customerID || o.Status != order.StatusApproved {
			continue
		}
		if o.PlacedAt.Before(from) || o.PlacedAt.After(to) {
			continue
		}
		sum = sum.Add(o.Total)
	}
	return sum, nil
}

// --- Helpers ---

type fixture struct {
	customers *mockCustomerRepo
	products  *mockProductRepo
	orders    *mockOrderRepo
	router    *gin.Engine
}

func newFixture() *fixture {
	customers := &mockCustomerRepo{byID: map[int64]*customer.Customer{}}
	products := &mockProductRepo{byID: map[int64]*product.Product{}}
	orders := &mockOrderRepo{sum: decimal.Zero}

	svc := order.NewService(customers, products, orders)
	h := NewHandler(customers, products, orders, svc)

	router := gin.New()
	h.Register(router.Group("/api"))

	return &fixture{
		customers: customers,
		products:  products,
		orders:    orders,
		router:    router,
	}
}

func (f *fixture) addCustomer(id int64, name, limit string) {
	c := customer.Customer{ID: id, Name: name, CreditLimit: decimal.RequireFromString(limit)}
	f.customers.byID[id] = &c
	f.customers.customers = append(f.customers.customers, c)
}

func (f *fixture) addProduct(id int64, name, price string) {
	p := product.Product{ID: id, Name: name, Price: decimal.RequireFromString(price)}
	f.products.byID[id] = &p
	f.products.products = append(f.products.products, p)
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// --- Order creation ---

func TestCreateOrder_Approved(t *testing.T) {
	f := newFixture()
	f.addCustomer(1, "ACME Ltda", "5000.00")
	f.addProduct(10, "Widget", "1000.00")

	rec := f.do(t, http.MethodPost, "/api/orders", gin.H{
		"customerId": 1,
		"items":      []gin.H{{"productId": 10, "quantity": 4}},
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID               int64           `json:"id"`
		CustomerID       int64           `json:"customerId"`
		Status           string          `json:"status"`
		Total            decimal.Decimal `json:"total"`
		CreditLimit      decimal.Decimal `json:"creditLimit"`
		ConsumedCredit   decimal.Decimal `json:"consumedCredit"`
		AvailableBalance decimal.Decimal `json:"availableBalance"`
		Items            []struct {
			ProductID int64           `json:"productId"`
			Quantity  int             `json:"quantity"`
			UnitPrice decimal.Decimal `json:"unitPrice"`
			Subtotal  decimal.Decimal `json:"subtotal"`
		} `json:"items"`
	}
	decodeJSON(t, rec, &resp)

	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, "APPROVED", resp.Status)
	assert.True(t, decimal.RequireFromString("4000.00").Equal(resp.Total))
	assert.True(t, decimal.RequireFromString("5000.00").Equal(resp.CreditLimit))
	assert.True(t, decimal.RequireFromString("4000.00").Equal(resp.ConsumedCredit))
	assert.True(t, decimal.RequireFromString("1000.00").Equal(resp.AvailableBalance))
	require.Len(t, resp.Items, 1)
	assert.True(t, decimal.RequireFromString("1000.00").Equal(resp.Items[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("4000.00").Equal(resp.Items[0].Subtotal))
}

func TestCreateOrder_RejectedStill201(t *testing.T) {
	f := newFixture()
	f.addCustomer(1, "ACME Ltda", "5000.00")
	f.addProduct(10, "Widget", "600.00")
	f.orders.sum = decimal.RequireFromString("4500.00")

	rec := f.do(t, http.MethodPost, "/api/orders", gin.H{
		"customerId": 1,
		"items":      []gin.H{{"productId": 10, "quantity": 1}},
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Status string `json:"status"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "REJECTED", resp.Status)
	// Persisted despite the rejection.
	require.Len(t, f.orders.orders, 1)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	f := newFixture()
	f.addCustomer(1, "ACME Ltda", "5000.00")

	rec := f.do(t, http.MethodPost, "/api/orders", gin.H{
		"customerId": 1,
		"items":      []gin.H{},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.orders.orders)
}

func TestCreateOrder_NonPositiveQuantity(t *testing.T) {
	f := newFixture()
	f.addCustomer(1, "ACME Ltda", "5000.00")
	f.addProduct(10, "Widget", "10.00")

	rec := f.do(t, http.MethodPost, "/api/orders", gin.H{
		"customerId": 1,
		"items":      []gin.H{{"productId": 10, "quantity": 0}},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.orders.orders)
}

func TestCreateOrder_CustomerNotFound(t *testing.T) {
	f := newFixture()
	f.addProduct(10, "Widget", "10.00")

	rec := f.do(t, http.MethodPost, "/api/orders", gin.H{
		"customerId": 99,
		"items":      []gin.H{{"productId": 10, "quantity": 1}},
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	decodeJSON(t, rec, &resp)
	assert.Contains(t, resp.Message, "customer 99 not found")
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	f := newFixture()
	f.addCustomer(1, "ACME Ltda", "5000.00")
	f.addProduct(10, "Widget", "10.00")

	rec := f.do(t, http.MethodPost, "/api/orders", gin.H{
		"customerId": 1,
		"items": []gin.H{
			{"productId": 10, "quantity": 1},
			{"productId": 77, "quantity": 2},
		},
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	decodeJSON(t, rec, &resp)
	assert.Contains(t, resp.Message, "77")
	assert.Empty(t, f.orders.orders)
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Order queries ---

func TestGetOrder(t *testing.T) {
	f := newFixture()
	f.orders.orders = append(f.orders.orders, &order.Order{
		ID:         7,
		CustomerID: 1,
		PlacedAt:   time.Now(),
		Status:     order.StatusApproved,
		Total:      decimal.RequireFromString("123.45"),
		Items: []order.Item{{
			ID: 1, OrderID: 7, ProductID: 10, ProductName: "Widget",
			Quantity: 1, UnitPrice: decimal.RequireFromString("123.45"),
			Subtotal: decimal.RequireFromString("123.45"),
		}},
	})

	rec := f.do(t, http.MethodGet, "/api/orders/7", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID    int64 `json:"id"`
		Items []struct {
			ProductName string `json:"productName"`
		} `json:"items"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, int64(7), resp.ID)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Widget", resp.Items[0].ProductName)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/orders/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrders_InvalidStatus(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/orders?status=PENDING", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrders_ByStatus(t *testing.T) {
	f := newFixture()
	f.orders.orders = append(f.orders.orders,
		&order.Order{ID: 1, CustomerID: 1, Status: order.StatusApproved, Total: decimal.New(100, 0)},
		&order.Order{ID: 2, CustomerID: 1, Status: order.StatusRejected, Total: decimal.New(200, 0)},
	)

	rec := f.do(t, http.MethodGet, "/api/orders?status=REJECTED", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []orderResponse
	decodeJSON(t, rec, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, int64(2), resp[0].ID)
}

// --- Credit balance ---

func TestGetCustomerCredit(t *testing.T) {
	f := newFixture()
	f.addCustomer(1, "ACME Ltda", "5000.00")
	f.orders.sum = decimal.RequireFromString("1200.00")

	rec := f.do(t, http.MethodGet, "/api/customers/1/credit", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CustomerID       int64           `json:"customerId"`
		CreditLimit      decimal.Decimal `json:"creditLimit"`
		ConsumedCredit   decimal.Decimal `json:"consumedCredit"`
		AvailableBalance decimal.Decimal `json:"availableBalance"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, int64(1), resp.CustomerID)
	assert.True(t, decimal.RequireFromString("5000.00").Equal(resp.CreditLimit))
	assert.True(t, decimal.RequireFromString("1200.00").Equal(resp.ConsumedCredit))
	assert.True(t, decimal.RequireFromString("3800.00").Equal(resp.AvailableBalance))
}

func TestGetCustomerCredit_NotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/customers/42/credit", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCustomerCredit_InvalidID(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/customers/abc/credit", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Customers & products ---

func TestListCustomers(t *testing.T) {
	f := newFixture()
	f.addCustomer(1, "ACME Ltda", "5000.00")
	f.addCustomer(2, "Transportes Sul", "12000.00")

	rec := f.do(t, http.MethodGet, "/api/customers", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []customerResponse
	decodeJSON(t, rec, &resp)
	require.Len(t, resp, 2)
	assert.Equal(t, "ACME Ltda", resp[0].Name)
}

func TestGetProduct(t *testing.T) {
	f := newFixture()
	f.addProduct(10, "Widget", "10.50")

	rec := f.do(t, http.MethodGet, "/api/products/10", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp productResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "Widget", resp.Name)
	assert.True(t, decimal.RequireFromString("10.50").Equal(resp.Price))
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/products/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCustomerOrders_UnknownCustomer(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/customers/5/orders", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Search and price filters ---

func TestSearchCustomers(t *testing.T) {
	f := newFixture()
	f.addCustomer(1, "Acme Retail", "5000.00")
	f.addCustomer(2, "Beta Foods", "3000.00")
	f.addCustomer(3, "ACME Wholesale", "8000.00")

	rec := f.do(t, http.MethodGet, "/api/customers/search?name=acme", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []customerResponse
	decodeJSON(t, rec, &resp)
	require.Len(t, resp, 2)
	assert.Equal(t, "Acme Retail", resp[0].Name)
	assert.Equal(t, "ACME Wholesale", resp[1].Name)
}

func TestSearchCustomers_MissingName(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/customers/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchProducts(t *testing.T) {
	f := newFixture()
	f.addProduct(1, "Steel Widget", "10.00")
	f.addProduct(2, "Brass Fitting", "25.00")

	rec := f.do(t, http.MethodGet, "/api/products/search?name=widget", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []productResponse
	decodeJSON(t, rec, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "Steel Widget", resp[0].Name)
}

func TestListProductsByPrice(t *testing.T) {
	f := newFixture()
	f.addProduct(1, "Cheap", "5.00")
	f.addProduct(2, "Mid", "50.00")
	f.addProduct(3, "Expensive", "500.00")

	rec := f.do(t, http.MethodGet, "/api/products/price?min=10&max=100", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []productResponse
	decodeJSON(t, rec, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "Mid", resp[0].Name)
}

func TestListProductsByPrice_OpenBounds(t *testing.T) {
	f := newFixture()
	f.addProduct(1, "Cheap", "5.00")
	f.addProduct(2, "Expensive", "500.00")

	rec := f.do(t, http.MethodGet, "/api/products/price?min=100", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []productResponse
	decodeJSON(t, rec, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "Expensive", resp[0].Name)
}

func TestListProductsByPrice_InvalidBound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/products/price?min=cheap", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Period totals ---

func TestGetCustomerPeriodTotal(t *testing.T) {
	f := newFixture()
	f.addCustomer(1, "Acme Retail", "5000.00")
	f.orders.orders = append(f.orders.orders,
		&order.Order{ID: 1, CustomerID: 1, Status: order.StatusApproved,
			PlacedAt: time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC),
			Total:    decimal.RequireFromString("300.00")},
		&order.Order{ID: 2, CustomerID: 1, Status: order.StatusRejected,
			PlacedAt: time.Date(2025, 6, 6, 10, 0, 0, 0, time.UTC),
			Total:    decimal.RequireFromString("900.00")},
		&order.Order{ID: 3, CustomerID: 1, Status: order.StatusApproved,
			PlacedAt: time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
			Total:    decimal.RequireFromString("150.00")},
	)

	rec := f.do(t, http.MethodGet,
		"/api/customers/1/orders/total?from=2025-06-01T00:00:00Z&to=2025-06-30T23:59:59Z", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp periodTotalResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, int64(1), resp.CustomerID)
	assert.True(t, decimal.RequireFromString("300.00").Equal(resp.Total),
		"expected 300.00, got %s", resp.Total)
}

func TestGetCustomerPeriodTotal_MissingBounds(t *testing.T) {
	f := newFixture()
	f.addCustomer(1, "Acme Retail", "5000.00")

	rec := f.do(t, http.MethodGet, "/api/customers/1/orders/total?from=2025-06-01T00:00:00Z", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCustomerPeriodTotal_InvertedBounds(t *testing.T) {
	f := newFixture()
	f.addCustomer(1, "Acme Retail", "5000.00")

	rec := f.do(t, http.MethodGet,
		"/api/customers/1/orders/total?from=2025-06-30T00:00:00Z&to=2025-06-01T00:00:00Z", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCustomerPeriodTotal_UnknownCustomer(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet,
		"/api/customers/9/orders/total?from=2025-06-01T00:00:00Z&to=2025-06-30T00:00:00Z", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
