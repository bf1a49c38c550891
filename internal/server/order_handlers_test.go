package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bakery-backend/internal/config"
	"bakery-backend/internal/domain"
	"bakery-backend/internal/infrastructure/asset"
	"bakery-backend/internal/infrastructure/cache"
	"bakery-backend/internal/infrastructure/mail"
	"bakery-backend/internal/infrastructure/repo"
	"bakery-backend/internal/usecase"
)

type testEnv struct {
	srv      *Server
	products *repo.MemoryProductRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.AssetsDir = t.TempDir()

	users := repo.NewMemoryUserRepo()
	products := repo.NewMemoryProductRepo()
	categories := repo.NewMemoryCategoryRepo()
	orders := repo.NewMemoryOrderRepo()

	auth := &usecase.AuthService{Users: users, Mail: mail.LogMailer{}, JWTSecret: cfg.JWTSecret}
	catalog := &usecase.CatalogService{Categories: categories, Products: products, Cache: cache.Noop{}}
	orderSvc := &usecase.OrderService{Orders: orders, Products: products}
	userSvc := &usecase.UserService{Users: users, Catalog: catalog}

	srv := New(cfg, auth, orderSvc, catalog, userSvc, asset.NewFSWriter(cfg.AssetsDir, ""))
	return &testEnv{srv: srv, products: products}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) register(t *testing.T, email, role string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Test User", "email": email, "password": "secret123", "role": role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (e *testEnv) seedProduct(t *testing.T, name string, price float64) *domain.Product {
	t.Helper()
	p := &domain.Product{Name: name, Price: price}
	require.NoError(t, e.products.Insert(context.Background(), p))
	return p
}

func placeBody(productID primitive.ObjectID, qty int, total float64) gin.H {
	return gin.H{
		"items":      []gin.H{{"productId": productID.Hex(), "quantity": qty}},
		"totalPrice": total,
		"shippingAddress": gin.H{
			"fullName": "Jane Doe", "phone": "555-0101", "address": "1 Main St", "city": "Springfield",
		},
	}
}

func orderIDFrom(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Order struct {
			ID string `json:"id"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Order.ID)
	return resp.Order.ID
}

func TestOrdersRequireAuth(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/api/orders/my-orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlaceAndFetchOrder(t *testing.T) {
	e := newTestEnv(t)
	customer := e.register(t, "jane@example.com", "")
	p := e.seedProduct(t, "croissant", 3.50)

	w := e.do(t, http.MethodPost, "/api/orders", customer, placeBody(p.ID, 2, 7.00))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := orderIDFrom(t, w)

	w = e.do(t, http.MethodGet, "/api/orders/"+id, customer, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/orders/my-orders", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Orders []json.RawMessage `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Orders, 1)

	// another customer may not read it
	other := e.register(t, "intruder@example.com", "")
	w = e.do(t, http.MethodGet, "/api/orders/"+id, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPlaceOrderValidation(t *testing.T) {
	e := newTestEnv(t)
	customer := e.register(t, "jane@example.com", "")
	p := e.seedProduct(t, "croissant", 3.50)

	// empty body fails binding
	w := e.do(t, http.MethodPost, "/api/orders", customer, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// mismatched total is rejected
	w = e.do(t, http.MethodPost, "/api/orders", customer, placeBody(p.ID, 2, 5.00))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown product is rejected
	w = e.do(t, http.MethodPost, "/api/orders", customer, placeBody(primitive.NewObjectID(), 1, 3.50))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminOrderLifecycle(t *testing.T) {
	e := newTestEnv(t)
	customer := e.register(t, "jane@example.com", "")
	admin := e.register(t, "boss@example.com", "admin")
	p := e.seedProduct(t, "croissant", 3.50)

	w := e.do(t, http.MethodPost, "/api/orders", customer, placeBody(p.ID, 2, 7.00))
	require.Equal(t, http.StatusCreated, w.Code)
	id := orderIDFrom(t, w)

	// customers may not drive admin transitions
	w = e.do(t, http.MethodPatch, "/api/orders/"+id+"/status", customer, gin.H{"status": "Confirmed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	for _, status := range []string{"Confirmed", "Preparing", "Out for Delivery"} {
		w = e.do(t, http.MethodPatch, "/api/orders/"+id+"/status", admin, gin.H{"status": status})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	// skipping ahead is rejected with the valid options listed
	w = e.do(t, http.MethodPatch, "/api/orders/"+id+"/status", admin, gin.H{"status": "Delivered"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Valid options: Cancelled")

	// only the customer confirms delivery
	w = e.do(t, http.MethodPatch, "/api/orders/"+id+"/confirm-delivery", admin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPatch, "/api/orders/"+id+"/confirm-delivery", customer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"isPaid":true`)
}

func TestCancelPendingOnly(t *testing.T) {
	e := newTestEnv(t)
	customer := e.register(t, "jane@example.com", "")
	admin := e.register(t, "boss@example.com", "admin")
	p := e.seedProduct(t, "croissant", 3.50)

	w := e.do(t, http.MethodPost, "/api/orders", customer, placeBody(p.ID, 1, 3.50))
	require.Equal(t, http.StatusCreated, w.Code)
	id := orderIDFrom(t, w)

	w = e.do(t, http.MethodPatch, "/api/orders/"+id+"/status", admin, gin.H{"status": "Confirmed"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPatch, "/api/orders/"+id+"/cancel", customer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Cannot change status from 'Confirmed'")
}

func TestAdminOnlyRoutes(t *testing.T) {
	e := newTestEnv(t)
	customer := e.register(t, "jane@example.com", "")
	admin := e.register(t, "boss@example.com", "admin")

	for _, path := range []string{"/api/orders/all", "/api/orders/stats/summary", "/api/user/all"} {
		w := e.do(t, http.MethodGet, path, customer, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
		w = e.do(t, http.MethodGet, path, admin, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestStatsSummary(t *testing.T) {
	e := newTestEnv(t)
	customer := e.register(t, "jane@example.com", "")
	admin := e.register(t, "boss@example.com", "admin")
	p := e.seedProduct(t, "croissant", 3.50)

	w := e.do(t, http.MethodPost, "/api/orders", customer, placeBody(p.ID, 2, 7.00))
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodGet, "/api/orders/stats/summary", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Stats domain.OrderStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Stats.TotalOrders)
	assert.InDelta(t, 7.00, resp.Stats.TotalRevenue, 0.001)
}

func TestDeleteOrder(t *testing.T) {
	e := newTestEnv(t)
	customer := e.register(t, "jane@example.com", "")
	admin := e.register(t, "boss@example.com", "admin")
	p := e.seedProduct(t, "croissant", 3.50)

	w := e.do(t, http.MethodPost, "/api/orders", customer, placeBody(p.ID, 1, 3.50))
	require.Equal(t, http.StatusCreated, w.Code)
	id := orderIDFrom(t, w)

	w = e.do(t, http.MethodDelete, "/api/orders/"+id, customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodDelete, "/api/orders/"+id, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodDelete, "/api/orders/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
