package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyrasubia/phoinix-storefront/pkg/health"
	"github.com/cyrasubia/phoinix-storefront/pkg/httputil"
	"github.com/cyrasubia/phoinix-storefront/pkg/middleware"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/cart"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/catalog"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/catalog/fixture"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/domain"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/service"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/storage/memory"
)

// ============================================================================
// Test helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	router http.Handler
	store  *cart.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, RouterConfig{CORS: middleware.DefaultCORSConfig(), CatalogMaxAge: time.Minute})
}

func newTestEnvWithConfig(t *testing.T, cfg RouterConfig) *testEnv {
	t.Helper()
	logger := testLogger()

	store := cart.NewStore(memory.New(), cart.Options{MaxLineQuantity: service.MaxQuantityPerItem}, logger)
	t.Cleanup(store.Close)
	store.Hydrate(context.Background())

	fx, err := fixture.New()
	require.NoError(t, err)
	catalogSvc := catalog.NewService(nil, fx, logger)

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("cart", func(context.Context) error { return nil })

	router := NewRouter(
		service.NewCartService(store, catalogSvc, logger),
		catalogSvc,
		healthHandler,
		prometheus.NewRegistry(),
		cfg,
		logger,
	)
	return &testEnv{router: router, store: store}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) service.CartView {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.Nil(t, env.Error)
	var view service.CartView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

// ============================================================================
// Catalog
// ============================================================================

func TestListProducts_PaginatesFixture(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/products?page=2&per_page=5", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age=60")

	var page struct {
		Items      []domain.Product `json:"items"`
		TotalCount int              `json:"total_count"`
		Page       int              `json:"page"`
		TotalPages int              `json:"total_pages"`
		HasNext    bool             `json:"has_next"`
		Source     string           `json:"source"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &page))
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 13, page.TotalCount)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.Equal(t, catalog.SourceFixture, page.Source)
	assert.Equal(t, "demo-6", page.Items[0].ID)
}

func TestGetProduct(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/products/omega-3-fish-oil", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p domain.Product
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &p))
	assert.Equal(t, "demo-2", p.ID)

	rec = env.do(t, http.MethodGet, "/api/v1/products/unicorn-dust", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error.Code)
}

func TestCollections(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/collections", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(decodeEnvelope(t, rec).Data))

	rec = env.do(t, http.MethodGet, "/api/v1/collections/summer", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// Cart
// ============================================================================

func TestCart_AddUpdateRemove(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", `{"handle":"coq10-ubiquinone","quantity":2,"open_panel":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	view := decodeCart(t, rec)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "variant-1", view.Items[0].VariantID)
	assert.Equal(t, 2, view.TotalItems)
	assert.True(t, decimal.RequireFromString("60").Equal(view.TotalPrice))
	assert.True(t, view.PanelOpen)

	rec = env.do(t, http.MethodPut, "/api/v1/cart/items/demo-1", `{"quantity":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decodeCart(t, rec).TotalItems)

	rec = env.do(t, http.MethodDelete, "/api/v1/cart/items/demo-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Items)
}

func TestCart_GetAndClear(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddItem(domain.LineItem{ID: "p1", VariantID: "v1", UnitPrice: decimal.NewFromInt(10), Quantity: 1})

	rec := env.do(t, http.MethodGet, "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeCart(t, rec)
	assert.Equal(t, 1, view.TotalItems)
	assert.True(t, view.Hydrated)

	rec = env.do(t, http.MethodDelete, "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeCart(t, rec)
	assert.NotNil(t, view.Items)
	assert.Equal(t, 0, view.TotalItems)
}

func TestCart_EscapedProductID(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddItem(domain.LineItem{ID: "gid://shopify/Product/1", VariantID: "gid://shopify/ProductVariant/9", Quantity: 1})

	rec := env.do(t, http.MethodDelete, "/api/v1/cart/items/gid:%2F%2Fshopify%2FProduct%2F1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.store.Items())
}

func TestCart_AddValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing handle", `{"quantity":1}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad handle", `{"handle":"Not A Handle"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"quantity too large", `{"handle":"coq10-ubiquinone","quantity":101}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown field", `{"handle":"coq10-ubiquinone","price":1}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown product", `{"handle":"unicorn-dust"}`, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/cart/items", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			body := decodeEnvelope(t, rec)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
	assert.Empty(t, env.store.Items())
}

func TestCart_RejectsNonJSON(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader("handle=coq10"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestCart_UpdateRequiresQuantity(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/cart/items/demo-1", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, rec).Error.Code)
}

func TestCart_PanelAndRefresh(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/cart/panel", `{"open":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeCart(t, rec).PanelOpen)
	assert.True(t, env.store.PanelOpen())

	rec = env.do(t, http.MethodPost, "/api/v1/cart/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeCart(t, rec).Hydrated)
}

// ============================================================================
// Operational endpoints
// ============================================================================

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	env.do(t, http.MethodGet, "/api/v1/cart", "")
	rec = env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart/items", nil)
	req.Header.Set("Origin", "https://phoinix.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCart_RateLimited(t *testing.T) {
	env := newTestEnvWithConfig(t, RouterConfig{RateLimitRPS: 0.001, RateLimitBurst: 1})

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/cart", "").Code)
	rec := env.do(t, http.MethodGet, "/api/v1/cart", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeEnvelope(t, rec).Error.Code)

	// catalog routes are not limited
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/products", "").Code)
}
