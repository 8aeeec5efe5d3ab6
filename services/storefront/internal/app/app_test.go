package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/config"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	t.Setenv("CART_STORAGE_DRIVER", driver)
	t.Setenv("CATALOG_PROVIDER", config.CatalogFixture)
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "storefront.db"))
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func waitReady(t *testing.T, h http.Handler) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		return rec.Code == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
}

func addItem(t *testing.T, h http.Handler, handle string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"handle":"`+handle+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func cartTotalItems(t *testing.T, h http.Handler) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			TotalItems int `json:"total_items"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Data.TotalItems
}

func TestNewApp_MemoryDriver(t *testing.T) {
	cfg := testConfig(t, storage.DriverMemory)

	a, err := NewApp(cfg, testLogger())
	require.NoError(t, err)
	defer func() { _ = a.Shutdown() }()

	h := a.Handler()
	waitReady(t, h)
	addItem(t, h, "coq10-ubiquinone")
	assert.Equal(t, 1, cartTotalItems(t, h))
}

func TestNewApp_SQLiteCartSurvivesRestart(t *testing.T) {
	cfg := testConfig(t, storage.DriverSQLite)

	first, err := NewApp(cfg, testLogger())
	require.NoError(t, err)
	waitReady(t, first.Handler())
	addItem(t, first.Handler(), "coq10-ubiquinone")
	addItem(t, first.Handler(), "coq10-ubiquinone")
	require.NoError(t, first.Shutdown())

	second, err := NewApp(cfg, testLogger())
	require.NoError(t, err)
	defer func() { _ = second.Shutdown() }()

	waitReady(t, second.Handler())
	assert.Equal(t, 2, cartTotalItems(t, second.Handler()))
}

func TestNewApp_RedisDriver(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())
	cfg := testConfig(t, storage.DriverRedis)

	a, err := NewApp(cfg, testLogger())
	require.NoError(t, err)

	waitReady(t, a.Handler())
	addItem(t, a.Handler(), "omega-3-fish-oil")
	require.NoError(t, a.Shutdown())

	assert.True(t, mr.Exists(cfg.RedisKeyPrefix+cfg.CartKey))
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")
	cfg := testConfig(t, storage.DriverRedis)

	a, err := NewApp(cfg, testLogger())

	assert.Nil(t, a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Setenv("STOREFRONT_HTTP_PORT", "18089")
	cfg := testConfig(t, storage.DriverMemory)

	a, err := NewApp(cfg, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
