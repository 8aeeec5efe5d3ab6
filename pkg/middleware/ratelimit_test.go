package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func serveFrom(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_WithinBurstPasses(t *testing.T) {
	h := RateLimit(10, 10, discardLogger())(http.HandlerFunc(ok))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serveFrom(h, "192.168.1.1:12345").Code, "request %d", i+1)
	}
}

func TestRateLimit_ExceedingBurstReturns429(t *testing.T) {
	h := RateLimit(0.001, 3, discardLogger())(http.HandlerFunc(ok))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serveFrom(h, "10.0.0.1:1").Code)
	}
	rec := serveFrom(h, "10.0.0.1:1")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestRateLimit_IndependentPerIP(t *testing.T) {
	h := RateLimit(0.001, 1, discardLogger())(http.HandlerFunc(ok))

	assert.Equal(t, http.StatusOK, serveFrom(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, serveFrom(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusOK, serveFrom(h, "10.0.0.2:1").Code)
}

func TestRateLimit_DisabledPassesEverything(t *testing.T) {
	h := RateLimit(0, 0, discardLogger())(http.HandlerFunc(ok))

	for i := 0; i < 50; i++ {
		assert.Equal(t, http.StatusOK, serveFrom(h, "10.0.0.1:1").Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:5000"
	assert.Equal(t, "10.1.1.1", clientIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.9")
	assert.Equal(t, "172.16.0.9", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "garbage")
	assert.Equal(t, "172.16.0.9", clientIP(req))
}

func TestVisitorStore_SweepsIdleVisitors(t *testing.T) {
	now := time.Now()
	s := newVisitorStore(1, 1, time.Minute)
	s.now = func() time.Time { return now }

	s.get("10.0.0.1")
	s.get("10.0.0.2")
	assert.Equal(t, 2, s.len())

	now = now.Add(2 * time.Minute)
	s.get("10.0.0.3")

	assert.Equal(t, 1, s.len())
}
