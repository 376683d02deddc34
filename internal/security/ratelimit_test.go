package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRateLimitMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	lim, err := NewLimiter(rdb, 2)
	require.NoError(t, err)

	handler := RateLimit{Limiter: lim}.Middleware(protectedHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
		req.RemoteAddr = "203.0.113.7:51234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Contains(t, rr.Body.String(), "RATE_LIMITED")
	require.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestRateLimitSeparatesClients(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	lim, err := NewLimiter(rdb, 1)
	require.NoError(t, err)
	handler := RateLimit{Limiter: lim}.Middleware(protectedHandler())

	first := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	first.RemoteAddr = "198.51.100.1:40000"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, first)
	require.Equal(t, http.StatusOK, rr.Code)

	other := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	other.RemoteAddr = "198.51.100.2:40000"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, other)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimitWithoutLimiterPassesThrough(t *testing.T) {
	handler := RateLimit{}.Middleware(protectedHandler())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}
