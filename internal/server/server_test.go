package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaplog/internal/config"
	"chaplog/internal/handlers"
	"chaplog/internal/ratelimit"
	"chaplog/internal/security"
)

func newTestServer(t *testing.T, limit int) *HTTPServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Load()
	require.NoError(t, err)

	limiter, err := ratelimit.NewMemoryLimiter(limit, time.Minute, nil)
	require.NoError(t, err)

	issuer := security.NewTokenIssuer("server-test-signing-key-0123456789abc", "ChapLog", "ChapLogUsers", time.Hour)
	set := handlers.NewHandlerSet(zerolog.Nop(), "test", issuer, handlers.Services{}, map[string]handlers.HealthCheck{
		"database": func(context.Context) error { return nil },
	})

	srv, err := NewHTTPServer(cfg, zerolog.Nop(), limiter, set)
	require.NoError(t, err)
	return srv
}

func get(srv *HTTPServer, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t, 100)

	rec := get(srv, "/api/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = get(srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chaplog_http_requests_total")

	assert.Equal(t, http.StatusUnauthorized, get(srv, "/api/books").Code)
}

func TestServerAppliesRateLimit(t *testing.T) {
	srv := newTestServer(t, 1)

	assert.Equal(t, http.StatusOK, get(srv, "/api/healthz").Code)
	rec := get(srv, "/api/healthz")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
