package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spst-logistics/spst-api/internal/config"
	"github.com/spst-logistics/spst-api/internal/http/middleware"
)

func serveThrough(cfg *config.SecurityConfig, path string) *httptest.ResponseRecorder {
	h := middleware.SecurityHeaders(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestSecurityHeaders(t *testing.T) {
	cfg := &config.SecurityConfig{
		ContentTypeNosniff: true,
		FrameOptions:       "DENY",
	}

	rec := serveThrough(cfg, "/api/v1/spedizioni")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestSecurityHeadersCacheControl(t *testing.T) {
	cfg := &config.SecurityConfig{}

	// Authenticated API payloads are never cacheable.
	rec := serveThrough(cfg, "/api/v1/quotazioni")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	// Public share links and non-API paths are left alone.
	rec = serveThrough(cfg, "/api/v1/public/quotazioni/sometoken")
	assert.Empty(t, rec.Header().Get("Cache-Control"))

	rec = serveThrough(cfg, "/health")
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}
