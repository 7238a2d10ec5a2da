package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tokenmeter/tokenmeter-api/internal/auth"
	"github.com/tokenmeter/tokenmeter-api/internal/service"
)

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allows request without identity", func(t *testing.T) {
		mw := NewRateLimitMiddleware(service.NewMemoryRateLimiter(), 1)
		handler := mw.Handler(okHandler(t, nil))

		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("sets rate limit headers", func(t *testing.T) {
		mw := NewRateLimitMiddleware(service.NewMemoryRateLimiter(), 100)
		handler := mw.Handler(okHandler(t, nil))

		req := httptest.NewRequest("GET", "/test", nil)
		req = req.WithContext(WithIdentity(req.Context(), &auth.Claims{ID: "user-1"}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "99", rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("returns 429 when rate limited", func(t *testing.T) {
		mw := NewRateLimitMiddleware(service.NewMemoryRateLimiter(), 2)
		handler := mw.Handler(okHandler(t, nil))

		send := func() *httptest.ResponseRecorder {
			req := httptest.NewRequest("GET", "/test", nil)
			req = req.WithContext(WithIdentity(req.Context(), &auth.Claims{ID: "user-2"}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec
		}

		send()
		send()
		rec := send()

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.JSONEq(t, `{"message":"Rate limit exceeded","code":"RATE_LIMIT_EXCEEDED"}`, rec.Body.String())
	})

	t.Run("uses default limit when zero", func(t *testing.T) {
		mw := NewRateLimitMiddleware(service.NewMemoryRateLimiter(), 0)
		handler := mw.Handler(okHandler(t, nil))

		req := httptest.NewRequest("GET", "/test", nil)
		req = req.WithContext(WithIdentity(req.Context(), &auth.Claims{ID: "user-3"}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
	})
}

func TestIPRateLimitMiddleware(t *testing.T) {
	mw := NewIPRateLimitMiddleware(service.NewMemoryRateLimiter(), 2, time.Minute, "auth")
	handler := mw.Handler(okHandler(t, nil))

	send := func(addr string) int {
		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("198.51.100.1:1000"))
	assert.Equal(t, http.StatusOK, send("198.51.100.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.1:1002"), "port changes do not reset the budget")
	assert.Equal(t, http.StatusOK, send("198.51.100.2:1000"))
}

func TestBodyLimitMiddleware(t *testing.T) {
	mw := NewBodyLimitMiddleware(16)
	handler := mw.Handler(okHandler(t, nil))

	req := httptest.NewRequest("POST", "/test", strings.NewReader(strings.Repeat("x", 17)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req = httptest.NewRequest("POST", "/test", strings.NewReader("small"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSecurityHeadersMiddleware(false).Handler(okHandler(t, nil)).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	NewSecurityHeadersMiddleware(true).Handler(okHandler(t, nil)).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}
