package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthAcceptsBearerAndAPIKey(t *testing.T) {
	h := Auth("secret")(okHandler())

	cases := map[string]func(*http.Request){
		"bearer":  func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret") },
		"api key": func(r *http.Request) { r.Header.Set("X-API-Key", "secret") },
	}
	for name, set := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/trades", nil)
			set(req)
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestAuthRejectsMissingAndWrongToken(t *testing.T) {
	h := Auth("secret")(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/trades", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthDisabledWithEmptyKey(t *testing.T) {
	h := Auth("")(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type stubLimiter struct {
	allowed bool
	err     error
	gotKey  string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	s.gotKey = key
	return s.allowed, s.err
}

func TestRateLimitBlocksWhenExceeded(t *testing.T) {
	limiter := &stubLimiter{allowed: false}
	h := RateLimit(limiter, 60, time.Minute)(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/trades", nil)
	req.RemoteAddr = "198.51.100.7:54321"
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "ratelimit:api:198.51.100.7", limiter.gotKey)
}

func TestRateLimitFailsOpenOnLimiterError(t *testing.T) {
	h := RateLimit(&stubLimiter{err: errors.New("connection refused")}, 60, time.Minute)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitPrefersForwardedFor(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	h := RateLimit(limiter, 60, time.Minute)(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/trades", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ratelimit:api:203.0.113.9", limiter.gotKey)
}
