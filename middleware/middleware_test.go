package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliocms/internal/auth"
	"portfoliocms/pkg/respond"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) respond.ErrorBody {
	t.Helper()
	var body respond.ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewJWTManager([]byte("secret"), time.Hour)
	expired := auth.NewJWTManager([]byte("secret"), -time.Minute)

	valid, err := tokens.Generate("admin@example.com")
	require.NoError(t, err)
	stale, err := expired.Generate("admin@example.com")
	require.NoError(t, err)

	var seen *auth.Claims
	h := AuthMiddleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = AdminFromRequest(r)
	}))

	tests := []struct {
		name   string
		header string
		code   int
		title  string
	}{
		{"missing", "", http.StatusUnauthorized, "Access denied"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Access denied"},
		{"expired", "Bearer " + stale, http.StatusUnauthorized, "Token expired"},
		{"garbage", "Bearer nope", http.StatusForbidden, "Invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.title, decodeError(t, rec).Error)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+valid)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "admin@example.com", seen.Email)
}

func TestRateLimiter(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(3, time.Minute, "Too many requests", "Slow down")
	rl.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		ok, _ := rl.Allow("10.0.0.1")
		assert.True(t, ok, "request %d", i)
	}
	ok, wait := rl.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, wait)

	// Another client has its own budget.
	ok, _ = rl.Allow("10.0.0.2")
	assert.True(t, ok)

	clock = clock.Add(40 * time.Second)
	ok, wait = rl.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 20*time.Second, wait)

	// The next window starts with a full budget.
	clock = clock.Add(20 * time.Second)
	for i := 0; i < 3; i++ {
		ok, _ := rl.Allow("10.0.0.1")
		assert.True(t, ok, "request %d in second window", i)
	}
}

func TestRateLimiterCapsRequestsPerWindow(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clock := start
	rl := NewRateLimiter(5, 15*time.Minute, "Too many login attempts", "Please try again later")
	rl.now = func() time.Time { return clock }

	allowed := 0
	for clock.Sub(start) < 15*time.Minute {
		if ok, _ := rl.Allow("203.0.113.9"); ok {
			allowed++
		}
		clock = clock.Add(10 * time.Second)
	}
	assert.Equal(t, 5, allowed)
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, "Too many login attempts", "Please try again later")
	h := rl.Middleware(okHandler)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send().Code)
	rec := send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "Too many login attempts", decodeError(t, rec).Error)
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware("http://localhost:5173")(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/content", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/content", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeadersAndLogger(t *testing.T) {
	h := RequestLogger(SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
}
