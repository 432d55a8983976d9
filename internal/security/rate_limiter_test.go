package security

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leslieo2/go-hot-content/internal/config"
)

func newTestRateLimiter(t *testing.T, rps, burst int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(config.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: rps,
		BurstSize:         burst,
		CleanupInterval:   time.Hour,
		MaxCacheSize:      10,
	})
	t.Cleanup(rl.Stop)
	return rl
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_AllowsBurstThenLimits(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 3)
	handler := rl.Middleware(okHandler())

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/content/reload", nil))
		assert.Equal(t, http.StatusOK, rr.Code, "request %d", i)
		assert.Equal(t, "3", rr.Header().Get("X-RateLimit-Limit"))
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/content/reload", nil))

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
	retry, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 1)
	assert.Contains(t, rr.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)

	assert.True(t, rl.Allow("ip:10.0.0.1"))
	assert.False(t, rl.Allow("ip:10.0.0.1"))
	assert.True(t, rl.Allow("ip:10.0.0.2"))
}

func TestRateLimiter_SkipsProbes(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	handler := rl.Middleware(okHandler())

	for _, path := range []string{"/health", "/ready", "/metrics", "/health", "/metrics"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: false, BurstSize: 2})
	defer rl.Stop()

	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow("ip:1.2.3.4"))
	}
	assert.Equal(t, RateLimitStatus{Limit: 2, Remaining: 2}, rl.Status("ip:1.2.3.4"))
}

func TestRateLimiter_Trim(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)

	for i := 0; i < 25; i++ {
		rl.Allow("ip:10.0.0." + strconv.Itoa(i))
	}
	rl.trim()

	assert.LessOrEqual(t, rl.limiters.ItemCount(), 10)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, "9.9.9.9:1234", "1.1.1.1"},
		{"real ip", map[string]string{"X-Real-IP": " 3.3.3.3 "}, "9.9.9.9:1234", "3.3.3.3"},
		{"remote addr", nil, "9.9.9.9:1234", "9.9.9.9"},
		{"remote without port", nil, "9.9.9.9", "9.9.9.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := newTestRateLimiter(t, 1, 1)
	rl.Stop()
	rl.Stop()
}
