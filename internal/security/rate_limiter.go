package security

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/leslieo2/go-hot-content/internal/config"
	"github.com/leslieo2/go-hot-content/internal/constants"
)

// RateLimiter keeps one token bucket per client address. Buckets of idle
// clients expire from the cache.
type RateLimiter struct {
	limiters *cache.Cache
	config   config.RateLimitConfig

	stop     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = constants.RateLimitCleanupInterval
	}
	if cfg.MaxCacheSize <= 0 {
		cfg.MaxCacheSize = constants.RateLimitMaxCacheSize
	}

	rl := &RateLimiter{
		limiters: cache.New(cfg.CleanupInterval, cfg.CleanupInterval*2),
		config:   cfg,
		stop:     make(chan struct{}),
	}
	if cfg.Enabled {
		go rl.periodicCleanup()
	}
	return rl
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// periodicCleanup bounds the number of tracked clients
func (rl *RateLimiter) periodicCleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.trim()
		}
	}
}

// trim evicts arbitrary clients once the cache exceeds its bound, plus 10%
// headroom so it does not run every tick.
func (rl *RateLimiter) trim() {
	maxSize := rl.config.MaxCacheSize
	current := rl.limiters.ItemCount()
	if current <= maxSize {
		return
	}
	toRemove := current - maxSize + maxSize/10
	for key := range rl.limiters.Items() {
		if toRemove == 0 {
			break
		}
		rl.limiters.Delete(key)
		toRemove--
	}
}

func (rl *RateLimiter) limiter(identifier string) *rate.Limiter {
	if item, found := rl.limiters.Get(identifier); found {
		return item.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize)
	rl.limiters.Set(identifier, limiter, cache.DefaultExpiration)
	return limiter
}

func (rl *RateLimiter) Allow(identifier string) bool {
	if !rl.config.Enabled {
		return true
	}
	return rl.limiter(identifier).Allow()
}

type RateLimitStatus struct {
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Status reports the bucket of identifier without consuming a token.
func (rl *RateLimiter) Status(identifier string) RateLimitStatus {
	if !rl.config.Enabled {
		return RateLimitStatus{Limit: rl.config.BurstSize, Remaining: rl.config.BurstSize}
	}
	limiter := rl.limiter(identifier)
	tokens := limiter.Tokens()
	status := RateLimitStatus{Limit: rl.config.BurstSize}
	if tokens > 0 {
		status.Remaining = int(tokens)
	}
	if tokens < 1 && rl.config.RequestsPerSecond > 0 {
		status.RetryAfter = time.Duration((1 - tokens) / float64(rl.config.RequestsPerSecond) * float64(time.Second))
	}
	return status
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.config.Enabled || rl.shouldSkipRateLimit(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		identifier := "ip:" + clientIP(r)
		allowed := rl.Allow(identifier)
		status := rl.Status(identifier)

		w.Header().Set(constants.HeaderXRateLimitLimit, strconv.Itoa(status.Limit))
		w.Header().Set(constants.HeaderXRateLimitRemaining, strconv.Itoa(status.Remaining))

		if !allowed {
			retry := int(status.RetryAfter.Seconds() + 0.999)
			if retry < 1 {
				retry = 1
			}
			w.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(retry))
			w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error":       constants.ErrorCodeRateLimitExceeded,
				"message":     fmt.Sprintf("Rate limit exceeded. Try again in %ds", retry),
				"retry_after": retry,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get(constants.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get(constants.HeaderXRealIP); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *RateLimiter) shouldSkipRateLimit(path string) bool {
	switch path {
	case constants.PathHealth, constants.PathReady, constants.PathMetrics:
		return true
	}
	return false
}
