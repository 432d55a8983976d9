package constants

import "time"

// Environment variable constants
const (
	EnvContentRoot       = "GO_HOT_CONTENT_ROOT"
	EnvHotReload         = "GO_HOT_CONTENT_HOT_RELOAD"
	EnvHotReloadMode     = "GO_HOT_CONTENT_HOT_RELOAD_MODE"
	EnvHotReloadInterval = "GO_HOT_CONTENT_HOT_RELOAD_INTERVAL"
	EnvHotReloadDebounce = "GO_HOT_CONTENT_HOT_RELOAD_DEBOUNCE"
	EnvAdminEnabled      = "GO_HOT_CONTENT_ADMIN_ENABLED"
	EnvAdminHost         = "GO_HOT_CONTENT_ADMIN_HOST"
	EnvAdminPort         = "GO_HOT_CONTENT_ADMIN_PORT"
	EnvLogLevel          = "GO_HOT_CONTENT_LOG_LEVEL"
	EnvLogFormat         = "GO_HOT_CONTENT_LOG_FORMAT"
	EnvTickRate          = "GO_HOT_CONTENT_TICK_RATE"
)

// Hot reload modes
const (
	HotReloadModePoll   = "poll"
	HotReloadModeNotify = "notify"
)

// Hot reload timing defaults
const (
	// DefaultPollInterval is how often the watcher snapshots the content root in poll mode
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultDebounce is the settle delay after a detected change before re-diffing
	DefaultDebounce = 100 * time.Millisecond
	// NotifyCoalesceWindow groups bursts of fsnotify events into one wake-up
	NotifyCoalesceWindow = 50 * time.Millisecond
	// DefaultTickRate is the demo host frame rate driving the hot reload pump
	DefaultTickRate = 60
)

// Admin server constants (internal use only - not user configurable)
const (
	AdminReadTimeout     = 5 * time.Second
	AdminWriteTimeout    = 10 * time.Second
	AdminIdleTimeout     = 60 * time.Second
	AdminMaxRequestSize  = 1 << 20
	AdminShutdownTimeout = 5 * time.Second
)

// HTTP header constants
const (
	HeaderContentType   = "Content-Type"
	HeaderAPIKey        = "X-API-Key"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderXRealIP       = "X-Real-IP"
	HeaderAuthorization = "Authorization"
	BearerPrefix        = "Bearer "
)

// Security header constants
const (
	HeaderXContentTypeOptions = "X-Content-Type-Options"
	HeaderXFrameOptions       = "X-Frame-Options"
	HeaderCacheControl        = "Cache-Control"
)

// Content type constants
const (
	ContentTypeJSON = "application/json"
)

// Rate limiting headers
const (
	HeaderXRateLimitLimit     = "X-RateLimit-Limit"
	HeaderXRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderXRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter          = "Retry-After"
)

// Rate limiter internal constants
const (
	// RateLimitCleanupInterval is the interval for cleaning up rate limit cache
	RateLimitCleanupInterval = 5 * time.Minute
	// RateLimitMaxCacheSize is the maximum size of the rate limit cache
	RateLimitMaxCacheSize = 10000
)

// Error code constants
const (
	ErrorCodeUnauthorized      = "UNAUTHORIZED"
	ErrorCodeInvalidAPIKey     = "INVALID_API_KEY"
	ErrorCodeAPIKeyExpired     = "API_KEY_EXPIRED"
	ErrorCodeAPIKeyDisabled    = "API_KEY_DISABLED"
	ErrorCodeNotFound          = "NOT_FOUND"
	ErrorCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	ErrorCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrorCodeBadRequest        = "BAD_REQUEST"
	ErrorCodeHotReloadDisabled = "HOT_RELOAD_DISABLED"
	ErrorCodeInternal          = "INTERNAL_ERROR"
)

// Admin paths
const (
	PathHealth        = "/health"
	PathReady         = "/ready"
	PathMetrics       = "/metrics"
	PathContent       = "/content"
	PathContentReload = "/content/reload"
)

// Synthetic key prefix used when keys cross a text boundary (admin API, logs)
const SyntheticKeyPrefix = "id:"
