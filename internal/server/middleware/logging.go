package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/leslieo2/go-hot-content/internal/constants"
	"github.com/leslieo2/go-hot-content/internal/observability"
)

// ResponseWriter wraps http.ResponseWriter to capture status code
type ResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *ResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *ResponseWriter) StatusCode() int {
	return rw.statusCode
}

// LoggingMiddleware logs every admin request. Probe traffic is logged at
// debug level.
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := NewResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			log := logger.Info
			if isProbe(r.URL.Path) {
				log = logger.Debug
			}
			log("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status_code", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("user_agent", r.UserAgent()),
			)
		})
	}
}

// MetricsMiddleware records request counts and latencies. Unknown paths
// share one label to bound cardinality.
func MetricsMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := NewResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			metrics.RecordRequest(r.Method, endpointLabel(r.URL.Path), wrapped.statusCode, time.Since(start))
		})
	}
}

func endpointLabel(path string) string {
	switch path {
	case constants.PathHealth, constants.PathReady, constants.PathMetrics,
		constants.PathContent, constants.PathContentReload:
		return path
	}
	return "other"
}

func isProbe(path string) bool {
	return path == constants.PathHealth || path == constants.PathReady || path == constants.PathMetrics
}
