package middleware

import (
	"net/http"

	"github.com/leslieo2/go-hot-content/internal/constants"
)

// SecurityHeadersMiddleware marks admin responses as uncacheable,
// unframeable JSON
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(constants.HeaderXContentTypeOptions, "nosniff")
			w.Header().Set(constants.HeaderXFrameOptions, "DENY")
			w.Header().Set(constants.HeaderCacheControl, "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
