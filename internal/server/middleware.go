package server

import (
	"net/http"

	"github.com/leslieo2/go-hot-content/internal/constants"
	"github.com/leslieo2/go-hot-content/internal/server/middleware"
)

// applyMiddleware wraps handler so that logging runs outermost and auth
// runs closest to the routes
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	if s.config.Security.Auth.Enabled {
		handler = s.authManager.Middleware(handler)
	}

	if s.config.Security.RateLimit.Enabled {
		handler = s.rateLimiter.Middleware(handler)
	}

	handler = middleware.RequestSizeLimitMiddleware(constants.AdminMaxRequestSize)(handler)
	handler = middleware.SecurityHeadersMiddleware()(handler)
	handler = middleware.MetricsMiddleware(s.metrics)(handler)
	handler = middleware.LoggingMiddleware(s.logger.Logger)(handler)

	return handler
}
