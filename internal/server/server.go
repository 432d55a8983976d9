package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/leslieo2/go-hot-content/internal/config"
	"github.com/leslieo2/go-hot-content/internal/constants"
	"github.com/leslieo2/go-hot-content/internal/content"
	"github.com/leslieo2/go-hot-content/internal/observability"
	"github.com/leslieo2/go-hot-content/internal/security"
)

// ContentSource is what the admin surface needs from the content manager.
// Every method must be safe from HTTP goroutines.
type ContentSource interface {
	Root() string
	Stats() content.Stats
	HotReloadEnabled() bool
	RequestHotReload(keys ...content.Key) error
}

// Server is the admin HTTP surface of a running content host.
type Server struct {
	source  ContentSource
	config  *config.Config
	version string
	server  *http.Server

	// Security
	authManager *security.AuthManager
	rateLimiter *security.RateLimiter

	// Observability
	logger    *observability.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	startTime time.Time
}

// Options carry the shared observability stack built by the host.
type Options struct {
	Version string
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

func New(cfg *config.Config, source ContentSource, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if source == nil {
		return nil, errors.New("content source is required")
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewNopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics()
	}
	if opts.Tracer == nil {
		opts.Tracer = observability.NewNoopTracer()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	return &Server{
		source:      source,
		config:      cfg,
		version:     opts.Version,
		authManager: security.NewAuthManager(cfg.Security.Auth),
		rateLimiter: security.NewRateLimiter(cfg.Security.RateLimit),
		logger:      opts.Logger.Named("admin"),
		metrics:     opts.Metrics,
		tracer:      opts.Tracer,
		startTime:   time.Now(),
	}, nil
}

// Handler returns the routed admin handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(constants.PathHealth, s.healthHandler)
	mux.HandleFunc(constants.PathReady, s.readinessHandler)
	mux.HandleFunc(constants.PathMetrics, s.metricsHandler)
	mux.HandleFunc(constants.PathContent, s.contentHandler)
	mux.HandleFunc(constants.PathContentReload, s.reloadHandler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.sendErrorResponse(w, http.StatusNotFound, constants.ErrorCodeNotFound, fmt.Sprintf("no admin endpoint at %s", r.URL.Path))
	})

	return s.applyMiddleware(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Admin.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Admin.Address(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    constants.AdminReadTimeout,
		WriteTimeout:   constants.AdminWriteTimeout,
		IdleTimeout:    constants.AdminIdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	s.logger.Info("Starting admin server", zap.String("address", ln.Addr().String()))
	s.metrics.SetHealthStatus(true)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			s.metrics.SetHealthStatus(false)
			return fmt.Errorf("admin server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down admin server...")
	s.metrics.SetHealthStatus(false)
	s.rateLimiter.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.AdminShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to shutdown admin server", zap.Error(err))
		return fmt.Errorf("admin server shutdown: %w", err)
	}
	return <-errCh
}
