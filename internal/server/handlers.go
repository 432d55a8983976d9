package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/leslieo2/go-hot-content/internal/constants"
	"github.com/leslieo2/go-hot-content/internal/content"
	"github.com/leslieo2/go-hot-content/internal/observability"
)

// healthHandler reports liveness plus the state of the content root and
// the watcher. A disabled watcher degrades health but the host still runs.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "health_check")
	defer span.End()

	checks := map[string]bool{
		"content_root": dirExists(s.source.Root()),
	}
	if s.config.HotReload.Enabled {
		checks["hot_reload"] = s.source.HotReloadEnabled()
	}
	health := observability.NewHealthStatus(s.version, s.startTime, checks)
	stats := s.source.Stats()
	health.Metrics = map[string]interface{}{
		"resources": len(stats.Resources),
		"pending":   stats.Pending,
	}
	s.metrics.SetHealthStatus(health.Healthy())

	s.sendJSONResponse(w, http.StatusOK, health)

	s.logger.Debug("Health check completed",
		zap.String("status", health.Status),
		zap.String("remote_addr", r.RemoteAddr),
	)
}

// readinessHandler is ready once the host has published its first summary.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "readiness_check")
	defer span.End()

	ready := !s.source.Stats().UpdatedAt.IsZero()
	if ready {
		s.sendJSONResponse(w, http.StatusOK, map[string]string{"status": "ready"})
	} else {
		s.sendJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}

	s.logger.Debug("Readiness check completed", zap.Bool("ready", ready))
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	s.metrics.Handler().ServeHTTP(w, r)
}

// contentHandler lists the registry as last published by the host.
func (s *Server) contentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.sendMethodNotAllowedResponse(w, []string{http.MethodGet, http.MethodHead}, r.Method)
		return
	}
	_, span := s.tracer.StartSpan(r.Context(), "content_list")
	defer span.End()

	stats := s.source.Stats()
	span.SetAttributes(attribute.Int("content.resources", len(stats.Resources)))
	s.sendJSONResponse(w, http.StatusOK, stats)
}

type reloadRequest struct {
	Keys []string `json:"keys"`
}

type reloadResponse struct {
	Accepted []string `json:"accepted"`
	// NotLoaded lists keys absent from the last summary. They are still
	// forwarded since the summary may lag the registry.
	NotLoaded []string `json:"not_loaded,omitempty"`
}

// reloadHandler queues forced reloads. The watcher prepares them and the
// host's next pumps apply them; the response does not wait.
func (s *Server) reloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendMethodNotAllowedResponse(w, []string{http.MethodPost}, r.Method)
		return
	}
	_, span := s.tracer.StartSpan(r.Context(), "content_reload")
	defer span.End()

	var req reloadRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, constants.ErrorCodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Keys) == 0 {
		s.sendErrorResponse(w, http.StatusBadRequest, constants.ErrorCodeBadRequest, "keys must not be empty")
		return
	}

	loaded := make(map[string]bool)
	for _, rec := range s.source.Stats().Resources {
		loaded[rec.Key] = true
	}

	keys := make([]content.Key, 0, len(req.Keys))
	resp := reloadResponse{Accepted: make([]string, 0, len(req.Keys))}
	for _, raw := range req.Keys {
		key := content.ParseKey(raw)
		if key.Name == "" || key.Name == "." {
			s.sendErrorResponse(w, http.StatusBadRequest, constants.ErrorCodeBadRequest, "invalid key "+strconv.Quote(raw))
			return
		}
		keys = append(keys, key)
		resp.Accepted = append(resp.Accepted, key.String())
		if !loaded[key.String()] {
			resp.NotLoaded = append(resp.NotLoaded, key.String())
		}
	}
	sort.Strings(resp.NotLoaded)
	span.SetAttributes(attribute.Int("content.keys", len(keys)))

	if err := s.source.RequestHotReload(keys...); err != nil {
		if errors.Is(err, content.ErrHotReloadDisabled) {
			s.sendErrorResponse(w, http.StatusConflict, constants.ErrorCodeHotReloadDisabled, err.Error())
			return
		}
		s.sendErrorResponse(w, http.StatusInternalServerError, constants.ErrorCodeInternal, err.Error())
		return
	}

	s.logger.Info("Forced reload requested",
		zap.Strings("keys", resp.Accepted),
		zap.Int("not_loaded", len(resp.NotLoaded)),
	)
	s.sendJSONResponse(w, http.StatusAccepted, resp)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
