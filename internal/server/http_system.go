package server

import (
	"context"
	"net/http"
	"time"
)

const serviceName = "emit-hub"

// handleHealth handles GET /api/v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   serviceName,
		"version":   s.opts.Version,
		"timestamp": time.Now().UTC(),
	})
}

// handleReady handles GET /api/v1/ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	checks := map[string]string{"database": "ok"}
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"status":         status,
		"checks":         checks,
		"channels":       len(s.hub.ListChannels()),
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}

// handleRoot handles GET /.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	endpoints := map[string]string{
		"channels":  "/api/v1/channels",
		"websocket": "/api/v1/channels/{id}/ws",
		"events":    "/api/v1/channels/{id}/events",
		"health":    "/api/v1/health",
		"ready":     "/api/v1/ready",
	}
	if s.opts.Metrics != nil {
		endpoints["metrics"] = "/metrics"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   serviceName,
		"version":   s.opts.Version,
		"endpoints": endpoints,
	})
}
