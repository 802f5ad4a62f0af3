package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/emithub/internal/hub"
	"github.com/alfredjeanlab/emithub/internal/model"
)

// NewHTTPHandler returns an http.Handler with all routes registered and the
// recovery, logging and CORS middleware applied.
func (s *Server) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/channels", s.handleCreateChannel)
	mux.HandleFunc("GET /api/v1/channels", s.handleListChannels)
	mux.HandleFunc("GET /api/v1/channels/{id}", s.handleGetChannel)
	mux.HandleFunc("PUT /api/v1/channels/{id}/start", s.handleStartChannel)
	mux.HandleFunc("PUT /api/v1/channels/{id}/pause", s.handlePauseChannel)
	mux.HandleFunc("PUT /api/v1/channels/{id}/stop", s.handleStopChannel)
	mux.HandleFunc("PUT /api/v1/channels/{id}/status", s.handleSetChannelStatus)
	mux.HandleFunc("POST /api/v1/channels/{id}/broadcast", s.handleBroadcast)
	mux.HandleFunc("GET /api/v1/channels/{id}/ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/v1/channels/{id}/events", s.handleEventStream)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/ready", s.handleReady)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics)
	}

	var h http.Handler = mux
	h = CORSMiddleware(s.opts.CORS, h)
	h = LoggingMiddleware(s.logger, h)
	h = RecoveryMiddleware(s.logger, h)
	return h
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeHubError maps a hub, model or store error to its HTTP status.
func (s *Server) writeHubError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *model.ValidationError
		terr *model.TransitionError
		perr *hub.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, hub.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, hub.ErrChannelNotActive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &terr):
		writeError(w, http.StatusConflict, terr.Error())
	case errors.As(err, &perr):
		s.logger.Error("persistence failure", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "persistence failure")
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// channelID parses the {id} path value, answering 400 when it is malformed.
func channelID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid channel id")
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody decodes a JSON request body capped at the server's body limit.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody())
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
