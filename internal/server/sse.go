package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/alfredjeanlab/emithub/internal/idgen"
	"github.com/alfredjeanlab/emithub/internal/model"
)

const (
	// sseQueueSize is the number of undelivered frames a stream may hold
	// before its writes start failing.
	sseQueueSize = 64

	// sseKeepaliveInterval is how often keepalive comments are sent to
	// prevent connection timeouts.
	sseKeepaliveInterval = 15 * time.Second
)

var errSlowConsumer = fmt.Errorf("sse queue full (%d frames)", sseQueueSize)

// sseSession is a hub session over a Server-Sent Events stream. Writes are
// queued and drained by the request goroutine.
type sseSession struct {
	id       string
	clientID string
	ch       chan []byte

	done chan struct{}
	once sync.Once
}

func newSSESession(id, clientID string) *sseSession {
	return &sseSession{
		id:       id,
		clientID: clientID,
		ch:       make(chan []byte, sseQueueSize),
		done:     make(chan struct{}),
	}
}

func (s *sseSession) ID() string       { return s.id }
func (s *sseSession) ClientID() string { return s.clientID }

func (s *sseSession) Write(_ context.Context, payload []byte) error {
	select {
	case <-s.done:
		return errSessionClosed
	default:
	}
	select {
	case s.ch <- payload:
		return nil
	default:
		return errSlowConsumer
	}
}

func (s *sseSession) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// handleEventStream handles GET /api/v1/channels/{id}/events (SSE endpoint).
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	// Ensure response supports flushing (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	id, ok := s.openable(w, r)
	if !ok {
		return
	}
	sessionID, err := idgen.SessionID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	sess := newSSESession(sessionID, r.URL.Query().Get("client_id"))
	if err := s.hub.AttachSession(id, sess); err != nil {
		s.writeHubError(w, r, err)
		return
	}
	defer func() {
		s.hub.DetachSession(id, sess)
		_ = sess.Close()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)

	hello, _ := json.Marshal(connectedEnvelope(id, sessionID))
	writeSSEEvent(w, model.EnvelopeConnected, hello)
	flusher.Flush()

	ctx := r.Context()
	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.done:
			return
		case payload := <-sess.ch:
			writeSSEEvent(w, envelopeStatus(payload), payload)
			flusher.Flush()
		case <-keepalive.C:
			// Send a comment line as keepalive.
			fmt.Fprintf(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

// envelopeStatus extracts the status field of an encoded envelope for use as
// the SSE event name.
func envelopeStatus(payload []byte) string {
	var env struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(payload, &env); err != nil || env.Status == "" {
		return "message"
	}
	return env.Status
}

// writeSSEEvent writes a single SSE event to the writer.
func writeSSEEvent(w http.ResponseWriter, event string, data []byte) {
	fmt.Fprintf(w, "event:%s\n", event)
	fmt.Fprintf(w, "data:%s\n\n", data)
}
