// Package server exposes a hub over HTTP: the channel REST API, the
// WebSocket and SSE stream transports, and the health endpoints.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alfredjeanlab/emithub/internal/hub"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server. Zero durations fall back to the defaults below.
type Options struct {
	Version          string
	CORS             CORSConfig
	MessageSizeLimit int

	HandshakeTimeout time.Duration
	PingInterval     time.Duration // negative disables server pings
	PongTimeout      time.Duration
	WriteTimeout     time.Duration

	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

const (
	defaultHandshakeTimeout = 30 * time.Second
	defaultPingInterval     = 30 * time.Second
	defaultPongTimeout      = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second

	// bodySlack is the allowance on top of the message size limit for the
	// JSON framing of a request body.
	bodySlack = 64 << 10
)

// Server serves the HTTP surface of a hub.
type Server struct {
	hub      *hub.Hub
	ready    Pinger
	opts     Options
	upgrader websocket.Upgrader
	logger   *slog.Logger
	started  time.Time
}

// New returns a Server for h. ready is pinged by GET /api/v1/ready; it may
// be nil.
func New(h *hub.Hub, ready Pinger, opts Options) *Server {
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.PingInterval == 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.PongTimeout == 0 {
		opts.PongTimeout = defaultPongTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.MessageSizeLimit <= 0 {
		opts.MessageSizeLimit = hub.DefaultMessageSizeLimit
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		hub:     h,
		ready:   ready,
		opts:    opts,
		logger:  logger,
		started: time.Now(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: opts.HandshakeTimeout,
		CheckOrigin:      opts.CORS.checkOrigin,
	}
	return s
}

func (s *Server) maxBody() int64 {
	return int64(s.opts.MessageSizeLimit) + bodySlack
}
