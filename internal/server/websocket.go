package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/alfredjeanlab/emithub/internal/idgen"
	"github.com/alfredjeanlab/emithub/internal/model"
)

// closeGrace bounds the close frame write.
const closeGrace = time.Second

// wsSession is a hub session over a WebSocket connection.
type wsSession struct {
	id        string
	clientID  string
	conn      *websocket.Conn
	writeWait time.Duration

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newWSSession(conn *websocket.Conn, id, clientID string, writeWait time.Duration) *wsSession {
	return &wsSession{
		id:        id,
		clientID:  clientID,
		conn:      conn,
		writeWait: writeWait,
		done:      make(chan struct{}),
	}
}

func (s *wsSession) ID() string       { return s.id }
func (s *wsSession) ClientID() string { return s.clientID }

// Write sends payload as one text frame. The context deadline, or the
// session's write timeout, bounds the write.
func (s *wsSession) Write(ctx context.Context, payload []byte) error {
	select {
	case <-s.done:
		return errSessionClosed
	default:
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.writeWait)
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *wsSession) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Write(ctx, data)
}

// Close sends a going-away close frame and closes the socket.
func (s *wsSession) Close() error {
	return s.closeWith(websocket.CloseGoingAway, "channel stopped")
}

func (s *wsSession) closeWith(code int, reason string) error {
	s.closeOnce.Do(func() {
		close(s.done)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// pingLoop pings the peer until the session closes or a ping fails.
func (s *wsSession) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeWait)); err != nil {
				return
			}
		}
	}
}

// handleWebSocket handles GET /api/v1/channels/{id}/ws.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, ok := s.openable(w, r)
	if !ok {
		return
	}
	sessionID, err := idgen.SessionID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered the request.
		s.logger.Debug("websocket upgrade failed", "channel", id, "err", err)
		return
	}
	sess := newWSSession(conn, sessionID, r.URL.Query().Get("client_id"), s.opts.WriteTimeout)

	if err := s.hub.AttachSession(id, sess); err != nil {
		_ = sess.closeWith(websocket.ClosePolicyViolation, err.Error())
		return
	}
	defer func() {
		s.hub.DetachSession(id, sess)
		_ = sess.Close()
		s.logger.Debug("websocket closed", "channel", id, "session", sessionID)
	}()
	s.logger.Debug("websocket attached", "channel", id, "session", sessionID, "client", sess.clientID)

	ctx := r.Context()
	if err := sess.writeJSON(ctx, connectedEnvelope(id, sessionID)); err != nil {
		return
	}

	s.readLoop(ctx, id, sess)
}

// readLoop forwards inbound text frames to the hub until the connection
// fails or closes.
func (s *Server) readLoop(ctx context.Context, id uuid.UUID, sess *wsSession) {
	conn := sess.conn
	conn.SetReadLimit(int64(s.opts.MessageSizeLimit))
	if s.opts.PingInterval > 0 {
		wait := s.opts.PingInterval + s.opts.PongTimeout
		_ = conn.SetReadDeadline(time.Now().Add(wait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wait))
		})
		go sess.pingLoop(s.opts.PingInterval)
	}

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", "channel", id, "session", sess.id, "err", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		_, _, err = s.hub.HandleClientText(ctx, id, sess, string(data))
		if err == nil {
			continue
		}
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			_ = sess.writeJSON(ctx, streamEnvelope(id, model.EnvelopeError, verr.Error()))
			continue
		}
		s.logger.Warn("client message failed", "channel", id, "session", sess.id, "err", err)
		_ = sess.writeJSON(ctx, streamEnvelope(id, model.EnvelopeError, "message could not be delivered"))
	}
}
