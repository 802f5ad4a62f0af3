package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/emithub/internal/hub"
	"github.com/alfredjeanlab/emithub/internal/model"
)

var errSessionClosed = errors.New("session closed")

// openable answers the pre-attach envelopes for a stream request and reports
// whether the channel accepts new sessions.
func (s *Server) openable(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := channelID(w, r)
	if !ok {
		return uuid.Nil, false
	}
	ch, err := s.hub.GetChannel(id)
	if err != nil {
		if errors.Is(err, hub.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, streamEnvelope(id, model.EnvelopeError, "Channel not found"))
			return uuid.Nil, false
		}
		s.writeHubError(w, r, err)
		return uuid.Nil, false
	}
	if ch.Status != model.StatusActive {
		writeJSON(w, http.StatusForbidden, streamEnvelope(id, model.EnvelopeDenied,
			fmt.Sprintf("Channel %s is not active", ch.Name)))
		return uuid.Nil, false
	}
	return id, true
}

func streamEnvelope(id uuid.UUID, status, message string) model.Envelope {
	return model.Envelope{
		Status:    status,
		Message:   message,
		ChannelID: id,
		Timestamp: time.Now().UTC(),
	}
}

func connectedEnvelope(id uuid.UUID, sessionID string) model.Envelope {
	env := streamEnvelope(id, model.EnvelopeConnected, "Connected to channel")
	env.Data = map[string]any{
		"channel":       id,
		"connection_id": sessionID,
	}
	return env
}
