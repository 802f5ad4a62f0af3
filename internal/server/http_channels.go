package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/emithub/internal/model"
)

// handleCreateChannel handles POST /api/v1/channels.
func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var in model.CreateChannelInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	ch, err := s.hub.CreateChannel(r.Context(), in)
	if err != nil {
		s.writeHubError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

// handleListChannels handles GET /api/v1/channels.
func (s *Server) handleListChannels(w http.ResponseWriter, _ *http.Request) {
	channels := s.hub.ListChannels()
	if channels == nil {
		channels = []*model.Channel{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channels": channels,
		"total":    len(channels),
	})
}

// handleGetChannel handles GET /api/v1/channels/{id}.
func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := channelID(w, r)
	if !ok {
		return
	}
	ch, err := s.hub.GetChannel(id)
	if err != nil {
		s.writeHubError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

type lifecycleFunc func(ctx context.Context, id uuid.UUID) (*model.Channel, error)

func (s *Server) lifecycle(w http.ResponseWriter, r *http.Request, fn lifecycleFunc) {
	id, ok := channelID(w, r)
	if !ok {
		return
	}
	ch, err := fn(r.Context(), id)
	if err != nil {
		s.writeHubError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

// handleStartChannel handles PUT /api/v1/channels/{id}/start.
func (s *Server) handleStartChannel(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.hub.StartChannel)
}

// handlePauseChannel handles PUT /api/v1/channels/{id}/pause.
func (s *Server) handlePauseChannel(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.hub.PauseChannel)
}

// handleStopChannel handles PUT /api/v1/channels/{id}/stop.
func (s *Server) handleStopChannel(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.hub.StopChannel)
}

// handleSetChannelStatus handles PUT /api/v1/channels/{id}/status.
func (s *Server) handleSetChannelStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := channelID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	status, ok := model.ParseChannelStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", req.Status))
		return
	}
	ch, err := s.hub.SetChannelStatus(r.Context(), id, status)
	if err != nil {
		s.writeHubError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

// handleBroadcast handles POST /api/v1/channels/{id}/broadcast.
func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	id, ok := channelID(w, r)
	if !ok {
		return
	}
	var req struct {
		Content     string `json:"content"`
		MessageType string `json:"message_type"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	msgType, ok := model.ParseMessageType(req.MessageType)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid message_type %q", req.MessageType))
		return
	}
	msg, sent, err := s.hub.Publish(r.Context(), id, req.Content, msgType)
	if err != nil {
		s.writeHubError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": msg,
		"sent_to": sent,
		"status":  "success",
	})
}
