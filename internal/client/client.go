// Package client provides a transport-agnostic interface for the emithub
// service and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/emithub/internal/model"
)

// HubClient is the interface the emithub CLI commands use to talk to a
// running server.
type HubClient interface {
	// Channels
	CreateChannel(ctx context.Context, req *model.CreateChannelInput) (*model.Channel, error)
	ListChannels(ctx context.Context) (*ListChannelsResponse, error)
	GetChannel(ctx context.Context, id uuid.UUID) (*model.Channel, error)

	// Lifecycle
	StartChannel(ctx context.Context, id uuid.UUID) (*model.Channel, error)
	PauseChannel(ctx context.Context, id uuid.UUID) (*model.Channel, error)
	StopChannel(ctx context.Context, id uuid.UUID) (*model.Channel, error)
	SetChannelStatus(ctx context.Context, id uuid.UUID, status model.ChannelStatus) (*model.Channel, error)

	// Messages
	Broadcast(ctx context.Context, id uuid.UUID, req *BroadcastRequest) (*BroadcastResponse, error)

	// Health
	Health(ctx context.Context) (*HealthResponse, error)

	Close() error
}

// ListChannelsResponse is the response from ListChannels.
type ListChannelsResponse struct {
	Channels []*model.Channel `json:"channels"`
	Total    int              `json:"total"`
}

// BroadcastRequest holds parameters for publishing to a channel.
type BroadcastRequest struct {
	Content     string            `json:"content"`
	MessageType model.MessageType `json:"message_type,omitempty"`
}

// BroadcastResponse is the response from Broadcast.
type BroadcastResponse struct {
	Message *model.Message `json:"message"`
	SentTo  int            `json:"sent_to"`
	Status  string         `json:"status"`
}

// HealthResponse is the response from Health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}
