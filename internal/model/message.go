package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageType classifies a broadcast message.
type MessageType string

const (
	MessageBroadcast    MessageType = "broadcast"
	MessageSystem       MessageType = "system"
	MessageClient       MessageType = "client_message"
	MessageStatusUpdate MessageType = "status_update"
)

const defaultMessageType = MessageBroadcast

// String returns the string representation of the message type.
func (t MessageType) String() string {
	return string(t)
}

// IsValid checks whether the message type is a known value.
func (t MessageType) IsValid() bool {
	switch t {
	case MessageBroadcast, MessageSystem, MessageClient, MessageStatusUpdate:
		return true
	}
	return false
}

// ParseMessageType parses a message type case-insensitively. An empty string
// yields MessageBroadcast.
func ParseMessageType(s string) (MessageType, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultMessageType, true
	}
	t := MessageType(strings.ToLower(s))
	return t, t.IsValid()
}

// SenderKind identifies who produced a message.
type SenderKind string

const (
	SenderServer SenderKind = "server"
	SenderClient SenderKind = "client"
	SenderSystem SenderKind = "system"
)

// AnonymousClient is the identity used for clients that did not present one.
const AnonymousClient = "anonymous"

// Sender is the origin of a message. ID is set only for client senders.
type Sender struct {
	Kind SenderKind `json:"kind"`
	ID   string     `json:"id,omitempty"`
}

// ClientSender returns a client sender, defaulting to AnonymousClient.
func ClientSender(id string) Sender {
	if id == "" {
		id = AnonymousClient
	}
	return Sender{Kind: SenderClient, ID: id}
}

// String renders the sender as "server", "system" or "client:<id>".
func (s Sender) String() string {
	if s.Kind == SenderClient {
		return string(s.Kind) + ":" + s.ID
	}
	return string(s.Kind)
}

// Message is a single broadcast unit.
type Message struct {
	ID        string      `json:"id"`
	ChannelID uuid.UUID   `json:"channel_id"`
	Content   string      `json:"content"`
	Type      MessageType `json:"message_type"`
	Sender    Sender      `json:"sender"`
	Timestamp time.Time   `json:"timestamp"`
}

// Envelope statuses.
const (
	EnvelopeConnected     = "connected"
	EnvelopeBroadcast     = "broadcast"
	EnvelopeClientMessage = "client_message"
	EnvelopeError         = "error"
	EnvelopeDenied        = "denied"
)

// Envelope is the JSON frame delivered to sessions.
type Envelope struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	ChannelID uuid.UUID `json:"channel_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}
