// Package events publishes hub lifecycle notifications to an event bus.
package events

import (
	"context"

	"github.com/alfredjeanlab/emithub/internal/model"
)

// Event topic constants
const (
	TopicChannelCreated       = "emithub.channel.created"
	TopicChannelStarted       = "emithub.channel.started"
	TopicChannelPaused        = "emithub.channel.paused"
	TopicChannelStopped       = "emithub.channel.stopped"
	TopicChannelStatusChanged = "emithub.channel.status_changed"

	TopicMessagePublished = "emithub.message.published"

	// TopicAll matches every hub event.
	TopicAll = "emithub.>"
)

// TopicForStatus returns the lifecycle topic for a channel entering status.
func TopicForStatus(status model.ChannelStatus) string {
	switch status {
	case model.StatusActive:
		return TopicChannelStarted
	case model.StatusPaused:
		return TopicChannelPaused
	case model.StatusStopped:
		return TopicChannelStopped
	}
	return TopicChannelStatusChanged
}

// Event types

type ChannelCreated struct {
	Channel *model.Channel `json:"channel"`
}

type ChannelStatusChanged struct {
	Channel  *model.Channel      `json:"channel"`
	Previous model.ChannelStatus `json:"previous"`
}

type MessagePublished struct {
	Message *model.Message `json:"message"`
	SentTo  int            `json:"sent_to"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers events on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan Received, func(), error)
	Close() error
}

// Received is a raw event payload with the subject it arrived on.
type Received struct {
	Topic string
	Data  []byte
}

// NoopPublisher is a Publisher that does nothing (used when NATS is not configured).
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (n *NoopPublisher) Close() error { return nil }
