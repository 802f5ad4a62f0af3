// Package hub is the broadcast core: the channel registry, the per-channel
// connection registry, the lifecycle controller and the broadcast engine.
//
// A Hub is safe for concurrent use. Transports attach sessions with
// AttachSession and forward inbound client text with HandleClientText;
// publishers call Publish.
package hub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/emithub/internal/events"
	"github.com/alfredjeanlab/emithub/internal/model"
	"github.com/alfredjeanlab/emithub/internal/store"
)

// Defaults for Options fields left at their zero value.
const (
	DefaultMessageSizeLimit  = 1 << 20
	DefaultWriteTimeout      = 10 * time.Second
	DefaultFanoutConcurrency = 64
)

// Options configures a Hub.
type Options struct {
	// Defaults are the settings applied to channels created without them.
	// The zero value means model.DefaultSettings().
	Defaults *model.ChannelSettings
	// MessageSizeLimit bounds message content in bytes.
	MessageSizeLimit int
	// Transitions selects the lifecycle state machine.
	Transitions model.TransitionPolicy
	// WriteTimeout bounds each per-session delivery. Negative disables it.
	WriteTimeout time.Duration
	// FanoutConcurrency bounds concurrent deliveries within one broadcast.
	FanoutConcurrency int

	Logger  *slog.Logger
	Metrics *Metrics

	// Now overrides the clock; used by tests.
	Now func() time.Time
}

// Hub ties the registries to the store and the event publisher.
type Hub struct {
	channels  *registry
	conns     *connections
	publisher events.Publisher

	defaults    model.ChannelSettings
	sizeLimit   int
	transitions model.TransitionPolicy
	now         func() time.Time
	logger      *slog.Logger
	metrics     *Metrics
}

// New builds a Hub over s and loads the active and paused channels it holds.
// A nil publisher disables lifecycle events.
func New(ctx context.Context, s store.Store, publisher events.Publisher, opts Options) (*Hub, error) {
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	defaults := model.DefaultSettings()
	if opts.Defaults != nil {
		defaults = opts.Defaults.Clone()
	}
	sizeLimit := opts.MessageSizeLimit
	if sizeLimit == 0 {
		sizeLimit = DefaultMessageSizeLimit
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = DefaultWriteTimeout
	}
	concurrency := opts.FanoutConcurrency
	if concurrency <= 0 {
		concurrency = DefaultFanoutConcurrency
	}

	h := &Hub{
		channels:    newRegistry(s, now, logger, opts.Metrics),
		conns:       newConnections(writeTimeout, concurrency, logger, opts.Metrics),
		publisher:   publisher,
		defaults:    defaults,
		sizeLimit:   sizeLimit,
		transitions: opts.Transitions,
		now:         now,
		logger:      logger,
		metrics:     opts.Metrics,
	}

	n, err := h.channels.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading channels: %w", err)
	}
	logger.Info("channels loaded", "count", n, "transitions", opts.Transitions.String())
	return h, nil
}

// GetChannel returns a copy of the channel or ErrNotFound.
func (h *Hub) GetChannel(id uuid.UUID) (*model.Channel, error) {
	ch, ok := h.channels.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return ch, nil
}

// ListChannels returns copies of every channel in the registry.
func (h *Hub) ListChannels() []*model.Channel {
	return h.channels.list()
}

// AttachSession adds s to the channel's live set. It fails with ErrNotFound
// for unknown channels and ErrChannelNotActive unless the channel is active.
func (h *Hub) AttachSession(channelID uuid.UUID, s Session) error {
	return h.conns.attach(channelID, s, func() error {
		ch, ok := h.channels.get(channelID)
		if !ok {
			return ErrNotFound
		}
		if ch.Status != model.StatusActive {
			return ErrChannelNotActive
		}
		return nil
	})
}

// DetachSession removes s from the channel's live set. It is a no-op if s is
// not attached.
func (h *Hub) DetachSession(channelID uuid.UUID, s Session) {
	h.conns.detach(channelID, s)
}

// SessionCount returns the number of sessions attached to the channel.
func (h *Hub) SessionCount(channelID uuid.UUID) int {
	return h.conns.count(channelID)
}

// Shutdown closes every attached session. Channel state is left as is.
func (h *Hub) Shutdown(ctx context.Context) error {
	n := h.conns.closeEverything()
	h.logger.Info("hub shut down", "sessions_closed", n)
	return ctx.Err()
}

// emit publishes a lifecycle event. Failures are logged and otherwise ignored.
func (h *Hub) emit(ctx context.Context, topic string, event any) {
	if err := h.publisher.Publish(ctx, topic, event); err != nil {
		h.logger.Warn("failed to publish event", "topic", topic, "err", err)
	}
}
