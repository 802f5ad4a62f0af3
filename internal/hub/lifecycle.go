package hub

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/emithub/internal/events"
	"github.com/alfredjeanlab/emithub/internal/model"
)

// CreateChannel validates in, applies setting defaults and stores a new
// channel with status created.
func (h *Hub) CreateChannel(ctx context.Context, in model.CreateChannelInput) (*model.Channel, error) {
	if err := model.ValidateCreateChannel(&in); err != nil {
		return nil, err
	}
	now := h.now().UTC()
	ch := &model.Channel{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Status:      model.StatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
		Settings:    in.Settings.Merge(h.defaults),
	}
	if err := h.channels.create(ctx, ch); err != nil {
		return nil, err
	}
	h.logger.Info("channel created", "channel", ch.ID, "name", ch.Name)
	h.emit(ctx, events.TopicChannelCreated, events.ChannelCreated{Channel: ch})
	return ch.Clone(), nil
}

// StartChannel moves the channel to active.
func (h *Hub) StartChannel(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	return h.transition(ctx, id, model.StatusActive)
}

// PauseChannel moves the channel to paused. Attached sessions stay attached
// but publishes are rejected until the channel is started again.
func (h *Hub) PauseChannel(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	return h.transition(ctx, id, model.StatusPaused)
}

// StopChannel moves the channel to stopped and closes every attached session.
func (h *Hub) StopChannel(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	return h.transition(ctx, id, model.StatusStopped)
}

// SetChannelStatus applies an arbitrary status through the same lifecycle
// rules and events as the named operations.
func (h *Hub) SetChannelStatus(ctx context.Context, id uuid.UUID, status model.ChannelStatus) (*model.Channel, error) {
	return h.transition(ctx, id, status)
}

func (h *Hub) transition(ctx context.Context, id uuid.UUID, to model.ChannelStatus) (*model.Channel, error) {
	var (
		before, after *model.Channel
		closed        int
	)
	update := func() error {
		var err error
		before, after, err = h.channels.update(ctx, id, func(ch *model.Channel) error {
			if err := h.transitions.Check(ch.Status, to); err != nil {
				return err
			}
			ch.Status = to
			return nil
		})
		return err
	}

	var err error
	if to == model.StatusStopped {
		// The status write and the drain share the set lock, so a session
		// attached by a later start survives this stop.
		closed, err = h.conns.stopAndDrain(id, update)
	} else {
		err = update()
	}
	if err != nil {
		return nil, err
	}
	h.logger.Info("channel status changed",
		"channel", id, "from", before.Status, "to", after.Status, "sessions_closed", closed)
	h.emit(ctx, events.TopicForStatus(after.Status), events.ChannelStatusChanged{Channel: after, Previous: before.Status})
	return after, nil
}
