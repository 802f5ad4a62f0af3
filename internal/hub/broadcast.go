package hub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/emithub/internal/events"
	"github.com/alfredjeanlab/emithub/internal/idgen"
	"github.com/alfredjeanlab/emithub/internal/model"
	"github.com/alfredjeanlab/emithub/internal/store"
)

// Publish sends content to every session attached to an active channel and
// returns the message with the number of sessions that received it. When the
// channel persists messages, a failed store write aborts delivery.
func (h *Hub) Publish(ctx context.Context, channelID uuid.UUID, content string, msgType model.MessageType) (*model.Message, int, error) {
	ch, ok := h.channels.get(channelID)
	if !ok {
		return nil, 0, ErrNotFound
	}
	if ch.Status != model.StatusActive {
		return nil, 0, ErrChannelNotActive
	}
	if err := model.ValidateContent(content, h.sizeLimit); err != nil {
		return nil, 0, err
	}
	if msgType == "" {
		msgType = model.MessageBroadcast
	}
	if !msgType.IsValid() {
		return nil, 0, &model.ValidationError{Errors: []model.FieldError{{
			Field:   "message_type",
			Message: fmt.Sprintf("unknown message type %q", msgType),
		}}}
	}

	sender := model.Sender{Kind: model.SenderServer}
	if msgType == model.MessageSystem {
		sender = model.Sender{Kind: model.SenderSystem}
	}
	msg := h.newMessage(channelID, content, msgType, sender)

	env := model.Envelope{
		Status:    model.EnvelopeBroadcast,
		Message:   content,
		ChannelID: channelID,
		Timestamp: msg.Timestamp,
		Data: map[string]any{
			"message_id":   msg.ID,
			"message_type": msg.Type,
			"sender":       msg.Sender,
		},
	}
	sent, err := h.deliver(ctx, ch, msg, env)
	if err != nil {
		return nil, 0, err
	}
	return msg, sent, nil
}

// HandleClientText rebroadcasts text received from an attached session to the
// whole channel, sender included. It does nothing, and returns a nil message,
// when the channel is unknown, not active or does not accept client messages.
func (h *Hub) HandleClientText(ctx context.Context, channelID uuid.UUID, from Session, text string) (*model.Message, int, error) {
	ch, ok := h.channels.get(channelID)
	if !ok || ch.Status != model.StatusActive || !ch.Settings.AllowClientMessages {
		return nil, 0, nil
	}
	if err := model.ValidateContent(text, h.sizeLimit); err != nil {
		return nil, 0, err
	}

	clientID := ""
	if ci, ok := from.(ClientIdentifier); ok {
		clientID = ci.ClientID()
	}
	msg := h.newMessage(channelID, text, model.MessageClient, model.ClientSender(clientID))

	env := model.Envelope{
		Status:    model.EnvelopeClientMessage,
		Message:   fmt.Sprintf("Client message in %s: %s", ch.Name, text),
		ChannelID: channelID,
		Timestamp: msg.Timestamp,
		Data: map[string]any{
			"message_id":       msg.ID,
			"original_message": text,
			"sender":           msg.Sender.ID,
		},
	}
	sent, err := h.deliver(ctx, ch, msg, env)
	if err != nil {
		return nil, 0, err
	}
	return msg, sent, nil
}

func (h *Hub) newMessage(channelID uuid.UUID, content string, t model.MessageType, sender model.Sender) *model.Message {
	now := h.now().UTC()
	return &model.Message{
		ID:        idgen.MessageID(now),
		ChannelID: channelID,
		Content:   content,
		Type:      t,
		Sender:    sender,
		Timestamp: now,
	}
}

// deliver persists msg when the channel asks for it, then fans env out.
func (h *Hub) deliver(ctx context.Context, ch *model.Channel, msg *model.Message, env model.Envelope) (int, error) {
	if ch.Settings.PersistMessages {
		if err := h.persistMessage(ctx, msg); err != nil {
			return 0, err
		}
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return 0, fmt.Errorf("encoding envelope: %w", err)
	}

	sent := h.conns.broadcast(ctx, ch.ID, payload)
	h.metrics.published(msg.Type.String())
	h.logger.Debug("message broadcast", "channel", ch.ID, "message", msg.ID, "type", msg.Type, "sent_to", sent)
	h.emit(ctx, events.TopicMessagePublished, events.MessagePublished{Message: msg, SentTo: sent})
	return sent, nil
}

func (h *Hub) persistMessage(ctx context.Context, msg *model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return &PersistenceError{Op: "encode message", Err: err}
	}
	err = h.channels.store.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.Put(ctx, store.TableMessages, msg.ID, data)
	})
	if err != nil {
		h.metrics.persistFailed(store.TableMessages)
		return &PersistenceError{Op: "message " + msg.ID, Err: err}
	}
	return nil
}
