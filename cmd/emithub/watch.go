package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/emithub/internal/events"
	"github.com/alfredjeanlab/emithub/internal/model"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream hub lifecycle and message events from NATS",
	GroupID: "channels",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats-url")
		if natsURL == "" {
			return fmt.Errorf("no NATS URL: set --nats-url or EMIT_HUB_NATS_URL")
		}
		var filter uuid.UUID
		if s, _ := cmd.Flags().GetString("channel"); s != "" {
			id, err := parseChannelID(s)
			if err != nil {
				return err
			}
			filter = id
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return watchEvents(ctx, natsURL, filter, os.Stdout)
	},
}

func watchEvents(ctx context.Context, natsURL string, filter uuid.UUID, out io.Writer) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			printEvent(out, ev, filter)
		}
	}
}

// eventPayload covers the fields shared by every hub event.
type eventPayload struct {
	Channel  *model.Channel      `json:"channel"`
	Previous model.ChannelStatus `json:"previous"`
	Message  *model.Message      `json:"message"`
	SentTo   int                 `json:"sent_to"`
}

func (p *eventPayload) channelID() uuid.UUID {
	switch {
	case p.Channel != nil:
		return p.Channel.ID
	case p.Message != nil:
		return p.Message.ChannelID
	}
	return uuid.Nil
}

// printEvent writes one line per event. Events for other channels are
// skipped when filter is set.
func printEvent(out io.Writer, ev events.Received, filter uuid.UUID) {
	var p eventPayload
	if err := json.Unmarshal(ev.Data, &p); err != nil {
		fmt.Fprintf(os.Stderr, "skipping malformed event on %s: %v\n", ev.Topic, err)
		return
	}
	if filter != uuid.Nil && p.channelID() != filter {
		return
	}
	if jsonOutput {
		fmt.Fprintf(out, "{\"topic\":%q,\"event\":%s}\n", ev.Topic, ev.Data)
		return
	}

	ts := time.Now().Format("15:04:05")
	switch {
	case p.Message != nil:
		fmt.Fprintf(out, "%s %s channel=%s id=%s sent_to=%d %q\n",
			ts, ev.Topic, p.Message.ChannelID, p.Message.ID, p.SentTo, p.Message.Content)
	case p.Channel != nil && p.Previous != "":
		fmt.Fprintf(out, "%s %s channel=%s %s -> %s\n",
			ts, ev.Topic, p.Channel.ID, p.Previous, p.Channel.Status)
	case p.Channel != nil:
		fmt.Fprintf(out, "%s %s channel=%s name=%q\n", ts, ev.Topic, p.Channel.ID, p.Channel.Name)
	default:
		fmt.Fprintf(out, "%s %s\n", ts, ev.Topic)
	}
}

func init() {
	watchCmd.Flags().String("nats-url", os.Getenv("EMIT_HUB_NATS_URL"), "NATS server URL")
	watchCmd.Flags().String("channel", "", "only show events for this channel id")
}
