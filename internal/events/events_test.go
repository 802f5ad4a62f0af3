package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/emithub/internal/model"
)

func TestNoopPublisher(t *testing.T) {
	var pub Publisher = &NoopPublisher{}
	if err := pub.Publish(context.Background(), TopicChannelCreated, ChannelCreated{}); err != nil {
		t.Fatalf("NoopPublisher.Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("NoopPublisher.Close returned unexpected error: %v", err)
	}
}

func TestNATSPublisher_ImplementsPublisher(t *testing.T) {
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestTopicForStatus(t *testing.T) {
	for status, want := range map[model.ChannelStatus]string{
		model.StatusActive:  TopicChannelStarted,
		model.StatusPaused:  TopicChannelPaused,
		model.StatusStopped: TopicChannelStopped,
		model.StatusCreated: TopicChannelStatusChanged,
	} {
		if got := TopicForStatus(status); got != want {
			t.Errorf("TopicForStatus(%s) = %q, want %q", status, got, want)
		}
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicChannelStarted, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	id := uuid.New()
	event := ChannelStatusChanged{
		Channel:  &model.Channel{ID: id, Name: "news", Status: model.StatusActive},
		Previous: model.StatusCreated,
	}
	if err := pub.Publish(context.Background(), TopicChannelStarted, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	pub.conn.Flush()

	select {
	case msg := <-ch:
		var got ChannelStatusChanged
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Channel.ID != id || got.Previous != model.StatusCreated {
			t.Errorf("got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_CanceledContext(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, TopicChannelCreated, ChannelCreated{}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if err := pub.Publish(context.Background(), TopicChannelCreated, ChannelCreated{}); err == nil {
		t.Error("expected error publishing after close")
	}
}
