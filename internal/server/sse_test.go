package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/emithub/internal/hub"
	"github.com/alfredjeanlab/emithub/internal/model"
)

type sseFrame struct {
	event string
	data  string
}

// readSSEFrame reads lines until a complete event, skipping comments.
func readSSEFrame(t *testing.T, r *bufio.Reader) (sseFrame, error) {
	t.Helper()
	var f sseFrame
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return f, err
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if f.event != "" || f.data != "" {
				return f, nil
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			f.event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			f.data = strings.TrimPrefix(line, "data:")
		}
	}
}

func openStream(t *testing.T, e *testEnv, id uuid.UUID) (*http.Response, *bufio.Reader) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	req, _ := http.NewRequestWithContext(ctx, "GET", e.ts.URL+"/api/v1/channels/"+id.String()+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp, bufio.NewReader(resp.Body)
}

func TestEventStream(t *testing.T) {
	e := newTestEnv(t, hub.Options{}, Options{})
	ch := e.activeChannel(t, "news", nil)

	resp, r := openStream(t, e, ch.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	hello, err := readSSEFrame(t, r)
	if err != nil {
		t.Fatalf("read connected: %v", err)
	}
	if hello.event != model.EnvelopeConnected {
		t.Fatalf("expected connected event, got %+v", hello)
	}

	if _, _, err := e.hub.Publish(context.Background(), ch.ID, "hello", ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	f, err := readSSEFrame(t, r)
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if f.event != model.EnvelopeBroadcast {
		t.Fatalf("expected broadcast event, got %q", f.event)
	}
	var env model.Envelope
	if err := json.Unmarshal([]byte(f.data), &env); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if env.Message != "hello" || env.ChannelID != ch.ID {
		t.Fatalf("unexpected envelope %+v", env)
	}

	if _, err := e.hub.StopChannel(context.Background(), ch.ID); err != nil {
		t.Fatalf("StopChannel: %v", err)
	}
	if _, err := readSSEFrame(t, r); err == nil {
		t.Fatal("expected stream to end after stop")
	}
}

func TestEventStream_Rejected(t *testing.T) {
	e := newTestEnv(t, hub.Options{}, Options{})
	idle, err := e.hub.CreateChannel(context.Background(), model.CreateChannelInput{Name: "idle"})
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}

	resp, data := e.do(t, "GET", "/api/v1/channels/"+idle.ID.String()+"/events", "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Status != model.EnvelopeDenied || !strings.Contains(env.Message, "idle") {
		t.Fatalf("unexpected envelope %+v", env)
	}

	resp, _ = e.do(t, "GET", "/api/v1/channels/"+uuid.NewString()+"/events", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSSESession_QueueFull(t *testing.T) {
	s := newSSESession("ses-test", "")
	ctx := context.Background()
	for i := range sseQueueSize {
		if err := s.Write(ctx, []byte(`{}`)); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := s.Write(ctx, []byte(`{}`)); err != errSlowConsumer {
		t.Fatalf("expected errSlowConsumer, got %v", err)
	}

	_ = s.Close()
	_ = s.Close()
	if err := s.Write(ctx, []byte(`{}`)); err != errSessionClosed {
		t.Fatalf("expected errSessionClosed after close, got %v", err)
	}
}

func TestEnvelopeStatus(t *testing.T) {
	tests := []struct {
		payload string
		want    string
	}{
		{`{"status":"broadcast"}`, "broadcast"},
		{`{"status":""}`, "message"},
		{`not json`, "message"},
	}
	for _, tt := range tests {
		if got := envelopeStatus([]byte(tt.payload)); got != tt.want {
			t.Fatalf("envelopeStatus(%s) = %q, want %q", tt.payload, got, tt.want)
		}
	}
}
