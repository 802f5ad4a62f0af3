package hub

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/emithub/internal/model"
	"github.com/alfredjeanlab/emithub/internal/store"
	"github.com/alfredjeanlab/emithub/internal/store/memory"
)

// fakeSession records payloads and can be told to fail or block.
type fakeSession struct {
	id       string
	clientID string

	mu       sync.Mutex
	received [][]byte
	writeErr error
	block    bool

	writes atomic.Int32
	closes atomic.Int32
}

func newFakeSession(id string) *fakeSession { return &fakeSession{id: id} }

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Write(ctx context.Context, payload []byte) error {
	s.writes.Add(1)
	s.mu.Lock()
	err, block := s.writeErr, s.block
	s.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.received = append(s.received, append([]byte(nil), payload...))
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) Close() error {
	s.closes.Add(1)
	return nil
}

func (s *fakeSession) failWith(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

func (s *fakeSession) payloads() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.received...)
}

// identifiedSession adds a client identity to a fakeSession.
type identifiedSession struct {
	*fakeSession
}

func (s identifiedSession) ClientID() string { return s.clientID }

// faultyStore wraps a store and fails Put on selected tables.
type faultyStore struct {
	store.Store

	mu    sync.Mutex
	fails map[string]error
}

func newFaultyStore(s store.Store) *faultyStore {
	return &faultyStore{Store: s, fails: map[string]error{}}
}

func (f *faultyStore) failPuts(table string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fails, table)
		return
	}
	f.fails[table] = err
}

func (f *faultyStore) errFor(table string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fails[table]
}

func (f *faultyStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.RunInTransaction(ctx, func(tx store.Store) error {
		return fn(&faultyTx{Store: tx, parent: f})
	})
}

type faultyTx struct {
	store.Store
	parent *faultyStore
}

func (t *faultyTx) Put(ctx context.Context, table, key string, value []byte) error {
	if err := t.parent.errFor(table); err != nil {
		return err
	}
	return t.Store.Put(ctx, table, key, value)
}

func (t *faultyTx) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(t)
}

// recordingPublisher captures published topics.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

// fakeClock returns a settable time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

var errWriteFailed = errors.New("write failed")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestHub builds a hub over s (a fresh memory store if nil).
func newTestHub(t *testing.T, s store.Store, opts Options) *Hub {
	t.Helper()
	if s == nil {
		s = memory.New()
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	h, err := New(context.Background(), s, nil, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

// activeChannel creates and starts a channel.
func activeChannel(t *testing.T, h *Hub, name string, settings *model.SettingsInput) *model.Channel {
	t.Helper()
	ctx := context.Background()
	ch, err := h.CreateChannel(ctx, model.CreateChannelInput{Name: name, Settings: settings})
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	ch, err = h.StartChannel(ctx, ch.ID)
	if err != nil {
		t.Fatalf("StartChannel: %v", err)
	}
	return ch
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }
