package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// sessionSet is one channel's live sessions. Its lock serializes attach,
// detach, broadcast and closeAll for that channel.
type sessionSet struct {
	mu       sync.Mutex
	sessions map[string]Session
	// dead marks a set removed from connections.sets. Holders of a stale
	// pointer must look the set up again before adding to it.
	dead bool
}

// connections maps channel ids to their session sets. A set is created on
// demand and removed again when the operation that created it fails and
// leaves it empty, so ids of unknown channels never keep a set alive.
// Lock order is set lock, then connections lock, then registry lock.
type connections struct {
	mu   sync.Mutex
	sets map[uuid.UUID]*sessionSet

	writeTimeout time.Duration
	concurrency  int
	logger       *slog.Logger
	metrics      *Metrics
}

func newConnections(writeTimeout time.Duration, concurrency int, logger *slog.Logger, m *Metrics) *connections {
	return &connections{
		sets:         make(map[uuid.UUID]*sessionSet),
		writeTimeout: writeTimeout,
		concurrency:  concurrency,
		logger:       logger,
		metrics:      m,
	}
}

func (c *connections) lookup(channelID uuid.UUID, create bool) *sessionSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.sets[channelID]
	if !ok && create {
		set = &sessionSet{sessions: make(map[string]Session)}
		c.sets[channelID] = set
	}
	return set
}

// withSet runs fn with the channel's set locked, creating the set if needed.
// If fn fails and the set is empty, the set is removed.
func (c *connections) withSet(channelID uuid.UUID, fn func(set *sessionSet) error) error {
	for {
		set := c.lookup(channelID, true)
		set.mu.Lock()
		if set.dead {
			set.mu.Unlock()
			continue
		}
		err := fn(set)
		if err != nil && len(set.sessions) == 0 {
			c.mu.Lock()
			if c.sets[channelID] == set {
				delete(c.sets, channelID)
				set.dead = true
			}
			c.mu.Unlock()
		}
		set.mu.Unlock()
		return err
	}
}

// attach adds s to the channel's set if admit returns nil. admit runs under
// the set lock, the same lock stopAndDrain takes.
func (c *connections) attach(channelID uuid.UUID, s Session, admit func() error) error {
	return c.withSet(channelID, func(set *sessionSet) error {
		if err := admit(); err != nil {
			return err
		}
		if _, dup := set.sessions[s.ID()]; !dup {
			c.metrics.sessionsDelta(1)
		}
		set.sessions[s.ID()] = s
		c.logger.Debug("session attached", "channel", channelID, "session", s.ID(), "sessions", len(set.sessions))
		return nil
	})
}

func (c *connections) detach(channelID uuid.UUID, s Session) {
	set := c.lookup(channelID, false)
	if set == nil {
		return
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	if _, ok := set.sessions[s.ID()]; !ok {
		return
	}
	delete(set.sessions, s.ID())
	c.metrics.sessionsDelta(-1)
	c.logger.Debug("session detached", "channel", channelID, "session", s.ID(), "sessions", len(set.sessions))
}

func (c *connections) count(channelID uuid.UUID) int {
	set := c.lookup(channelID, false)
	if set == nil {
		return 0
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	return len(set.sessions)
}

// broadcast writes payload to every session of the channel and returns how
// many writes succeeded. Sessions whose write fails are removed and closed.
// Deliveries are not canceled when ctx is; each write gets its own deadline.
func (c *connections) broadcast(ctx context.Context, channelID uuid.UUID, payload []byte) int {
	set := c.lookup(channelID, false)
	if set == nil {
		c.metrics.delivered(0, 0, 0)
		return 0
	}

	set.mu.Lock()
	targets := make([]Session, 0, len(set.sessions))
	for _, s := range set.sessions {
		targets = append(targets, s)
	}

	results := make([]error, len(targets))
	deliverCtx := context.WithoutCancel(ctx)
	g := new(errgroup.Group)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, s := range targets {
		g.Go(func() error {
			wctx, cancel := c.deliveryContext(deliverCtx)
			defer cancel()
			results[i] = s.Write(wctx, payload)
			return nil
		})
	}
	_ = g.Wait()

	var failed []Session
	for i, err := range results {
		if err == nil {
			continue
		}
		s := targets[i]
		delete(set.sessions, s.ID())
		failed = append(failed, s)
		c.logger.Debug("dropping session after failed delivery", "channel", channelID, "session", s.ID(), "err", err)
	}
	set.mu.Unlock()

	for _, s := range failed {
		_ = s.Close()
	}
	sent := len(targets) - len(failed)
	c.metrics.delivered(sent, len(failed), len(targets))
	return sent
}

func (c *connections) deliveryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.writeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.writeTimeout)
}

// stopAndDrain runs stop under the set lock and, if it succeeds, empties the
// set before the lock is released. No attach can land between the two, so
// every drained session was admitted before the stop. The drained sessions
// are closed after the lock is released.
func (c *connections) stopAndDrain(channelID uuid.UUID, stop func() error) (int, error) {
	var drained map[string]Session
	err := c.withSet(channelID, func(set *sessionSet) error {
		if err := stop(); err != nil {
			return err
		}
		drained = set.sessions
		set.sessions = make(map[string]Session)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return c.closeSessions(channelID, drained), nil
}

// closeAll empties the channel's set and closes each session it held.
func (c *connections) closeAll(channelID uuid.UUID) int {
	set := c.lookup(channelID, false)
	if set == nil {
		return 0
	}
	set.mu.Lock()
	drained := set.sessions
	set.sessions = make(map[string]Session)
	set.mu.Unlock()
	return c.closeSessions(channelID, drained)
}

func (c *connections) closeSessions(channelID uuid.UUID, drained map[string]Session) int {
	for id, s := range drained {
		if err := s.Close(); err != nil {
			c.logger.Debug("session close failed", "channel", channelID, "session", id, "err", err)
		}
	}
	c.metrics.sessionsDelta(-len(drained))
	return len(drained)
}

// closeEverything drains every channel. Used on shutdown.
func (c *connections) closeEverything() int {
	c.mu.Lock()
	ids := make([]uuid.UUID, 0, len(c.sets))
	for id := range c.sets {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	total := 0
	for _, id := range ids {
		total += c.closeAll(id)
	}
	return total
}
