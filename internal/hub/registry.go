package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/emithub/internal/model"
	"github.com/alfredjeanlab/emithub/internal/store"
)

// registry is the in-memory channel table. Store writes happen while the
// exclusive lock is held, so readers never observe a status that is not yet
// durable.
type registry struct {
	mu       sync.RWMutex
	channels map[uuid.UUID]*model.Channel

	store   store.Store
	now     func() time.Time
	logger  *slog.Logger
	metrics *Metrics
}

func newRegistry(s store.Store, now func() time.Time, logger *slog.Logger, m *Metrics) *registry {
	return &registry{
		channels: make(map[uuid.UUID]*model.Channel),
		store:    s,
		now:      now,
		logger:   logger,
		metrics:  m,
	}
}

// load populates the registry with the active and paused channels in the
// store. Records that fail to decode are skipped.
func (r *registry) load(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	skipped := 0
	err := r.store.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.Scan(ctx, store.TableChannels, func(key string, value []byte) error {
			var ch model.Channel
			if err := json.Unmarshal(value, &ch); err != nil {
				skipped++
				r.logger.Warn("skipping undecodable channel record", "key", key, "err", err)
				return nil
			}
			if !ch.Status.IsLive() {
				return nil
			}
			r.channels[ch.ID] = &ch
			return nil
		})
	})
	if err != nil {
		return 0, &PersistenceError{Op: "load channels", Err: err}
	}
	r.metrics.setChannels(len(r.channels))
	if skipped > 0 {
		r.logger.Warn("channel load skipped records", "skipped", skipped)
	}
	return len(r.channels), nil
}

func (r *registry) persist(ctx context.Context, ch *model.Channel) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return &PersistenceError{Op: "encode channel", Err: err}
	}
	err = r.store.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.Put(ctx, store.TableChannels, ch.ID.String(), data)
	})
	if err != nil {
		r.metrics.persistFailed(store.TableChannels)
		return &PersistenceError{Op: fmt.Sprintf("channel %s", ch.ID), Err: err}
	}
	return nil
}

// create persists ch and adds it to the registry.
func (r *registry) create(ctx context.Context, ch *model.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[ch.ID]; exists {
		return fmt.Errorf("channel id collision: %s", ch.ID)
	}
	if err := r.persist(ctx, ch); err != nil {
		return err
	}
	r.channels[ch.ID] = ch.Clone()
	r.metrics.setChannels(len(r.channels))
	return nil
}

func (r *registry) get(id uuid.UUID) (*model.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	if !ok {
		return nil, false
	}
	return ch.Clone(), true
}

// list returns copies of every channel, oldest first.
func (r *registry) list() []*model.Channel {
	r.mu.RLock()
	out := make([]*model.Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// update applies fn to a copy of the channel, bumps UpdatedAt, persists it
// and swaps it in. The in-memory entry is untouched if fn or the store write
// fails. It returns copies of the channel before and after the change.
func (r *registry) update(ctx context.Context, id uuid.UUID, fn func(ch *model.Channel) error) (before, after *model.Channel, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.channels[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, nil, err
	}
	next.Touch(r.now())
	if err := r.persist(ctx, next); err != nil {
		return nil, nil, err
	}
	r.channels[id] = next
	return cur.Clone(), next.Clone(), nil
}
