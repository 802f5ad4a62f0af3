// Package backup exports the durable store as JSONL and ships the exports to
// one or more destinations on a schedule.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/emithub/internal/store"
)

// Destination is the interface for a backup target (file, S3).
type Destination interface {
	// Write stores one complete JSONL export.
	Write(ctx context.Context, data []byte) error
}

// target tracks the last snapshot a destination accepted.
type target struct {
	dest Destination
	name string
	last string
}

// Scheduler exports the store on an interval. A destination only receives
// an export when the store changed since the last export it accepted, so a
// failed destination is retried on the next run and an idle hub writes
// nothing.
type Scheduler struct {
	store    store.Store
	targets  []*target
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// Result counts what one run did with each destination.
type Result struct {
	Written, Unchanged, Failed int
}

// NewScheduler creates a scheduler over s. Destinations implementing
// fmt.Stringer are logged by name.
func NewScheduler(s store.Store, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	sched := &Scheduler{store: s, interval: interval, logger: logger, now: time.Now}
	for i, d := range destinations {
		name := fmt.Sprintf("destination-%d", i)
		if str, ok := d.(fmt.Stringer); ok {
			name = str.String()
		}
		sched.targets = append(sched.targets, &target{dest: d, name: name})
	}
	return sched
}

// Run exports once, then on every interval, until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce takes a snapshot and writes it to every destination that has not
// accepted it yet. Runs must not overlap.
func (s *Scheduler) RunOnce(ctx context.Context) Result {
	var res Result
	snap, err := TakeSnapshot(ctx, s.store)
	if err != nil {
		s.logger.Error("backup export failed", "err", err)
		res.Failed = len(s.targets)
		return res
	}
	fp := snap.Fingerprint()

	var data []byte
	for _, t := range s.targets {
		if t.last == fp {
			res.Unchanged++
			continue
		}
		if data == nil {
			var buf bytes.Buffer
			if err := snap.Encode(&buf, s.now()); err != nil {
				s.logger.Error("backup encode failed", "err", err)
				res.Failed = len(s.targets) - res.Unchanged
				return res
			}
			data = buf.Bytes()
		}
		if err := t.dest.Write(ctx, data); err != nil {
			s.logger.Error("backup write failed", "destination", t.name, "err", err)
			res.Failed++
			continue
		}
		t.last = fp
		res.Written++
	}

	if res.Written == 0 && res.Failed == 0 {
		s.logger.Debug("backup skipped, store unchanged", "channels", snap.ChannelCount, "messages", snap.MessageCount)
		return res
	}
	s.logger.Info("backup completed",
		"written", res.Written, "unchanged", res.Unchanged, "failed", res.Failed,
		"channels", snap.ChannelCount, "messages", snap.MessageCount, "bytes", len(data))
	return res
}
