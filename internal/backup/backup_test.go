package backup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/emithub/internal/store"
	"github.com/alfredjeanlab/emithub/internal/store/memory"
)

// mockDestination records calls to Write.
type mockDestination struct {
	writes atomic.Int64
	last   atomic.Value // []byte
	err    error
}

func (d *mockDestination) Write(_ context.Context, data []byte) error {
	d.writes.Add(1)
	if d.err != nil {
		return d.err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	d.last.Store(cp)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerRun(t *testing.T) {
	s := memory.New()
	seed(t, s, store.TableChannels, map[string]string{"c1": `{}`})
	seed(t, s, store.TableMessages, map[string]string{"m1": `{}`})

	dest := &mockDestination{}
	sched := NewScheduler(s, []Destination{dest}, 20*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx)
	}()

	// The initial run writes once; later ticks see the same data.
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if writes := dest.writes.Load(); writes != 1 {
		t.Fatalf("expected exactly 1 write for unchanged data, got %d", writes)
	}
	data, ok := dest.last.Load().([]byte)
	if !ok || len(data) == 0 {
		t.Fatal("expected non-empty data")
	}
	// 1 header + 1 channel + 1 message
	if lines := nonEmptyLines(string(data)); len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
}

func TestSchedulerRunOnce_SkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed(t, s, store.TableChannels, map[string]string{"c1": `{"status":"created"}`})

	dest := &mockDestination{}
	sched := NewScheduler(s, []Destination{dest}, time.Hour, testLogger())

	steps := []struct {
		name   string
		change map[string]string
		want   Result
	}{
		{name: "first run", want: Result{Written: 1}},
		{name: "no change", want: Result{Unchanged: 1}},
		{name: "value changed", change: map[string]string{"c1": `{"status":"active"}`}, want: Result{Written: 1}},
		{name: "same value rewritten", change: map[string]string{"c1": `{"status":"active"}`}, want: Result{Unchanged: 1}},
		{name: "channel added", change: map[string]string{"c2": `{}`}, want: Result{Written: 1}},
	}
	for _, step := range steps {
		if step.change != nil {
			seed(t, s, store.TableChannels, step.change)
		}
		if got := sched.RunOnce(ctx); got != step.want {
			t.Fatalf("%s: got %+v, want %+v", step.name, got, step.want)
		}
	}
	if writes := dest.writes.Load(); writes != 3 {
		t.Fatalf("expected 3 writes, got %d", writes)
	}
}

func TestSchedulerRunOnce_PartialFailure(t *testing.T) {
	ctx := context.Background()
	good := &mockDestination{}
	bad := &mockDestination{err: errors.New("bucket missing")}

	sched := NewScheduler(memory.New(), []Destination{bad, good}, time.Hour, testLogger())
	if got, want := sched.RunOnce(ctx), (Result{Written: 1, Failed: 1}); got != want {
		t.Fatalf("first run: got %+v, want %+v", got, want)
	}
	if good.writes.Load() != 1 || bad.writes.Load() != 1 {
		t.Fatalf("every destination should be attempted: good=%d bad=%d", good.writes.Load(), bad.writes.Load())
	}

	// The failed destination is retried; the good one already has this data.
	if got, want := sched.RunOnce(ctx), (Result{Unchanged: 1, Failed: 1}); got != want {
		t.Fatalf("second run: got %+v, want %+v", got, want)
	}
	if good.writes.Load() != 1 || bad.writes.Load() != 2 {
		t.Fatalf("only the failed destination should be retried: good=%d bad=%d", good.writes.Load(), bad.writes.Load())
	}
}

func TestSchedulerNames(t *testing.T) {
	fileDest := &FileDestination{Dir: "/var/backups"}
	sched := NewScheduler(memory.New(), []Destination{fileDest, &mockDestination{}}, time.Hour, testLogger())
	if got := sched.targets[0].name; got != "file:/var/backups" {
		t.Fatalf("file destination name = %q", got)
	}
	if got := sched.targets[1].name; got != "destination-1" {
		t.Fatalf("unnamed destination = %q", got)
	}
}

func TestFileDestination(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	d, err := NewFileDestination(dir)
	if err != nil {
		t.Fatalf("NewFileDestination: %v", err)
	}
	d.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }

	if err := d.Write(context.Background(), []byte("{\"type\":\"header\"}\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one file (no temp leftovers), got %d", len(entries))
	}
	if name := entries[0].Name(); name != "emithub-20260301T123000Z.jsonl" {
		t.Fatalf("unexpected file name %q", name)
	}
	data, _ := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if !strings.Contains(string(data), "header") {
		t.Fatalf("unexpected contents %q", data)
	}
}

func TestFileDestination_CanceledContext(t *testing.T) {
	d, err := NewFileDestination(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileDestination: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Write(ctx, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
