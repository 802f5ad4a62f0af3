package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alfredjeanlab/emithub/internal/store"
)

func openTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "hub.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestPutGet(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, store.TableChannels, "a", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, store.TableChannels, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"v":1}` {
		t.Fatalf("Get = %s", got)
	}

	// Put replaces.
	if err := s.Put(ctx, store.TableChannels, "a", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _ = s.Get(ctx, store.TableChannels, "a")
	if string(got) != `{"v":2}` {
		t.Fatalf("Get after replace = %s", got)
	}

	// Tables are independent.
	if _, err := s.Get(ctx, store.TableMessages, "a"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from messages, got %v", err)
	}
}

func TestUnknownTable(t *testing.T) {
	s, _ := openTestStore(t)
	err := s.Put(context.Background(), "users", "a", []byte(`{}`))
	if !errors.Is(err, store.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
}

func TestScanOrder(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	for _, k := range []string{"c", "a", "b"} {
		if err := s.Put(ctx, store.TableMessages, k, []byte(`{}`)); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}
	var keys []string
	err := s.Scan(ctx, store.TableMessages, func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("keys = %v, want [a b c]", keys)
	}
}

func TestRunInTransaction_RollbackDiscardsWrites(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.Put(ctx, store.TableChannels, "a", []byte(`{}`)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.Get(ctx, store.TableChannels, "a"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("rolled back write is visible: %v", err)
	}
}

func TestRunInTransaction_CommitAndNested(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.Put(ctx, store.TableChannels, "a", []byte(`{}`)); err != nil {
			return err
		}
		return tx.RunInTransaction(ctx, func(inner store.Store) error {
			return inner.Put(ctx, store.TableMessages, "m", []byte(`{}`))
		})
	})
	if err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}
	if _, err := s.Get(ctx, store.TableChannels, "a"); err != nil {
		t.Fatalf("channel not committed: %v", err)
	}
	if _, err := s.Get(ctx, store.TableMessages, "m"); err != nil {
		t.Fatalf("message not committed: %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()
	if err := s.Put(ctx, store.TableChannels, "a", []byte(`{"name":"x"}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Get(ctx, store.TableChannels, "a")
	if err != nil || string(got) != `{"name":"x"}` {
		t.Fatalf("Get after reopen = %s, %v", got, err)
	}
}

func TestPing(t *testing.T) {
	s, _ := openTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
