// Package memory implements store.Store in process memory. Data does not
// survive a restart; it backs ephemeral deployments and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/alfredjeanlab/emithub/internal/store"
)

// Store is a map-backed store.Store. Transactions hold the store lock until
// they finish, so callers inside a transaction must use the transactional
// Store they were given.
type Store struct {
	mu     sync.Mutex
	tables map[string]map[string][]byte
	closed bool
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{tables: map[string]map[string][]byte{
		store.TableChannels: {},
		store.TableMessages: {},
	}}
}

func (s *Store) Put(ctx context.Context, table, key string, value []byte) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.Put(ctx, table, key, value)
	})
}

func (s *Store) Get(ctx context.Context, table, key string) ([]byte, error) {
	var out []byte
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		v, err := tx.Get(ctx, table, key)
		out = v
		return err
	})
	return out, err
}

func (s *Store) Scan(ctx context.Context, table string, fn func(key string, value []byte) error) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.Scan(ctx, table, fn)
	})
}

// RunInTransaction buffers writes made through tx and applies them only if
// fn returns nil.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}

	t := &txStore{base: s.tables, pending: map[string]map[string][]byte{}}
	if err := fn(t); err != nil {
		return err
	}
	for table, rows := range t.pending {
		for k, v := range rows {
			s.tables[table][k] = v
		}
	}
	return nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type storeError string

func (e storeError) Error() string { return string(e) }

const errClosed = storeError("memory store: closed")

// txStore reads through pending writes to the committed tables.
type txStore struct {
	base    map[string]map[string][]byte
	pending map[string]map[string][]byte
}

func (t *txStore) Put(_ context.Context, table, key string, value []byte) error {
	if err := store.CheckTable(table); err != nil {
		return err
	}
	rows := t.pending[table]
	if rows == nil {
		rows = map[string][]byte{}
		t.pending[table] = rows
	}
	rows[key] = append([]byte(nil), value...)
	return nil
}

func (t *txStore) Get(_ context.Context, table, key string) ([]byte, error) {
	if err := store.CheckTable(table); err != nil {
		return nil, err
	}
	if v, ok := t.pending[table][key]; ok {
		return append([]byte(nil), v...), nil
	}
	if v, ok := t.base[table][key]; ok {
		return append([]byte(nil), v...), nil
	}
	return nil, store.ErrNotFound
}

func (t *txStore) Scan(ctx context.Context, table string, fn func(key string, value []byte) error) error {
	if err := store.CheckTable(table); err != nil {
		return err
	}
	keys := make([]string, 0, len(t.base[table])+len(t.pending[table]))
	seen := map[string]bool{}
	for k := range t.base[table] {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range t.pending[table] {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := t.Get(ctx, table, k)
		if err != nil {
			return err
		}
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (t *txStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(t)
}

func (t *txStore) Ping(context.Context) error { return nil }

func (t *txStore) Close() error { return nil }
