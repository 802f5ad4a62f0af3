// Package sqlite implements the store.Store interface on an embedded SQLite
// database file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alfredjeanlab/emithub/internal/store"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// SQLiteStore implements store.Store backed by a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// Open creates the parent directory if needed, opens the database at path
// and applies the schema.
func Open(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer; every statement goes through the same connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA busy_timeout = 5000")
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &SQLiteStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Put(ctx context.Context, table, key string, value []byte) error {
	return put(ctx, s.db, table, key, value)
}

func (s *SQLiteStore) Get(ctx context.Context, table, key string) ([]byte, error) {
	return get(ctx, s.db, table, key)
}

func (s *SQLiteStore) Scan(ctx context.Context, table string, fn func(key string, value []byte) error) error {
	return scan(ctx, s.db, table, fn)
}

func (s *SQLiteStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&txStore{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type txStore struct {
	tx *sql.Tx
}

var _ store.Store = (*txStore)(nil)

func (s *txStore) Put(ctx context.Context, table, key string, value []byte) error {
	return put(ctx, s.tx, table, key, value)
}

func (s *txStore) Get(ctx context.Context, table, key string) ([]byte, error) {
	return get(ctx, s.tx, table, key)
}

func (s *txStore) Scan(ctx context.Context, table string, fn func(key string, value []byte) error) error {
	return scan(ctx, s.tx, table, fn)
}

func (s *txStore) Ping(ctx context.Context) error {
	var one int
	return s.tx.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
}

func (s *txStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *txStore) Close() error { return nil }

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func put(ctx context.Context, db executor, table, key string, value []byte) error {
	if err := store.CheckTable(table); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO `+table+`(key, value, updated_at) VALUES(?,?,?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, string(value), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", table, key, err)
	}
	return nil
}

func get(ctx context.Context, db executor, table, key string) ([]byte, error) {
	if err := store.CheckTable(table); err != nil {
		return nil, err
	}
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM `+table+` WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", table, key, err)
	}
	return []byte(value), nil
}

func scan(ctx context.Context, db executor, table string, fn func(key string, value []byte) error) error {
	if err := store.CheckTable(table); err != nil {
		return err
	}
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM `+table+` ORDER BY key`)
	if err != nil {
		return fmt.Errorf("scan %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan %s row: %w", table, err)
		}
		if err := fn(key, []byte(value)); err != nil {
			return err
		}
	}
	return rows.Err()
}
