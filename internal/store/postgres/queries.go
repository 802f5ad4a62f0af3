package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/emithub/internal/store"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Table names are interpolated only after store.CheckTable accepts them.

func queryPut(ctx context.Context, db executor, table, key string, value []byte) error {
	if err := store.CheckTable(table); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO `+table+` (key, value, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, string(value),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", table, key, err)
	}
	return nil
}

func queryGet(ctx context.Context, db executor, table, key string) ([]byte, error) {
	if err := store.CheckTable(table); err != nil {
		return nil, err
	}
	var value []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM `+table+` WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", table, key, err)
	}
	return value, nil
}

func queryScan(ctx context.Context, db executor, table string, fn func(key string, value []byte) error) error {
	if err := store.CheckTable(table); err != nil {
		return err
	}
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM `+table+` ORDER BY key`)
	if err != nil {
		return fmt.Errorf("scan %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan %s row: %w", table, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}
