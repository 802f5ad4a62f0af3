package store

import (
	"context"
	"errors"
	"fmt"
)

// Table names.
const (
	TableChannels = "channels"
	TableMessages = "messages"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("store: not found")
	// ErrUnknownTable is returned for any table other than TableChannels and TableMessages.
	ErrUnknownTable = errors.New("store: unknown table")
)

// Store defines the durable key/value persistence used by the hub.
// Values are opaque JSON snapshots keyed by the stringified record id.
type Store interface {
	// Put inserts or replaces the value stored under key.
	Put(ctx context.Context, table, key string, value []byte) error
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, table, key string) ([]byte, error)
	// Scan calls fn for every record in ascending key order. An error returned
	// by fn stops the scan and is returned.
	Scan(ctx context.Context, table string, fn func(key string, value []byte) error) error

	// RunInTransaction executes fn within a database transaction.
	// The Store passed to fn uses the transaction for all operations.
	// If fn returns nil the transaction commits; otherwise it rolls back.
	// Calling RunInTransaction on the transactional Store reuses the open transaction.
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Ping checks that the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// CheckTable returns ErrUnknownTable for unrecognised table names.
func CheckTable(table string) error {
	switch table {
	case TableChannels, TableMessages:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownTable, table)
}
