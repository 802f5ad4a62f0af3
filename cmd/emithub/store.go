package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/alfredjeanlab/emithub/internal/config"
	"github.com/alfredjeanlab/emithub/internal/store"
	"github.com/alfredjeanlab/emithub/internal/store/memory"
	"github.com/alfredjeanlab/emithub/internal/store/postgres"
	"github.com/alfredjeanlab/emithub/internal/store/sqlite"
)

// openStore opens the store driver named in cfg.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		return sqlite.Open(cfg.DBPath)
	case config.StorePostgres:
		return postgres.New(cfg.DatabaseURL)
	case config.StoreMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// newLogger builds the process logger from the configured level and format.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
