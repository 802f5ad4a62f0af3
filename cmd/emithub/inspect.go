package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/emithub/internal/backup"
	"github.com/alfredjeanlab/emithub/internal/config"
	"github.com/alfredjeanlab/emithub/internal/model"
	"github.com/alfredjeanlab/emithub/internal/store"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect",
	Short:   "List the channels persisted in the configured store",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		channels, err := loadChannels(cmd.Context(), st, os.Stderr)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(channels)
			return nil
		}
		printChannelListTable(channels, len(channels))
		return nil
	},
}

// loadChannels decodes every channel snapshot in the store, in key order.
// Undecodable records are reported to warn and skipped.
func loadChannels(ctx context.Context, st store.Store, warn io.Writer) ([]*model.Channel, error) {
	channels := []*model.Channel{}
	err := st.Scan(ctx, store.TableChannels, func(key string, value []byte) error {
		var ch model.Channel
		if err := json.Unmarshal(value, &ch); err != nil {
			fmt.Fprintf(warn, "warning: skipping channel %s: %v\n", key, err)
			return nil
		}
		channels = append(channels, &ch)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return channels, nil
}

var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Export the configured store as JSONL",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		out, _ := cmd.Flags().GetString("out")
		if out == "" || out == "-" {
			return backup.ExportJSONL(cmd.Context(), st, os.Stdout)
		}
		return exportToFile(cmd.Context(), st, out)
	},
}

// exportToFile writes the export next to path and renames it into place,
// so a failed export never truncates an earlier file.
func exportToFile(ctx context.Context, st store.Store, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".emithub-export-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := backup.ExportJSONL(ctx, st, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming export: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Exported to %s\n", path)
	return nil
}

func init() {
	exportCmd.Flags().StringP("out", "o", "", "write to this file instead of stdout")
}
