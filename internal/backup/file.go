package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// snapshotName returns the timestamped object name for one export.
func snapshotName(now func() time.Time) string {
	if now == nil {
		now = time.Now
	}
	return "emithub-" + now().UTC().Format("20060102T150405Z") + ".jsonl"
}

// FileDestination writes each export to a timestamped file in Dir.
type FileDestination struct {
	Dir string
	// Now overrides the clock used for file names.
	Now func() time.Time
}

// NewFileDestination returns a destination writing under dir, creating it if
// needed.
func NewFileDestination(dir string) (*FileDestination, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	return &FileDestination{Dir: dir}, nil
}

func (d *FileDestination) String() string { return "file:" + d.Dir }

// Write stores data atomically: a temp file in Dir is renamed into place.
func (d *FileDestination) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := filepath.Join(d.Dir, snapshotName(d.Now))

	tmp, err := os.CreateTemp(d.Dir, ".emithub-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		return fmt.Errorf("rename backup: %w", err)
	}
	return nil
}
