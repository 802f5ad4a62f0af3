package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/emithub/internal/store"
)

// FormatVersion is the version written in every export header.
const FormatVersion = "1"

// Header is the first JSONL record written by ExportJSONL.
type Header struct {
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	ChannelCount int       `json:"channel_count"`
	MessageCount int       `json:"message_count"`
}

// Record is a single stored row with a type discriminator.
type Record struct {
	Type string          `json:"type"`
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

// record types, keyed by table.
var recordTypes = []struct {
	table, kind string
}{
	{store.TableChannels, "channel"},
	{store.TableMessages, "message"},
}

// Snapshot is a consistent read of both tables.
type Snapshot struct {
	Records      []Record
	ChannelCount int
	MessageCount int
}

// TakeSnapshot reads every channel and message in one transaction. Records
// are in ascending key order, channels first.
func TakeSnapshot(ctx context.Context, s store.Store) (*Snapshot, error) {
	snap := &Snapshot{}
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		for _, rt := range recordTypes {
			err := tx.Scan(ctx, rt.table, func(key string, value []byte) error {
				snap.Records = append(snap.Records, Record{
					Type: rt.kind,
					Key:  key,
					Data: json.RawMessage(append([]byte(nil), value...)),
				})
				return nil
			})
			if err != nil {
				return fmt.Errorf("scan %s: %w", rt.table, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, r := range snap.Records {
		if r.Type == "channel" {
			snap.ChannelCount++
		} else {
			snap.MessageCount++
		}
	}
	return snap, nil
}

// Fingerprint identifies the snapshot's contents. Two snapshots of an
// unchanged store have the same fingerprint.
func (snap *Snapshot) Fingerprint() string {
	h := sha256.New()
	for _, r := range snap.Records {
		fmt.Fprintf(h, "%s\x00%s\x00%d\x00", r.Type, r.Key, len(r.Data))
		h.Write(r.Data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Encode writes the snapshot as JSONL: a header stamped with now, then one
// line per record.
func (snap *Snapshot) Encode(w io.Writer, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(Header{
		Version:      FormatVersion,
		Type:         "header",
		Timestamp:    now.UTC(),
		ChannelCount: snap.ChannelCount,
		MessageCount: snap.MessageCount,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for _, r := range snap.Records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode %s %s: %w", r.Type, r.Key, err)
		}
	}
	return nil
}

// ExportJSONL writes every channel and message in the store as JSONL to w.
// Nothing is written if the store cannot be read.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	snap, err := TakeSnapshot(ctx, s)
	if err != nil {
		return err
	}
	return snap.Encode(w, time.Now())
}
