package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/alfredjeanlab/emithub/internal/store"
	"github.com/alfredjeanlab/emithub/internal/store/memory"
)

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func seed(t *testing.T, s store.Store, table string, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		if err := s.Put(context.Background(), table, k, []byte(v)); err != nil {
			t.Fatalf("Put %s/%s: %v", table, k, err)
		}
	}
}

func TestExportJSONL_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), memory.New(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}

	var h Header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != FormatVersion || h.Type != "header" || h.ChannelCount != 0 || h.MessageCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestExportJSONL_ChannelsAndMessages(t *testing.T) {
	s := memory.New()
	seed(t, s, store.TableChannels, map[string]string{
		"b-channel": `{"name":"second"}`,
		"a-channel": `{"name":"first"}`,
	})
	seed(t, s, store.TableMessages, map[string]string{
		"01HZZ": `{"content":"hi"}`,
	})

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), s, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	// 1 header + 2 channels + 1 message
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}

	var h Header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.ChannelCount != 2 || h.MessageCount != 1 {
		t.Fatalf("unexpected counts: %+v", h)
	}

	want := []struct{ typ, key, data string }{
		{"channel", "a-channel", `{"name":"first"}`},
		{"channel", "b-channel", `{"name":"second"}`},
		{"message", "01HZZ", `{"content":"hi"}`},
	}
	for i, w := range want {
		var r Record
		if err := json.Unmarshal([]byte(lines[i+1]), &r); err != nil {
			t.Fatalf("unmarshal record %d: %v", i, err)
		}
		if r.Type != w.typ || r.Key != w.key || string(r.Data) != w.data {
			t.Fatalf("record %d: got %s/%s %s, want %s/%s %s", i, r.Type, r.Key, r.Data, w.typ, w.key, w.data)
		}
	}
}

// failingScanStore fails every Scan.
type failingScanStore struct {
	store.Store
}

func (f failingScanStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(f)
}

func (f failingScanStore) Scan(context.Context, string, func(string, []byte) error) error {
	return errors.New("disk gone")
}

func TestExportJSONL_ScanError(t *testing.T) {
	var buf bytes.Buffer
	err := ExportJSONL(context.Background(), failingScanStore{Store: memory.New()}, &buf)
	if err == nil || !strings.Contains(err.Error(), "disk gone") {
		t.Fatalf("expected scan error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written on error, got %q", buf.String())
	}
}

func TestSnapshotFingerprint(t *testing.T) {
	ctx := context.Background()
	fingerprint := func(t *testing.T, s store.Store) string {
		t.Helper()
		snap, err := TakeSnapshot(ctx, s)
		if err != nil {
			t.Fatalf("TakeSnapshot: %v", err)
		}
		return snap.Fingerprint()
	}

	base := memory.New()
	seed(t, base, store.TableChannels, map[string]string{"a": `{"n":1}`})
	want := fingerprint(t, base)

	tests := []struct {
		name     string
		channels map[string]string
		messages map[string]string
		same     bool
	}{
		{name: "identical", channels: map[string]string{"a": `{"n":1}`}, same: true},
		{name: "different value", channels: map[string]string{"a": `{"n":2}`}},
		{name: "different key", channels: map[string]string{"b": `{"n":1}`}},
		{name: "same row as a message", messages: map[string]string{"a": `{"n":1}`}},
		{name: "extra message", channels: map[string]string{"a": `{"n":1}`}, messages: map[string]string{"m": `{}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memory.New()
			seed(t, s, store.TableChannels, tt.channels)
			seed(t, s, store.TableMessages, tt.messages)
			if got := fingerprint(t, s); (got == want) != tt.same {
				t.Fatalf("fingerprint equal = %t, want %t", got == want, tt.same)
			}
		})
	}
}
