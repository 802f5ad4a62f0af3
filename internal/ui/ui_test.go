package ui

import (
	"strings"
	"testing"

	"github.com/alfredjeanlab/emithub/internal/model"
)

func TestColorDecision(t *testing.T) {
	for _, tc := range []struct {
		name string
		env  map[string]string
		tty  bool
		want bool
	}{
		{"tty", nil, true, true},
		{"pipe", nil, false, false},
		{"no color wins", map[string]string{"NO_COLOR": "1", "CLICOLOR_FORCE": "1"}, true, false},
		{"forced without tty", map[string]string{"CLICOLOR_FORCE": "1"}, false, true},
		{"clicolor off", map[string]string{"CLICOLOR": "0"}, true, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			getenv := func(k string) string { return tc.env[k] }
			if got := colorDecision(getenv, tc.tty); got != tc.want {
				t.Fatalf("colorDecision = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRenderStatus(t *testing.T) {
	noColor = false
	defer func() { noColor = false }()

	active := RenderStatus(model.StatusActive)
	if !strings.Contains(active, "active") || !strings.HasPrefix(active, "\x1b[38;5;71m") {
		t.Fatalf("unexpected active rendering %q", active)
	}
	if RenderStatus(model.StatusStopped) == RenderStatus(model.StatusPaused) {
		t.Fatal("stopped and paused should render differently")
	}

	ForceNoColor()
	if got := RenderStatus(model.StatusPaused); got != "paused" {
		t.Fatalf("expected plain text without color, got %q", got)
	}
}
