package ui

import (
	"fmt"

	"github.com/alfredjeanlab/emithub/internal/model"
)

// ANSI256 color codes.
const (
	colorAccent = 74  // blue
	colorMuted  = 245 // medium gray
	colorOK     = 71  // green
	colorWarn   = 179 // amber
	colorStop   = 167 // red
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderStatus returns the channel status colored by lifecycle stage:
// active green, paused amber, stopped red, created muted.
func RenderStatus(s model.ChannelStatus) string {
	switch s {
	case model.StatusActive:
		return paint(colorOK, s.String())
	case model.StatusPaused:
		return paint(colorWarn, s.String())
	case model.StatusStopped:
		return paint(colorStop, s.String())
	}
	return paint(colorMuted, s.String())
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
