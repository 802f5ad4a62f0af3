package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor returns true when ANSI colors should be used on stdout.
// It respects NO_COLOR, CLICOLOR_FORCE, CLICOLOR, and TTY detection.
func ShouldUseColor() bool {
	return colorDecision(os.Getenv, term.IsTerminal(int(os.Stdout.Fd())))
}

func colorDecision(getenv func(string) string, tty bool) bool {
	// https://no-color.org: any non-empty value disables color.
	if getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(getenv("CLICOLOR")) == "0" {
		return false
	}
	return tty
}

// Init disables color when stdout should not receive it.
func Init() {
	if !ShouldUseColor() {
		ForceNoColor()
	}
}
