package ui

import (
	"os"

	"github.com/mattn/go-isatty"
)

// HeadlessManager decides whether the UI may draw animations and prompt
// the user.
type HeadlessManager struct {
	forced *bool
	// fd is the stream animations and prompts draw on.
	fd uintptr
}

// NewHeadlessManager creates a HeadlessManager that detects headless mode
// from the TTY state of os.Stderr, where progress and prompts are drawn,
// and the CI environment variable. Stdout may be redirected to a report
// file while stderr is still a terminal.
func NewHeadlessManager() *HeadlessManager {
	return &HeadlessManager{fd: os.Stderr.Fd()}
}

// IsHeadless returns true when the UI should operate in headless mode.
// ForceHeadless overrides detection.
func (h *HeadlessManager) IsHeadless() bool {
	if h.forced != nil {
		return *h.forced
	}
	if os.Getenv("CI") != "" {
		return true
	}
	return !isatty.IsTerminal(h.fd) && !isatty.IsCygwinTerminal(h.fd)
}

// ForceHeadless overrides TTY detection. Pass true to force headless mode,
// or false to force interactive mode regardless of TTY state.
func (h *HeadlessManager) ForceHeadless(force bool) {
	h.forced = &force
}
