// Package ui renders gate and pipeline progress in the terminal.
//
// Every component degrades to plain line output when the session is
// headless (no TTY, CI) or colors are disabled.
package ui

import "errors"

// Sentinel errors for interactive components.
var (
	// ErrCancelled indicates the user aborted a prompt.
	ErrCancelled = errors.New("ui: cancelled by user")

	// ErrHeadlessConfirm indicates a confirmation was required in a headless
	// session without an explicit assumption.
	ErrHeadlessConfirm = errors.New("ui: confirmation required but no terminal is attached")
)

// Colors holds the palette as lipgloss color strings.
type Colors struct {
	Primary   string
	Secondary string
	Success   string
	Error     string
	Warning   string
	Muted     string
}

// Theme controls styling of every ui component.
type Theme struct {
	NoColor bool
	Colors  Colors
}

// NewTheme returns the default theme.
func NewTheme(noColor bool) *Theme {
	return &Theme{
		NoColor: noColor,
		Colors: Colors{
			Primary:   "#7C3AED",
			Secondary: "#06B6D4",
			Success:   "#10B981",
			Error:     "#EF4444",
			Warning:   "#F59E0B",
			Muted:     "#6B7280",
		},
	}
}
