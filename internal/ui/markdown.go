package ui

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// markdownWrap is the word wrap width of rendered markdown.
const markdownWrap = 100

// RenderMarkdown renders md for the terminal. Without colors the plain
// notty style is used.
func RenderMarkdown(theme *Theme, md string) (string, error) {
	style := glamour.WithAutoStyle()
	if theme.NoColor {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(markdownWrap))
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
