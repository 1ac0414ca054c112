package ui

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Confirm asks a yes/no question. assumeYes skips the prompt. A headless
// session without assumeYes returns ErrHeadlessConfirm.
func Confirm(theme *Theme, hm *HeadlessManager, title, description string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if hm.IsHeadless() {
		return false, ErrHeadlessConfirm
	}

	var ok bool
	field := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)

	form := huh.NewForm(huh.NewGroup(field)).
		WithTheme(huhTheme(theme)).
		WithOutput(os.Stderr)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, ErrCancelled
		}
		return false, fmt.Errorf("confirm: %w", err)
	}
	return ok, nil
}

// huhTheme maps the palette onto a huh theme.
func huhTheme(theme *Theme) *huh.Theme {
	t := huh.ThemeBase()
	if theme.NoColor {
		return t
	}

	primary := lipgloss.Color(theme.Colors.Primary)
	muted := lipgloss.Color(theme.Colors.Muted)
	t.Focused.Title = t.Focused.Title.Foreground(primary).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(muted)
	t.Focused.FocusedButton = t.Focused.FocusedButton.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(primary)
	t.Blurred = t.Focused
	return t
}
