package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rhai-examples/qgate/internal/core/quality"
)

// Status symbols used in check lines.
const (
	symbolPassed  = "✓"
	symbolFailed  = "✗"
	symbolSkipped = "-"
	symbolRunning = "▸"
)

func (t *Theme) style(color string) lipgloss.Style {
	if t.NoColor {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// CheckLine renders a one-line status for res, e.g. "✓ ruff passed (1.2s)".
func CheckLine(theme *Theme, res *quality.CheckResult) string {
	var symbol, color string
	switch res.Status {
	case quality.StatusPassed:
		symbol, color = symbolPassed, theme.Colors.Success
	case quality.StatusFailed:
		symbol, color = symbolFailed, theme.Colors.Error
	default:
		symbol, color = symbolSkipped, theme.Colors.Muted
	}

	st := theme.style(color)
	line := fmt.Sprintf("%s %s %s", st.Render(symbol), st.Bold(!theme.NoColor).Render(res.Name), res.Status)

	var details []string
	if res.Reason != "" {
		details = append(details, res.Reason)
	}
	if len(res.Modified) > 0 {
		details = append(details, fmt.Sprintf("%d file(s) modified", len(res.Modified)))
	}
	if res.Duration > 0 {
		details = append(details, res.Duration.Round(10*time.Millisecond).String())
	}
	if len(details) > 0 {
		line += " " + theme.style(theme.Colors.Muted).Render("("+strings.Join(details, ", ")+")")
	}
	return line
}

// Card renders body inside a rounded border titled with title. The border
// color follows ok.
func Card(theme *Theme, title, body string, ok bool) string {
	color := theme.Colors.Success
	if !ok {
		color = theme.Colors.Error
	}

	header := title
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)
	if !theme.NoColor {
		box = box.BorderForeground(lipgloss.Color(color))
		header = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(title)
	}

	content := header
	if body = strings.TrimRight(body, "\n"); body != "" {
		content += "\n\n" + body
	}
	return box.Render(content)
}

// FailureCard renders the verbatim output of a failed check.
func FailureCard(theme *Theme, res *quality.CheckResult) string {
	title := fmt.Sprintf("%s failed", res.Name)
	if res.ExitCode > 0 {
		title += fmt.Sprintf(" (exit %d)", res.ExitCode)
	}
	body := res.Output
	if body == "" && res.Err != nil {
		body = res.Err.Error()
	}
	return Card(theme, title, body, false)
}

// GateSummary renders the final summary card of a gate run.
func GateSummary(theme *Theme, report *quality.Report) string {
	var passed, skipped int
	for _, r := range report.Results {
		switch r.Status {
		case quality.StatusPassed:
			passed++
		case quality.StatusSkipped:
			skipped++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d passed, %d skipped", passed, skipped)
	if report.Failed != "" {
		fmt.Fprintf(&sb, ", stopped at %s", report.Failed)
	}
	if len(report.Modified) > 0 {
		fmt.Fprintf(&sb, "\nmodified: %s", strings.Join(report.Modified, ", "))
	}
	fmt.Fprintf(&sb, "\n%s", report.Duration.Round(10*time.Millisecond))

	title := "quality gate passed"
	if !report.Passed {
		title = "quality gate failed"
	}
	return Card(theme, title, sb.String(), report.Passed)
}
