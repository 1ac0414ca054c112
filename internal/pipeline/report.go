package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/rhai-examples/qgate/internal/core/quality"
)

// RenderTable writes a job summary table followed by the verbatim output of
// every failed step.
func RenderTable(w io.Writer, r *Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Job", "Result", "Steps", "Failed step", "Duration"})
	for _, j := range r.Jobs {
		t.AppendRow(table.Row{j.Name, verdict(j.Passed), stepSummary(j.Steps), j.Failed, j.Duration.Round(time.Millisecond)})
	}
	t.AppendFooter(table.Row{"run " + shortID(r.RunID), verdict(r.Passed), "", "", r.Duration.Round(time.Millisecond)})
	t.Render()

	for _, j := range r.Jobs {
		if j.Passed {
			continue
		}
		_, _ = fmt.Fprintf(w, "\n--- %s: %s failed ---\n", j.Name, j.Failed)
		if j.Error != "" {
			_, _ = fmt.Fprintln(w, j.Error)
		}
		for _, s := range j.Steps {
			if s.Status == quality.StatusFailed && s.Output != "" {
				_, _ = fmt.Fprintln(w, s.Output)
			}
		}
	}
}

func verdict(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

// stepSummary renders step statuses as e.g. "4 passed, 1 skipped".
func stepSummary(steps []*quality.CheckResult) string {
	counts := map[quality.Status]int{}
	for _, s := range steps {
		counts[s.Status]++
	}
	var parts []string
	for _, st := range []quality.Status{quality.StatusPassed, quality.StatusFailed, quality.StatusSkipped} {
		if n := counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, st))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
