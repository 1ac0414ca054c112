package review

import (
	"fmt"
	"strings"

	"github.com/rhai-examples/qgate/internal/core/quality"
	"github.com/rhai-examples/qgate/internal/defs"
	"github.com/rhai-examples/qgate/internal/finding"
)

// maxListedFindings bounds the findings listed in the summary comment.
const maxListedFindings = 50

// SummaryData is the content of the aggregate summary comment.
type SummaryData struct {
	HeadSHA    string
	Results    []*quality.CheckResult
	Findings   []finding.Finding
	Inline     int
	Duplicates int
	// Overflow holds diff findings beyond the inline comment cap.
	Overflow []finding.Finding
	// Unmapped holds findings outside the diff.
	Unmapped []finding.Finding
}

// Passed reports whether every check passed.
func (s SummaryData) Passed() bool {
	for _, r := range s.Results {
		if !r.Passed() {
			return false
		}
	}
	return true
}

// BuildSummary renders the summary comment body. The body always starts with
// the summary marker so later runs can find and update it.
func BuildSummary(data SummaryData) string {
	var sb strings.Builder

	sb.WriteString(defs.SummaryMarker + "\n")
	sb.WriteString("## qgate quality report\n\n")

	if data.Passed() {
		sb.WriteString("**Result: PASSED**")
	} else {
		sb.WriteString("**Result: FAILED**")
	}
	if data.HeadSHA != "" {
		fmt.Fprintf(&sb, " for commit `%s`", shortSHA(data.HeadSHA))
	}
	sb.WriteString("\n")

	if len(data.Results) > 0 {
		sb.WriteString("\n| Check | Status | Findings |\n|---|---|---|\n")
		for _, r := range data.Results {
			fmt.Fprintf(&sb, "| %s | %s | %d |\n", r.Name, r.Status, len(r.Findings))
		}
	}

	counts := finding.Count(data.Findings)
	if counts.Total() == 0 {
		sb.WriteString("\nNo findings.\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "\n**Findings:** %d error(s), %d warning(s), %d info\n",
		counts.Errors, counts.Warnings, counts.Infos)

	sb.WriteString("\n### Inline comments\n\n")
	fmt.Fprintf(&sb, "%d finding(s) commented on changed lines.\n", data.Inline+data.Duplicates)

	if len(data.Overflow) > 0 {
		fmt.Fprintf(&sb, "\n### Not shown inline (%d)\n\n", len(data.Overflow))
		writeFindingList(&sb, data.Overflow)
	}
	if len(data.Unmapped) > 0 {
		fmt.Fprintf(&sb, "\n### Outside the diff (%d)\n\n", len(data.Unmapped))
		writeFindingList(&sb, data.Unmapped)
	}
	return sb.String()
}

func writeFindingList(sb *strings.Builder, findings []finding.Finding) {
	for i, f := range findings {
		if i == maxListedFindings {
			fmt.Fprintf(sb, "- ... and %d more\n", len(findings)-maxListedFindings)
			return
		}
		fmt.Fprintf(sb, "- `%s`\n", f.String())
	}
}

// InlineBody renders the body of the inline comment for f.
func InlineBody(f finding.Finding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**", f.Tool)
	if f.Rule != "" {
		fmt.Fprintf(&sb, " `%s`", f.Rule)
	}
	fmt.Fprintf(&sb, " (%s): %s\n\n%s", f.Severity, f.Message, defs.InlineMarker)
	return sb.String()
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
