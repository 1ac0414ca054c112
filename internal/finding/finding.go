// Package finding turns checker output into located findings.
package finding

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Severity classifies a finding.
type Severity string

// Severity levels, from most to least severe.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// rank orders severities; higher is more severe.
func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is at least as severe as threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.rank() >= threshold.rank()
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s.rank() > 0
}

// Finding is a single issue reported by a checker.
type Finding struct {
	Tool     string   `json:"tool"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Column   int      `json:"column,omitempty"`
	EndLine  int      `json:"end_line,omitempty"`
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule,omitempty"`
	Message  string   `json:"message"`
}

// Located reports whether the finding points at a file line.
func (f Finding) Located() bool {
	return f.File != "" && f.Line > 0
}

// String renders the finding in file:line:col form.
func (f Finding) String() string {
	var sb strings.Builder
	if f.File != "" {
		sb.WriteString(f.File)
		if f.Line > 0 {
			fmt.Fprintf(&sb, ":%d", f.Line)
			if f.Column > 0 {
				fmt.Fprintf(&sb, ":%d", f.Column)
			}
		}
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "%s", f.Severity)
	if f.Rule != "" {
		fmt.Fprintf(&sb, "[%s]", f.Rule)
	}
	fmt.Fprintf(&sb, ": %s", f.Message)
	if f.Tool != "" {
		fmt.Fprintf(&sb, " (%s)", f.Tool)
	}
	return sb.String()
}

// Counts tallies findings by severity.
type Counts struct {
	Errors   int
	Warnings int
	Infos    int
}

// Total returns the number of counted findings.
func (c Counts) Total() int {
	return c.Errors + c.Warnings + c.Infos
}

// Count tallies findings by severity.
func Count(findings []Finding) Counts {
	var c Counts
	for _, f := range findings {
		switch f.Severity {
		case SeverityError:
			c.Errors++
		case SeverityWarning:
			c.Warnings++
		default:
			c.Infos++
		}
	}
	return c
}

// Filter returns the findings at or above threshold.
func Filter(findings []Finding, threshold Severity) []Finding {
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity.AtLeast(threshold) {
			out = append(out, f)
		}
	}
	return out
}

// Sort orders findings by file, line, column and rule in place.
func Sort(findings []Finding) {
	slices.SortStableFunc(findings, func(a, b Finding) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Column, b.Column),
			cmp.Compare(a.Rule, b.Rule),
		)
	})
}

// Relativize rewrites absolute file paths relative to root using forward
// slashes. Paths outside root are left untouched.
func Relativize(findings []Finding, root string) {
	if root == "" {
		return
	}
	for i := range findings {
		p := findings[i].File
		if p == "" {
			continue
		}
		if filepath.IsAbs(p) {
			rel, err := filepath.Rel(root, p)
			if err != nil || strings.HasPrefix(rel, "..") {
				continue
			}
			p = rel
		}
		findings[i].File = filepath.ToSlash(strings.TrimPrefix(p, "./"))
	}
}
