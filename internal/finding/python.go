package finding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	reMypyLine    = regexp.MustCompile(`^(.+?):(\d+):(?:(\d+):)?\s*(error|warning|note):\s*(.*?)(?:\s+\[([a-z0-9_-]+)\])?$`)
	reGenericLine = regexp.MustCompile(`^(?:\./)?([^:\s][^:]*):(\d+)(?::(\d+))?:\s*(?:(error|warning|info|note)(?:\[([^\]]+)\])?:\s*)?(.+)$`)
	reBlackLine   = regexp.MustCompile(`^would reformat (.+)$`)
	reBlackError  = regexp.MustCompile(`^error: cannot format (.+?): (.+)$`)
	reIsortLine   = regexp.MustCompile(`^ERROR: (.+?) Imports are incorrectly sorted`)
)

// parseRuff parses `ruff check --output-format=json`.
func parseRuff(data []byte) ([]Finding, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Finding{}, nil
	}

	var diags []struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Filename string `json:"filename"`
		Location struct {
			Row    int `json:"row"`
			Column int `json:"column"`
		} `json:"location"`
		EndLocation struct {
			Row int `json:"row"`
		} `json:"end_location"`
	}
	if err := json.Unmarshal(jsonPayload(data), &diags); err != nil {
		return nil, fmt.Errorf("ruff json: %w", err)
	}

	out := make([]Finding, 0, len(diags))
	for _, d := range diags {
		out = append(out, Finding{
			File:     d.Filename,
			Line:     d.Location.Row,
			Column:   d.Location.Column,
			EndLine:  d.EndLocation.Row,
			Severity: classifyRuffSeverity(d.Code),
			Rule:     d.Code,
			Message:  d.Message,
		})
	}
	return out, nil
}

// classifyRuffSeverity maps pycodestyle/pyflakes errors to error and the
// rest of the rule families to warning.
func classifyRuffSeverity(code string) Severity {
	if strings.HasPrefix(code, "E") || strings.HasPrefix(code, "F") {
		return SeverityError
	}
	return SeverityWarning
}

// parseMypy parses mypy text output with column numbers enabled.
func parseMypy(data []byte) ([]Finding, error) {
	var out []Finding
	for line := range strings.SplitSeq(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := reMypyLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		sev := SeverityError
		switch m[4] {
		case "warning":
			sev = SeverityWarning
		case "note":
			sev = SeverityInfo
		}
		out = append(out, Finding{
			File:     m[1],
			Line:     atoi(m[2]),
			Column:   atoi(m[3]),
			Severity: sev,
			Rule:     m[6],
			Message:  m[5],
		})
	}
	return out, nil
}

// parseBandit parses `bandit -f json`.
func parseBandit(data []byte) ([]Finding, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Finding{}, nil
	}

	var report struct {
		Results []struct {
			Filename   string `json:"filename"`
			LineNumber int    `json:"line_number"`
			ColOffset  int    `json:"col_offset"`
			LineRange  []int  `json:"line_range"`
			Severity   string `json:"issue_severity"`
			Confidence string `json:"issue_confidence"`
			Text       string `json:"issue_text"`
			TestID     string `json:"test_id"`
			TestName   string `json:"test_name"`
		} `json:"results"`
	}
	if err := json.Unmarshal(jsonPayload(data), &report); err != nil {
		return nil, fmt.Errorf("bandit json: %w", err)
	}

	out := make([]Finding, 0, len(report.Results))
	for _, r := range report.Results {
		f := Finding{
			File:     r.Filename,
			Line:     r.LineNumber,
			Column:   r.ColOffset + 1,
			Severity: classifyBanditSeverity(r.Severity),
			Rule:     r.TestID,
			Message:  fmt.Sprintf("%s (%s, confidence %s)", r.Text, r.TestName, strings.ToLower(r.Confidence)),
		}
		if n := len(r.LineRange); n > 1 {
			f.EndLine = r.LineRange[n-1]
		}
		out = append(out, f)
	}
	return out, nil
}

func classifyBanditSeverity(s string) Severity {
	switch strings.ToUpper(s) {
	case "HIGH":
		return SeverityError
	case "MEDIUM":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// parseBlack parses `black --check` output. Files that would be reformatted
// have no line information.
func parseBlack(data []byte) ([]Finding, error) {
	var out []Finding
	for line := range strings.SplitSeq(string(data), "\n") {
		line = strings.TrimSpace(line)
		if m := reBlackLine.FindStringSubmatch(line); m != nil {
			out = append(out, Finding{
				File:     m[1],
				Severity: SeverityWarning,
				Rule:     "format",
				Message:  "file would be reformatted",
			})
			continue
		}
		if m := reBlackError.FindStringSubmatch(line); m != nil {
			out = append(out, Finding{
				File:     m[1],
				Severity: SeverityError,
				Rule:     "parse",
				Message:  m[2],
			})
		}
	}
	return out, nil
}

// parseIsort parses `isort --check-only` output.
func parseIsort(data []byte) ([]Finding, error) {
	var out []Finding
	for line := range strings.SplitSeq(string(data), "\n") {
		m := reIsortLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		out = append(out, Finding{
			File:     m[1],
			Severity: SeverityWarning,
			Rule:     "imports",
			Message:  "imports are incorrectly sorted or formatted",
		})
	}
	return out, nil
}

type pipAuditDependency struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Vulns   []struct {
		ID          string   `json:"id"`
		FixVersions []string `json:"fix_versions"`
		Description string   `json:"description"`
	} `json:"vulns"`
}

// parsePipAudit parses `pip-audit --format json`. Both the current object
// form and the older bare array form are accepted.
func parsePipAudit(data []byte) ([]Finding, error) {
	payload := jsonPayload(data)
	if len(payload) == 0 {
		return []Finding{}, nil
	}

	var deps []pipAuditDependency
	if payload[0] == '[' {
		if err := json.Unmarshal(payload, &deps); err != nil {
			return nil, fmt.Errorf("pip-audit json: %w", err)
		}
	} else {
		var report struct {
			Dependencies []pipAuditDependency `json:"dependencies"`
		}
		if err := json.Unmarshal(payload, &report); err != nil {
			return nil, fmt.Errorf("pip-audit json: %w", err)
		}
		deps = report.Dependencies
	}

	var out []Finding
	for _, d := range deps {
		for _, v := range d.Vulns {
			msg := fmt.Sprintf("%s %s is vulnerable", d.Name, d.Version)
			if len(v.FixVersions) > 0 {
				msg += "; fixed in " + strings.Join(v.FixVersions, ", ")
			}
			out = append(out, Finding{
				Severity: SeverityError,
				Rule:     v.ID,
				Message:  msg,
			})
		}
	}
	return out, nil
}

// parseDetectSecrets parses a detect-secrets baseline or scan report.
func parseDetectSecrets(data []byte) ([]Finding, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Finding{}, nil
	}

	var report struct {
		Results map[string][]struct {
			Type       string `json:"type"`
			LineNumber int    `json:"line_number"`
		} `json:"results"`
	}
	if err := json.Unmarshal(jsonPayload(data), &report); err != nil {
		return nil, fmt.Errorf("detect-secrets json: %w", err)
	}

	files := make([]string, 0, len(report.Results))
	for file := range report.Results {
		files = append(files, file)
	}
	sort.Strings(files)

	var out []Finding
	for _, file := range files {
		for _, r := range report.Results[file] {
			out = append(out, Finding{
				File:     file,
				Line:     r.LineNumber,
				Severity: SeverityError,
				Rule:     "secret",
				Message:  "potential secret: " + r.Type,
			})
		}
	}
	return out, nil
}

// parseGeneric parses file:line[:col]: [severity[rule]:] message lines.
// Lines that do not match are ignored.
func parseGeneric(data []byte) ([]Finding, error) {
	var out []Finding
	for line := range strings.SplitSeq(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := reGenericLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		sev := SeverityWarning
		switch m[4] {
		case "error":
			sev = SeverityError
		case "info", "note":
			sev = SeverityInfo
		}
		out = append(out, Finding{
			File:     m[1],
			Line:     atoi(m[2]),
			Column:   atoi(m[3]),
			Severity: sev,
			Rule:     m[5],
			Message:  m[6],
		})
	}
	return out, nil
}

// jsonPayload skips any banner text a tool prints before its JSON document.
func jsonPayload(data []byte) []byte {
	data = bytes.TrimSpace(data)
	if i := bytes.IndexAny(data, "[{"); i > 0 {
		return data[i:]
	}
	return data
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
