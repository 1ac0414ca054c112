package finding

import (
	"errors"
	"fmt"
	"sort"
)

// Output format names accepted in tool configuration.
const (
	FormatRuffJSON      = "ruff-json"
	FormatMypy          = "mypy"
	FormatBanditJSON    = "bandit-json"
	FormatBlack         = "black"
	FormatIsort         = "isort"
	FormatPipAuditJSON  = "pip-audit-json"
	FormatDetectSecrets = "detect-secrets-json"
	FormatText          = "text"
)

// ErrUnknownFormat indicates an output format without a parser.
var ErrUnknownFormat = errors.New("finding: unknown output format")

// ParserFunc converts raw tool output into findings.
type ParserFunc func(output []byte) ([]Finding, error)

var parsers = map[string]ParserFunc{
	FormatRuffJSON:      parseRuff,
	FormatMypy:          parseMypy,
	FormatBanditJSON:    parseBandit,
	FormatBlack:         parseBlack,
	FormatIsort:         parseIsort,
	FormatPipAuditJSON:  parsePipAudit,
	FormatDetectSecrets: parseDetectSecrets,
	FormatText:          parseGeneric,
	"":                  parseGeneric,
}

// Parse converts output produced by tool in the named format into findings.
// Every finding carries tool as its Tool field.
func Parse(format, tool string, output []byte) ([]Finding, error) {
	p, ok := parsers[format]
	if !ok {
		return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
	findings, err := p(output)
	if err != nil {
		return nil, fmt.Errorf("parse %s output: %w", tool, err)
	}
	for i := range findings {
		if findings[i].Tool == "" {
			findings[i].Tool = tool
		}
	}
	return findings, nil
}

// Formats returns the supported format names in sorted order.
func Formats() []string {
	names := make([]string, 0, len(parsers))
	for name := range parsers {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
