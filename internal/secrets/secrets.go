// Package secrets implements the built-in secret pattern scan run by the
// pre-commit gate and the security task.
package secrets

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rhai-examples/qgate/internal/finding"
)

// ToolName identifies findings produced by the scanner.
const ToolName = "secrets"

// AllowlistPragma on a line suppresses any match on that line.
const AllowlistPragma = "pragma: allowlist secret"

// binarySniffLen is how many leading bytes are inspected for NUL bytes.
const binarySniffLen = 8000

// ErrInvalidPattern indicates an extra pattern that does not compile.
var ErrInvalidPattern = errors.New("secrets: invalid pattern")

// Rule is a single secret pattern.
type Rule struct {
	ID          string
	Description string
	Pattern     *regexp.Regexp
}

var defaultRules = []struct {
	id, desc, pattern string
}{
	{"private-key", "private key block", `-----BEGIN\s+(?:RSA\s+|EC\s+|DSA\s+|OPENSSH\s+|PGP\s+)?PRIVATE\s+KEY(?:\s+BLOCK)?-----`},
	{"aws-access-key", "AWS access key id", `\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`},
	{"aws-secret-key", "AWS secret access key", `(?i)aws_?secret_?access_?key\s*[:=]\s*["']?[A-Za-z0-9/+=]{40}\b`},
	{"github-token", "GitHub token", `\bgh[pousr]_[A-Za-z0-9]{36}\b`},
	{"github-pat", "GitHub fine-grained token", `\bgithub_pat_[A-Za-z0-9_]{22,}\b`},
	{"gitlab-token", "GitLab token", `\bglpat-[A-Za-z0-9\-_]{20}\b`},
	{"huggingface-token", "HuggingFace token", `\bhf_[A-Za-z0-9]{34}\b`},
	{"slack-token", "Slack token", `\bxox[baprs]-[A-Za-z0-9\-]{10,}`},
	{"openai-key", "OpenAI API key", `\bsk-[A-Za-z0-9]{32,}\b`},
	{"google-oauth", "Google OAuth token", `\bya29\.[A-Za-z0-9_\-]{20,}`},
	{"generic-assignment", "hard-coded credential", `(?i)\b(?:password|passwd|secret|token|api_?key)\s*[:=]\s*["'][^"'\s]{8,}["']`},
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, len(defaultRules))
	for _, r := range defaultRules {
		rules = append(rules, Rule{ID: r.id, Description: r.desc, Pattern: regexp.MustCompile(r.pattern)})
	}
	return rules
}

// Options configures a Scanner.
type Options struct {
	// ExtraPatterns are additional regular expressions, reported as
	// rule "custom-N".
	ExtraPatterns []string
	// AllowPaths are slash-separated globs or directory prefixes whose files
	// are never scanned.
	AllowPaths []string
	// MaxFileBytes skips larger files. Zero means no limit.
	MaxFileBytes int64
}

// Scanner matches file contents against secret rules.
type Scanner struct {
	rules      []Rule
	allowPaths []string
	maxBytes   int64
	logger     *slog.Logger
}

// NewScanner builds a Scanner with the default rules plus opts.ExtraPatterns.
func NewScanner(opts Options) (*Scanner, error) {
	rules := DefaultRules()
	for i, p := range opts.ExtraPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w: %v", p, ErrInvalidPattern, err)
		}
		rules = append(rules, Rule{
			ID:          fmt.Sprintf("custom-%d", i+1),
			Description: "custom secret pattern",
			Pattern:     re,
		})
	}
	return &Scanner{
		rules:      rules,
		allowPaths: opts.AllowPaths,
		maxBytes:   opts.MaxFileBytes,
		logger:     slog.Default().With("module", "secrets"),
	}, nil
}

// Scan checks each file under root. File paths are relative to root and are
// reported as given. Missing files are skipped since deletions show up in
// staged file lists.
func (s *Scanner) Scan(ctx context.Context, root string, files []string) ([]finding.Finding, error) {
	var out []finding.Finding
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if s.allowed(f) {
			continue
		}
		found, err := s.ScanFile(filepath.Join(root, f))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return out, err
		}
		for i := range found {
			found[i].File = filepath.ToSlash(f)
		}
		out = append(out, found...)
	}
	return out, nil
}

// ScanFile checks a single file. Binary and oversized files yield nothing.
func (s *Scanner) ScanFile(name string) ([]finding.Finding, error) {
	fh, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = fh.Close() }()

	info, err := fh.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, nil
	}
	if s.maxBytes > 0 && info.Size() > s.maxBytes {
		s.logger.Debug("skipping large file", "file", name, "size", info.Size())
		return nil, nil
	}

	br := bufio.NewReaderSize(fh, binarySniffLen)
	head, err := br.Peek(binarySniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return nil, nil
	}

	found, err := s.scanReader(br)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", name, err)
	}
	for i := range found {
		found[i].File = name
	}
	return found, nil
}

func (s *Scanner) scanReader(r io.Reader) ([]finding.Finding, error) {
	var out []finding.Finding
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.Contains(line, AllowlistPragma) {
			continue
		}
		for _, rule := range s.rules {
			loc := rule.Pattern.FindStringIndex(line)
			if loc == nil {
				continue
			}
			out = append(out, finding.Finding{
				Tool:     ToolName,
				Line:     lineNo,
				Column:   loc[0] + 1,
				Severity: finding.SeverityError,
				Rule:     rule.ID,
				Message:  "potential secret: " + rule.Description,
			})
			// One finding per line is enough to reject it.
			break
		}
	}
	return out, sc.Err()
}

func (s *Scanner) allowed(file string) bool {
	p := filepath.ToSlash(file)
	for _, allow := range s.allowPaths {
		if ok, _ := path.Match(allow, p); ok {
			return true
		}
		prefix := strings.TrimSuffix(allow, "/") + "/"
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Format renders findings one per line in file:line:col: error[rule]: message
// form. The matched text itself is never printed.
func Format(findings []finding.Finding) string {
	var sb strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&sb, "%s:%d:%d: %s[%s]: %s\n", f.File, f.Line, f.Column, f.Severity, f.Rule, f.Message)
	}
	return sb.String()
}
