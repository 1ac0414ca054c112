// Package quality runs checkers over project files and enforces the local
// quality gate.
//
// A Check wraps one external tool or the built-in secret scan. The Gate runs
// checks sequentially in a fixed order and aborts on the first failure.
package quality

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rhai-examples/qgate/internal/config"
	"github.com/rhai-examples/qgate/internal/finding"
	"github.com/rhai-examples/qgate/internal/tool"
)

// Kind distinguishes auto-fixers from read-only checkers.
type Kind string

const (
	// KindFixer rewrites files in place.
	KindFixer Kind = "fixer"
	// KindChecker only reports.
	KindChecker Kind = "checker"
)

// Status is the outcome of a check.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// CheckResult is the outcome of running one check.
type CheckResult struct {
	Name     string            `json:"name"`
	Kind     Kind              `json:"kind"`
	Status   Status            `json:"status"`
	ExitCode int               `json:"exit_code"`
	Command  []string          `json:"command,omitempty"`
	Output   string            `json:"output,omitempty"`
	Findings []finding.Finding `json:"findings,omitempty"`
	// Modified lists files a fixer changed, relative to the project root.
	Modified []string      `json:"modified,omitempty"`
	Files    int           `json:"files"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Passed reports whether the check passed or was skipped.
func (r *CheckResult) Passed() bool {
	return r.Status != StatusFailed
}

// Check is a single quality check.
type Check interface {
	Name() string
	Kind() Kind
	// Run checks files, given relative to the project root. Checks that do
	// not operate on files ignore the argument.
	Run(ctx context.Context, files []string) *CheckResult
}

// ToolCheckOptions configures a check backed by an external tool.
type ToolCheckOptions struct {
	// Root is the project root and the tool's working directory.
	Root   string
	Runner tool.Runner
	// Args overrides the tool's configured Args when non-nil.
	Args []string
	// Vars are scalar placeholder values.
	Vars map[string]string
	// Lists are list placeholder values other than {files}.
	Lists map[string][]string
	// Exclude lists directory names whose files are never passed to the tool.
	Exclude []string
	// Env is appended to the tool environment.
	Env []string
}

// toolCheck runs an external tool once over the filtered file set.
type toolCheck struct {
	name     string
	kind     Kind
	cfg      config.ToolConfig
	opts     ToolCheckOptions
	args     []string
	detector *ChangeDetector
	logger   *slog.Logger
}

// Compile-time interface compliance checks.
var (
	_ Check  = (*toolCheck)(nil)
	_ Scoped = (*toolCheck)(nil)
)

// NewToolCheck creates a Check that runs cfg with opts.
func NewToolCheck(name string, kind Kind, cfg config.ToolConfig, opts ToolCheckOptions) Check {
	args := cfg.Args
	if opts.Args != nil {
		args = opts.Args
	}
	return &toolCheck{
		name:     name,
		kind:     kind,
		cfg:      cfg,
		opts:     opts,
		args:     args,
		detector: NewChangeDetector(),
		logger:   slog.Default().With("module", "quality", "check", name),
	}
}

func (c *toolCheck) Name() string { return c.name }
func (c *toolCheck) Kind() Kind   { return c.kind }

// Scope returns the files the tool is given. Tools that do not take a file
// list have an empty scope.
func (c *toolCheck) Scope(files []string) []string {
	if !tool.UsesList(c.args, "files") {
		return nil
	}
	return FilterFiles(files, c.cfg.Extensions, c.opts.Exclude)
}

// Run executes the tool. A tool whose arguments reference {files} is skipped
// when no file survives filtering.
func (c *toolCheck) Run(ctx context.Context, files []string) *CheckResult {
	res := &CheckResult{Name: c.name, Kind: c.kind}

	lists := make(map[string][]string, len(c.opts.Lists)+1)
	for k, v := range c.opts.Lists {
		lists[k] = v
	}
	if tool.UsesList(c.args, "files") {
		matched := c.Scope(files)
		if len(matched) == 0 {
			res.Status = StatusSkipped
			res.Reason = "no matching files"
			return res
		}
		lists["files"] = matched
		res.Files = len(matched)
	}

	var before map[string][]byte
	if c.kind == KindFixer {
		before = c.detector.Snapshot(c.opts.Root, lists["files"])
	}

	spec := tool.Spec{
		Name:    c.name,
		Command: c.cfg.Command,
		Args:    c.args,
		Vars:    c.opts.Vars,
		Lists:   lists,
		Env:     c.opts.Env,
		Dir:     c.opts.Root,
		Timeout: time.Duration(c.cfg.TimeoutSeconds) * time.Second,
	}
	out := c.opts.Runner.Run(ctx, spec)

	res.Command = out.Command
	res.ExitCode = out.ExitCode
	res.Output = out.Output()
	res.Duration = out.Duration
	res.Err = out.Err
	if out.Err != nil && res.Output == "" {
		res.Output = out.Err.Error()
	}

	if out.Passed() {
		res.Status = StatusPassed
	} else {
		res.Status = StatusFailed
	}

	if before != nil {
		res.Modified = c.detector.Changed(c.opts.Root, before)
	}

	res.Findings = c.parse(out)
	return res
}

// parse extracts findings. JSON formats are read from stdout only so that
// progress chatter on stderr does not break decoding.
func (c *toolCheck) parse(out *tool.Result) []finding.Finding {
	raw := out.Output()
	if strings.HasSuffix(c.cfg.Format, "-json") {
		raw = out.Stdout
	}
	findings, err := finding.Parse(c.cfg.Format, c.name, []byte(raw))
	if err != nil {
		c.logger.Debug("could not parse tool output", "format", c.cfg.Format, "error", err)
		return nil
	}
	finding.Relativize(findings, c.opts.Root)
	return findings
}

// Scoped is implemented by checks that look at a subset of the files they
// are given.
type Scoped interface {
	Scope(files []string) []string
}

// skippedCheck reports a check that cannot run, with the reason.
type skippedCheck struct {
	name   string
	kind   Kind
	reason string
}

func (c *skippedCheck) Name() string            { return c.name }
func (c *skippedCheck) Scope([]string) []string { return nil }
func (c *skippedCheck) Kind() Kind              { return c.kind }

func (c *skippedCheck) Run(context.Context, []string) *CheckResult {
	return &CheckResult{Name: c.name, Kind: c.kind, Status: StatusSkipped, Reason: c.reason}
}

// FilterFiles keeps files whose extension is in exts (all files when exts is
// empty) and that do not live under an excluded directory name.
func FilterFiles(files, exts, exclude []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		if len(exts) > 0 && !slices.Contains(exts, strings.ToLower(filepath.Ext(f))) {
			continue
		}
		if isExcluded(f, exclude) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isExcluded(file string, exclude []string) bool {
	if len(exclude) == 0 {
		return false
	}
	parts := strings.Split(filepath.ToSlash(filepath.Dir(file)), "/")
	for _, p := range parts {
		if slices.Contains(exclude, p) {
			return true
		}
	}
	return false
}

// insertBeforeFiles inserts extra arguments before the {files} placeholder,
// or appends them when there is none.
func insertBeforeFiles(args []string, extra ...string) []string {
	out := make([]string, 0, len(args)+len(extra))
	idx := slices.Index(args, "{files}")
	if idx < 0 {
		out = append(out, args...)
		return append(out, extra...)
	}
	out = append(out, args[:idx]...)
	out = append(out, extra...)
	return append(out, args[idx:]...)
}

// describe renders a one-line summary for logs.
func (r *CheckResult) describe() string {
	return fmt.Sprintf("%s %s (exit %d, %d files, %s)", r.Name, r.Status, r.ExitCode, r.Files, r.Duration.Round(time.Millisecond))
}
