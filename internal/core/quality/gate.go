package quality

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/rhai-examples/qgate/internal/finding"
)

// ErrFilesModified indicates a fixer changed files while the gate was not
// allowed to keep the changes silently.
var ErrFilesModified = errors.New("quality: files were modified")

// ErrNotIdempotent indicates a second fixer pass still changed files.
var ErrNotIdempotent = errors.New("quality: fixers are not idempotent")

// CheckFailedError reports the first failing check of a run.
type CheckFailedError struct {
	Check    string
	ExitCode int
	// Output is the verbatim tool output.
	Output string
	Err    error
}

func (e *CheckFailedError) Error() string {
	msg := fmt.Sprintf("check %s failed", e.Check)
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CheckFailedError) Unwrap() error {
	return e.Err
}

// ModifyPolicy decides what happens when a fixer modifies files.
type ModifyPolicy int

const (
	// ModifyAllow keeps the modification and continues.
	ModifyAllow ModifyPolicy = iota
	// ModifyRestage re-adds modified files to the index and continues.
	ModifyRestage
	// ModifyFail keeps the modification but fails the run, like pre-commit.
	ModifyFail
)

// Stager re-adds files to the version control index.
type Stager interface {
	Add(ctx context.Context, paths ...string) error
}

// Observer is notified as checks start and finish. files is the number of
// files the check will look at.
type Observer interface {
	CheckStarted(name string, files int)
	CheckFinished(res *CheckResult)
}

// Report is the outcome of a gate run.
type Report struct {
	Results  []*CheckResult `json:"results"`
	Passed   bool           `json:"passed"`
	Failed   string         `json:"failed,omitempty"`
	Modified []string       `json:"modified,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Gate runs checks sequentially in a fixed order.
type Gate struct {
	checks   []Check
	policy   ModifyPolicy
	stager   Stager
	observer Observer
	logger   *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithModifyPolicy sets how fixer modifications are handled.
func WithModifyPolicy(p ModifyPolicy) GateOption {
	return func(g *Gate) { g.policy = p }
}

// WithStager sets the index stager used by ModifyRestage.
func WithStager(s Stager) GateOption {
	return func(g *Gate) { g.stager = s }
}

// WithObserver sets a progress observer.
func WithObserver(o Observer) GateOption {
	return func(g *Gate) { g.observer = o }
}

// NewGate creates a Gate over checks, run in the given order.
func NewGate(checks []Check, opts ...GateOption) *Gate {
	g := &Gate{
		checks: checks,
		policy: ModifyAllow,
		logger: slog.Default().With("module", "gate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run executes every check over files and stops at the first failure. The
// returned error is a *CheckFailedError when a check failed; the report is
// always non-nil.
func (g *Gate) Run(ctx context.Context, files []string) (*Report, error) {
	start := time.Now()
	report := &Report{Passed: true}
	defer func() { report.Duration = time.Since(start) }()

	for _, chk := range g.checks {
		if err := ctx.Err(); err != nil {
			report.Passed = false
			return report, err
		}

		if g.observer != nil {
			g.observer.CheckStarted(chk.Name(), scopeSize(chk, files))
		}
		res := chk.Run(ctx, files)
		report.Results = append(report.Results, res)
		report.Modified = appendUnique(report.Modified, res.Modified...)

		if res.Status == StatusPassed && len(res.Modified) > 0 {
			g.handleModified(ctx, res)
		}
		if g.observer != nil {
			g.observer.CheckFinished(res)
		}
		g.logger.Debug("check finished", "result", res.describe())

		if res.Status == StatusFailed {
			report.Passed = false
			report.Failed = res.Name
			return report, &CheckFailedError{
				Check:    res.Name,
				ExitCode: res.ExitCode,
				Output:   res.Output,
				Err:      res.Err,
			}
		}
	}
	return report, nil
}

// handleModified applies the modify policy, flipping res to failed when the
// policy requires it.
func (g *Gate) handleModified(ctx context.Context, res *CheckResult) {
	switch g.policy {
	case ModifyRestage:
		if g.stager == nil {
			return
		}
		if err := g.stager.Add(ctx, res.Modified...); err != nil {
			res.Status = StatusFailed
			res.Err = fmt.Errorf("restage: %w", err)
			res.Output = strings.TrimSpace(res.Output + "\n" + res.Err.Error())
			return
		}
		g.logger.Info("restaged files modified by fixer", "check", res.Name, "files", len(res.Modified))
	case ModifyFail:
		res.Status = StatusFailed
		res.ExitCode = 1
		res.Err = fmt.Errorf("%w by %s: %s", ErrFilesModified, res.Name, strings.Join(res.Modified, ", "))
		res.Output = strings.TrimSpace(res.Output + "\n" + res.Err.Error())
	}
}

// Idempotent runs fixers twice over files. The second pass must not change
// anything; otherwise ErrNotIdempotent is returned with the files changed.
func Idempotent(ctx context.Context, fixers []Check, files []string) ([]string, error) {
	if _, err := NewGate(fixers).Run(ctx, files); err != nil {
		return nil, err
	}
	return VerifyUnchanged(ctx, fixers, files)
}

// VerifyUnchanged runs fixers once more and fails with ErrNotIdempotent when
// any of them still modifies files.
func VerifyUnchanged(ctx context.Context, fixers []Check, files []string) ([]string, error) {
	report, err := NewGate(fixers).Run(ctx, files)
	if err != nil {
		return nil, err
	}
	if len(report.Modified) > 0 {
		return report.Modified, fmt.Errorf("%w: %s", ErrNotIdempotent, strings.Join(report.Modified, ", "))
	}
	return nil, nil
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		if !slices.Contains(dst, it) {
			dst = append(dst, it)
		}
	}
	return dst
}

// Collect runs every check over files without stopping at failures and
// returns all results in order. Fixers must be in check mode.
func Collect(ctx context.Context, checks []Check, files []string) []*CheckResult {
	results := make([]*CheckResult, 0, len(checks))
	for _, chk := range checks {
		if ctx.Err() != nil {
			break
		}
		results = append(results, chk.Run(ctx, files))
	}
	return results
}

// Findings flattens the findings of results.
func Findings(results []*CheckResult) []finding.Finding {
	var all []finding.Finding
	for _, res := range results {
		all = append(all, res.Findings...)
	}
	return all
}

// scopeSize returns how many of files chk looks at.
func scopeSize(chk Check, files []string) int {
	if s, ok := chk.(Scoped); ok {
		return len(s.Scope(files))
	}
	return len(files)
}
