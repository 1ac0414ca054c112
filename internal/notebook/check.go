package notebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rhai-examples/qgate/internal/config"
	"github.com/rhai-examples/qgate/internal/core/quality"
	"github.com/rhai-examples/qgate/internal/finding"
	"github.com/rhai-examples/qgate/internal/tool"
)

// Check executes every discovered notebook. Unlike gate checks it does not
// stop at the first failing notebook; all failures are reported.
type Check struct {
	root    string
	cfg     config.NotebooksConfig
	exclude []string
	runner  tool.Runner
	logger  *slog.Logger
}

// Compile-time interface compliance check.
var _ quality.Check = (*Check)(nil)

// NewCheck creates the notebook execution check.
func NewCheck(root string, cfg config.NotebooksConfig, exclude []string, runner tool.Runner) *Check {
	return &Check{
		root:    root,
		cfg:     cfg,
		exclude: exclude,
		runner:  runner,
		logger:  slog.Default().With("module", "notebook"),
	}
}

func (c *Check) Name() string       { return config.CheckerNotebooks }
func (c *Check) Kind() quality.Kind { return quality.KindChecker }

// Spec builds the executor invocation for one notebook.
func (c *Check) Spec(notebook, outputDir string) tool.Spec {
	return tool.Spec{
		Name:    "execute " + notebook,
		Command: c.cfg.Executor.Command,
		Args:    c.cfg.Executor.Args,
		Vars: map[string]string{
			"timeout":    strconv.Itoa(c.cfg.TimeoutSeconds),
			"output_dir": outputDir,
			"file":       notebook,
		},
		Dir:     c.root,
		Timeout: time.Duration(c.cfg.Executor.TimeoutSeconds) * time.Second,
	}
}

// Run executes the notebooks. When files is non-empty only discovered
// notebooks that appear in files are executed.
func (c *Check) Run(ctx context.Context, files []string) *quality.CheckResult {
	res := &quality.CheckResult{Name: c.Name(), Kind: quality.KindChecker}
	if !c.cfg.Executor.Enabled {
		res.Status = quality.StatusSkipped
		res.Reason = "disabled"
		return res
	}

	notebooks, err := Discover(c.root, c.cfg.Paths, c.cfg.Skip, c.exclude)
	if err != nil {
		res.Status = quality.StatusFailed
		res.ExitCode = 2
		res.Err = err
		res.Output = err.Error()
		return res
	}
	if len(files) > 0 {
		notebooks = slices.DeleteFunc(notebooks, func(nb string) bool {
			return !slices.Contains(files, nb)
		})
	}
	if len(notebooks) == 0 {
		res.Status = quality.StatusSkipped
		res.Reason = "no notebooks"
		return res
	}
	res.Files = len(notebooks)

	outDir, err := os.MkdirTemp("", "qgate-notebooks-")
	if err != nil {
		res.Status = quality.StatusFailed
		res.Err = fmt.Errorf("create output dir: %w", err)
		res.Output = res.Err.Error()
		return res
	}
	defer func() { _ = os.RemoveAll(outDir) }()

	start := time.Now()
	var failures []string
	for _, nb := range notebooks {
		if err := ctx.Err(); err != nil {
			res.Err = err
			failures = append(failures, nb+": "+err.Error())
			break
		}
		if err := Validate(filepath.Join(c.root, nb)); err != nil {
			res.Findings = append(res.Findings, notebookFinding(nb, "invalid", err.Error()))
			failures = append(failures, nb+": "+err.Error())
			continue
		}

		out := c.runner.Run(ctx, c.Spec(nb, outDir))
		if out.Passed() {
			c.logger.Debug("notebook executed", "notebook", nb, "duration", out.Duration.String())
			continue
		}
		msg := lastLine(out.Output())
		if out.Err != nil {
			msg = out.Err.Error()
		}
		res.Findings = append(res.Findings, notebookFinding(nb, "execution", msg))
		failures = append(failures, fmt.Sprintf("%s: exit %d\n%s", nb, out.ExitCode, out.Output()))
		if errors.Is(out.Err, context.Canceled) {
			res.Err = out.Err
			break
		}
	}
	res.Duration = time.Since(start)

	if len(failures) == 0 {
		res.Status = quality.StatusPassed
		return res
	}
	res.Status = quality.StatusFailed
	res.ExitCode = 1
	res.Output = fmt.Sprintf("%d of %d notebooks failed\n%s", len(failures), len(notebooks), strings.Join(failures, "\n"))
	return res
}

func notebookFinding(nb, rule, msg string) finding.Finding {
	return finding.Finding{
		Tool:     config.CheckerNotebooks,
		File:     nb,
		Severity: finding.SeverityError,
		Rule:     rule,
		Message:  msg,
	}
}

// lastLine returns the last non-empty line, where nbconvert reports the
// cell error.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return "execution failed"
}
