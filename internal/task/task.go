// Package task implements the developer task surface: fixed sequences of
// quality checks that stop at the first failing step.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rhai-examples/qgate/internal/config"
	"github.com/rhai-examples/qgate/internal/core/git"
	"github.com/rhai-examples/qgate/internal/core/quality"
	"github.com/rhai-examples/qgate/internal/defs"
	"github.com/rhai-examples/qgate/internal/notebook"
)

// Task names.
const (
	Install    = "install"
	InstallDev = "install-dev"
	Format     = "format"
	Lint       = "lint"
	Test       = "test"
	Security   = "security"
	PreCommit  = "pre-commit"
	Notebooks  = "notebooks"
	CheckAll   = "check-all"
	Clean      = "clean"
)

var (
	// ErrUnknownTask indicates a task name that does not exist.
	ErrUnknownTask = errors.New("task: unknown task")

	// ErrNoRepository indicates a task that needs git ran outside a repository.
	ErrNoRepository = errors.New("task: not inside a git repository")

	// ErrAborted indicates the user declined a confirmation.
	ErrAborted = errors.New("task: aborted")
)

// Definition describes a task for listings.
type Definition struct {
	Name        string
	Description string
	Steps       []string
}

// Definitions returns every task in display order.
func Definitions() []Definition {
	return []Definition{
		{Install, "Install the package in editable mode", []string{"pip install -e ."}},
		{InstallDev, "Install with development extras and the git hook", []string{"pip install -e .[dev]", "hook install"}},
		{Format, "Rewrite files with the import sorter and formatter", []string{config.CheckerImportSorter, config.CheckerFormatter}},
		{Lint, "Lint and verify formatting", []string{config.CheckerLinter, config.CheckerFormatter + " --check", config.CheckerImportSorter + " --check"}},
		{Test, "Run the test suite", []string{config.CheckerTests}},
		{Security, "Scan for vulnerabilities and secrets", []string{config.CheckerSecurity, config.CheckerDeps, config.CheckerSecrets}},
		{PreCommit, "Run the quality gate over staged files", []string{"gate.order"}},
		{Notebooks, "Execute every notebook", []string{config.CheckerNotebooks}},
		{CheckAll, "Lint, type check, scan and test", []string{Lint, config.CheckerTypecheck, Security, Test}},
		{Clean, "Remove caches and build output", []string{"clean.patterns"}},
	}
}

// Options parameterizes a task run.
type Options struct {
	// Files restricts file-based checks. Empty means every project file.
	Files []string
	// Python selects the runtime version for the test task.
	Python string
	// CheckIdempotent makes the format task verify a second pass is a no-op.
	CheckIdempotent bool
	// SkipHooks makes install-dev skip the git hook.
	SkipHooks bool
	// ForceHook replaces a foreign pre-commit hook.
	ForceHook bool
	// Restage re-adds files modified by fixers during pre-commit.
	Restage bool
	// Yes skips the clean confirmation.
	Yes bool
	// DryRun lists what clean would remove.
	DryRun bool
}

// ConfirmFunc asks the user to approve removing paths.
type ConfirmFunc func(paths []string) (bool, error)

// Runner executes tasks.
type Runner struct {
	cat        *quality.Catalog
	repo       git.Repository
	observer   quality.Observer
	confirm    ConfirmFunc
	hookBinary string
	logger     *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithRepository sets the git repository. Without one, project files are
// discovered by walking the root and pre-commit is unavailable.
func WithRepository(repo git.Repository) Option {
	return func(r *Runner) { r.repo = repo }
}

// WithObserver sets the progress observer passed to every gate.
func WithObserver(o quality.Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithConfirm sets the confirmation prompt used by clean.
func WithConfirm(fn ConfirmFunc) Option {
	return func(r *Runner) { r.confirm = fn }
}

// WithHookBinary sets the executable the installed hook runs.
func WithHookBinary(path string) Option {
	return func(r *Runner) { r.hookBinary = path }
}

// NewRunner creates a Runner over the checks of cat.
func NewRunner(cat *quality.Catalog, opts ...Option) *Runner {
	r := &Runner{
		cat:        cat,
		hookBinary: "qgate",
		logger:     slog.Default().With("module", "task"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the named task. A failing step ends the task with a
// *quality.CheckFailedError; the report is non-nil whenever steps ran.
func (r *Runner) Run(ctx context.Context, name string, opts Options) (*quality.Report, error) {
	r.logger.Debug("running task", "task", name)

	switch name {
	case Install:
		return quality.NewGate([]quality.Check{r.cat.InstallCheck(false)}, r.gateOptions()...).Run(ctx, nil)
	case InstallDev:
		return r.installDev(ctx, opts)
	case Format:
		return r.format(ctx, opts)
	case Lint:
		return r.runChecks(ctx, opts, lintCheckers...)
	case Test:
		return quality.NewGate([]quality.Check{r.cat.TestCheck(opts.Python)}, r.gateOptions()...).Run(ctx, nil)
	case Security:
		return r.runChecks(ctx, opts, securityCheckers...)
	case PreCommit:
		return r.preCommit(ctx, opts)
	case Notebooks:
		return r.notebooks(ctx, opts)
	case CheckAll:
		return r.checkAll(ctx, opts)
	case Clean:
		return r.clean(ctx, opts)
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownTask)
	}
}

func (r *Runner) gateOptions(extra ...quality.GateOption) []quality.GateOption {
	var opts []quality.GateOption
	if r.observer != nil {
		opts = append(opts, quality.WithObserver(r.observer))
	}
	return append(opts, extra...)
}

func (r *Runner) installDev(ctx context.Context, opts Options) (*quality.Report, error) {
	steps := []quality.Check{r.cat.InstallCheck(true)}
	if !opts.SkipHooks {
		steps = append(steps, r.hookCheck(opts.ForceHook))
	}
	return quality.NewGate(steps, r.gateOptions()...).Run(ctx, nil)
}

// hookCheck installs the pre-commit hook as a task step.
func (r *Runner) hookCheck(force bool) quality.Check {
	return quality.NewFuncCheck("hook install", func(ctx context.Context) (string, error) {
		path, err := r.InstallHook(ctx, force)
		if err != nil {
			return "", err
		}
		return "installed " + path, nil
	})
}

// InstallHook writes the pre-commit hook running this binary.
func (r *Runner) InstallHook(ctx context.Context, force bool) (string, error) {
	if r.repo == nil {
		return "", ErrNoRepository
	}
	return r.repo.InstallHook(ctx, defs.PreCommitHook, git.PreCommitScript(r.hookBinary), force)
}

func (r *Runner) format(ctx context.Context, opts Options) (*quality.Report, error) {
	files, err := r.files(ctx, opts)
	if err != nil {
		return nil, err
	}
	fixers := r.cat.Fixers()
	report, err := quality.NewGate(fixers, r.gateOptions()...).Run(ctx, files)
	if err != nil || !opts.CheckIdempotent {
		return report, err
	}
	if _, err := quality.VerifyUnchanged(ctx, fixers, files); err != nil {
		report.Passed = false
		return report, err
	}
	return report, nil
}

var (
	lintCheckers     = []string{config.CheckerLinter, config.CheckerFormatter, config.CheckerImportSorter}
	securityCheckers = []string{config.CheckerSecurity, config.CheckerDeps, config.CheckerSecrets}
)

// checks builds catalog checks in check mode.
func (r *Runner) checks(names ...string) ([]quality.Check, error) {
	out := make([]quality.Check, 0, len(names))
	for _, name := range names {
		chk, err := r.cat.Check(name, quality.ModeCheck)
		if err != nil {
			return nil, err
		}
		out = append(out, chk)
	}
	return out, nil
}

func (r *Runner) runChecks(ctx context.Context, opts Options, names ...string) (*quality.Report, error) {
	steps, err := r.checks(names...)
	if err != nil {
		return nil, err
	}
	return r.runFiles(ctx, opts, steps)
}

func (r *Runner) runFiles(ctx context.Context, opts Options, steps []quality.Check) (*quality.Report, error) {
	files, err := r.files(ctx, opts)
	if err != nil {
		return nil, err
	}
	return quality.NewGate(steps, r.gateOptions()...).Run(ctx, files)
}

func (r *Runner) preCommit(ctx context.Context, opts Options) (*quality.Report, error) {
	if r.repo == nil {
		return nil, ErrNoRepository
	}
	files := opts.Files
	if len(files) == 0 {
		staged, err := r.repo.StagedFiles(ctx)
		if err != nil {
			return nil, fmt.Errorf("list staged files: %w", err)
		}
		files = staged
	}
	if len(files) == 0 {
		r.logger.Info("no staged files")
		return &quality.Report{Passed: true}, nil
	}

	checks, err := r.cat.GateChecks(quality.ModeFix)
	if err != nil {
		return nil, err
	}
	policy := quality.ModifyFail
	if opts.Restage || r.cat.Config().Gate.Restage {
		policy = quality.ModifyRestage
	}
	gate := quality.NewGate(checks, r.gateOptions(
		quality.WithModifyPolicy(policy),
		quality.WithStager(r.repo),
	)...)
	return gate.Run(ctx, files)
}

func (r *Runner) notebookCheck() quality.Check {
	cfg := r.cat.Config()
	return notebook.NewCheck(r.cat.Root(), cfg.Notebooks, cfg.Paths.Exclude, r.cat.Runner())
}

func (r *Runner) notebooks(ctx context.Context, opts Options) (*quality.Report, error) {
	return quality.NewGate([]quality.Check{r.notebookCheck()}, r.gateOptions()...).Run(ctx, opts.Files)
}

func (r *Runner) checkAll(ctx context.Context, opts Options) (*quality.Report, error) {
	names := append(append(append([]string{}, lintCheckers...), config.CheckerTypecheck), securityCheckers...)
	steps, err := r.checks(names...)
	if err != nil {
		return nil, err
	}
	steps = append(steps, r.cat.TestCheck(opts.Python))
	return r.runFiles(ctx, opts, steps)
}

func (r *Runner) clean(ctx context.Context, opts Options) (*quality.Report, error) {
	cfg := r.cat.Config()
	cleaner := NewCleaner(r.cat.Root(), cfg.Clean.Patterns, cfg.Paths.Exclude)

	step := quality.NewFuncCheck(Clean, func(context.Context) (string, error) {
		paths, err := cleaner.Find()
		if err != nil {
			return "", err
		}
		if len(paths) == 0 {
			return "nothing to clean", nil
		}
		if opts.DryRun {
			return "would remove:\n" + joinLines(paths), nil
		}
		if !opts.Yes && r.confirm != nil {
			ok, err := r.confirm(paths)
			if err != nil {
				return "", err
			}
			if !ok {
				return "", ErrAborted
			}
		}
		removed, err := cleaner.Remove(paths)
		if err != nil {
			return "", err
		}
		return "removed:\n" + joinLines(removed), nil
	})
	return quality.NewGate([]quality.Check{step}, r.gateOptions()...).Run(ctx, nil)
}
