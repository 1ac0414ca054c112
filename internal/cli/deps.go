package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/muesli/termenv"

	"github.com/rhai-examples/qgate/internal/config"
	"github.com/rhai-examples/qgate/internal/core/git"
	"github.com/rhai-examples/qgate/internal/core/quality"
	"github.com/rhai-examples/qgate/internal/github"
	"github.com/rhai-examples/qgate/internal/resilience"
	"github.com/rhai-examples/qgate/internal/task"
	"github.com/rhai-examples/qgate/internal/tool"
	"github.com/rhai-examples/qgate/internal/ui"
)

// Dependencies holds the services used by CLI commands. It is the
// composition root: the only place where concrete types are wired.
type Dependencies struct {
	Root       string
	Config     *config.Config
	ConfigPath string

	// Repo is nil outside a git work tree.
	Repo     git.Repository
	Runner   tool.Runner
	Catalog  *quality.Catalog
	Theme    *ui.Theme
	Headless *ui.HeadlessManager
	Progress ui.Progress

	// NewGitHub creates a GitHub client for repo ("owner/name", or empty
	// for the repository of the working directory).
	NewGitHub func(repo string) github.Client

	// Binary is the executable installed into git hooks.
	Binary string
	Logger *slog.Logger
}

// deps is the global dependencies instance, initialized by InitDependencies.
var deps *Dependencies

// SetDeps replaces the global dependencies (used for testing).
func SetDeps(d *Dependencies) {
	deps = d
}

// InitDependencies loads configuration, installs the default logger and
// wires every service for the project containing the working directory.
func InitDependencies(flags globalFlags) error {
	cwd := flags.dir
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		cwd = wd
	}
	cwd, err := filepath.Abs(cwd)
	if err != nil {
		return fmt.Errorf("resolve directory: %w", err)
	}

	root := cwd
	var repo git.Repository
	gm, err := git.NewRepository(cwd)
	switch {
	case err == nil:
		repo = gm
		root = gm.Root()
	case errors.Is(err, git.ErrNotRepository), errors.Is(err, git.ErrSystemGitNotFound):
	default:
		return fmt.Errorf("open git repository: %w", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(root, flags.configPath)
	if err != nil {
		return err
	}
	if flags.logLevel != "" {
		cfg.System.LogLevel = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.System.LogFormat = flags.logFormat
	}
	if flags.noColor {
		cfg.System.NoColor = true
	}

	logger, err := newLogger(os.Stderr, cfg.System.LogLevel, cfg.System.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	d, err := NewDependencies(root, cfg, repo, tool.NewRunner())
	if err != nil {
		return err
	}
	d.ConfigPath = loader.Path()
	if exe, err := os.Executable(); err == nil {
		d.Binary = exe
	}
	deps = d
	return nil
}

// NewDependencies wires services around cfg. repo may be nil.
func NewDependencies(root string, cfg *config.Config, repo git.Repository, runner tool.Runner) (*Dependencies, error) {
	cat, err := quality.NewCatalog(cfg, root, runner)
	if err != nil {
		return nil, fmt.Errorf("build check catalog: %w", err)
	}

	noColor := cfg.System.NoColor || termenv.EnvNoColor()
	theme := ui.NewTheme(noColor)
	hm := ui.NewHeadlessManager()
	if noColor {
		hm.ForceHeadless(true)
	}

	policy := resilience.DefaultPolicy("github",
		cfg.Review.MaxRetries,
		time.Duration(cfg.Review.RetryDelayMillis)*time.Millisecond,
	)

	return &Dependencies{
		Root:     root,
		Config:   cfg,
		Repo:     repo,
		Runner:   runner,
		Catalog:  cat,
		Theme:    theme,
		Headless: hm,
		Progress: ui.NewProgress(theme, hm),
		NewGitHub: func(name string) github.Client {
			return github.NewGHClient(root, name, policy)
		},
		Binary: "qgate",
		Logger: slog.Default().With("module", "cli"),
	}, nil
}

// TaskRunner creates a task runner reporting progress to out.
func (d *Dependencies) TaskRunner(out io.Writer) *task.Runner {
	opts := []task.Option{
		task.WithObserver(ui.NewGateObserver(d.Theme, d.Progress, out)),
		task.WithHookBinary(d.Binary),
		task.WithConfirm(func(paths []string) (bool, error) {
			title := fmt.Sprintf("Remove %d path(s)?", len(paths))
			return ui.Confirm(d.Theme, d.Headless, title, "", false)
		}),
	}
	if d.Repo != nil {
		opts = append(opts, task.WithRepository(d.Repo))
	}
	return task.NewRunner(d.Catalog, opts...)
}

// errNotInitialized is returned when a command runs without dependencies.
var errNotInitialized = errors.New("cli: dependencies not initialized")

func requireDeps() (*Dependencies, error) {
	if deps == nil {
		return nil, errNotInitialized
	}
	return deps, nil
}
