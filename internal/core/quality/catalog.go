package quality

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rhai-examples/qgate/internal/config"
	"github.com/rhai-examples/qgate/internal/secrets"
	"github.com/rhai-examples/qgate/internal/tool"
)

// Mode selects how fixers run.
type Mode int

const (
	// ModeFix lets fixers rewrite files.
	ModeFix Mode = iota
	// ModeCheck runs fixers with their check arguments; they only report.
	ModeCheck
)

// ErrUnknownCheck indicates a check name the catalog cannot build.
var ErrUnknownCheck = errors.New("quality: unknown check")

// Catalog builds checks from configuration.
type Catalog struct {
	cfg     *config.Config
	root    string
	runner  tool.Runner
	scanner *secrets.Scanner
}

// NewCatalog creates a Catalog for the project at root.
func NewCatalog(cfg *config.Config, root string, runner tool.Runner) (*Catalog, error) {
	sec := cfg.Security.Secrets
	scanner, err := secrets.NewScanner(secrets.Options{
		ExtraPatterns: sec.ExtraPatterns,
		AllowPaths:    sec.AllowPaths,
		MaxFileBytes:  sec.MaxFileBytes,
	})
	if err != nil {
		return nil, err
	}
	return &Catalog{cfg: cfg, root: root, runner: runner, scanner: scanner}, nil
}

// Root returns the project root the catalog's checks run in.
func (c *Catalog) Root() string { return c.root }

// Runner returns the tool runner shared by the catalog's checks.
func (c *Catalog) Runner() tool.Runner { return c.runner }

// Config returns the configuration the catalog was built from.
func (c *Catalog) Config() *config.Config { return c.cfg }

// Check builds the named check.
func (c *Catalog) Check(name string, mode Mode) (Check, error) {
	switch name {
	case config.CheckerSecrets:
		if !c.cfg.Security.Secrets.Enabled {
			return &skippedCheck{name: name, kind: KindChecker, reason: "disabled"}, nil
		}
		return NewSecretsCheck(c.root, c.cfg.Paths.Exclude, c.scanner), nil
	case config.CheckerImportSorter:
		return c.fixer(name, c.cfg.Format.ImportSorter, mode), nil
	case config.CheckerFormatter:
		return c.fixer(name, c.cfg.Format.Formatter, mode), nil
	case config.CheckerLinter:
		return c.linter(), nil
	case config.CheckerTypecheck:
		return c.typecheck(), nil
	case config.CheckerSecurity:
		return c.security(), nil
	case config.CheckerDeps:
		return c.deps(), nil
	case config.CheckerTests:
		return c.TestCheck(""), nil
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownCheck)
	}
}

// GateChecks builds the configured gate order.
func (c *Catalog) GateChecks(mode Mode) ([]Check, error) {
	checks := make([]Check, 0, len(c.cfg.Gate.Order))
	for _, name := range c.cfg.Gate.Order {
		chk, err := c.Check(name, mode)
		if err != nil {
			return nil, err
		}
		checks = append(checks, chk)
	}
	return checks, nil
}

// Fixers returns the auto-fixing checks in gate order.
func (c *Catalog) Fixers() []Check {
	return []Check{
		c.fixer(config.CheckerImportSorter, c.cfg.Format.ImportSorter, ModeFix),
		c.fixer(config.CheckerFormatter, c.cfg.Format.Formatter, ModeFix),
	}
}

// TestCheck builds the test runner check for one runtime version. An empty
// version uses the first configured version.
func (c *Catalog) TestCheck(python string) Check {
	tc := c.cfg.Test
	if python == "" && len(tc.PythonVersions) > 0 {
		python = tc.PythonVersions[0]
	}
	name := config.CheckerTests
	if python != "" {
		name = fmt.Sprintf("%s (python=%s)", config.CheckerTests, python)
	}
	if !tc.Runner.Enabled {
		return &skippedCheck{name: name, kind: KindChecker, reason: "disabled"}
	}
	vars := c.vars()
	vars["python"] = python
	return c.toolCheck(name, KindChecker, tc.Runner, ToolCheckOptions{
		Root:   c.root,
		Runner: c.runner,
		Vars:   vars,
		Lists:  map[string][]string{"paths": c.existing(tc.Paths)},
	})
}

func (c *Catalog) fixer(name string, tc config.ToolConfig, mode Mode) Check {
	kind := KindFixer
	args := tc.Args
	if mode == ModeCheck {
		kind = KindChecker
		if len(tc.CheckArgs) > 0 {
			args = tc.CheckArgs
		}
	}
	if !tc.Enabled {
		return &skippedCheck{name: name, kind: kind, reason: "disabled"}
	}
	return c.toolCheck(name, kind, tc, c.options(args))
}

func (c *Catalog) linter() Check {
	lc := c.cfg.Lint
	if !lc.Linter.Enabled {
		return &skippedCheck{name: config.CheckerLinter, kind: KindChecker, reason: "disabled"}
	}
	var extra []string
	if len(lc.Select) > 0 {
		extra = append(extra, "--select="+strings.Join(lc.Select, ","))
	}
	if len(lc.Ignore) > 0 {
		extra = append(extra, "--ignore="+strings.Join(lc.Ignore, ","))
	}
	return c.toolCheck(config.CheckerLinter, KindChecker, lc.Linter, c.options(insertBeforeFiles(lc.Linter.Args, extra...)))
}

func (c *Catalog) typecheck() Check {
	tc := c.cfg.Typecheck
	if !tc.Checker.Enabled {
		return &skippedCheck{name: config.CheckerTypecheck, kind: KindChecker, reason: "disabled"}
	}
	args := tc.Checker.Args
	if tc.Strict {
		args = insertBeforeFiles(args, "--strict")
	}
	return c.toolCheck(config.CheckerTypecheck, KindChecker, tc.Checker, c.options(args))
}

func (c *Catalog) security() Check {
	sc := c.cfg.Security
	if !sc.Scanner.Enabled {
		return &skippedCheck{name: config.CheckerSecurity, kind: KindChecker, reason: "disabled"}
	}
	args := sc.Scanner.Args
	if sc.ConfigFile != "" {
		args = insertBeforeFiles(args, "-c", sc.ConfigFile)
	}
	return c.toolCheck(config.CheckerSecurity, KindChecker, sc.Scanner, c.options(args))
}

func (c *Catalog) deps() Check {
	dc := c.cfg.Deps
	if !dc.Auditor.Enabled {
		return &skippedCheck{name: config.CheckerDeps, kind: KindChecker, reason: "disabled"}
	}
	var reqs []string
	for _, f := range c.existing(dc.RequirementFiles) {
		reqs = append(reqs, "-r", f)
	}
	opts := c.options(nil)
	opts.Lists = map[string][]string{"requirements": reqs}
	return c.toolCheck(config.CheckerDeps, KindChecker, dc.Auditor, opts)
}

// toolCheck builds a tool check, or a skipped one when the tool's binary
// cannot be resolved.
func (c *Catalog) toolCheck(name string, kind Kind, tc config.ToolConfig, opts ToolCheckOptions) Check {
	command := tool.Expand(tool.Spec{Command: tc.Command, Vars: opts.Vars})[0]
	if !c.runner.Available(command) {
		return &skippedCheck{name: name, kind: kind, reason: "not installed"}
	}
	return NewToolCheck(name, kind, tc, opts)
}

func (c *Catalog) options(args []string) ToolCheckOptions {
	return ToolCheckOptions{
		Root:    c.root,
		Runner:  c.runner,
		Args:    args,
		Vars:    c.vars(),
		Exclude: c.cfg.Paths.Exclude,
	}
}

func (c *Catalog) vars() map[string]string {
	return map[string]string{
		"line_length": strconv.Itoa(c.cfg.Format.LineLength),
	}
}

// existing keeps the paths that exist under the project root.
func (c *Catalog) existing(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(filepath.Join(c.root, p)); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// InstallCheck builds the editable package install. dev adds the
// development extra.
func (c *Catalog) InstallCheck(dev bool) Check {
	ic := c.cfg.Install
	target := ic.Package
	name := "pip install"
	if dev && ic.DevExtra != "" {
		target = fmt.Sprintf("%s[%s]", ic.Package, ic.DevExtra)
		name = "pip install dev"
	}
	tc := config.ToolConfig{
		Enabled:        true,
		Command:        ic.Python,
		Args:           []string{"-m", "pip", "install", "-e", target},
		Format:         "text",
		TimeoutSeconds: config.DefaultJobTimeoutSeconds,
	}
	return c.toolCheck(name, KindChecker, tc, c.options(nil))
}
