// Package tool runs external command line tools and captures their verdict.
//
// A tool's exit status is the only success signal: zero passes, anything
// else (including a failure to start or a timeout) fails.
package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Sentinel errors for tool execution.
var (
	// ErrToolNotFound indicates the tool binary is not on PATH.
	ErrToolNotFound = errors.New("tool: binary not found")

	// ErrTimeout indicates the tool exceeded its time limit.
	ErrTimeout = errors.New("tool: timed out")

	// ErrEmptyCommand indicates a Spec without a command.
	ErrEmptyCommand = errors.New("tool: empty command")
)

// Spec describes a single tool invocation.
type Spec struct {
	// Name is the display name of the step.
	Name string
	// Command is the binary to run. Scalar placeholders are expanded.
	Command string
	// Args are the arguments, possibly containing placeholders.
	Args []string
	// Vars are scalar placeholder values, substituted inside arguments.
	Vars map[string]string
	// Lists are list placeholder values. An argument that is exactly
	// "{name}" expands into one argument per element.
	Lists map[string][]string
	// Env is appended to the inherited environment.
	Env []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Timeout bounds the run; zero means no limit beyond the parent context.
	Timeout time.Duration
}

// Result is the outcome of a tool invocation.
type Result struct {
	Name     string
	Command  []string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	// Err is set when the tool could not be started or was interrupted.
	Err error
}

// Passed reports whether the tool exited zero.
func (r *Result) Passed() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Output returns stdout and stderr joined, trimmed of trailing whitespace.
func (r *Result) Output() string {
	out := strings.TrimRight(r.Stdout, "\n\r ")
	errOut := strings.TrimRight(r.Stderr, "\n\r ")
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	default:
		return out + "\n" + errOut
	}
}

// Runner executes tool specs.
type Runner interface {
	// Run executes spec and returns its result. It never returns nil.
	Run(ctx context.Context, spec Spec) *Result
	// Available reports whether the command can be resolved.
	Available(command string) bool
}

// ExecFunc is the low-level process executor. It returns stdout, stderr and
// the exit code; err is set only when the process could not run to completion.
type ExecFunc func(ctx context.Context, dir string, env []string, name string, args ...string) (stdout, stderr string, exitCode int, err error)

// LookFunc resolves a binary name to a path.
type LookFunc func(name string) (string, error)

// execRunner implements Runner with os/exec.
type execRunner struct {
	execFn ExecFunc
	lookFn LookFunc
	logger *slog.Logger

	mu     sync.Mutex
	lookup map[string]error
}

// Compile-time interface compliance check.
var _ Runner = (*execRunner)(nil)

// NewRunner creates a Runner backed by os/exec.
func NewRunner() *execRunner {
	return NewRunnerWithExec(execProcess, exec.LookPath)
}

// NewRunnerWithExec creates a Runner with injected exec and lookup functions.
// Tests use it to avoid spawning real processes.
func NewRunnerWithExec(fn ExecFunc, look LookFunc) *execRunner {
	if look == nil {
		look = func(name string) (string, error) { return name, nil }
	}
	return &execRunner{
		execFn: fn,
		lookFn: look,
		logger: slog.Default().With("module", "tool"),
		lookup: make(map[string]error),
	}
}

// Available reports whether command resolves, caching the lookup per binary.
func (r *execRunner) Available(command string) bool {
	return r.resolve(command) == nil
}

func (r *execRunner) resolve(command string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.lookup[command]; ok {
		return err
	}
	_, err := r.lookFn(command)
	if err != nil {
		err = fmt.Errorf("%s: %w", command, ErrToolNotFound)
	}
	r.lookup[command] = err
	return err
}

// Run executes spec. Placeholders are expanded before execution.
func (r *execRunner) Run(ctx context.Context, spec Spec) *Result {
	argv := Expand(spec)
	res := &Result{Name: spec.Name, Command: argv, ExitCode: -1}

	if len(argv) == 0 || argv[0] == "" {
		res.Err = ErrEmptyCommand
		return res
	}
	if err := r.resolve(argv[0]); err != nil {
		res.Err = err
		return res
	}

	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	r.logger.Debug("running tool", "name", spec.Name, "argv", strings.Join(argv, " "), "dir", spec.Dir)

	start := time.Now()
	stdout, stderr, code, err := r.execFn(ctx, spec.Dir, spec.Env, argv[0], argv[1:]...)
	res.Duration = time.Since(start)
	res.Stdout = stdout
	res.Stderr = stderr
	res.ExitCode = code

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Err = fmt.Errorf("%s after %s: %w", spec.Name, spec.Timeout, ErrTimeout)
	case ctx.Err() != nil:
		res.Err = ctx.Err()
	case err != nil:
		res.Err = err
	}

	r.logger.Debug("tool finished",
		"name", spec.Name,
		"exit_code", res.ExitCode,
		"duration", res.Duration.String(),
	)
	return res
}

// execProcess runs a process and separates exit status from start failures.
func execProcess(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), stderr.String(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		// Non-zero exit is the tool's verdict, not an execution error.
		return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
	}
	return stdout.String(), stderr.String(), -1, fmt.Errorf("run %s: %w", name, err)
}
