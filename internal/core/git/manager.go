// Package git wraps the system git binary for the operations the quality
// gate needs: listing staged and changed files, re-staging fixed files and
// installing hooks.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds every git invocation.
const DefaultTimeout = 30 * time.Second

// Sentinel errors for repository operations.
var (
	// ErrNotRepository indicates the path is not inside a git work tree.
	ErrNotRepository = errors.New("git: not a repository")

	// ErrSystemGitNotFound indicates git is not on PATH.
	ErrSystemGitNotFound = errors.New("git: system git not found")

	// ErrHookExists indicates a foreign hook is already installed.
	ErrHookExists = errors.New("git: hook already exists")
)

// Repository is the subset of git used by qgate.
type Repository interface {
	// Root returns the absolute work tree root.
	Root() string
	// StagedFiles lists added, copied, modified and renamed files in the index.
	StagedFiles(ctx context.Context) ([]string, error)
	// ChangedFiles lists files changed between base and HEAD. An empty base
	// compares the work tree against HEAD.
	ChangedFiles(ctx context.Context, base string) ([]string, error)
	// TrackedFiles lists every tracked file.
	TrackedFiles(ctx context.Context) ([]string, error)
	// Add stages paths.
	Add(ctx context.Context, paths ...string) error
	// InstallHook writes an executable hook script.
	InstallHook(ctx context.Context, name, script string, force bool) (string, error)
}

// Compile-time interface compliance check.
var _ Repository = (*gitManager)(nil)

// gitManager implements Repository with the system git binary.
type gitManager struct {
	root   string
	logger *slog.Logger
}

// NewRepository opens the git repository containing path.
// Returns ErrNotRepository if path is not inside a work tree.
func NewRepository(path string) (*gitManager, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	root, err := execGit(ctx, absPath, "rev-parse", "--show-toplevel")
	if err != nil {
		if errors.Is(err, ErrSystemGitNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("open repository at %s: %w", absPath, ErrNotRepository)
	}

	cleanRoot := filepath.Clean(root)
	logger := slog.Default().With("module", "git")
	logger.Debug("repository opened", "root", cleanRoot)

	return &gitManager{root: cleanRoot, logger: logger}, nil
}

// Root returns the absolute path to the repository root directory.
func (m *gitManager) Root() string {
	return m.root
}

// StagedFiles returns staged paths relative to the root, excluding deletions.
func (m *gitManager) StagedFiles(ctx context.Context) ([]string, error) {
	out, err := m.run(ctx, "diff", "--cached", "--name-only", "--diff-filter=ACMR", "-z")
	if err != nil {
		return nil, fmt.Errorf("staged files: %w", err)
	}
	files := splitNUL(out)
	m.logger.Debug("staged files listed", "count", len(files))
	return files, nil
}

// ChangedFiles returns paths changed since the merge base with base.
func (m *gitManager) ChangedFiles(ctx context.Context, base string) ([]string, error) {
	args := []string{"diff", "--name-only", "--diff-filter=ACMR", "-z"}
	if base == "" {
		args = append(args, "HEAD")
	} else {
		args = append(args, base+"...HEAD")
	}
	out, err := m.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("changed files since %q: %w", base, err)
	}
	return splitNUL(out), nil
}

// TrackedFiles returns every tracked path relative to the root.
func (m *gitManager) TrackedFiles(ctx context.Context) ([]string, error) {
	out, err := m.run(ctx, "ls-files", "-z")
	if err != nil {
		return nil, fmt.Errorf("tracked files: %w", err)
	}
	return splitNUL(out), nil
}

// Add stages paths. It is a no-op for an empty list.
func (m *gitManager) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	if _, err := m.run(ctx, args...); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	m.logger.Debug("files staged", "count", len(paths))
	return nil
}

// run executes git in the repository root under DefaultTimeout.
func (m *gitManager) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()
	return execGit(ctx, m.root, args...)
}

// execGit executes a git command in the given directory and returns stdout.
// It sets GIT_TERMINAL_PROMPT=0 and LC_ALL=C for consistent behavior.
func execGit(ctx context.Context, dir string, args ...string) (string, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return "", fmt.Errorf("system git lookup: %w", ErrSystemGitNotFound)
	}

	cmd := exec.CommandContext(ctx, gitPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"LC_ALL=C",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if len(args) > 0 {
			return "", fmt.Errorf("git %s: %s: %w", args[0], stderrStr, err)
		}
		return "", fmt.Errorf("git: %s: %w", stderrStr, err)
	}

	return strings.TrimRight(stdout.String(), "\n\r"), nil
}

// splitNUL splits -z output into paths with forward slashes.
func splitNUL(out string) []string {
	var files []string
	for p := range strings.SplitSeq(out, "\x00") {
		p = strings.TrimSpace(p)
		if p != "" {
			files = append(files, filepath.ToSlash(p))
		}
	}
	return files
}
