package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HookMarker identifies hook scripts written by qgate.
const HookMarker = "# installed by qgate"

// PreCommitScript returns a pre-commit hook that runs binary's pre-commit
// task over the staged files.
func PreCommitScript(binary string) string {
	return fmt.Sprintf("#!/bin/sh\n%s\nexec %s pre-commit \"$@\"\n", HookMarker, shellQuote(binary))
}

// shellQuote single-quotes s for POSIX sh. An embedded quote becomes '\''.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// InstallHook writes script as the named hook. A hook not written by qgate is
// only replaced when force is set. It returns the hook path.
func (m *gitManager) InstallHook(ctx context.Context, name, script string, force bool) (string, error) {
	dir, err := m.run(ctx, "rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", fmt.Errorf("locate hooks dir: %w", err)
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(m.root, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create hooks dir: %w", err)
	}

	path := filepath.Join(dir, name)
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if !force && !strings.Contains(string(existing), HookMarker) {
			return path, fmt.Errorf("%s: %w", path, ErrHookExists)
		}
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read hook %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return "", fmt.Errorf("write hook %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o755); err != nil {
		return "", fmt.Errorf("chmod hook %s: %w", path, err)
	}
	m.logger.Info("hook installed", "hook", name, "path", path)
	return path, nil
}
