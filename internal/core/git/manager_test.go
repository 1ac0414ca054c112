package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// initTestRepo creates a repository with one commit in a temp dir.
func initTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	// Resolve symlinked temp dirs so Root() comparisons hold.
	dir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test")
	runGit(t, dir, "config", "commit.gpgsign", "false")
	writeTestFile(t, filepath.Join(dir, "README.md"), "# test\n")
	runGit(t, dir, "add", "README.md")
	runGit(t, dir, "commit", "-q", "-m", "initial")
	return dir
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null", "GIT_CONFIG_NOSYSTEM=1")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewRepository_Valid(t *testing.T) {
	dir := initTestRepo(t)

	repo, err := NewRepository(filepath.Join(dir, "."))
	if err != nil {
		t.Fatalf("NewRepository(%q) error: %v", dir, err)
	}
	if got, want := repo.Root(), filepath.Clean(dir); got != want {
		t.Errorf("Root() = %q, want %q", got, want)
	}
}

func TestNewRepository_InvalidPath(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()

	repo, err := NewRepository(dir)
	if !errors.Is(err, ErrNotRepository) {
		t.Errorf("error = %v, want ErrNotRepository", err)
	}
	if repo != nil {
		t.Error("expected nil repo on error")
	}
}

func TestStagedFilesAndAdd(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := NewRepository(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	writeTestFile(t, filepath.Join(dir, "src", "my app.py"), "x = 1\n")
	writeTestFile(t, filepath.Join(dir, "notes.txt"), "unstaged\n")
	if err := repo.Add(ctx, "src/my app.py"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := repo.StagedFiles(ctx)
	if err != nil {
		t.Fatalf("StagedFiles() error = %v", err)
	}
	if want := []string{"src/my app.py"}; !slices.Equal(got, want) {
		t.Errorf("StagedFiles() = %v, want %v", got, want)
	}

	// Deleted files are not handed to checkers.
	runGit(t, dir, "rm", "-q", "README.md")
	got, err = repo.StagedFiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if slices.Contains(got, "README.md") {
		t.Errorf("StagedFiles() includes deletion: %v", got)
	}
}

func TestChangedAndTrackedFiles(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := NewRepository(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	runGit(t, dir, "checkout", "-q", "-b", "feature")
	writeTestFile(t, filepath.Join(dir, "a.py"), "a = 1\n")
	runGit(t, dir, "add", "a.py")
	runGit(t, dir, "commit", "-q", "-m", "add a")
	base := "HEAD~1"

	got, err := repo.ChangedFiles(ctx, base)
	if err != nil {
		t.Fatalf("ChangedFiles() error = %v", err)
	}
	if !slices.Equal(got, []string{"a.py"}) {
		t.Errorf("ChangedFiles() = %v", got)
	}

	writeTestFile(t, filepath.Join(dir, "a.py"), "a = 2\n")
	got, err = repo.ChangedFiles(ctx, "")
	if err != nil || !slices.Equal(got, []string{"a.py"}) {
		t.Errorf("ChangedFiles(\"\") = %v, %v", got, err)
	}

	tracked, err := repo.TrackedFiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(tracked, []string{"README.md", "a.py"}) {
		t.Errorf("TrackedFiles() = %v", tracked)
	}
}

func TestInstallHook(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := NewRepository(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	script := PreCommitScript("qgate")

	path, err := repo.InstallHook(ctx, "pre-commit", script, false)
	if err != nil {
		t.Fatalf("InstallHook() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("hook not executable: %v", info.Mode())
	}

	// Reinstalling over our own hook is fine.
	if _, err := repo.InstallHook(ctx, "pre-commit", script, false); err != nil {
		t.Errorf("reinstall error = %v", err)
	}

	// A foreign hook is kept unless forced.
	writeTestFile(t, path, "#!/bin/sh\necho custom\n")
	if _, err := repo.InstallHook(ctx, "pre-commit", script, false); !errors.Is(err, ErrHookExists) {
		t.Errorf("err = %v, want ErrHookExists", err)
	}
	if _, err := repo.InstallHook(ctx, "pre-commit", script, true); err != nil {
		t.Errorf("forced install error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), HookMarker) || !strings.Contains(string(data), "pre-commit") {
		t.Errorf("hook content = %q", data)
	}
}

func TestShellQuote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"qgate", `'qgate'`},
		{"/opt/my tools/qgate", `'/opt/my tools/qgate'`},
		{`/tmp/$HOME/a\b`, `'/tmp/$HOME/a\b'`},
		{"/tmp/it's/qgate", `'/tmp/it'\''s/qgate'`},
	}
	for _, tt := range tests {
		if got := shellQuote(tt.in); got != tt.want {
			t.Errorf("shellQuote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestPreCommitScript_RunsUnusualBinaryPath(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := filepath.Join(t.TempDir(), `it's $HOME \ "bin"`)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	binary := filepath.Join(dir, "qgate")
	writeTestFile(t, binary, "#!/bin/sh\necho \"$@\" > \"$0.args\"\n")
	if err := os.Chmod(binary, 0o755); err != nil {
		t.Fatal(err)
	}
	hook := filepath.Join(t.TempDir(), "pre-commit")
	writeTestFile(t, hook, PreCommitScript(binary))

	if out, err := exec.Command("sh", hook, "--verbose").CombinedOutput(); err != nil {
		t.Fatalf("hook failed: %v\n%s", err, out)
	}
	got, err := os.ReadFile(binary + ".args")
	if err != nil {
		t.Fatalf("binary did not run: %v", err)
	}
	if strings.TrimSpace(string(got)) != "pre-commit --verbose" {
		t.Errorf("binary args = %q", got)
	}
}

func TestSplitNUL(t *testing.T) {
	t.Parallel()

	got := splitNUL("a.py\x00dir/b c.py\x00\x00")
	if want := []string{"a.py", "dir/b c.py"}; !slices.Equal(got, want) {
		t.Errorf("splitNUL() = %v, want %v", got, want)
	}
}
