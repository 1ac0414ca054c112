package task

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rhai-examples/qgate/internal/config"
)

func TestCleaner_FindAndRemove(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "pkg/__pycache__/mod.cpython-312.pyc", "x")
	writeFile(t, root, ".mypy_cache/3.12/cache.json", "{}")
	writeFile(t, root, "qgate_demo.egg-info/PKG-INFO", "")
	writeFile(t, root, ".venv/lib/__pycache__/site.pyc", "x")
	writeFile(t, root, "pkg/mod.py", "")

	c := NewCleaner(root, config.NewDefaultCleanConfig().Patterns, []string{".venv"})
	found, err := c.Find()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{".mypy_cache", "pkg/__pycache__", "qgate_demo.egg-info"}
	slices.Sort(found)
	if !slices.Equal(found, want) {
		t.Fatalf("Find() = %v, want %v", found, want)
	}

	removed, err := c.Remove(found)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != len(want) {
		t.Errorf("removed = %v", removed)
	}
	for _, p := range want {
		if _, err := os.Stat(filepath.Join(root, p)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s still exists", p)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "pkg/mod.py")); err != nil {
		t.Errorf("source file removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, ".venv/lib/__pycache__/site.pyc")); err != nil {
		t.Errorf("skipped directory was cleaned: %v", err)
	}
}

func TestCleaner_AnchoredPatternsMatchOnlyAtRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "build/lib/pkg/mod.py", "")
	writeFile(t, root, "dist/pkg-1.0.tar.gz", "")
	writeFile(t, root, "examples/demo/build/keep.py", "")
	writeFile(t, root, "src/pkg/dist/wheel_helpers.py", "")
	writeFile(t, root, "src/pkg/__pycache__/mod.pyc", "")

	c := NewCleaner(root, config.NewDefaultCleanConfig().Patterns, nil)
	found, err := c.Find()
	if err != nil {
		t.Fatal(err)
	}
	slices.Sort(found)
	want := []string{"build", "dist", "src/pkg/__pycache__"}
	if !slices.Equal(found, want) {
		t.Errorf("Find() = %v, want %v", found, want)
	}
}

func TestCleaner_DoesNotFollowSymlinks(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, outside, "keep.txt", "precious")
	if err := os.Symlink(outside, filepath.Join(root, "build")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	c := NewCleaner(root, []string{"build"}, nil)
	found, err := c.Find()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Remove(found); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Lstat(filepath.Join(root, "build")); !errors.Is(err, os.ErrNotExist) {
		t.Error("symlink not removed")
	}
	if _, err := os.Stat(filepath.Join(outside, "keep.txt")); err != nil {
		t.Errorf("symlink target was touched: %v", err)
	}
}

func TestCleaner_RejectsOutsideRoot(t *testing.T) {
	t.Parallel()

	c := NewCleaner(t.TempDir(), nil, nil)
	if _, err := c.Remove([]string{"../escape"}); !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("err = %v, want ErrOutsideRoot", err)
	}
}

func TestRun_Clean(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) string {
		root := t.TempDir()
		writeFile(t, root, ".pytest_cache/v/cache", "")
		return root
	}

	t.Run("dry run", func(t *testing.T) {
		t.Parallel()
		root := setup(t)
		report, err := newTestRunner(t, root, newFakeRunner()).Run(context.Background(), Clean, Options{DryRun: true})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(filepath.Join(root, ".pytest_cache")); err != nil {
			t.Error("dry run removed files")
		}
		if out := report.Results[0].Output; out == "" {
			t.Error("dry run printed nothing")
		}
	})

	t.Run("declined", func(t *testing.T) {
		t.Parallel()
		root := setup(t)
		decline := WithConfirm(func([]string) (bool, error) { return false, nil })
		_, err := newTestRunner(t, root, newFakeRunner(), decline).Run(context.Background(), Clean, Options{})
		if !errors.Is(err, ErrAborted) {
			t.Errorf("err = %v, want ErrAborted", err)
		}
		if _, err := os.Stat(filepath.Join(root, ".pytest_cache")); err != nil {
			t.Error("declined clean removed files")
		}
	})

	t.Run("yes skips confirmation", func(t *testing.T) {
		t.Parallel()
		root := setup(t)
		asked := false
		confirm := WithConfirm(func([]string) (bool, error) { asked = true; return false, nil })
		if _, err := newTestRunner(t, root, newFakeRunner(), confirm).Run(context.Background(), Clean, Options{Yes: true}); err != nil {
			t.Fatal(err)
		}
		if asked {
			t.Error("confirmation asked despite Yes")
		}
		if _, err := os.Stat(filepath.Join(root, ".pytest_cache")); !errors.Is(err, os.ErrNotExist) {
			t.Error(".pytest_cache not removed")
		}
	})
}
