package task

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrOutsideRoot indicates a removal target outside the project root.
var ErrOutsideRoot = errors.New("task: path outside project root")

// Cleaner removes cache directories and build output.
type Cleaner struct {
	root     string
	patterns []string
	skip     []string
	logger   *slog.Logger
}

// NewCleaner creates a Cleaner removing entries whose base name matches one
// of patterns (filepath.Match syntax). A pattern with a leading "/" matches
// only entries directly under the root, so "/build" leaves "docs/build"
// alone. Directories named in skip are not descended into unless they match
// a pattern themselves.
func NewCleaner(root string, patterns, skip []string) *Cleaner {
	return &Cleaner{
		root:     root,
		patterns: patterns,
		skip:     append(slices.Clone(skip), ".git"),
		logger:   slog.Default().With("module", "clean"),
	}
}

// Find lists matching paths relative to the root. Matched directories are
// not descended into. Symbolic links are matched by name but never followed.
func (c *Cleaner) Find() ([]string, error) {
	var out []string
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if path == c.root {
			return nil
		}

		rel, err := filepath.Rel(c.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()
		if c.matches(rel, name) {
			out = append(out, rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() && slices.Contains(c.skip, name) {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.root, err)
	}
	return out, nil
}

func (c *Cleaner) matches(rel, name string) bool {
	atRoot := !strings.Contains(rel, "/")
	for _, p := range c.patterns {
		if anchored, ok := strings.CutPrefix(p, "/"); ok {
			if !atRoot {
				continue
			}
			p = anchored
		}
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Remove deletes paths relative to the root and returns those removed. A
// symbolic link is removed itself, never its target.
func (c *Cleaner) Remove(paths []string) ([]string, error) {
	removed := make([]string, 0, len(paths))
	for _, rel := range paths {
		abs := filepath.Join(c.root, filepath.FromSlash(rel))
		if !within(c.root, abs) {
			return removed, fmt.Errorf("%s: %w", rel, ErrOutsideRoot)
		}

		info, err := os.Lstat(abs)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("stat %s: %w", rel, err)
		}

		if info.Mode()&fs.ModeSymlink != 0 || !info.IsDir() {
			err = os.Remove(abs)
		} else {
			err = os.RemoveAll(abs)
		}
		if err != nil {
			return removed, fmt.Errorf("remove %s: %w", rel, err)
		}
		removed = append(removed, rel)
		c.logger.Debug("removed", "path", rel)
	}
	return removed, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}
