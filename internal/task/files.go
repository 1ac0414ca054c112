package task

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// files returns the explicit files of opts, the tracked files of the
// repository, or every file under the root outside excluded directories.
func (r *Runner) files(ctx context.Context, opts Options) ([]string, error) {
	if len(opts.Files) > 0 {
		return opts.Files, nil
	}
	if r.repo != nil {
		files, err := r.repo.TrackedFiles(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tracked files: %w", err)
		}
		return files, nil
	}
	return WalkFiles(r.cat.Root(), r.cat.Config().Paths.Exclude)
}

// WalkFiles lists regular files under root as slash-separated relative
// paths, skipping directories named in exclude.
func WalkFiles(root string, exclude []string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && slices.Contains(exclude, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return out, nil
}

func joinLines(items []string) string {
	return "  " + strings.Join(items, "\n  ")
}
