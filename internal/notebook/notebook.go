// Package notebook discovers example notebooks, validates their structure
// and executes them headlessly as a quality check.
package notebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// Extension is the notebook file extension.
const Extension = ".ipynb"

// CheckpointDir is the directory Jupyter writes autosaves into.
const CheckpointDir = ".ipynb_checkpoints"

// MinFormat is the oldest supported nbformat major version.
const MinFormat = 4

var (
	// ErrInvalidNotebook indicates a file that is not a notebook document.
	ErrInvalidNotebook = errors.New("notebook: invalid notebook")

	// ErrUnsupportedFormat indicates an nbformat older than MinFormat.
	ErrUnsupportedFormat = errors.New("notebook: unsupported nbformat")
)

// Discover returns notebooks under each of paths, relative to root and
// sorted. Checkpoint directories and excluded directory names are not
// descended into; notebooks matching a skip entry are left out. Paths that
// do not exist are ignored.
func Discover(root string, paths, skip, exclude []string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, p := range paths {
		base := filepath.Join(root, p)
		if _, err := os.Stat(base); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		err := filepath.WalkDir(base, func(full string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if full != base && (d.Name() == CheckpointDir || slices.Contains(exclude, d.Name())) {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.EqualFold(filepath.Ext(d.Name()), Extension) {
				return nil
			}
			rel, err := filepath.Rel(root, full)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if !skipped(rel, skip) {
				seen[rel] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("discover notebooks in %s: %w", p, err)
		}
	}

	out := make([]string, 0, len(seen))
	for nb := range seen {
		out = append(out, nb)
	}
	sort.Strings(out)
	return out, nil
}

// skipped reports whether rel matches a skip entry: an exact path, a glob or
// a directory prefix.
func skipped(rel string, skip []string) bool {
	for _, s := range skip {
		s = filepath.ToSlash(s)
		if s == rel {
			return true
		}
		if ok, _ := path.Match(s, rel); ok {
			return true
		}
		if strings.HasPrefix(rel, strings.TrimSuffix(s, "/")+"/") {
			return true
		}
	}
	return false
}

// document holds the fields validated before execution.
type document struct {
	NBFormat      *int              `json:"nbformat"`
	NBFormatMinor int               `json:"nbformat_minor"`
	Cells         []json.RawMessage `json:"cells"`
}

// Validate checks that the file is a JSON notebook with nbformat >= 4 and a
// cells array.
func Validate(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read notebook %s: %w", file, err)
	}
	return ValidateBytes(data)
}

// ValidateBytes is Validate for in-memory content.
func ValidateBytes(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNotebook, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNotebook, err)
	}
	if doc.NBFormat == nil {
		return fmt.Errorf("%w: missing nbformat", ErrInvalidNotebook)
	}
	if *doc.NBFormat < MinFormat {
		return fmt.Errorf("%w: nbformat %d", ErrUnsupportedFormat, *doc.NBFormat)
	}
	if cells, ok := raw["cells"]; !ok || len(cells) == 0 || cells[0] != '[' {
		return fmt.Errorf("%w: missing cells array", ErrInvalidNotebook)
	}
	return nil
}
