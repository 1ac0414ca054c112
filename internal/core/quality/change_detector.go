package quality

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// ChangeDetector detects file modifications by content hash.
type ChangeDetector struct{}

// NewChangeDetector creates a ChangeDetector.
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

// ComputeHash returns the SHA-256 of the file contents.
func (d *ChangeDetector) ComputeHash(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}
	return h.Sum(nil), nil
}

// HasChanged reports whether the file's current hash differs from previous.
func (d *ChangeDetector) HasChanged(path string, previous []byte) (bool, error) {
	current, err := d.ComputeHash(path)
	if err != nil {
		return false, err
	}
	return !bytes.Equal(current, previous), nil
}

// Snapshot hashes files relative to root. Unreadable files are omitted.
func (d *ChangeDetector) Snapshot(root string, files []string) map[string][]byte {
	snap := make(map[string][]byte, len(files))
	for _, f := range files {
		if h, err := d.ComputeHash(filepath.Join(root, f)); err == nil {
			snap[f] = h
		}
	}
	return snap
}

// Changed returns the snapshot entries whose content now differs, sorted.
// A file removed since the snapshot counts as changed.
func (d *ChangeDetector) Changed(root string, snapshot map[string][]byte) []string {
	var changed []string
	for f, before := range snapshot {
		changedNow, err := d.HasChanged(filepath.Join(root, f), before)
		if err != nil || changedNow {
			changed = append(changed, f)
		}
	}
	sort.Strings(changed)
	return changed
}
