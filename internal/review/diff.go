package review

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var reHunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Diff records which new-side lines of a unified diff can carry review
// comments. Added and context lines inside hunks are commentable.
type Diff struct {
	files map[string]map[int]bool
}

// ParseDiff parses unified diff text as produced by `git diff` or
// `gh pr diff`. Deleted files contribute no commentable lines.
func ParseDiff(text string) *Diff {
	d := &Diff{files: make(map[string]map[int]bool)}

	var (
		current   string
		newLine   int
		oldRemain int
		newRemain int
	)
	for raw := range strings.SplitSeq(text, "\n") {
		line := strings.TrimSuffix(raw, "\r")

		if oldRemain > 0 || newRemain > 0 {
			if line == "" {
				// Some tools strip the leading space of empty context lines.
				line = " "
			}
			switch line[0] {
			case ' ':
				d.mark(current, newLine)
				newLine++
				oldRemain--
				newRemain--
				continue
			case '+':
				d.mark(current, newLine)
				newLine++
				newRemain--
				continue
			case '-':
				oldRemain--
				continue
			case '\\':
				continue
			}
			// Malformed hunk: fall through to header parsing.
			oldRemain, newRemain = 0, 0
		}

		switch {
		case strings.HasPrefix(line, "diff --git "):
			current = ""
		case strings.HasPrefix(line, "+++ "):
			current = diffPath(strings.TrimPrefix(line, "+++ "))
		case strings.HasPrefix(line, "@@ "):
			m := reHunkHeader.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			newLine, _ = strconv.Atoi(m[3])
			oldRemain = hunkCount(m[2])
			newRemain = hunkCount(m[4])
		}
	}
	return d
}

func (d *Diff) mark(file string, line int) {
	if file == "" {
		return
	}
	lines, ok := d.files[file]
	if !ok {
		lines = make(map[int]bool)
		d.files[file] = lines
	}
	lines[line] = true
}

// Commentable reports whether line of file appears on the new side of the diff.
func (d *Diff) Commentable(file string, line int) bool {
	return d.files[NormalizePath(file)][line]
}

// NormalizePath converts p to the slash-separated, NFC-normalized form used
// as the diff key. Git may emit decomposed Unicode on some platforms.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	return norm.NFC.String(p)
}

// diffPath extracts the new-side path from a "+++" header.
func diffPath(s string) string {
	s = strings.TrimSpace(s)
	if tab := strings.IndexByte(s, '\t'); tab >= 0 {
		s = s[:tab]
	}
	if strings.HasPrefix(s, `"`) {
		if unq, err := strconv.Unquote(s); err == nil {
			s = unq
		}
	}
	if s == "/dev/null" {
		return ""
	}
	s = strings.TrimPrefix(s, "b/")
	return NormalizePath(s)
}

func hunkCount(s string) int {
	if s == "" {
		return 1
	}
	n, _ := strconv.Atoi(s)
	return n
}
