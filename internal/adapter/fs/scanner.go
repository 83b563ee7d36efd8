package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Scanner finds document files in a directory. The scan is flat: entries in
// subdirectories are not considered. Matching is case-insensitive on the
// file name.
type Scanner struct {
	pattern string
}

func NewScanner(pattern string) *Scanner {
	if pattern == "" {
		pattern = "*.pdf"
	}
	return &Scanner{pattern: pattern}
}

// Scan returns the matching file paths in the directory, sorted by name so
// runs over the same input visit documents in the same order.
func (s *Scanner) Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matched, err := doublestar.Match(s.pattern, strings.ToLower(entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", s.pattern, err)
		}
		if matched {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}
