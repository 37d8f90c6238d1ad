package compile

import (
	"os"
	"path/filepath"
)

// DefaultCleanPatterns returns the auxiliary file globs removed by
// Clean when a project does not configure its own list.
func DefaultCleanPatterns() []string {
	return []string{
		"*.aux", "*.log", "*.out", "*.toc", "*.lof", "*.lot",
		"*.fls", "*.fdb_latexmk", "*.synctex.gz",
		"*.bbl", "*.blg", "*.idx", "*.ind", "*.ilg",
		"*.nav", "*.snm", "*.vrb",
	}
}

// Clean removes files in dir matching the given glob patterns and
// returns the paths it deleted. Unremovable files are skipped.
func Clean(dir string, patterns []string) ([]string, error) {
	var removed []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			// Only malformed patterns reach here
			return removed, err
		}
		for _, m := range matches {
			if err := os.Remove(m); err == nil {
				removed = append(removed, m)
			}
		}
	}
	return removed, nil
}
