package cli

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/clause/internal/connectors/filesystem"
	"github.com/custodia-labs/clause/internal/core/domain"
)

// expandPaths resolves file arguments, which may be doublestar patterns
// such as "contracts/**/*.md" or file:// URIs, into a de-duplicated list
// of regular files. A pattern that matches nothing is an error.
func expandPaths(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(filesystem.ResolvePath(pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			paths = append(paths, m)
		}
	}

	return paths, nil
}

func readDocument(path string) (*domain.RawDocument, error) {
	return filesystem.ReadDocument(path)
}
