package resolve

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

// PruneEmptyParents removes empty directories upward from the parent of
// path. It only touches directories strictly inside one of roots and never
// a root itself. A directory that has already disappeared counts as pruned
// ground and the walk continues; any other error or a non-empty directory
// stops it. The removed directories are returned deepest first.
func PruneEmptyParents(fsys FS, path string, roots []string) []string {
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		if r == "" {
			continue
		}
		if abs, err := filepath.Abs(r); err == nil {
			cleaned = append(cleaned, abs)
		}
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil
	}

	var removed []string
	for within(dir, cleaned) {
		entries, err := fsys.ReadDir(dir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil, len(entries) > 0:
			return removed
		default:
			if err := fsys.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logger.Debug("stopped pruning", "dir", dir, "error", err)
				return removed
			}
			removed = append(removed, dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return removed
}

// within reports whether dir lies strictly below at least one root.
func within(dir string, roots []string) bool {
	for _, root := range roots {
		if dir == root {
			return false
		}
	}
	for _, root := range roots {
		prefix := root
		if !strings.HasSuffix(prefix, string(filepath.Separator)) {
			prefix += string(filepath.Separator)
		}
		if strings.HasPrefix(dir, prefix) {
			return true
		}
	}
	return false
}
