package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// UniqueDestination returns a path in reviewDir for src that does not exist
// yet and is not in reserved. The first choice is reviewDir/<name>, then
// <stem>_2<ext>, <stem>_3<ext> and so on. The chosen path is added to
// reserved, so successive calls never hand out the same destination even
// when nothing is written to disk between them.
func UniqueDestination(fsys FS, reviewDir, src string, reserved map[string]struct{}) (string, error) {
	name := filepath.Base(src)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := filepath.Join(reviewDir, name)
	for n := 2; ; n++ {
		free, err := available(fsys, candidate, reserved)
		if err != nil {
			return "", err
		}
		if free {
			if reserved != nil {
				reserved[candidate] = struct{}{}
			}
			return candidate, nil
		}
		candidate = filepath.Join(reviewDir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}
}

func available(fsys FS, path string, reserved map[string]struct{}) (bool, error) {
	if _, taken := reserved[path]; taken {
		return false, nil
	}
	_, err := fsys.Stat(path)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, fs.ErrNotExist):
		return true, nil
	default:
		return false, fmt.Errorf("checking destination %s: %w", path, err)
	}
}
