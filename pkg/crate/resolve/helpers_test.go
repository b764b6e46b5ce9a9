package resolve

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/crate/pkg/crate/types"
)

// writeTrack creates a file under root and returns its record.
func writeTrack(t *testing.T, root, rel string, origin types.Origin, content string, mtime time.Time) types.TrackFile {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return types.TrackFile{
		Path:      path,
		Origin:    origin,
		SizeBytes: int64(len(content)),
		ModTime:   mtime,
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// failingFS fails Rename and Remove for chosen paths.
type failingFS struct {
	OSFS
	fail map[string]error
}

func (f failingFS) Rename(src, dst string) error {
	if err, ok := f.fail[src]; ok {
		return err
	}
	return f.OSFS.Rename(src, dst)
}

func (f failingFS) Remove(path string) error {
	if err, ok := f.fail[path]; ok {
		return err
	}
	return f.OSFS.Remove(path)
}

// snapshot records every path under root.
func snapshot(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	require.NoError(t, filepath.Walk(root, func(p string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	}))
	return out
}
