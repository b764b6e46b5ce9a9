package resolve

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statErrFS struct{ OSFS }

func (statErrFS) Stat(string) (os.FileInfo, error) { return nil, errors.New("io error") }

func TestUniqueDestination(t *testing.T) {
	review := t.TempDir()

	dst, err := UniqueDestination(OSFS{}, review, "/lib/a/Song.mp3", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(review, "Song.mp3"), dst)

	require.NoError(t, os.WriteFile(filepath.Join(review, "Song.mp3"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(review, "Song_2.mp3"), nil, 0o644))

	dst, err = UniqueDestination(OSFS{}, review, "/lib/b/Song.mp3", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(review, "Song_3.mp3"), dst)
}

func TestUniqueDestinationReserved(t *testing.T) {
	review := filepath.Join(t.TempDir(), "not-created")
	reserved := map[string]struct{}{}

	var got []string
	for _, src := range []string{"/a/x.flac", "/b/x.flac", "/c/x.flac", "/d/y"} {
		dst, err := UniqueDestination(OSFS{}, review, src, reserved)
		require.NoError(t, err)
		got = append(got, dst)
	}

	assert.Equal(t, []string{
		filepath.Join(review, "x.flac"),
		filepath.Join(review, "x_2.flac"),
		filepath.Join(review, "x_3.flac"),
		filepath.Join(review, "y"),
	}, got)
	assert.Len(t, reserved, 4)
	assert.False(t, exists(review))
}

func TestUniqueDestinationStatError(t *testing.T) {
	_, err := UniqueDestination(statErrFS{}, "/review", "/a/x.mp3", nil)
	assert.ErrorContains(t, err, "io error")
}
