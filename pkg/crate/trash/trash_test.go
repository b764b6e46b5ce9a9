package trash

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withoutTrashTools(t *testing.T) {
	t.Helper()
	orig := lookPath
	lookPath = func(string) (string, error) { return "", errors.New("not found") }
	t.Cleanup(func() { lookPath = orig })
}

func TestMoveToTrashFallsBackToDelete(t *testing.T) {
	withoutTrashTools(t)

	file := filepath.Join(t.TempDir(), "dupe.mp3")
	require.NoError(t, os.WriteFile(file, []byte("audio"), 0o644))

	require.NoError(t, MoveToTrash(context.Background(), file))

	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))
}

func TestMoveToTrashMissingFile(t *testing.T) {
	err := MoveToTrash(context.Background(), filepath.Join(t.TempDir(), "absent.flac"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMoveToTrashRelativePath(t *testing.T) {
	withoutTrashTools(t)

	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("rel.ogg", []byte("x"), 0o644))

	require.NoError(t, MoveToTrash(context.Background(), "rel.ogg"))
	_, err := os.Stat(filepath.Join(dir, "rel.ogg"))
	assert.True(t, os.IsNotExist(err))
}

func TestCommands(t *testing.T) {
	for _, cmd := range commands("/music/a.mp3") {
		require.NotEmpty(t, cmd)
		assert.Contains(t, cmd[len(cmd)-1], "/music/a.mp3")
	}
}
