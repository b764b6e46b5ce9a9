package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config search paths at an empty temp home.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	return home
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultMatchMode, cfg.MatchMode)
	assert.Equal(t, DefaultDurationBucket, cfg.DurationBucket)
	assert.Equal(t, DefaultAction, cfg.Action)
	assert.Equal(t, DefaultKeepStrategy, cfg.KeepStrategy)
	assert.Equal(t, DefaultMinSize, cfg.MinSize)
	assert.Equal(t, DefaultExclusions, cfg.Exclude)
	assert.Equal(t, 0, cfg.Workers)
	assert.Empty(t, cfg.PreferOrigin)
	assert.False(t, cfg.Trash)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, filepath.Join(CacheDir(), "tracks"), cfg.Cache.Path)
	assert.True(t, cfg.Manifest.Enabled)
	assert.Equal(t, filepath.Join(DataDir(), "history"), cfg.Manifest.Path)
	assert.Equal(t, DefaultRetentionDays, cfg.Manifest.RetentionDays)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "10MB", cfg.Logging.Rotation.MaxSize)
	assert.Equal(t, 5, cfg.Logging.Rotation.MaxBackups)
	assert.True(t, cfg.Logging.Rotation.Daily)
	assert.Equal(t, "warn", cfg.Logging.Components["cache"])
}

func TestLoad_FromFile(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".config", "crate")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	content := `
match_mode: metadata
duration_bucket: 5
action: move
keep_strategy: newest
review_dir: ~/review
min_size: 1MB
exclude:
  - "*.part"
cache:
  enabled: true
logging:
  level: debug
  rotation:
    max_size: 50MB
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "metadata", cfg.MatchMode)
	assert.Equal(t, 5, cfg.DurationBucket)
	assert.Equal(t, "move", cfg.Action)
	assert.Equal(t, "newest", cfg.KeepStrategy)
	assert.Equal(t, filepath.Join(home, "review"), cfg.ReviewDir)
	assert.Equal(t, "1MB", cfg.MinSize)
	assert.Equal(t, []string{"*.part"}, cfg.Exclude)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "50MB", cfg.Logging.Rotation.MaxSize)
	assert.Equal(t, 30, cfg.Logging.Rotation.MaxAge)
}

func TestLoad_XDGConfigHome(t *testing.T) {
	isolate(t)
	xdgHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdgHome)

	dir := filepath.Join(xdgHome, "crate")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("action: delete\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "delete", cfg.Action)
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("CRATE_MATCH_MODE", "hash")
	t.Setenv("CRATE_MANIFEST_RETENTION_DAYS", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "hash", cfg.MatchMode)
	assert.Equal(t, 7, cfg.Manifest.RetentionDays)
}

func TestLoad_BadFile(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".config", "crate")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("action: [unclosed\n"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestDecodeHonorsOverrides(t *testing.T) {
	isolate(t)
	v := viper.New()
	SetDefaults(v)
	v.Set("action", "move")
	v.Set("workers", 3)

	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "move", cfg.Action)
	assert.Equal(t, 3, cfg.Workers)
}

func TestConfigDir(t *testing.T) {
	home := isolate(t)

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "crate"), dir)

	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	dir, err = ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg", "crate"), dir)

	path, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg", "crate", "config.yaml"), path)
}

func TestWriteDefault(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	written, err := WriteDefault(path)
	require.NoError(t, err)
	assert.True(t, written)

	// The written file must load back to the defaults.
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, DefaultMatchMode, cfg.MatchMode)
	assert.Equal(t, DefaultExclusions, cfg.Exclude)
	assert.Equal(t, DefaultRetentionDays, cfg.Manifest.RetentionDays)

	require.NoError(t, os.WriteFile(path, []byte("action: move\n"), 0o644))
	written, err = WriteDefault(path)
	require.NoError(t, err)
	assert.False(t, written)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "action: move\n", string(data))
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)

	tests := []struct {
		in, want string
	}{
		{"~", home},
		{"~/Music", filepath.Join(home, "Music")},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"~user/x", "~user/x"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandPath(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	home := isolate(t)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "cfg"))

	require.NoError(t, EnsureDirs())
	assert.DirExists(t, filepath.Join(home, "cfg", "crate"))
	assert.DirExists(t, DataDir())
	assert.DirExists(t, StateDir())
}
