package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// CacheConfig configures the persistent extraction cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ManifestConfig configures run history.
type ManifestConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config is the merged application configuration.
type Config struct {
	MatchMode        string         `mapstructure:"match_mode"`
	DurationBucket   int            `mapstructure:"duration_bucket"`
	Action           string         `mapstructure:"action"`
	KeepStrategy     string         `mapstructure:"keep_strategy"`
	PreferOrigin     string         `mapstructure:"prefer_origin"`
	ReviewDir        string         `mapstructure:"review_dir"`
	CleanupEmptyDirs bool           `mapstructure:"cleanup_empty_dirs"`
	Trash            bool           `mapstructure:"trash"`
	MinSize          string         `mapstructure:"min_size"`
	Exclude          []string       `mapstructure:"exclude"`
	Workers          int            `mapstructure:"workers"`
	Output           string         `mapstructure:"output"`
	Cache            CacheConfig    `mapstructure:"cache"`
	Manifest         ManifestConfig `mapstructure:"manifest"`
	Logging          LoggingConfig  `mapstructure:"logging"`
}

// SetDefaults registers every default on v and configures the search paths
// and environment binding.
func SetDefaults(v *viper.Viper) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := ConfigDir(); err == nil {
		v.AddConfigPath(dir)
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "crate"))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("match_mode", DefaultMatchMode)
	v.SetDefault("duration_bucket", DefaultDurationBucket)
	v.SetDefault("action", DefaultAction)
	v.SetDefault("keep_strategy", DefaultKeepStrategy)
	v.SetDefault("prefer_origin", "")
	v.SetDefault("review_dir", "")
	v.SetDefault("cleanup_empty_dirs", false)
	v.SetDefault("trash", false)
	v.SetDefault("min_size", DefaultMinSize)
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("output", DefaultOutput)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", "")

	v.SetDefault("manifest.enabled", true)
	v.SetDefault("manifest.path", "")
	v.SetDefault("manifest.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", DefaultComponentLevels)
}

// Read loads the config file into v. A missing file is not an error.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Decode unmarshals v and expands ~ in path settings.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.ReviewDir, &cfg.Cache.Path, &cfg.Manifest.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	if cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join(CacheDir(), "tracks")
	}
	if cfg.Manifest.Path == "" {
		cfg.Manifest.Path = filepath.Join(DataDir(), "history")
	}
	return &cfg, nil
}

// Load reads configuration from the default locations and environment.
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	if err := Read(v); err != nil {
		return nil, err
	}
	return Decode(v)
}

// ConfigDir returns $XDG_CONFIG_HOME/crate, or ~/.config/crate when unset.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "crate"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "crate"), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir returns $XDG_DATA_HOME/crate, home of run history.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "crate")
}

// StateDir returns $XDG_STATE_HOME/crate, home of the log file.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "crate")
}

// CacheDir returns $XDG_CACHE_HOME/crate.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "crate")
}

// EnsureDirs creates the config, data and state directories.
func EnsureDirs() error {
	configDir, err := ConfigDir()
	if err != nil {
		return err
	}
	for _, dir := range []string{configDir, DataDir(), StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// WriteDefault writes a commented default config file to path unless one
// already exists. It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`# crate configuration

# How duplicates are detected: hash, metadata or hybrid
match_mode: %s

# Width of the duration bucket in seconds for metadata matching
duration_bucket: %d

# What to do with duplicates: report, move or delete
action: %s

# Which file of a group to keep: best, newest or oldest
keep_strategy: %s

# Prefer keepers from "source" or "compare" when both are scanned
prefer_origin: ""

# Where duplicates are moved with action: move
review_dir: ""

# Remove directories left empty after moving or deleting
cleanup_empty_dirs: false

# Send deleted files to the system trash instead of unlinking them
trash: false

# Skip audio files smaller than this (e.g. 512KB, 1MB)
min_size: "%s"

# Path prefixes or glob patterns to skip
exclude:
  - .AppleDouble
  - "._*"
  - ".Trash*"

# Extraction workers (0 sizes the pool from CPU and memory)
workers: %d

# Stdout format: pretty, plain, json, csv, yaml or paths
output: %s

# Persistent tag and hash cache
cache:
  enabled: false
  path: ""  # default: $XDG_CACHE_HOME/crate/tracks

# History of move and delete runs
manifest:
  enabled: true
  path: ""  # default: $XDG_DATA_HOME/crate/history
  retention_days: %d

logging:
  # debug, info, warn, error
  level: info
  # default: $XDG_STATE_HOME/crate/crate.log
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    scanner: info
    resolve: info
    cache: warn
    tags: warn
`, DefaultMatchMode, DefaultDurationBucket, DefaultAction, DefaultKeepStrategy,
		DefaultMinSize, DefaultWorkers, DefaultOutput, DefaultRetentionDays)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("failed to write default config: %w", err)
	}
	return true, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
