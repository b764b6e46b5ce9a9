package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/crate/pkg/crate/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage crate configuration settings.

Configuration is loaded from:
  1. --config, when given
  2. $XDG_CONFIG_HOME/crate/config.yaml (if set)
  3. ~/.config/crate/config.yaml

Environment variables override config file settings using the CRATE_ prefix:
  CRATE_MATCH_MODE=metadata
  CRATE_KEEP_STRATEGY=newest
  CRATE_CACHE_ENABLED=true`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the merged configuration from defaults, file and environment as YAML.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your editor ($VISUAL, then $EDITOR, then vi).
A default file is created first if none exists.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// configFilePath returns the file in use, or the default location.
func configFilePath() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}
	return config.ConfigPath()
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "# config file: %s\n", used)
	} else {
		fmt.Fprintln(out, "# config file: (none, using defaults)")
	}

	var overrides []string
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, config.EnvPrefix+"_") {
			overrides = append(overrides, env)
		}
	}
	for _, o := range overrides {
		fmt.Fprintf(out, "# env override: %s\n", o)
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(showView(cfg)); err != nil {
		return err
	}
	return enc.Close()
}

// showView mirrors config.Config with YAML keys.
func showView(cfg *config.Config) map[string]any {
	return map[string]any{
		"match_mode":         cfg.MatchMode,
		"duration_bucket":    cfg.DurationBucket,
		"action":             cfg.Action,
		"keep_strategy":      cfg.KeepStrategy,
		"prefer_origin":      cfg.PreferOrigin,
		"review_dir":         cfg.ReviewDir,
		"cleanup_empty_dirs": cfg.CleanupEmptyDirs,
		"trash":              cfg.Trash,
		"min_size":           cfg.MinSize,
		"exclude":            cfg.Exclude,
		"workers":            cfg.Workers,
		"output":             cfg.Output,
		"cache": map[string]any{
			"enabled": cfg.Cache.Enabled,
			"path":    cfg.Cache.Path,
		},
		"manifest": map[string]any{
			"enabled":        cfg.Manifest.Enabled,
			"path":           cfg.Manifest.Path,
			"retention_days": cfg.Manifest.RetentionDays,
		},
		"logging": map[string]any{
			"level": cfg.Logging.Level,
			"path":  cfg.Logging.Path,
			"rotation": map[string]any{
				"max_size":    cfg.Logging.Rotation.MaxSize,
				"max_age":     cfg.Logging.Rotation.MaxAge,
				"max_backups": cfg.Logging.Rotation.MaxBackups,
				"daily":       cfg.Logging.Rotation.Daily,
			},
			"components": cfg.Logging.Components,
		},
	}
}

func runConfigEdit(_ *cobra.Command, _ []string) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}
	if _, err := config.WriteDefault(path); err != nil {
		return err
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}
	printVerbose("Opening %s with %s", path, editor)

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}
	written, err := config.WriteDefault(path)
	if err != nil {
		return err
	}
	if !written {
		printInfo(cmd.OutOrStdout(), "Config file already exists: %s", path)
		printInfo(cmd.OutOrStdout(), "Use 'crate config edit' to modify it.")
		return nil
	}
	printInfo(cmd.OutOrStdout(), "Created default config file: %s", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		printVerbose("File does not exist (defaults in use)")
	}
	return nil
}
