package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/crate/pkg/crate/config"
	"github.com/jamesainslie/crate/pkg/crate/logging"
	"github.com/jamesainslie/crate/pkg/crate/types"
)

// defaultMaxLogSize applies when logging.rotation.max_size is empty or invalid.
const defaultMaxLogSize = 10 * types.MiB

// initializeLogging creates the XDG directories and starts the file logger.
// With --verbose, debug records are also written to stderr.
func initializeLogging(_ *cobra.Command, _ []string) error {
	if err := config.EnsureDirs(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Rotation:   parseRotationConfig(cfg.Logging.Rotation),
		Components: cfg.Logging.Components,
	}
	if getVerbose() {
		logCfg.Level = "debug"
		logCfg.ConsoleLevel = "debug"
	}

	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	return nil
}

// parseRotationConfig converts the config file's rotation settings.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	maxSize := int64(defaultMaxLogSize)
	if rc.MaxSize != "" {
		if parsed, err := types.ParseSize(rc.MaxSize); err == nil && parsed > 0 {
			maxSize = parsed
		}
	}
	return logging.RotationConfig{
		MaxSize:    maxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
}
