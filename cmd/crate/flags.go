package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/crate/pkg/crate/config"
	"github.com/jamesainslie/crate/pkg/crate/types"
)

// Flags that exist only on the command line.
var (
	sourceDir  string
	compareDir string
	dryRun     bool
	assumeYes  bool
	exportCSV  string
	exportJSON string
)

// configFlags maps dupes flags to the config keys they override.
var configFlags = map[string]string{
	"match-mode":         "match_mode",
	"duration-bucket":    "duration_bucket",
	"action":             "action",
	"keep-strategy":      "keep_strategy",
	"review-dir":         "review_dir",
	"prefer-origin":      "prefer_origin",
	"cleanup-empty-dirs": "cleanup_empty_dirs",
	"trash":              "trash",
	"output":             "output",
	"min-size":           "min_size",
	"exclude":            "exclude",
	"workers":            "workers",
	"cache":              "cache.enabled",
}

func registerDupesFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&sourceDir, "source", "", "primary music folder (required)")
	f.StringVar(&compareDir, "compare", "", "second folder; only cross-folder duplicates are reported")
	f.BoolVarP(&dryRun, "dry-run", "n", false, "preview actions without changing files")
	f.BoolVarP(&assumeYes, "yes", "y", false, "confirm move/delete")
	f.StringVar(&exportCSV, "export-csv", "", "write decisions to a CSV file")
	f.StringVar(&exportJSON, "export-json", "", "write decisions to a JSON file")

	f.String("match-mode", config.DefaultMatchMode, "duplicate detection: hash, metadata or hybrid")
	f.Int("duration-bucket", config.DefaultDurationBucket, "duration bucket in seconds for metadata matching")
	f.String("action", config.DefaultAction, "what to do with duplicates: report, move or delete")
	f.String("keep-strategy", config.DefaultKeepStrategy, "which file to keep: best, newest or oldest")
	f.String("review-dir", "", "destination for moved duplicates (required with --action move)")
	f.String("prefer-origin", "", "keep files from source or compare first (requires --compare)")
	f.Bool("cleanup-empty-dirs", false, "remove directories emptied by move/delete")
	f.Bool("trash", false, "send deleted files to the system trash")
	f.StringP("output", "o", config.DefaultOutput, "output format: pretty, plain, json, csv, yaml or paths")
	f.StringP("min-size", "s", "", "skip audio files smaller than this (e.g. 512K, 1M)")
	f.StringSliceP("exclude", "e", nil, "exclude path prefix or glob (repeatable)")
	f.IntP("workers", "w", 0, "extraction workers (0=auto)")
	f.Bool("cache", false, "reuse tags and hashes of unchanged files between runs")

	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagDirname("source")
	_ = cmd.MarkFlagDirname("compare")
	_ = cmd.MarkFlagDirname("review-dir")

	for flag, key := range configFlags {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}
}

// buildDupesOptions parses the merged configuration into dupesOptions.
func buildDupesOptions(cfg *config.Config) (dupesOptions, error) {
	var opts dupesOptions
	var err error

	if opts.MatchMode, err = types.ParseMatchMode(cfg.MatchMode); err != nil {
		return opts, err
	}
	if opts.Action, err = types.ParseAction(cfg.Action); err != nil {
		return opts, err
	}
	if opts.KeepStrategy, err = types.ParseKeepStrategy(cfg.KeepStrategy); err != nil {
		return opts, err
	}
	if opts.PreferOrigin, err = types.ParseOrigin(cfg.PreferOrigin); err != nil {
		return opts, err
	}
	if cfg.DurationBucket < 1 {
		return opts, fmt.Errorf("invalid duration bucket %d: must be at least 1 second", cfg.DurationBucket)
	}
	opts.DurationBucket = cfg.DurationBucket

	if cfg.MinSize != "" {
		if opts.MinSize, err = types.ParseSize(cfg.MinSize); err != nil {
			return opts, fmt.Errorf("invalid min-size %q: %w", cfg.MinSize, err)
		}
	}

	paths := []struct {
		dst *string
		src string
	}{
		{&opts.Source, sourceDir},
		{&opts.Compare, compareDir},
		{&opts.ReviewDir, cfg.ReviewDir},
		{&opts.ExportCSV, exportCSV},
		{&opts.ExportJSON, exportJSON},
	}
	for _, p := range paths {
		if *p.dst, err = config.ExpandPath(p.src); err != nil {
			return opts, err
		}
	}

	opts.CleanupEmptyDirs = cfg.CleanupEmptyDirs
	opts.DryRun = dryRun
	opts.Yes = assumeYes
	opts.Trash = cfg.Trash
	opts.Output = strings.ToLower(cfg.Output)
	opts.Exclude = parseExcludes(cfg.Exclude)
	opts.Workers = cfg.Workers
	opts.Cache = cfg.Cache.Enabled
	opts.CachePath = cfg.Cache.Path
	opts.Manifest = cfg.Manifest.Enabled
	opts.ManifestPath = cfg.Manifest.Path
	return opts, nil
}

// parseExcludes flattens comma-separated entries and expands ~.
func parseExcludes(raw []string) []string {
	var out []string
	for _, entry := range raw {
		for _, p := range parseCommaSeparated(entry) {
			if expanded, err := config.ExpandPath(p); err == nil {
				p = expanded
			}
			out = append(out, p)
		}
	}
	return out
}

// parseCommaSeparated splits a comma-separated string and trims whitespace.
func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
