package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/crate/pkg/crate/cache"
	"github.com/jamesainslie/crate/pkg/crate/types"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the tag and hash cache",
	Long: `The cache keeps tags, stream info and content hashes of files whose size
and modification time have not changed, so repeat runs with --cache skip
re-reading them. It lives under $XDG_CACHE_HOME/crate/tracks by default.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [dir]",
	Short: "Remove cached entries, optionally only those below dir",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheClear,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove entries for files that no longer exist",
	RunE:  runCachePrune,
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := cachePath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

func cachePath() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Cache.Path == "" {
		return cache.DefaultDir(), nil
	}
	return cfg.Cache.Path, nil
}

// openExistingCache opens the cache, or returns nil when it was never created.
func openExistingCache() (*cache.Cache, string, error) {
	path, err := cachePath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, path, nil
	}
	c, err := cache.Open(path)
	if err != nil {
		return nil, path, err
	}
	return c, path, nil
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	c, path, err := openExistingCache()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cache location: %s\n", path)
	if c == nil {
		fmt.Fprintln(out, "Cache: empty (not created yet)")
		return nil
	}
	defer c.Close()

	st, err := c.Stats()
	if err != nil {
		return fmt.Errorf("reading cache: %w", err)
	}
	fmt.Fprintf(out, "Entries:        %d\n", st.Entries)
	fmt.Fprintf(out, "Size on disk:   %s\n", types.FormatSize(st.DiskSize))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	c, _, err := openExistingCache()
	if err != nil {
		return err
	}
	if c == nil {
		printInfo(cmd.OutOrStdout(), "Cache is already empty.")
		return nil
	}
	defer c.Close()

	dir := ""
	if len(args) == 1 {
		if dir, err = filepath.Abs(args[0]); err != nil {
			return err
		}
	}
	if err := c.Clear(dir); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	if dir == "" {
		printInfo(cmd.OutOrStdout(), "Cache cleared.")
	} else {
		printInfo(cmd.OutOrStdout(), "Cleared cache entries below %s.", dir)
	}
	return nil
}

func runCachePrune(cmd *cobra.Command, _ []string) error {
	c, _, err := openExistingCache()
	if err != nil {
		return err
	}
	if c == nil {
		printInfo(cmd.OutOrStdout(), "Cache is already empty.")
		return nil
	}
	defer c.Close()

	n, err := c.Prune()
	if err != nil {
		return fmt.Errorf("failed to prune cache: %w", err)
	}
	printInfo(cmd.OutOrStdout(), "Removed %d stale entries.", n)
	return nil
}
