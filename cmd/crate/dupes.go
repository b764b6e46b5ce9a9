package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/crate/pkg/crate/cache"
	"github.com/jamesainslie/crate/pkg/crate/group"
	"github.com/jamesainslie/crate/pkg/crate/logging"
	"github.com/jamesainslie/crate/pkg/crate/manifest"
	"github.com/jamesainslie/crate/pkg/crate/report"
	"github.com/jamesainslie/crate/pkg/crate/resolve"
	"github.com/jamesainslie/crate/pkg/crate/scanner"
	"github.com/jamesainslie/crate/pkg/crate/tags"
	"github.com/jamesainslie/crate/pkg/crate/types"
)

var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "Find duplicate tracks and report, move or delete them",
	Long: `Scan --source (and optionally --compare) for audio files and group
duplicates by content hash, by normalized artist/title/duration, or both.

With --compare pointing at a different folder only groups spanning both
folders are reported. One file per group is kept according to
--keep-strategy; the rest are reported, moved to --review-dir, or deleted.
Move and delete require --yes unless --dry-run is given.`,
	Args: cobra.NoArgs,
	RunE: runDupesCmd,
}

func init() {
	registerDupesFlags(dupesCmd)
	rootCmd.AddCommand(dupesCmd)
}

func runDupesCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := buildDupesOptions(cfg)
	if err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runDupes(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// dupesOptions is the fully parsed form of the dupes flags and config.
type dupesOptions struct {
	Source           string
	Compare          string
	MatchMode        types.MatchMode
	DurationBucket   int
	Action           types.Action
	KeepStrategy     types.KeepStrategy
	ReviewDir        string
	PreferOrigin     types.Origin
	CleanupEmptyDirs bool
	DryRun           bool
	Yes              bool
	Trash            bool
	ExportCSV        string
	ExportJSON       string
	Output           string
	MinSize          int64
	Exclude          []string
	Workers          int
	Cache            bool
	CachePath        string
	Manifest         bool
	ManifestPath     string

	// crossCompare is set by validate when Compare names a distinct folder.
	crossCompare bool
}

// validate resolves directories and rejects invalid combinations before any
// scanning starts.
func (o *dupesOptions) validate() error {
	if o.Source == "" {
		return errors.New("--source is required")
	}
	src, err := resolveDir(o.Source)
	if err != nil {
		return fmt.Errorf("source directory not found: %w", err)
	}
	o.Source = src

	o.crossCompare = false
	if o.Compare != "" {
		cmp, err := resolveDir(o.Compare)
		if err != nil {
			return fmt.Errorf("compare directory not found: %w", err)
		}
		o.Compare = cmp
		o.crossCompare = cmp != src
	}

	if o.Action == types.ActionMove && o.ReviewDir == "" {
		return fmt.Errorf("--review-dir is required when --action move: %w", resolve.ErrReviewDirRequired)
	}
	// Scanned paths are symlink-resolved, so anything matched against them
	// by prefix must be too.
	if o.ReviewDir != "" {
		resolved, err := resolvePath(o.ReviewDir)
		if err != nil {
			return err
		}
		o.ReviewDir = resolved
	}
	o.Exclude = append([]string(nil), o.Exclude...)
	for i, pattern := range o.Exclude {
		if !filepath.IsAbs(pattern) {
			continue
		}
		resolved, err := resolvePath(pattern)
		if err != nil {
			return err
		}
		o.Exclude[i] = resolved
	}
	if o.PreferOrigin != "" && !o.crossCompare {
		return errors.New("--prefer-origin requires --compare with a different folder")
	}
	if o.Action.Destructive() && !o.DryRun && !o.Yes {
		return errors.New("refusing to modify files without explicit confirmation; use --yes or run with --dry-run")
	}
	if _, err := report.Get(o.Output); err != nil {
		return fmt.Errorf("%w (available: %v)", err, report.Available())
	}
	return nil
}

// resolveDir expands, absolutizes and symlink-resolves path, which must be
// a directory.
func resolveDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: not a directory", resolved)
	}
	return resolved, nil
}

// resolvePath absolutizes path and resolves symlinks in its longest
// existing prefix; the part that does not exist yet is joined back as is.
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	existing, tail := abs, ""
	for {
		resolved, err := filepath.EvalSymlinks(existing)
		if err == nil {
			return filepath.Join(resolved, tail), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		tail = filepath.Join(filepath.Base(existing), tail)
		existing = parent
	}
}

func (o *dupesOptions) roots() []scanner.Root {
	roots := []scanner.Root{{Path: o.Source, Origin: types.OriginSource}}
	if o.crossCompare {
		roots = append(roots, scanner.Root{Path: o.Compare, Origin: types.OriginCompare})
	}
	return roots
}

func (o *dupesOptions) pruneRoots() []string {
	if o.crossCompare {
		return []string{o.Source, o.Compare}
	}
	return []string{o.Source}
}

// machineReadable reports whether stdout carries a parseable document, in
// which case status lines go to stderr.
func (o *dupesOptions) machineReadable() bool {
	switch o.Output {
	case "json", "csv", "yaml", "paths":
		return true
	}
	return false
}

// runDupes scans, groups, resolves and reports. opts must be validated.
func runDupes(ctx context.Context, opts dupesOptions, stdout, stderr io.Writer) error {
	start := time.Now()
	warnings := logging.Capture(logging.LevelWarn, logging.DefaultBufferSize)
	defer logging.Release(warnings)

	status := stdout
	if opts.machineReadable() {
		status = stderr
	}

	var extractor tags.Extractor = tags.FileExtractor{}
	var trackCache *cache.Cache
	if opts.Cache {
		c, err := cache.Open(opts.CachePath)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer func() {
			if err := c.Close(); err != nil {
				printError("closing cache: %v", err)
			}
		}()
		trackCache = c
		extractor = cache.Extractor{Cache: c, Next: extractor}
	}

	exclude := opts.Exclude
	if opts.ReviewDir != "" {
		exclude = append(append([]string{}, exclude...), opts.ReviewDir)
	}

	printVerbose("Scanning %v (match mode %s)", opts.pruneRoots(), opts.MatchMode)
	scan, err := scanner.Scan(ctx, scanner.Options{
		Roots:     opts.roots(),
		MinSize:   opts.MinSize,
		Exclude:   exclude,
		WithHash:  opts.MatchMode.UsesHash(),
		Workers:   opts.Workers,
		Extractor: extractor,
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if trackCache != nil {
		if err := trackCache.Flush(); err != nil {
			printError("writing cache: %v", err)
		}
	}

	if len(scan.Tracks) == 0 {
		printInfo(status, "No supported audio files found.")
		return writeExports(opts, nil, status)
	}

	groups := group.Detect(scan.Tracks, group.Options{
		Mode:             opts.MatchMode,
		DurationBucket:   opts.DurationBucket,
		CrossCompareOnly: opts.crossCompare,
	})

	engine, err := resolve.New(resolve.Options{
		Action:           opts.Action,
		KeepStrategy:     opts.KeepStrategy,
		PreferOrigin:     opts.PreferOrigin,
		ReviewDir:        opts.ReviewDir,
		PruneRoots:       opts.pruneRoots(),
		CleanupEmptyDirs: opts.CleanupEmptyDirs,
		DryRun:           opts.DryRun,
		UseTrash:         opts.Trash,
	})
	if err != nil {
		return err
	}
	decisions, applyErr := engine.Apply(ctx, groups)
	stats := engine.Stats()

	summary := report.NewSummary(len(scan.Tracks), len(groups), stats, opts.Action, opts.DryRun)
	summary.Elapsed = time.Since(start)
	result := &report.Result{
		Decisions: decisions,
		Summary:   summary,
		Errors:    scan.Errors,
		Warnings:  warnings.Messages(),
	}
	if len(stats.PrunedDirs) > 0 {
		printVerbose("Removed %d empty directories", len(stats.PrunedDirs))
	}

	if opts.Action.Destructive() && !opts.DryRun {
		recordRun(opts, decisions, scan.Tracks, trackCache, status)
	}

	formatter, err := report.Get(opts.Output)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	if _, err := stdout.Write(buf.Bytes()); err != nil {
		return err
	}
	if !formatCarriesSummary(opts.Output) {
		writeStatusSummary(status, result)
	}

	if err := writeExports(opts, decisions, status); err != nil {
		return err
	}
	if applyErr != nil {
		return fmt.Errorf("resolution interrupted: %w", applyErr)
	}
	return nil
}

// formatCarriesSummary reports whether the stdout format includes the run
// summary itself.
func formatCarriesSummary(format string) bool {
	switch format {
	case "csv", "paths":
		return false
	}
	return true
}

// writeStatusSummary writes scan errors, warnings and the summary lines for
// formats whose stdout is bare rows.
func writeStatusSummary(w io.Writer, r *report.Result) {
	for _, e := range r.Errors {
		fmt.Fprintf(w, "error: %s: %s\n", e.Path, e.Error)
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	for _, line := range r.Summary.Lines() {
		fmt.Fprintln(w, line)
	}
}

// recordRun appends the run to history and drops handled files from the
// cache. Failures are reported but do not fail the run.
func recordRun(opts dupesOptions, decisions []types.Decision, tracks []types.TrackFile, c *cache.Cache, status io.Writer) {
	var handled []string
	for _, d := range decisions {
		if d.Role == types.RoleDuplicate && !d.Failed() {
			handled = append(handled, d.Path)
		}
	}
	if c != nil && len(handled) > 0 {
		if err := c.Forget(handled...); err != nil {
			printError("updating cache: %v", err)
		}
	}

	if !opts.Manifest {
		return
	}
	m, err := manifest.New(opts.ManifestPath)
	if err != nil {
		printError("history: %v", err)
		return
	}

	sizes := make(map[string]int64, len(tracks))
	for _, t := range tracks {
		sizes[t.Path] = t.SizeBytes
	}
	records := manifest.Records(decisions, func(p string) int64 { return sizes[p] })
	if len(records) == 0 {
		return
	}

	op := manifest.OpDelete
	if opts.Action == types.ActionMove {
		op = manifest.OpMove
	}
	entry, err := m.Log(op, opts.ReviewDir, opts.pruneRoots(), records)
	if err != nil {
		printError("history: %v", err)
		return
	}
	printInfo(status, "Run recorded: %s", entry.ID)
}

func writeExports(opts dupesOptions, decisions []types.Decision, status io.Writer) error {
	if opts.ExportCSV != "" {
		path, err := filepath.Abs(opts.ExportCSV)
		if err != nil {
			return err
		}
		if err := report.WriteCSV(path, decisions); err != nil {
			return fmt.Errorf("writing CSV report: %w", err)
		}
		printInfo(status, "CSV report written: %s", path)
	}
	if opts.ExportJSON != "" {
		path, err := filepath.Abs(opts.ExportJSON)
		if err != nil {
			return err
		}
		if err := report.WriteJSON(path, decisions); err != nil {
			return fmt.Errorf("writing JSON report: %w", err)
		}
		printInfo(status, "JSON report written: %s", path)
	}
	return nil
}
