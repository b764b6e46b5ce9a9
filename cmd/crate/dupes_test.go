package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/crate/pkg/crate/manifest"
	"github.com/jamesainslie/crate/pkg/crate/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func setMtime(t *testing.T, path string, ts time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, ts, ts))
}

// newOpts returns validated options for a hybrid-mode report run over source.
func newOpts(t *testing.T, source string, mutate func(*dupesOptions)) dupesOptions {
	t.Helper()
	state := t.TempDir()
	opts := dupesOptions{
		Source:         source,
		MatchMode:      types.MatchHybrid,
		DurationBucket: 2,
		Action:         types.ActionReport,
		KeepStrategy:   types.KeepBest,
		Output:         "plain",
		Manifest:       true,
		ManifestPath:   filepath.Join(state, "history"),
		CachePath:      filepath.Join(state, "cache"),
	}
	if mutate != nil {
		mutate(&opts)
	}
	require.NoError(t, opts.validate())
	return opts
}

func readDecisions(t *testing.T, path string) []types.Decision {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decisions []types.Decision
	require.NoError(t, json.Unmarshal(data, &decisions))
	return decisions
}

func TestRunDupesReportOnly(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.mp3"), "identical audio payload")
	writeFile(t, filepath.Join(src, "sub", "b.mp3"), "identical audio payload")
	writeFile(t, filepath.Join(src, "c.mp3"), "something else entirely")
	writeFile(t, filepath.Join(src, "notes.txt"), "identical audio payload")

	exports := t.TempDir()
	opts := newOpts(t, src, func(o *dupesOptions) {
		o.ExportCSV = filepath.Join(exports, "report.csv")
		o.ExportJSON = filepath.Join(exports, "report.json")
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, runDupes(context.Background(), opts, &stdout, &stderr))

	out := stdout.String()
	assert.Contains(t, out, "Scanned tracks: 3")
	assert.Contains(t, out, "Duplicate groups: 1")
	assert.Contains(t, out, "Duplicates found: 1")
	assert.Contains(t, out, "Report-only mode selected; no files modified.")
	assert.Contains(t, out, "CSV report written:")
	assert.Contains(t, out, "JSON report written:")

	assert.FileExists(t, filepath.Join(src, "a.mp3"))
	assert.FileExists(t, filepath.Join(src, "sub", "b.mp3"))

	decisions := readDecisions(t, opts.ExportJSON)
	require.Len(t, decisions, 2)
	assert.Equal(t, types.RoleKeep, decisions[0].Role)
	assert.Equal(t, types.RoleDuplicate, decisions[1].Role)
	assert.Equal(t, types.ActionReport, decisions[1].Action)
	assert.Equal(t, decisions[0].Path, decisions[1].KeepPath)

	csvData, err := os.ReadFile(opts.ExportCSV)
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "group_id,role,action,origin,path,target_path,keep_path,keep_strategy,reason")

	entries, err := os.ReadDir(opts.ManifestPath)
	if err == nil {
		assert.Empty(t, entries, "report runs are not recorded")
	}
}

func TestRunDupesMoveOldest(t *testing.T) {
	src := t.TempDir()
	keep := filepath.Join(src, "album", "track.mp3")
	dupe := filepath.Join(src, "copies", "track.mp3")
	writeFile(t, keep, "identical audio payload")
	writeFile(t, dupe, "identical audio payload")
	now := time.Now()
	setMtime(t, keep, now.Add(-48*time.Hour))
	setMtime(t, dupe, now.Add(-1*time.Hour))

	review := filepath.Join(t.TempDir(), "review")
	opts := newOpts(t, src, func(o *dupesOptions) {
		o.Action = types.ActionMove
		o.KeepStrategy = types.KeepOldest
		o.ReviewDir = review
		o.CleanupEmptyDirs = true
		o.Yes = true
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, runDupes(context.Background(), opts, &stdout, &stderr))

	out := stdout.String()
	assert.Contains(t, out, "Duplicates moved: 1")
	assert.Contains(t, out, "Space reclaimed:")
	assert.Contains(t, out, "Run recorded: move-")

	assert.FileExists(t, keep)
	assert.NoFileExists(t, dupe)
	assert.FileExists(t, filepath.Join(review, "track.mp3"))
	assert.NoDirExists(t, filepath.Join(src, "copies"), "emptied directory is pruned")
	assert.DirExists(t, src)

	m, err := manifest.New(opts.ManifestPath)
	require.NoError(t, err)
	entries, err := m.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, manifest.OpMove, entries[0].Operation)
	require.Len(t, entries[0].Files, 1)
	assert.Equal(t, filepath.Join(review, "track.mp3"), entries[0].Files[0].Target)
}

func TestRunDupesMoveDryRun(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.mp3"), "identical audio payload")
	writeFile(t, filepath.Join(src, "b.mp3"), "identical audio payload")

	review := filepath.Join(t.TempDir(), "review")
	opts := newOpts(t, src, func(o *dupesOptions) {
		o.Action = types.ActionMove
		o.ReviewDir = review
		o.DryRun = true
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, runDupes(context.Background(), opts, &stdout, &stderr))

	assert.Contains(t, stdout.String(), "Duplicates would move: 1")
	assert.NotContains(t, stdout.String(), "Run recorded")
	assert.FileExists(t, filepath.Join(src, "a.mp3"))
	assert.FileExists(t, filepath.Join(src, "b.mp3"))
	assert.NoDirExists(t, review)
}

func TestRunDupesCrossCompare(t *testing.T) {
	src := t.TempDir()
	cmp := t.TempDir()
	writeFile(t, filepath.Join(src, "song.mp3"), "shared across folders")
	writeFile(t, filepath.Join(cmp, "song copy.mp3"), "shared across folders")
	// Duplicates within a single folder are not cross-folder matches.
	writeFile(t, filepath.Join(src, "x.mp3"), "only in source twice")
	writeFile(t, filepath.Join(src, "y.mp3"), "only in source twice")

	exports := t.TempDir()
	opts := newOpts(t, src, func(o *dupesOptions) {
		o.Compare = cmp
		o.Action = types.ActionDelete
		o.PreferOrigin = types.OriginCompare
		o.DryRun = true
		o.ExportJSON = filepath.Join(exports, "report.json")
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, runDupes(context.Background(), opts, &stdout, &stderr))

	out := stdout.String()
	assert.Contains(t, out, "Scanned tracks: 4")
	assert.Contains(t, out, "Duplicate groups: 1")
	assert.Contains(t, out, "Duplicates would delete: 1")

	assert.FileExists(t, filepath.Join(src, "song.mp3"))
	assert.FileExists(t, filepath.Join(cmp, "song copy.mp3"))

	decisions := readDecisions(t, opts.ExportJSON)
	require.Len(t, decisions, 2)
	assert.Equal(t, types.RoleKeep, decisions[0].Role)
	assert.Equal(t, types.OriginCompare, decisions[0].Origin)
	assert.Equal(t, types.OriginSource, decisions[1].Origin)
	assert.Equal(t, types.ActionDelete, decisions[1].Action)
}

func TestRunDupesDelete(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.flac"), "lossless bytes")
	writeFile(t, filepath.Join(src, "dup", "a.flac"), "lossless bytes")
	now := time.Now()
	setMtime(t, filepath.Join(src, "a.flac"), now.Add(-time.Hour))
	setMtime(t, filepath.Join(src, "dup", "a.flac"), now)

	opts := newOpts(t, src, func(o *dupesOptions) {
		o.MatchMode = types.MatchHash
		o.Action = types.ActionDelete
		o.KeepStrategy = types.KeepNewest
		o.Yes = true
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, runDupes(context.Background(), opts, &stdout, &stderr))

	assert.Contains(t, stdout.String(), "Duplicates deleted: 1")
	assert.FileExists(t, filepath.Join(src, "dup", "a.flac"))
	assert.NoFileExists(t, filepath.Join(src, "a.flac"))
	assert.DirExists(t, filepath.Join(src, "dup"))
}

func TestRunDupesNoAudio(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "readme.txt"), "hello")

	exports := t.TempDir()
	opts := newOpts(t, src, func(o *dupesOptions) {
		o.ExportJSON = filepath.Join(exports, "empty.json")
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, runDupes(context.Background(), opts, &stdout, &stderr))

	assert.Contains(t, stdout.String(), "No supported audio files found.")
	assert.Empty(t, readDecisions(t, opts.ExportJSON))
}

func TestRunDupesJSONOutput(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.mp3"), "identical audio payload")
	writeFile(t, filepath.Join(src, "b.mp3"), "identical audio payload")

	exports := t.TempDir()
	opts := newOpts(t, src, func(o *dupesOptions) {
		o.Output = "json"
		o.ExportCSV = filepath.Join(exports, "report.csv")
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, runDupes(context.Background(), opts, &stdout, &stderr))

	var doc struct {
		Decisions []types.Decision `json:"decisions"`
		Summary   struct {
			Groups     int `json:"groups"`
			Duplicates int `json:"duplicates"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	assert.Len(t, doc.Decisions, 2)
	assert.Equal(t, 1, doc.Summary.Groups)
	assert.Equal(t, 1, doc.Summary.Duplicates)
	assert.Contains(t, stderr.String(), "CSV report written:")
}

func TestRunDupesWithCache(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.mp3"), "identical audio payload")
	writeFile(t, filepath.Join(src, "b.mp3"), "identical audio payload")

	opts := newOpts(t, src, func(o *dupesOptions) { o.Cache = true })

	for i := 0; i < 2; i++ {
		var stdout, stderr bytes.Buffer
		require.NoError(t, runDupes(context.Background(), opts, &stdout, &stderr))
		assert.Contains(t, stdout.String(), "Duplicate groups: 1")
	}
	assert.DirExists(t, opts.CachePath)
}

func TestRunDupesExcludesReviewDir(t *testing.T) {
	src := t.TempDir()
	review := filepath.Join(src, "_review")
	writeFile(t, filepath.Join(src, "a.mp3"), "identical audio payload")
	writeFile(t, filepath.Join(review, "a.mp3"), "identical audio payload")

	opts := newOpts(t, src, func(o *dupesOptions) {
		o.Action = types.ActionMove
		o.ReviewDir = review
		o.DryRun = true
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, runDupes(context.Background(), opts, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Scanned tracks: 1")
	assert.Contains(t, stdout.String(), "No duplicates detected.")
}

func TestRunDupesExcludesReviewDirThroughSymlink(t *testing.T) {
	base := t.TempDir()
	realDirPath := filepath.Join(base, "real")
	link := filepath.Join(base, "lib")
	writeFile(t, filepath.Join(realDirPath, "a.mp3"), "identical audio payload")
	writeFile(t, filepath.Join(realDirPath, "review", "a.mp3"), "identical audio payload")
	writeFile(t, filepath.Join(realDirPath, "skip", "a.mp3"), "identical audio payload")
	require.NoError(t, os.Symlink(realDirPath, link))

	exports := t.TempDir()
	opts := newOpts(t, link, func(o *dupesOptions) {
		o.Action = types.ActionMove
		o.ReviewDir = filepath.Join(link, "review")
		o.Exclude = []string{filepath.Join(link, "skip")}
		o.Yes = true
		o.ExportJSON = filepath.Join(exports, "report.json")
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, runDupes(context.Background(), opts, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Scanned tracks: 1")
	assert.Contains(t, stdout.String(), "No duplicates detected.")
	assert.FileExists(t, filepath.Join(realDirPath, "a.mp3"))
	assert.Empty(t, readDecisions(t, opts.ExportJSON))
}

func TestRunDupesBareFormatsReportSummaryOnStderr(t *testing.T) {
	for _, format := range []string{"csv", "paths"} {
		t.Run(format, func(t *testing.T) {
			src := t.TempDir()
			writeFile(t, filepath.Join(src, "a.mp3"), "identical audio payload")
			writeFile(t, filepath.Join(src, "b.mp3"), "identical audio payload")

			opts := newOpts(t, src, func(o *dupesOptions) { o.Output = format })

			var stdout, stderr bytes.Buffer
			require.NoError(t, runDupes(context.Background(), opts, &stdout, &stderr))

			assert.NotContains(t, stdout.String(), "Scanned tracks")
			assert.Contains(t, stdout.String(), opts.Source)
			assert.Contains(t, stderr.String(), "Scanned tracks: 2")
			assert.Contains(t, stderr.String(), "Duplicate groups: 1")
			assert.Contains(t, stderr.String(), "Duplicates found: 1")
		})
	}
}
