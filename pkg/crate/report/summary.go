package report

import (
	"fmt"

	"github.com/jamesainslie/crate/pkg/crate/resolve"
	"github.com/jamesainslie/crate/pkg/crate/types"
)

// NewSummary builds a Summary from the resolve engine's counters.
func NewSummary(filesScanned, groups int, stats resolve.Stats, action types.Action, dryRun bool) Summary {
	return Summary{
		FilesScanned:     filesScanned,
		Groups:           groups,
		Duplicates:       stats.Duplicates,
		Moved:            stats.Moved,
		Deleted:          stats.Deleted,
		Failed:           stats.Failed,
		ReclaimableBytes: stats.Bytes,
		Action:           action,
		DryRun:           dryRun,
	}
}

// Lines returns the human readable run summary, one statement per line.
func (s Summary) Lines() []string {
	lines := []string{
		fmt.Sprintf("Scanned tracks: %d", s.FilesScanned),
		fmt.Sprintf("Duplicate groups: %d", s.Groups),
	}
	if s.Groups == 0 {
		return append(lines, "No duplicates detected.")
	}

	lines = append(lines, fmt.Sprintf("Duplicates found: %d", s.Duplicates))
	switch s.Action {
	case types.ActionMove:
		lines = append(lines, fmt.Sprintf("Duplicates %s: %d", s.verb("moved", "would move"), s.Moved))
	case types.ActionDelete:
		lines = append(lines, fmt.Sprintf("Duplicates %s: %d", s.verb("deleted", "would delete"), s.Deleted))
	default:
		lines = append(lines, "Report-only mode selected; no files modified.")
	}

	if s.Failed > 0 {
		lines = append(lines, fmt.Sprintf("Failed operations: %d", s.Failed))
	}
	if s.ReclaimableBytes > 0 {
		lines = append(lines, fmt.Sprintf("Space %s: %s", s.verb("reclaimed", "reclaimable"), types.FormatSize(s.ReclaimableBytes)))
	}
	return lines
}

func (s Summary) verb(done, planned string) string {
	if s.DryRun {
		return planned
	}
	return done
}
