// Package group partitions scanned tracks into duplicate groups.
//
// Tracks are connected when they share a content hash, a normalized metadata
// key, or both, depending on the match mode. Any single shared signal is
// enough to merge two tracks, and merges are transitive.
package group

import (
	"sort"

	"github.com/jamesainslie/crate/pkg/crate/logging"
	"github.com/jamesainslie/crate/pkg/crate/normalize"
	"github.com/jamesainslie/crate/pkg/crate/types"
)

var logger = logging.Get("group")

// Group is a set of two or more tracks judged to be the same recording.
// Members are sorted by path.
type Group []types.TrackFile

// Size returns the total bytes held by the group.
func (g Group) Size() int64 {
	var total int64
	for _, t := range g {
		total += t.SizeBytes
	}
	return total
}

// Origins returns the number of distinct origins among the members.
func (g Group) Origins() int {
	seen := make(map[types.Origin]struct{}, 2)
	for _, t := range g {
		seen[t.Origin] = struct{}{}
	}
	return len(seen)
}

// Options controls duplicate detection.
type Options struct {
	// Mode selects hash, metadata or hybrid matching.
	Mode types.MatchMode

	// DurationBucket is the rounding granularity in seconds for metadata keys.
	DurationBucket int

	// CrossCompareOnly drops groups whose members all share one origin.
	CrossCompareOnly bool
}

// Detect groups tracks into duplicate sets. Singletons are dropped. The result
// is ordered by each group's first path, so the output does not depend on the
// order of the input.
func Detect(tracks []types.TrackFile, opts Options) []Group {
	if len(tracks) == 0 {
		return nil
	}

	uf := NewUnionFind(len(tracks))

	if opts.Mode.UsesHash() {
		byHash := make(map[string][]int)
		for i, t := range tracks {
			if t.HasHash() {
				byHash[t.FileHash] = append(byHash[t.FileHash], i)
			}
		}
		for _, indices := range byHash {
			uf.connect(indices)
		}
		logger.Debug("hash pass complete", "buckets", len(byHash))
	}

	if opts.Mode.UsesMetadata() {
		byKey := make(map[string][]int)
		for i, t := range tracks {
			key := normalize.MetadataKey(t.Artist, t.Title, t.DurationSec, t.HasDuration, opts.DurationBucket)
			if key != "" {
				byKey[key] = append(byKey[key], i)
			}
		}
		for _, indices := range byKey {
			uf.connect(indices)
		}
		logger.Debug("metadata pass complete", "buckets", len(byKey))
	}

	components := make(map[int][]int)
	for i := range tracks {
		root := uf.Find(i)
		components[root] = append(components[root], i)
	}

	var groups []Group
	for _, indices := range components {
		if len(indices) < 2 {
			continue
		}
		g := make(Group, 0, len(indices))
		for _, i := range indices {
			g = append(g, tracks[i])
		}
		if opts.CrossCompareOnly && g.Origins() < 2 {
			continue
		}
		sort.Slice(g, func(i, j int) bool { return g[i].Path < g[j].Path })
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i][0].Path < groups[j][0].Path })

	logger.Info("duplicate detection complete",
		"tracks", len(tracks),
		"groups", len(groups),
		"mode", opts.Mode,
		"cross_compare", opts.CrossCompareOnly,
	)
	return groups
}
