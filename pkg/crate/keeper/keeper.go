// Package keeper picks the surviving file of a duplicate group.
package keeper

import (
	"path/filepath"
	"strings"

	"github.com/jamesainslie/crate/pkg/crate/types"
)

// losslessExtensions are containers whose audio is always lossless.
var losslessExtensions = map[string]bool{
	".flac": true,
	".wav":  true,
	".aif":  true,
	".aiff": true,
	".ape":  true,
	".wv":   true,
}

// IsLossless reports whether the track is in a lossless container or
// reports a bit depth, which lossy codecs do not.
func IsLossless(t types.TrackFile) bool {
	if losslessExtensions[strings.ToLower(filepath.Ext(t.Path))] {
		return true
	}
	return t.BitsPerSample > 0
}

// Compare orders two tracks by quality for the best strategy. It returns a
// negative number when a is worse than b, positive when better, and zero only
// when both have the same path.
//
// The ranking is lossless first, then bitrate, sample rate, bit depth, size,
// modification time and finally path.
func Compare(a, b types.TrackFile) int {
	if c := compareBool(IsLossless(a), IsLossless(b)); c != 0 {
		return c
	}
	if c := compareInt(int64(a.BitrateKbps), int64(b.BitrateKbps)); c != 0 {
		return c
	}
	if c := compareInt(int64(a.SampleRate), int64(b.SampleRate)); c != 0 {
		return c
	}
	if c := compareInt(int64(a.BitsPerSample), int64(b.BitsPerSample)); c != 0 {
		return c
	}
	if c := compareInt(a.SizeBytes, b.SizeBytes); c != 0 {
		return c
	}
	return compareAge(a, b)
}

// compareAge orders by modification time, then path.
func compareAge(a, b types.TrackFile) int {
	if c := a.ModTime.Compare(b.ModTime); c != 0 {
		return c
	}
	return strings.Compare(a.Path, b.Path)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Choose returns the member of group to keep.
//
// When prefer is non-empty and at least one member has that origin, only
// those members are candidates. The strategy then picks the newest, the
// oldest, or the best quality candidate; an empty strategy means best.
// Choose panics on an empty group.
func Choose(group []types.TrackFile, strategy types.KeepStrategy, prefer types.Origin) types.TrackFile {
	candidates := group
	if prefer != "" {
		var preferred []types.TrackFile
		for _, t := range group {
			if t.Origin == prefer {
				preferred = append(preferred, t)
			}
		}
		if len(preferred) > 0 {
			candidates = preferred
		}
	}

	var cmp func(a, b types.TrackFile) int
	switch strategy {
	case types.KeepNewest:
		cmp = compareAge
	case types.KeepOldest:
		cmp = func(a, b types.TrackFile) int { return compareAge(b, a) }
	default:
		cmp = Compare
	}

	keep := candidates[0]
	for _, t := range candidates[1:] {
		if cmp(t, keep) > 0 {
			keep = t
		}
	}
	return keep
}
