// Package scanner walks library roots and turns every audio file it finds
// into a track record. Directory traversal runs on fastwalk; extraction runs
// on a bounded worker pool fed through a channel.
package scanner

import (
	"errors"

	"github.com/jamesainslie/crate/pkg/crate/tags"
	"github.com/jamesainslie/crate/pkg/crate/tuner"
	"github.com/jamesainslie/crate/pkg/crate/types"
)

// ErrNoRoots is returned when Scan is called without any roots.
var ErrNoRoots = errors.New("no scan roots given")

// Root is a directory to scan and the origin its files are tagged with.
type Root struct {
	Path   string
	Origin types.Origin
}

// Progress is a point-in-time view of a running scan.
type Progress struct {
	FilesFound     int64
	FilesExtracted int64
	BytesFound     int64
	CurrentPath    string
	WalkComplete   bool
}

// Options configures a Scanner.
type Options struct {
	// Roots are walked in order. A file reachable from more than one root is
	// attributed to the first.
	Roots []Root

	// MinSize skips audio files smaller than this many bytes.
	MinSize int64

	// Exclude holds path prefixes or glob patterns. Globs are matched against
	// both the base name and the full path.
	Exclude []string

	// WithHash requests a content hash for every record.
	WithHash bool

	// Walkers is the fastwalk directory concurrency.
	Walkers int

	// Workers is the number of concurrent extractors.
	Workers int

	// QueueSize bounds the walker to extractor channel.
	QueueSize int

	// Extractor reads records. Defaults to tags.FileExtractor.
	Extractor tags.Extractor

	// OnProgress is called periodically. It must be safe for concurrent use.
	OnProgress func(Progress)
}

// Validate fills in defaults for unset fields.
func (o *Options) Validate() error {
	if len(o.Roots) == 0 {
		return ErrNoRoots
	}
	plan := tuner.Auto(o.Workers)
	if o.Walkers < 1 {
		o.Walkers = plan.Walkers
	}
	if o.Workers < 1 {
		o.Workers = plan.Extractors
	}
	if o.QueueSize < 1 {
		o.QueueSize = o.Workers * 16
	}
	if o.Extractor == nil {
		o.Extractor = tags.FileExtractor{}
	}
	return nil
}
