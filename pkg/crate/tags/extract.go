// Package tags reads the facts crate matches on from audio files: tag
// artist and title, stream properties such as duration and bit depth, and
// an optional content digest.
package tags

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"github.com/jamesainslie/crate/pkg/crate/logging"
	"github.com/jamesainslie/crate/pkg/crate/types"
)

var logger = logging.Get("tags")

// AudioExtensions is the set of file extensions crate scans.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".aif":  true,
	".aiff": true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".opus": true,
	".wma":  true,
	".ape":  true,
	".wv":   true,
}

// IsAudio reports whether path has a supported audio extension.
func IsAudio(path string) bool {
	return AudioExtensions[strings.ToLower(filepath.Ext(path))]
}

// ErrHashFailed marks an extraction whose record is usable but whose content
// digest could not be computed.
var ErrHashFailed = errors.New("content hash failed")

// Extractor produces a track record for a file.
type Extractor interface {
	Extract(path string, origin types.Origin, withHash bool) (types.TrackFile, error)
}

// FileExtractor reads records straight from disk.
//
// Unreadable or missing tags and stream headers leave the corresponding
// fields unknown. Extract fails only when the file cannot be stat'ed. When
// hashing fails the record is still returned, with HashState set to
// HashFailed, together with an error wrapping ErrHashFailed.
type FileExtractor struct{}

// Extract implements Extractor.
func (FileExtractor) Extract(path string, origin types.Origin, withHash bool) (types.TrackFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.TrackFile{}, err
	}
	if !info.Mode().IsRegular() {
		return types.TrackFile{}, fmt.Errorf("%s: not a regular file", path)
	}

	rec := types.TrackFile{
		Path:      path,
		Origin:    origin,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}

	readTags(&rec)
	readStream(&rec)

	if !withHash {
		return rec, nil
	}
	sum, err := HashFile(path)
	if err != nil {
		rec.HashState = types.HashFailed
		return rec, fmt.Errorf("%w: %v", ErrHashFailed, err)
	}
	rec.FileHash = sum
	rec.HashState = types.HashComputed
	return rec, nil
}

// readTags fills artist and title from ID3, Vorbis comment or MP4 atoms.
func readTags(rec *types.TrackFile) {
	f, err := os.Open(rec.Path)
	if err != nil {
		logger.Debug("open for tags failed", "path", rec.Path, "error", err)
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if !errors.Is(err, tag.ErrNoTagsFound) {
			logger.Debug("tag read failed", "path", rec.Path, "error", err)
		}
		return
	}
	rec.Artist = strings.TrimSpace(m.Artist())
	rec.Title = strings.TrimSpace(m.Title())
}
