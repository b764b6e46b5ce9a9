package cache

import (
	"bytes"
	"encoding/gob"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jamesainslie/crate/pkg/crate/types"
)

// Version is bumped whenever Entry changes shape. Keys from other versions
// are never read.
const Version = 1

// KeySeparator separates the version tag from the path in keys.
const KeySeparator = '\x00'

// Entry is the cached extraction result for one file. It is valid only while
// the file's size and modification time are unchanged.
type Entry struct {
	Size  int64
	Mtime int64

	Artist        string
	Title         string
	DurationSec   float64
	HasDuration   bool
	BitrateKbps   int
	SampleRate    int
	BitsPerSample int

	// Hash is empty when the file was scanned without hashing.
	Hash string
}

// NewEntry captures the cacheable fields of a record.
func NewEntry(t types.TrackFile) *Entry {
	e := &Entry{
		Size:          t.SizeBytes,
		Mtime:         t.ModTime.UnixNano(),
		Artist:        t.Artist,
		Title:         t.Title,
		DurationSec:   t.DurationSec,
		HasDuration:   t.HasDuration,
		BitrateKbps:   t.BitrateKbps,
		SampleRate:    t.SampleRate,
		BitsPerSample: t.BitsPerSample,
	}
	if t.HasHash() {
		e.Hash = t.FileHash
	}
	return e
}

// Matches reports whether the entry still describes a file of this size and
// modification time.
func (e *Entry) Matches(size int64, mtime time.Time) bool {
	return e.Size == size && e.Mtime == mtime.UnixNano()
}

// Track rebuilds a record from the entry. The hash is included only when
// withHash is set and the entry has one.
func (e *Entry) Track(path string, origin types.Origin, withHash bool) types.TrackFile {
	t := types.TrackFile{
		Path:          path,
		Origin:        origin,
		SizeBytes:     e.Size,
		ModTime:       time.Unix(0, e.Mtime),
		Artist:        e.Artist,
		Title:         e.Title,
		DurationSec:   e.DurationSec,
		HasDuration:   e.HasDuration,
		BitrateKbps:   e.BitrateKbps,
		SampleRate:    e.SampleRate,
		BitsPerSample: e.BitsPerSample,
	}
	if withHash && e.Hash != "" {
		t.FileHash = e.Hash
		t.HashState = types.HashComputed
	}
	return t
}

// Encode serializes the entry with gob.
func (e *Entry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes gob data into the entry.
func (e *Entry) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

var keyPrefix = "v" + strconv.Itoa(Version) + string(KeySeparator)

// MakeKey returns the store key for an absolute file path.
func MakeKey(path string) []byte {
	return []byte(keyPrefix + path)
}

// ParseKey returns the path stored in key, or false for keys written by
// another version.
func ParseKey(key []byte) (string, bool) {
	if !bytes.HasPrefix(key, []byte(keyPrefix)) {
		return "", false
	}
	return string(key[len(keyPrefix):]), true
}

// MakeDirPrefix returns the key prefix of every file below dir.
func MakeDirPrefix(dir string) []byte {
	dir = filepath.Clean(dir)
	if dir != string(filepath.Separator) {
		dir += string(filepath.Separator)
	}
	return []byte(keyPrefix + dir)
}
