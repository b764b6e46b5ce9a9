// Package types provides the core data types shared by the crate packages:
// scanned track records, duplicate-resolution decisions, and the enumerations
// used to configure a run.
package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Origin identifies which scanned root a track was found under.
type Origin string

// Known origins.
const (
	OriginSource  Origin = "source"
	OriginCompare Origin = "compare"
)

// MatchMode selects the signals used to decide two files are the same track.
type MatchMode string

// Supported match modes.
const (
	MatchHash     MatchMode = "hash"
	MatchMetadata MatchMode = "metadata"
	MatchHybrid   MatchMode = "hybrid"
)

// UsesHash reports whether the mode groups by content hash.
func (m MatchMode) UsesHash() bool {
	return m == MatchHash || m == MatchHybrid
}

// UsesMetadata reports whether the mode groups by normalized tags and duration.
func (m MatchMode) UsesMetadata() bool {
	return m == MatchMetadata || m == MatchHybrid
}

// KeepStrategy decides which member of a duplicate group survives.
type KeepStrategy string

// Supported keep strategies.
const (
	KeepBest   KeepStrategy = "best"
	KeepNewest KeepStrategy = "newest"
	KeepOldest KeepStrategy = "oldest"
)

// Action is what happens to the non-keeper members of a group.
type Action string

// Supported actions. ActionKeep only ever appears on keeper decisions.
const (
	ActionKeep   Action = "keep"
	ActionReport Action = "report"
	ActionMove   Action = "move"
	ActionDelete Action = "delete"
)

// Destructive reports whether the action touches the filesystem.
func (a Action) Destructive() bool {
	return a == ActionMove || a == ActionDelete
}

// Role is the part a file plays in its group.
type Role string

// Decision roles.
const (
	RoleKeep      Role = "keep"
	RoleDuplicate Role = "duplicate"
)

// Decision reasons.
const (
	ReasonSelected     = "selected_by_strategy"
	ReasonDuplicate    = "duplicate_detected"
	ReasonMoved        = "moved_to_review"
	ReasonDeleted      = "deleted"
	ReasonTrashed      = "trashed"
	ReasonMoveFailed   = "move_failed"
	ReasonDeleteFailed = "delete_failed"
)

// Sentinel errors for invalid configuration values.
var (
	ErrInvalidOrigin       = errors.New("invalid origin")
	ErrInvalidMatchMode    = errors.New("invalid match mode")
	ErrInvalidKeepStrategy = errors.New("invalid keep strategy")
	ErrInvalidAction       = errors.New("invalid action")
)

// ParseOrigin parses "source" or "compare". An empty string yields an empty Origin.
func ParseOrigin(s string) (Origin, error) {
	switch o := Origin(strings.ToLower(strings.TrimSpace(s))); o {
	case "", OriginSource, OriginCompare:
		return o, nil
	default:
		return "", fmt.Errorf("%w: %q (want source or compare)", ErrInvalidOrigin, s)
	}
}

// ParseMatchMode parses a match mode, defaulting to hybrid when empty.
func ParseMatchMode(s string) (MatchMode, error) {
	switch m := MatchMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MatchHybrid, nil
	case MatchHash, MatchMetadata, MatchHybrid:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (want hash, metadata or hybrid)", ErrInvalidMatchMode, s)
	}
}

// ParseKeepStrategy parses a keep strategy, defaulting to best when empty.
func ParseKeepStrategy(s string) (KeepStrategy, error) {
	switch k := KeepStrategy(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KeepBest, nil
	case KeepBest, KeepNewest, KeepOldest:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q (want best, newest or oldest)", ErrInvalidKeepStrategy, s)
	}
}

// ParseAction parses a duplicate action, defaulting to report when empty.
// ActionKeep is not a valid user-selected action.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return ActionReport, nil
	case ActionReport, ActionMove, ActionDelete:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q (want report, move or delete)", ErrInvalidAction, s)
	}
}

// HashState records whether a track's content hash was computed.
type HashState int

const (
	// HashNotComputed means the match mode did not need a hash.
	HashNotComputed HashState = iota
	// HashComputed means FileHash holds the digest.
	HashComputed
	// HashFailed means hashing was attempted but reading the file failed.
	HashFailed
)

// String returns the state name.
func (s HashState) String() string {
	switch s {
	case HashNotComputed:
		return "not_computed"
	case HashComputed:
		return "computed"
	case HashFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TrackFile is an immutable record of one scanned audio file.
//
// Zero numeric quality fields mean the value is unknown. DurationSec is only
// meaningful when HasDuration is set, since a zero-length track is a valid
// observation.
type TrackFile struct {
	Path      string    `json:"path"`
	Origin    Origin    `json:"origin"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mtime"`

	DurationSec   float64 `json:"duration_sec,omitempty"`
	HasDuration   bool    `json:"has_duration"`
	BitrateKbps   int     `json:"bitrate_kbps,omitempty"`
	SampleRate    int     `json:"sample_rate,omitempty"`
	BitsPerSample int     `json:"bits_per_sample,omitempty"`

	Artist string `json:"artist,omitempty"`
	Title  string `json:"title,omitempty"`

	FileHash  string    `json:"file_hash,omitempty"`
	HashState HashState `json:"hash_state"`
}

// HasHash reports whether the record carries a usable content digest.
func (t TrackFile) HasHash() bool {
	return t.HashState == HashComputed && t.FileHash != ""
}

// Decision is one emitted record per file touched by a resolution run.
type Decision struct {
	GroupID      int          `json:"group_id" yaml:"group_id"`
	Role         Role         `json:"role" yaml:"role"`
	Action       Action       `json:"action" yaml:"action"`
	Origin       Origin       `json:"origin" yaml:"origin"`
	Path         string       `json:"path" yaml:"path"`
	TargetPath   string       `json:"target_path" yaml:"target_path"`
	KeepPath     string       `json:"keep_path" yaml:"keep_path"`
	KeepStrategy KeepStrategy `json:"keep_strategy" yaml:"keep_strategy"`
	Reason       string       `json:"reason" yaml:"reason"`
}

// DecisionFields is the column order used for tabular decision exports.
var DecisionFields = []string{
	"group_id",
	"role",
	"action",
	"origin",
	"path",
	"target_path",
	"keep_path",
	"keep_strategy",
	"reason",
}

// Record returns the decision as a row in DecisionFields order.
func (d Decision) Record() []string {
	return []string{
		strconv.Itoa(d.GroupID),
		string(d.Role),
		string(d.Action),
		string(d.Origin),
		d.Path,
		d.TargetPath,
		d.KeepPath,
		string(d.KeepStrategy),
		d.Reason,
	}
}

// Failed reports whether the decision records a mutation failure.
func (d Decision) Failed() bool {
	return strings.HasPrefix(d.Reason, ReasonMoveFailed) || strings.HasPrefix(d.Reason, ReasonDeleteFailed)
}

// ScanError pairs a path with the error encountered while scanning it.
type ScanError struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}
