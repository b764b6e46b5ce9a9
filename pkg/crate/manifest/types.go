// Package manifest keeps a history of destructive runs so a user can see
// afterwards which duplicates were moved or deleted and where they went.
package manifest

import "time"

// OperationType names the kind of run recorded.
type OperationType string

const (
	// OpMove records a run that moved duplicates into a review directory.
	OpMove OperationType = "move"
	// OpDelete records a run that deleted or trashed duplicates.
	OpDelete OperationType = "delete"
)

// Entry is one recorded run.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Operation OperationType `json:"operation"`
	ReviewDir string        `json:"review_dir,omitempty"`
	Roots     []string      `json:"roots,omitempty"`
	Files     []FileRecord  `json:"files"`
	Summary   Summary       `json:"summary"`
}

// FileRecord is one duplicate handled by the run.
type FileRecord struct {
	GroupID  int    `json:"group_id"`
	Path     string `json:"path"`
	Target   string `json:"target,omitempty"`
	KeepPath string `json:"keep_path"`
	Size     int64  `json:"size"`
	Result   string `json:"result"`
}

// Summary totals an entry's records.
type Summary struct {
	TotalFiles int64 `json:"total_files"`
	TotalBytes int64 `json:"total_bytes"`
	Failed     int64 `json:"failed"`
}
