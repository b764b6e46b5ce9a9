package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"

	"github.com/jamesainslie/crate/pkg/crate/logging"
	"github.com/jamesainslie/crate/pkg/crate/types"
)

var logger = logging.Get("manifest")

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("manifest entry not found")

// DefaultDir returns $XDG_DATA_HOME/crate/history.
func DefaultDir() string {
	return filepath.Join(xdg.DataHome, "crate", "history")
}

// Manifest stores entries as one JSON file each.
type Manifest struct {
	dir string
	mu  sync.Mutex
}

// New creates a Manifest rooted at dir. The directory is created on first
// write.
func New(dir string) (*Manifest, error) {
	if dir == "" {
		return nil, errors.New("manifest directory cannot be empty")
	}
	return &Manifest{dir: dir}, nil
}

// Dir returns the manifest directory.
func (m *Manifest) Dir() string { return m.dir }

// Records converts the duplicate decisions of a run into file records.
// sizeOf supplies each file's size; keepers are skipped.
func Records(decisions []types.Decision, sizeOf func(path string) int64) []FileRecord {
	var out []FileRecord
	for _, d := range decisions {
		if d.Role != types.RoleDuplicate {
			continue
		}
		var size int64
		if sizeOf != nil {
			size = sizeOf(d.Path)
		}
		out = append(out, FileRecord{
			GroupID:  d.GroupID,
			Path:     d.Path,
			Target:   d.TargetPath,
			KeepPath: d.KeepPath,
			Size:     size,
			Result:   d.Reason,
		})
	}
	return out
}

// Log persists a new entry for op and returns it.
func (m *Manifest) Log(op OperationType, reviewDir string, roots []string, files []FileRecord) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := &Entry{
		ID:        generateID(op),
		Timestamp: time.Now().UTC(),
		Operation: op,
		ReviewDir: reviewDir,
		Roots:     roots,
		Files:     files,
	}
	if entry.Files == nil {
		entry.Files = []FileRecord{}
	}
	for _, f := range files {
		entry.Summary.TotalFiles++
		if isFailure(f.Result) {
			entry.Summary.Failed++
			continue
		}
		entry.Summary.TotalBytes += f.Size
	}

	if err := m.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("writing manifest entry: %w", err)
	}
	logger.Info("run recorded", "id", entry.ID, "files", entry.Summary.TotalFiles)
	return entry, nil
}

func isFailure(result string) bool {
	return strings.HasPrefix(result, types.ReasonMoveFailed) || strings.HasPrefix(result, types.ReasonDeleteFailed)
}

func (m *Manifest) writeEntry(entry *Entry) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(m.dir, entry.ID+".json")
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// List returns entries newest first. A non-positive limit returns all.
func (m *Manifest) List(limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.readAll()
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry with the given id.
func (m *Manifest) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.readEntryFile(id + ".json")
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entry, err
}

// Cleanup removes entries older than retentionDays and returns how many were
// removed. A non-positive retention keeps everything.
func (m *Manifest) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.readAll()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, e.ID+".json")); err != nil {
			logger.Warn("removing manifest entry failed", "id", e.ID, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (m *Manifest) readAll() ([]Entry, error) {
	files, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("reading manifest directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		entry, err := m.readEntryFile(f.Name())
		if err != nil {
			logger.Debug("skipping unreadable manifest entry", "file", f.Name(), "error", err)
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (m *Manifest) readEntryFile(name string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, name))
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return &entry, nil
}

// generateID returns "<op>-<timestamp>-<uuid8>", e.g.
// "move-2024-06-15T10-30-00-1f0c9a2b".
func generateID(op OperationType) string {
	ts := time.Now().UTC().Format("2006-01-02T15-04-05")
	return fmt.Sprintf("%s-%s-%s", op, ts, uuid.NewString()[:8])
}
