package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jamesainslie/crate/pkg/crate/types"
)

// WriteCSV writes decisions to path with a types.DecisionFields header.
func WriteCSV(path string, decisions []types.Decision) error {
	var buf bytes.Buffer
	if err := encodeCSV(&buf, decisions); err != nil {
		return err
	}
	return writeAtomic(path, buf.Bytes())
}

// WriteJSON writes decisions to path as an indented JSON array. An empty run
// produces "[]".
func WriteJSON(path string, decisions []types.Decision) error {
	if decisions == nil {
		decisions = []types.Decision{}
	}
	data, err := json.MarshalIndent(decisions, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding decisions: %w", err)
	}
	return writeAtomic(path, append(data, '\n'))
}

func encodeCSV(buf *bytes.Buffer, decisions []types.Decision) error {
	w := csv.NewWriter(buf)
	if err := w.Write(types.DecisionFields); err != nil {
		return err
	}
	for _, d := range decisions {
		if err := w.Write(d.Record()); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeAtomic writes data to a temp file next to path and renames it over
// path, creating parent directories first.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp report: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing report: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting report permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming report: %w", err)
	}

	logger.Debug("report written", "path", path, "bytes", len(data))
	return nil
}
