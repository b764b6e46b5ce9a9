// Package trash sends files to the desktop trash so deletions stay
// recoverable. When no trash facility is available the file is removed.
package trash

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jamesainslie/crate/pkg/crate/logging"
)

const commandTimeout = 30 * time.Second

var logger = logging.Get("trash")

// lookPath is swapped in tests to simulate hosts without trash tools.
var lookPath = exec.LookPath

// MoveToTrash moves a file to the system trash. macOS uses Finder through
// osascript; Linux tries gio and then trash-put. If every method fails the
// file is deleted permanently.
func MoveToTrash(ctx context.Context, path string) error {
	if _, err := os.Lstat(path); err != nil {
		return fmt.Errorf("cannot trash %q: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	for _, cmd := range commands(abs) {
		bin, err := lookPath(cmd[0])
		if err != nil {
			continue
		}
		if err := exec.CommandContext(ctx, bin, cmd[1:]...).Run(); err != nil {
			logger.Debug("trash command failed", "cmd", cmd[0], "path", abs, "error", err)
			continue
		}
		if _, err := os.Lstat(abs); os.IsNotExist(err) {
			return nil
		}
	}

	logger.Warn("no trash available, deleting permanently", "path", abs)
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("deleting %q: %w", abs, err)
	}
	return nil
}

// commands lists the trash invocations to try for this platform.
func commands(path string) [][]string {
	switch runtime.GOOS {
	case "darwin":
		return [][]string{{"osascript", "-e", fmt.Sprintf(`tell application "Finder" to delete POSIX file %q`, path)}}
	case "linux":
		return [][]string{
			{"gio", "trash", path},
			{"trash-put", path},
		}
	default:
		return nil
	}
}
