//go:build darwin

package tuner

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func getTotalRAM() (int64, error) {
	memsize, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0, fmt.Errorf("sysctl hw.memsize: %w", err)
	}
	return int64(memsize), nil
}

// macOS keeps most free pages in the file cache, so half of total RAM is the
// working estimate.
func getAvailableRAM(total int64) (int64, error) {
	return total / 2, nil
}
