//go:build linux

package tuner

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func sysinfo() (*unix.Sysinfo_t, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return nil, fmt.Errorf("sysinfo: %w", err)
	}
	return &info, nil
}

func getTotalRAM() (int64, error) {
	info, err := sysinfo()
	if err != nil {
		return 0, err
	}
	return int64(info.Totalram) * int64(info.Unit), nil
}

func getAvailableRAM(total int64) (int64, error) {
	info, err := sysinfo()
	if err != nil {
		return 0, err
	}
	avail := (int64(info.Freeram) + int64(info.Bufferram)) * int64(info.Unit)
	if avail > total {
		avail = total
	}
	return avail, nil
}
