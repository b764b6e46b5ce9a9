//go:build !darwin && !linux

package tuner

func getTotalRAM() (int64, error) {
	return defaultTotalRAM, nil
}

func getAvailableRAM(total int64) (int64, error) {
	return total / 2, nil
}
