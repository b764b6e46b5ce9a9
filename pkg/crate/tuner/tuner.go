// Package tuner sizes crate's worker pools from the host's CPU and memory.
package tuner

import "runtime"

const (
	minWalkers    = 2
	maxWalkers    = 32
	minExtractors = 2
	maxExtractors = 64

	// Each extractor holds one hash buffer plus decoder state.
	bytesPerExtractor = 8 * 1024 * 1024

	defaultTotalRAM = 8 * 1024 * 1024 * 1024
)

// SystemResources describes the host the scan runs on.
type SystemResources struct {
	CPUCores     int
	TotalRAM     int64
	AvailableRAM int64
}

// Plan is the worker layout used by the scanner.
type Plan struct {
	// Walkers is the fastwalk directory concurrency.
	Walkers int
	// Extractors is the number of goroutines reading tags and hashing.
	Extractors int
	// QueueSize bounds the channel between the walker and the extractors.
	QueueSize int
}

// Detect reports CPU and memory figures for the current host.
func Detect() (SystemResources, error) {
	total, err := getTotalRAM()
	if err != nil || total <= 0 {
		total = defaultTotalRAM
	}

	avail, err := getAvailableRAM(total)
	if err != nil || avail <= 0 || avail > total {
		avail = total / 2
	}

	return SystemResources{
		CPUCores:     runtime.NumCPU(),
		TotalRAM:     total,
		AvailableRAM: avail,
	}, nil
}

// Calculate derives a Plan from resources. Extraction mixes disk reads with
// SHA-256 and frame decoding, so it runs at twice the core count; memory caps
// it so the buffers fit in a quarter of available RAM.
func Calculate(res SystemResources) Plan {
	cores := res.CPUCores
	if cores < 1 {
		cores = 1
	}

	walkers := clamp(cores, minWalkers, maxWalkers)
	extractors := clamp(cores*2, minExtractors, maxExtractors)

	if res.AvailableRAM > 0 {
		memCap := int(res.AvailableRAM / 4 / bytesPerExtractor)
		if memCap < extractors {
			extractors = clamp(memCap, minExtractors, maxExtractors)
		}
	}

	return Plan{
		Walkers:    walkers,
		Extractors: extractors,
		QueueSize:  extractors * 16,
	}
}

// CalculateWithOverrides is Calculate with a user-supplied extractor count.
// A non-positive override keeps the calculated value.
func CalculateWithOverrides(res SystemResources, workers int) Plan {
	plan := Calculate(res)
	if workers > 0 {
		plan.Extractors = min(workers, maxExtractors)
		plan.QueueSize = plan.Extractors * 16
	}
	return plan
}

// Auto detects resources and applies the override in one step.
func Auto(workers int) Plan {
	res, _ := Detect()
	return CalculateWithOverrides(res, workers)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
