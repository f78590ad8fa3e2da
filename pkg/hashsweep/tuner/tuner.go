// Package tuner picks a hashing worker count from the machine's CPU and
// memory. Each worker owns one read buffer, so memory rather than cores is
// usually the binding limit for large buffers.
package tuner

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// TotalRAM is the total physical RAM in bytes.
	TotalRAM int64

	// AvailableRAM is the available (free) RAM in bytes.
	// This may be an estimate based on system heuristics.
	AvailableRAM int64
}

// Worker limits.
const (
	// maxWorkers caps the pool; beyond this, disks are the bottleneck.
	maxWorkers = 64

	// bufferMemoryFraction is the share of available RAM the read buffers
	// may occupy in total.
	bufferMemoryFraction = 0.25
)

// fallbackResources is used when detection fails.
var fallbackResources = SystemResources{
	CPUCores:     4,
	TotalRAM:     8 << 30,
	AvailableRAM: 4 << 30,
}

// Workers returns the number of hashing workers for the given per-worker
// buffer size:
//   - never more than CPUCores, since hashing is CPU bound once data is cached
//   - never more buffers than a quarter of available RAM can hold
//   - at least 1 and at most 64
func Workers(resources SystemResources, bufferSize int) int {
	workers := max(resources.CPUCores, 1)

	if bufferSize > 0 && resources.AvailableRAM > 0 {
		budget := int64(float64(resources.AvailableRAM) * bufferMemoryFraction)
		workers = min(workers, int(budget/int64(bufferSize)))
	}

	return min(max(workers, 1), maxWorkers)
}

// Resolve returns override when it is positive (capped at 64); otherwise it
// detects resources and calls Workers.
func Resolve(override, bufferSize int) int {
	if override > 0 {
		return min(override, maxWorkers)
	}

	resources, err := Detect()
	if err != nil {
		resources = fallbackResources
	}
	return Workers(resources, bufferSize)
}
