//go:build darwin

package tuner

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect detects available system resources.
// On darwin it reads hw.memsize and assumes half of it is available, since
// precise free memory needs host_statistics.
func Detect() (SystemResources, error) {
	resources := SystemResources{
		CPUCores: runtime.NumCPU(),
	}

	memsize, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return resources, fmt.Errorf("sysctl hw.memsize: %w", err)
	}
	resources.TotalRAM = int64(memsize)
	resources.AvailableRAM = resources.TotalRAM / 2

	return resources, nil
}
