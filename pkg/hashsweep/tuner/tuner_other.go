//go:build !linux && !darwin

package tuner

import "runtime"

// Detect reports CPU cores and assumes the fallback memory figures.
func Detect() (SystemResources, error) {
	resources := fallbackResources
	resources.CPUCores = runtime.NumCPU()
	return resources, nil
}
