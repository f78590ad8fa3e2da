//go:build !unix

package logging

import "os"

// lockFile is a no-op where flock is unavailable; writes are still
// serialized within the process by RotatingWriter.mu.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) {}
