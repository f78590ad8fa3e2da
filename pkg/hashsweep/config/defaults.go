// Package config provides configuration management for hashsweep.
package config

// Default configuration values for hashsweep.
const (
	// DefaultRoot is the directory hashed when none is given.
	DefaultRoot = "."

	// DefaultManifestFile is the manifest file name, relative to the
	// working directory.
	DefaultManifestFile = "hashes.txt"

	// DefaultWorkers hashes one file at a time. Zero means auto-tune.
	DefaultWorkers = 1

	// DefaultBufferSize is the per-worker read buffer.
	DefaultBufferSize = "8MiB"

	// DefaultOutput is the report format.
	DefaultOutput = "plain"

	// DefaultRetentionDays is how long run history is kept.
	DefaultRetentionDays = 90

	// DefaultLogLevel is the log file level.
	DefaultLogLevel = "info"
)

// DefaultExclusions contains glob patterns excluded from hashing by default.
var DefaultExclusions = []string{}
