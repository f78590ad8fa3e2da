// Package walker enumerates the regular files under a root directory for
// hashing. Traversal uses fastwalk; the collected entries are sorted so the
// manifest order does not depend on goroutine scheduling.
package walker

import "github.com/jamesainslie/hashsweep/pkg/hashsweep/config"

// Options configures a Walker.
type Options struct {
	// Root is the directory to walk. Paths are reported relative to the
	// working directory in the form the root was given.
	Root string

	// Exclude contains glob patterns matched against the path relative to
	// Root and against the base name. Matching directories are not entered.
	Exclude []string

	// Self is the path of the running executable. A file whose display path
	// is "./<base name of Self>", or whose absolute path equals Self, is
	// skipped so the tool never hashes itself. Empty disables the check.
	Self string

	// Workers is the number of fastwalk goroutines. Zero lets fastwalk decide.
	Workers int
}

// DefaultOptions returns options for walking the current directory.
func DefaultOptions() Options {
	return Options{
		Root: config.DefaultRoot,
	}
}

// Validate fills defaults for unset fields and clamps negative workers.
func (o *Options) Validate() {
	if o.Root == "" {
		o.Root = config.DefaultRoot
	}
	if o.Workers < 0 {
		o.Workers = 0
	}
}
