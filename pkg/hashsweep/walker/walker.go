package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/gobwas/glob"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/logging"
)

// ErrStat is returned when the metadata lookup of a walked entry fails.
// Unlike an unreadable file, this aborts the walk.
var ErrStat = errors.New("stat failed during traversal")

// FileEntry is a regular file found during traversal.
type FileEntry struct {
	// Path is the display path, e.g. "./sub/file.txt" for root ".".
	Path string

	// Size is the file length in bytes at traversal time.
	Size int64
}

// Walker enumerates regular files under a root.
type Walker struct {
	opts     Options
	excludes []glob.Glob
	selfName string
	selfAbs  string
	logger   *logging.Logger
}

// New creates a Walker. It fails if an exclude pattern does not compile.
func New(opts Options) (*Walker, error) {
	opts.Validate()

	w := &Walker{
		opts:   opts,
		logger: logging.Get("walker"),
	}

	for _, pattern := range opts.Exclude {
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(filepath.ToSlash(pattern), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		w.excludes = append(w.excludes, g)
	}

	if opts.Self != "" {
		w.selfName = "." + string(filepath.Separator) + filepath.Base(opts.Self)
		w.selfAbs = resolve(opts.Self)
	}

	return w, nil
}

// Walk returns every regular file under the root, sorted by path. Entries
// that are not regular files are skipped. Unreadable directories are logged
// and skipped; a failed metadata lookup on an entry aborts the walk.
func (w *Walker) Walk(ctx context.Context) ([]FileEntry, error) {
	info, err := os.Stat(w.opts.Root)
	if err != nil {
		return nil, fmt.Errorf("cannot access root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", w.opts.Root)
	}

	var (
		mu      sync.Mutex
		entries []FileEntry
	)

	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: w.opts.Workers,
	}

	walkErr := fastwalk.Walk(&conf, w.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		// A directory that cannot be read is reported a second time with the
		// error; errors raised by this callback come back the same way.
		if err != nil {
			if errors.Is(err, ErrStat) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			w.logger.Warn("skipping unreadable entry", "path", path, "error", err)
			return nil
		}

		rel, relErr := filepath.Rel(w.opts.Root, path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			if rel != "." && w.isExcluded(rel) {
				return fastwalk.SkipDir
			}
			return nil
		}

		// Follow symlinks for the regular-file test.
		fi, statErr := os.Stat(path)
		if statErr != nil {
			return fmt.Errorf("%w: %s: %w", ErrStat, path, statErr)
		}
		if !fi.Mode().IsRegular() {
			return nil
		}

		display := w.displayPath(rel)
		if w.isSelf(display, path) || w.isExcluded(rel) {
			w.logger.Debug("excluded", "path", display)
			return nil
		}

		mu.Lock()
		entries = append(entries, FileEntry{Path: display, Size: fi.Size()})
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	return entries, nil
}

// displayPath renders a root-relative path the way it is written to the
// manifest: "./rel" for the current directory, root-joined otherwise.
func (w *Walker) displayPath(rel string) string {
	if filepath.Clean(w.opts.Root) == "." {
		return "." + string(filepath.Separator) + rel
	}
	return filepath.Join(w.opts.Root, rel)
}

func (w *Walker) isSelf(display, path string) bool {
	if w.selfName == "" {
		return false
	}
	if display == w.selfName {
		return true
	}
	if w.selfAbs == "" || filepath.Base(path) != filepath.Base(w.selfAbs) {
		return false
	}
	return resolve(path) == w.selfAbs
}

// isExcluded matches a root-relative path against the exclude patterns,
// trying both the full relative path and the base name.
func (w *Walker) isExcluded(rel string) bool {
	if len(w.excludes) == 0 {
		return false
	}
	slashed := filepath.ToSlash(rel)
	base := filepath.Base(rel)
	for _, g := range w.excludes {
		if g.Match(slashed) || g.Match(base) {
			return true
		}
	}
	return false
}

// resolve returns the absolute, symlink-free form of path, or the cleaned
// absolute path if symlinks cannot be evaluated.
func resolve(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return strings.TrimSuffix(abs, string(filepath.Separator))
}
