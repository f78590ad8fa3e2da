package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// backupStamp names rotated files. It sorts lexically in time order.
const backupStamp = "20060102T150405.000"

// defaultMaxSize applies when RotationConfig.MaxSize is zero.
const defaultMaxSize = 10 << 20

// RotationConfig controls when the log file is rolled over and how many
// rolled files survive.
type RotationConfig struct {
	// MaxSize rolls the file before a write would take it past this many
	// bytes. Zero means 10 MiB.
	MaxSize int64

	// MaxAge removes backups older than this many days. Zero keeps them.
	MaxAge int

	// MaxBackups caps the number of backups. Zero keeps them all.
	MaxBackups int

	// Daily also rolls the file on the first write of a new day.
	Daily bool
}

// DefaultRotationConfig returns the rotation used when none is configured.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    defaultMaxSize,
		MaxAge:     30,
		MaxBackups: 5,
		Daily:      true,
	}
}

// RotatingWriter is an append-only log file that rolls itself over into
// timestamped backups ("hashsweep-20240120T150405.000.log"). Writes hold an
// advisory lock where the platform has one, so several runs can share a log.
type RotatingWriter struct {
	mu     sync.Mutex
	path   string
	cfg    RotationConfig
	file   *os.File
	size   int64
	opened time.Time
}

// NewRotatingWriter opens path for appending, creating parent directories,
// and prunes backups left over from earlier runs.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultMaxSize
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{path: path, cfg: cfg}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.prune(time.Now())
	return w, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	now := time.Now()
	if w.due(now, len(p)) {
		if err := w.roll(now); err != nil {
			return 0, fmt.Errorf("rotating log file: %w", err)
		}
	}

	if err := lockFile(w.file); err != nil {
		return 0, fmt.Errorf("locking log file: %w", err)
	}
	n, err := w.file.Write(p)
	unlockFile(w.file)

	w.size += int64(n)
	if err != nil {
		return n, fmt.Errorf("writing log file: %w", err)
	}
	return n, nil
}

// Close flushes and closes the file. Closing twice is not an error.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	f := w.file
	w.file = nil

	syncErr := f.Sync()
	if err := f.Close(); err != nil {
		return err
	}
	if syncErr != nil {
		return fmt.Errorf("syncing log file: %w", syncErr)
	}
	return nil
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	w.file = f
	w.size = info.Size()
	w.opened = info.ModTime()
	return nil
}

// due reports whether the next write of n bytes must go to a fresh file.
func (w *RotatingWriter) due(now time.Time, n int) bool {
	if w.size > 0 && w.size+int64(n) > w.cfg.MaxSize {
		return true
	}
	if !w.cfg.Daily {
		return false
	}
	y1, m1, d1 := now.Date()
	y2, m2, d2 := w.opened.Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

// roll moves the current file aside and starts a new one.
func (w *RotatingWriter) roll(now time.Time) error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	if err := os.Rename(w.path, w.backupPath(now)); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := w.open(); err != nil {
		return err
	}
	w.opened = now
	w.prune(now)
	return nil
}

func (w *RotatingWriter) backupPath(t time.Time) string {
	ext := filepath.Ext(w.path)
	return strings.TrimSuffix(w.path, ext) + "-" + t.Format(backupStamp) + ext
}

// backups lists rolled files, newest first.
func (w *RotatingWriter) backups() []string {
	ext := filepath.Ext(w.path)
	pattern := strings.TrimSuffix(w.path, ext) + "-*" + ext
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches
}

// prune removes backups beyond MaxBackups or older than MaxAge. Removal
// errors are ignored; the next rotation retries.
func (w *RotatingWriter) prune(now time.Time) {
	cutoff := time.Time{}
	if w.cfg.MaxAge > 0 {
		cutoff = now.AddDate(0, 0, -w.cfg.MaxAge)
	}

	for i, path := range w.backups() {
		if w.cfg.MaxBackups > 0 && i >= w.cfg.MaxBackups {
			_ = os.Remove(path)
			continue
		}
		if cutoff.IsZero() {
			continue
		}
		if info, err := os.Stat(path); err == nil && info.ModTime().Before(cutoff) {
			_ = os.Remove(path)
		}
	}
}
