package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/logging"
)

func logFiles(t *testing.T, dir, stem string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, stem+"*.log"))
	require.NoError(t, err)
	return matches
}

func writeLines(t *testing.T, w *logging.RotatingWriter, n int, line string) {
	t.Helper()
	for range n {
		_, err := w.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
}

func TestRotatingWriter_RollsBySize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := logging.NewRotatingWriter(filepath.Join(dir, "size.log"), logging.RotationConfig{
		MaxSize:    512,
		MaxBackups: 3,
	})
	require.NoError(t, err)

	writeLines(t, w, 20, strings.Repeat("x", 50))
	require.NoError(t, w.Close())

	files := logFiles(t, dir, "size")
	assert.GreaterOrEqual(t, len(files), 2)
	assert.FileExists(t, filepath.Join(dir, "size.log"))
}

func TestRotatingWriter_KeepsMaxBackups(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := logging.NewRotatingWriter(filepath.Join(dir, "backups.log"), logging.RotationConfig{
		MaxSize:    64,
		MaxBackups: 2,
	})
	require.NoError(t, err)

	for range 5 {
		writeLines(t, w, 3, strings.Repeat("y", 30))
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, w.Close())

	assert.LessOrEqual(t, len(logFiles(t, dir, "backups")), 3)
}

func TestRotatingWriter_PrunesOldBackupsOnOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	old := filepath.Join(dir, "app-20200101T000000.000.log")
	recent := filepath.Join(dir, "app-20990101T000000.000.log")
	require.NoError(t, os.WriteFile(old, []byte("old\n"), 0o644))
	require.NoError(t, os.WriteFile(recent, []byte("recent\n"), 0o644))

	stale := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(old, stale, stale))

	w, err := logging.NewRotatingWriter(filepath.Join(dir, "app.log"), logging.RotationConfig{MaxAge: 7})
	require.NoError(t, err)
	defer w.Close()

	assert.NoFileExists(t, old)
	assert.FileExists(t, recent)
}

func TestRotatingWriter_CreatesDirectories(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "deeper", "app.log")
	w, err := logging.NewRotatingWriter(path, logging.DefaultRotationConfig())
	require.NoError(t, err)
	defer w.Close()

	assert.FileExists(t, path)
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	t.Parallel()

	w, err := logging.NewRotatingWriter(filepath.Join(t.TempDir(), "closed.log"), logging.RotationConfig{})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.NoError(t, w.Close())
}
