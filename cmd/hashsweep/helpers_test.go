package main

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/checker"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/history"
)

func TestWaitForKeyReadsOneByte(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	_, err = w.WriteString("ab")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	var out bytes.Buffer
	require.NoError(t, waitForKey(r, &out))
	assert.Equal(t, "Press any key to continue...\n", out.String())
}

func TestWaitForKeyAcceptsEOF(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, w.Close())

	var out bytes.Buffer
	assert.NoError(t, waitForKey(r, &out))
}

func TestProgressReporterDisabledOffTerminal(t *testing.T) {
	f := tempFile(t, "progress")
	p := newProgressReporter(f, true)
	assert.False(t, p.enabled)

	p.Handle(checker.Event{Kind: checker.EventFileStart, Path: "./a", Total: 1})
	p.Handle(checker.Event{Kind: checker.EventFileDone, Path: "./a", Total: 1})
	p.Finish()

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestProgressReporterDraws(t *testing.T) {
	var out bytes.Buffer
	p := newProgressReporter(tempFile(t, "progress"), false)
	p.out = &out
	p.enabled = true

	p.Handle(checker.Event{Kind: checker.EventFileStart, Path: "./big.iso", Size: 2048, Total: 2})
	p.Handle(checker.Event{Kind: checker.EventFileDone, Path: "./big.iso", Size: 2048, Total: 2})
	p.Handle(checker.Event{Kind: checker.EventFileDone, Path: "./small", Total: 2})

	assert.Contains(t, out.String(), "2/2")
	assert.Contains(t, out.String(), "./big.iso")

	out.Reset()
	p.Finish()
	assert.Equal(t, "\r\x1b[K", out.String())
}

func TestShortenPath(t *testing.T) {
	assert.Equal(t, "./a", shortenPath("./a", 10))
	assert.Equal(t, "...efghij", shortenPath("abcdefghij", 9))
	assert.Equal(t, "ij", shortenPath("abcdefghij", 2))
}

func TestFormatHistoryTable(t *testing.T) {
	records := []history.Record{
		{
			ID:        "0123456789abcdef",
			Timestamp: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
			Mode:      "verify",
			Root:      ".",
			Counts:    history.Counts{Verified: 1200, Failed: 1},
		},
		{
			ID:          "fedcba",
			Mode:        "generate",
			Root:        "photos",
			Interrupted: true,
		},
	}

	table := formatHistoryTable(records)
	assert.Contains(t, table, "01234567 ")
	assert.NotContains(t, table, "0123456789")
	assert.Contains(t, table, "1,201")
	assert.Contains(t, table, "FAIL")
	assert.Contains(t, table, "int")
	assert.Contains(t, table, "photos")
}

func TestFormatRecord(t *testing.T) {
	rec := &history.Record{
		ID:           "abc",
		Timestamp:    time.Now().Add(-time.Hour),
		Mode:         "verify",
		Root:         ".",
		Manifest:     "hashes.txt",
		Counts:       history.Counts{Verified: 2, NotFound: 1, Malformed: 1},
		MissingPaths: []string{"./gone"},
		BytesHashed:  1024,
	}

	out := formatRecord(rec)
	assert.Contains(t, out, "2 files verified, 0 files failed, 1 files not found.")
	assert.Contains(t, out, "1 malformed manifest lines")
	assert.Contains(t, out, "Not found:\n  ./gone\n")
	assert.Contains(t, out, "1.0 KiB")
	assert.Contains(t, out, "1 hour ago")

	gen := &history.Record{ID: "g", Mode: "generate", Counts: history.Counts{Hashed: 3}}
	assert.Contains(t, formatRecord(gen), "3 files hashed, unable to read 0 files.")
}

func TestWritePathsLimit(t *testing.T) {
	paths := make([]string, maxShownPaths+5)
	for i := range paths {
		paths[i] = "./f"
	}
	rec := &history.Record{Mode: "generate", UnreadablePaths: paths}
	assert.Contains(t, formatRecord(rec), "... and 5 more")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 8))
	assert.Equal(t, "abcdefgh", truncateString("abcdefghij", 8))
}

func TestWriteResolved(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers = 3
	cfg.BufferSize = "1MiB"
	cfg.History.Enabled = false

	var out bytes.Buffer
	require.NoError(t, writeResolved(&out, cfg))

	got := out.String()
	assert.Contains(t, got, "manifest: hashes.txt\n")
	assert.Contains(t, got, "workers:  3\n")
	assert.Contains(t, got, "buffer:   1.0 MiB\n")
	assert.Contains(t, got, "history:  disabled\n")
}

func TestWriteResolvedAutoWorkers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers = 0

	var out bytes.Buffer
	require.NoError(t, writeResolved(&out, cfg))
	assert.Contains(t, out.String(), "(auto)")
}

func TestWriteSettings(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeSettings(&out, "", map[string]interface{}{"workers": 2}))
	assert.Equal(t, "# Config file: (none, defaults apply)\nworkers: 2\n", out.String())
}

func TestVersionShort(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	versionShort = true
	defer func() { versionShort = false }()

	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, version+"\n", out.String())
}
