package checker_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/checker"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/hasher"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/manifest"
)

// chdirTree creates files under a fresh directory and makes it the working
// directory for the rest of the test.
func chdirTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	t.Chdir(root)
	return root
}

func newChecker(t *testing.T, mutate ...func(*checker.Options)) *checker.Checker {
	t.Helper()
	opts := checker.DefaultOptions()
	opts.Self = filepath.Join(t.TempDir(), "hashsweep")
	for _, m := range mutate {
		m(&opts)
	}
	c, err := checker.New(opts)
	require.NoError(t, err)
	return c
}

func readManifest(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(manifest.DefaultFileName)
	require.NoError(t, err)
	return string(data)
}

func TestRunGeneratesThenVerifies(t *testing.T) {
	chdirTree(t, map[string]string{
		"a.txt":     "alpha",
		"b.txt":     "",
		"sub/c.bin": "charlie",
	})
	c := newChecker(t)

	report, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, checker.ModeGenerate, report.Mode)
	require.NotNil(t, report.Generate)
	assert.Equal(t, 3, report.Generate.Good)
	assert.Equal(t, 0, report.Generate.Bad)
	assert.Equal(t, int64(len("alpha")+len("charlie")), report.Generate.BytesHashed)
	assert.False(t, report.HasErrors())

	want := strings.Join([]string{
		"./a.txt " + hasher.Sum([]byte("alpha")).String(),
		"./b.txt " + hasher.Sum(nil).String(),
		"./sub/c.bin " + hasher.Sum([]byte("charlie")).String(),
	}, "\n")
	assert.Equal(t, want, readManifest(t))

	report, err = c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, checker.ModeVerify, report.Mode)
	require.NotNil(t, report.Verify)
	assert.Equal(t, 3, report.Verify.Verified)
	assert.Zero(t, report.Verify.Failed)
	assert.Zero(t, report.Verify.NotFound)
	assert.Zero(t, report.Verify.Malformed)
	assert.False(t, report.HasErrors())
}

func TestVerifyDetectsMutation(t *testing.T) {
	chdirTree(t, map[string]string{
		"a.txt": "alpha",
		"b.txt": "bravo",
	})
	c := newChecker(t)

	_, err := c.Generate(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile("b.txt", []byte("brava"), 0o644))

	res, err := c.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Verified)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"./b.txt"}, res.FailedPaths)
	require.Len(t, res.Mismatches, 1)
	assert.Equal(t, hasher.Sum([]byte("bravo")).String(), res.Mismatches[0].Expected)
	assert.Equal(t, hasher.Sum([]byte("brava")).String(), res.Mismatches[0].Actual)
}

func TestVerifyDetectsDeletion(t *testing.T) {
	chdirTree(t, map[string]string{
		"a.txt":     "alpha",
		"sub/b.txt": "bravo",
	})
	c := newChecker(t)

	_, err := c.Generate(context.Background())
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join("sub", "b.txt")))

	report, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, checker.ModeVerify, report.Mode)
	assert.Equal(t, 1, report.Verify.Verified)
	assert.Equal(t, 1, report.Verify.NotFound)
	assert.Equal(t, []string{"./sub/b.txt"}, report.Verify.MissingPaths)
	assert.True(t, report.HasErrors())
}

func TestEmptyDirectory(t *testing.T) {
	chdirTree(t, nil)
	c := newChecker(t)

	report, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, checker.ModeGenerate, report.Mode)
	assert.Zero(t, report.Generate.Good)
	assert.Zero(t, report.Generate.Bad)
	assert.Empty(t, readManifest(t))

	report, err = c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, checker.ModeVerify, report.Mode)
	assert.Zero(t, report.Verify.Verified)
	assert.Zero(t, report.Verify.Failed)
	assert.Zero(t, report.Verify.NotFound)
}

func TestGenerateExcludesSelf(t *testing.T) {
	chdirTree(t, map[string]string{
		"hashsweep":     "binary",
		"data.txt":      "data",
		"sub/hashsweep": "not the binary",
	})
	c := newChecker(t)

	res, err := c.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Good)

	content := readManifest(t)
	assert.NotContains(t, content, "./hashsweep ")
	assert.Contains(t, content, "./sub/hashsweep ")
}

func TestVerifyClassifiesMalformedLines(t *testing.T) {
	chdirTree(t, map[string]string{"a.txt": "alpha"})

	good := "./a.txt " + hasher.Sum([]byte("alpha")).String()
	content := good + "\ngarbage\n\n./missing.txt " + hasher.Sum(nil).String()
	require.NoError(t, os.WriteFile(manifest.DefaultFileName, []byte(content), 0o644))

	res, err := newChecker(t).Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Verified)
	assert.Equal(t, 1, res.Malformed)
	assert.Equal(t, []string{"line 2: garbage"}, res.MalformedLines)
	assert.Equal(t, 1, res.NotFound)
	assert.Equal(t, []string{"./missing.txt"}, res.MissingPaths)
}

func TestVerifyDigestComparisonIsCaseSensitive(t *testing.T) {
	chdirTree(t, map[string]string{"a.txt": "alpha"})

	lower := strings.ToLower(hasher.Sum([]byte("alpha")).String())
	require.NoError(t, os.WriteFile(manifest.DefaultFileName, []byte("./a.txt "+lower), 0o644))

	res, err := newChecker(t).Verify(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Verified)
	assert.Equal(t, 1, res.Failed)
}

func TestVerifyWithoutManifest(t *testing.T) {
	chdirTree(t, nil)

	_, err := newChecker(t).Verify(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, checker.ErrManifestMissing)
}

func TestWorkersProduceIdenticalManifest(t *testing.T) {
	files := make(map[string]string)
	for i := range 40 {
		files[fmt.Sprintf("d%d/f%02d.txt", i%5, i)] = strings.Repeat("x", i*37)
	}
	chdirTree(t, files)

	_, err := newChecker(t).Generate(context.Background())
	require.NoError(t, err)
	sequential := readManifest(t)
	require.NoError(t, os.Remove(manifest.DefaultFileName))

	parallel := newChecker(t, func(o *checker.Options) {
		o.Workers = 4
		o.BufferSize = 64
	})
	assert.Equal(t, 4, parallel.Workers())

	res, err := parallel.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, res.Good)
	assert.Equal(t, sequential, readManifest(t))

	vres, err := parallel.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, vres.Verified)
}

func TestUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	chdirTree(t, map[string]string{
		"ok.txt":     "fine",
		"locked.txt": "secret",
	})
	require.NoError(t, os.Chmod("locked.txt", 0o000))
	t.Cleanup(func() { _ = os.Chmod("locked.txt", 0o644) })

	c := newChecker(t)
	res, err := c.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Good)
	assert.Equal(t, 1, res.Bad)
	assert.Equal(t, []string{"./locked.txt"}, res.BadPaths)
	assert.NotContains(t, readManifest(t), "locked.txt")

	report := &checker.Report{Mode: checker.ModeGenerate, Generate: res}
	assert.True(t, report.HasErrors())
}

func TestGenerateSkipsUnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	chdirTree(t, map[string]string{
		"top.txt":          "top",
		"locked/inner.txt": "hidden",
	})
	require.NoError(t, os.Chmod("locked", 0o000))
	t.Cleanup(func() { _ = os.Chmod("locked", 0o755) })

	res, err := newChecker(t).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Good)
	assert.Zero(t, res.Bad)
	assert.NotContains(t, readManifest(t), "inner.txt")
}

func TestEventsAreEmitted(t *testing.T) {
	chdirTree(t, map[string]string{
		"a.txt": "0123456789",
		"b.txt": "",
	})

	var (
		mu     sync.Mutex
		counts = map[checker.EventKind]int{}
		last   = map[string]int64{}
	)
	c := newChecker(t, func(o *checker.Options) {
		o.BufferSize = 4
		o.OnEvent = func(e checker.Event) {
			mu.Lock()
			defer mu.Unlock()
			counts[e.Kind]++
			if e.Kind == checker.EventChunk {
				last[e.Path] = e.Done
			}
		}
	})

	_, err := c.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, counts[checker.EventFileStart])
	assert.Equal(t, 2, counts[checker.EventFileDone])
	assert.Equal(t, 3, counts[checker.EventChunk])
	assert.Equal(t, int64(10), last["./a.txt"])
}

func TestGenerateCancelledWritesNothing(t *testing.T) {
	chdirTree(t, map[string]string{"a.txt": "alpha"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newChecker(t).Generate(ctx)
	require.Error(t, err)

	_, statErr := os.Stat(manifest.DefaultFileName)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestNewRejectsNegativeWorkers(t *testing.T) {
	_, err := checker.New(checker.Options{Workers: -1})
	assert.Error(t, err)
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	content := []byte("the quick brown fox jumps over the lazy dog")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	h := hasher.New()
	h.Update([]byte("stale state"))

	var chunks int
	d, n, err := checker.HashFile(path, h, make([]byte, 5), func(int64) { chunks++ })
	require.NoError(t, err)
	assert.Equal(t, hasher.Sum(content), d)
	assert.Equal(t, int64(len(content)), n)
	assert.Equal(t, 9, chunks)

	_, _, err = checker.HashFile(filepath.Join(dir, "missing"), h, make([]byte, 5), nil)
	var openErr *checker.OpenError
	require.ErrorAs(t, err, &openErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, _, err = checker.HashFile(dir, h, make([]byte, 5), nil)
	var readErr *checker.ReadError
	assert.ErrorAs(t, err, &readErr)
}

func TestReportHasErrors(t *testing.T) {
	tests := []struct {
		name   string
		report checker.Report
		want   bool
	}{
		{"clean generate", checker.Report{Mode: checker.ModeGenerate, Generate: &checker.GenerateResult{Good: 3}}, false},
		{"unreadable", checker.Report{Mode: checker.ModeGenerate, Generate: &checker.GenerateResult{Bad: 1}}, true},
		{"clean verify", checker.Report{Mode: checker.ModeVerify, Verify: &checker.VerifyResult{Verified: 2}}, false},
		{"failed", checker.Report{Mode: checker.ModeVerify, Verify: &checker.VerifyResult{Failed: 1}}, true},
		{"not found", checker.Report{Mode: checker.ModeVerify, Verify: &checker.VerifyResult{NotFound: 1}}, true},
		{"malformed", checker.Report{Mode: checker.ModeVerify, Verify: &checker.VerifyResult{Malformed: 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.report.HasErrors())
		})
	}
}

func TestModeAndOutcomeStrings(t *testing.T) {
	assert.Equal(t, "generate", checker.ModeGenerate.String())
	assert.Equal(t, "verify", checker.ModeVerify.String())
	assert.Equal(t, "not_found", checker.NotFound.String())
	assert.Equal(t, "malformed", checker.Malformed.String())
}
