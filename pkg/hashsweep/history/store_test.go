package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/checker"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutAssignsIDAndTimestamp(t *testing.T) {
	s := openTestStore(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	rec := &Record{Mode: "generate", Root: ".", Counts: Counts{Hashed: 3}}
	require.NoError(t, s.Put(rec))

	assert.Len(t, rec.ID, 36)
	assert.True(t, rec.Timestamp.Equal(fixed))

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, 3, got.Counts.Hashed)
	assert.True(t, got.Timestamp.Equal(fixed))
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range 5 {
		require.NoError(t, s.Put(&Record{
			ID:        string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Mode:      "verify",
		}))
	}

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "e", all[0].ID)
	assert.Equal(t, "a", all[4].ID)

	limited, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, []string{"e", "d"}, []string{limited[0].ID, limited[1].ID})
}

func TestListEmpty(t *testing.T) {
	s := openTestStore(t)
	records, err := s.List(10)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestGetByPrefix(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put(&Record{ID: "abc-111", Mode: "generate"}))
	require.NoError(t, s.Put(&Record{ID: "abc-222", Mode: "verify"}))
	require.NoError(t, s.Put(&Record{ID: "xyz-333", Mode: "verify"}))

	got, err := s.Get("xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz-333", got.ID)

	got, err = s.Get("abc-2")
	require.NoError(t, err)
	assert.Equal(t, "verify", got.Mode)

	_, err = s.Get("abc")
	assert.ErrorIs(t, err, ErrAmbiguousID)

	_, err = s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get("")
	assert.Error(t, err)
}

func TestCleanup(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(&Record{ID: "old", Timestamp: now.AddDate(0, 0, -100)}))
	require.NoError(t, s.Put(&Record{ID: "edge", Timestamp: now.AddDate(0, 0, -89)}))
	require.NoError(t, s.Put(&Record{ID: "new", Timestamp: now.Add(-time.Hour)}))

	removed, err := s.Cleanup(90)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	records, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "new", records[0].ID)
	assert.Equal(t, "edge", records[1].ID)

	_, err = s.Get("old")
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err = s.Cleanup(0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestReopenKeepsRecords(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(&Record{ID: "persisted", Mode: "generate", Counts: Counts{Hashed: 1}}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get("persisted")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Counts.Hashed)
}

func TestRecordHelpers(t *testing.T) {
	ok := Record{Counts: Counts{Verified: 4}}
	assert.True(t, ok.OK())
	assert.Equal(t, 4, ok.Files())

	bad := Record{Counts: Counts{Verified: 1, NotFound: 2, Failed: 1}}
	assert.False(t, bad.OK())
	assert.Equal(t, 4, bad.Files())

	interrupted := Record{Interrupted: true}
	assert.False(t, interrupted.OK())
}

func TestNewRecord(t *testing.T) {
	rep := &checker.Report{
		Mode:     checker.ModeVerify,
		Manifest: "hashes.txt",
		Verify: &checker.VerifyResult{
			Verified:     2,
			NotFound:     1,
			MissingPaths: []string{"./gone"},
			BytesHashed:  99,
			Elapsed:      time.Second,
		},
	}

	rec := NewRecord(".", rep)
	assert.Equal(t, "verify", rec.Mode)
	assert.Equal(t, ".", rec.Root)
	assert.Equal(t, Counts{Verified: 2, NotFound: 1}, rec.Counts)
	assert.Equal(t, []string{"./gone"}, rec.MissingPaths)
	assert.Equal(t, int64(99), rec.BytesHashed)
	assert.False(t, rec.OK())
	assert.Empty(t, rec.ID)
}
