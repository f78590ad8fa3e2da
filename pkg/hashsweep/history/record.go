package history

import "github.com/jamesainslie/hashsweep/pkg/hashsweep/checker"

// NewRecord builds an unsaved record from a finished run.
func NewRecord(root string, rep *checker.Report) *Record {
	rec := &Record{
		Mode:     rep.Mode.String(),
		Root:     root,
		Manifest: rep.Manifest,
	}

	if g := rep.Generate; g != nil {
		rec.Counts.Hashed = g.Good
		rec.Counts.Unreadable = g.Bad
		rec.UnreadablePaths = g.BadPaths
		rec.BytesHashed = g.BytesHashed
		rec.Elapsed = g.Elapsed
	}

	if v := rep.Verify; v != nil {
		rec.Counts.Verified = v.Verified
		rec.Counts.Failed = v.Failed
		rec.Counts.NotFound = v.NotFound
		rec.Counts.Malformed = v.Malformed
		rec.FailedPaths = v.FailedPaths
		rec.MissingPaths = v.MissingPaths
		rec.MalformedLines = v.MalformedLines
		rec.BytesHashed = v.BytesHashed
		rec.Elapsed = v.Elapsed
	}

	return rec
}
