package checker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/manifest"
)

type verifySlot struct {
	actual string
	bytes  int64
	err    error
}

// Verify re-hashes every entry of the manifest and classifies it as
// verified, failed or not found. Lines that do not parse are counted as
// malformed and skipped. Diagnostics keep manifest line order.
func (c *Checker) Verify(ctx context.Context) (*VerifyResult, error) {
	start := time.Now()

	lines, err := manifest.ReadAll(c.opts.ManifestPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestMissing, c.opts.ManifestPath)
		}
		return nil, err
	}

	var (
		entries []manifest.Entry
		order   []int
	)
	for i, l := range lines {
		if l.Err == nil {
			entries = append(entries, l.Entry)
			order = append(order, i)
		}
	}

	c.logger.Info("Verifying manifest",
		"manifest", c.opts.ManifestPath,
		"entries", len(entries),
		"lines", len(lines),
		"workers", c.workers)

	total := len(entries)
	slots := make([]verifySlot, total)
	err = c.forEach(ctx, total, func(wk *worker, i int) {
		e := entries[i]

		var size int64
		if info, statErr := os.Stat(e.Path); statErr == nil {
			size = info.Size()
		}

		d, n, hashErr := c.hash(wk, e.Path, size, i, total)
		if hashErr != nil {
			slots[i] = verifySlot{bytes: n, err: hashErr}
			c.logger.Debug("Unable to read file", "path", e.Path, "error", hashErr)
			c.done(e.Path, size, i, total, NotFound, hashErr)
			return
		}

		actual := d.String()
		slots[i] = verifySlot{actual: actual, bytes: n}

		outcome := Verified
		if actual != e.Digest {
			outcome = Failed
			c.logger.Debug("Failed to verify", "path", e.Path, "actual", actual, "expected", e.Digest)
		}
		c.done(e.Path, n, i, total, outcome, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("verify interrupted: %w", err)
	}

	res := &VerifyResult{}
	slotByLine := make(map[int]int, len(order))
	for slot, line := range order {
		slotByLine[line] = slot
	}

	for i, l := range lines {
		if l.Err != nil {
			res.Malformed++
			res.MalformedLines = append(res.MalformedLines, fmt.Sprintf("line %d: %s", l.Number, l.Text))
			continue
		}

		e := l.Entry
		slot := slots[slotByLine[i]]
		res.BytesHashed += slot.bytes

		switch {
		case slot.err != nil:
			res.NotFound++
			res.MissingPaths = append(res.MissingPaths, e.Path)
		case slot.actual != e.Digest:
			res.Failed++
			res.FailedPaths = append(res.FailedPaths, e.Path)
			res.Mismatches = append(res.Mismatches, Mismatch{
				Path:     e.Path,
				Expected: e.Digest,
				Actual:   slot.actual,
			})
		default:
			res.Verified++
		}
	}

	res.Elapsed = time.Since(start)

	c.logger.Info("Verification complete",
		"verified", res.Verified,
		"failed", res.Failed,
		"not_found", res.NotFound,
		"malformed", res.Malformed,
		"elapsed", res.Elapsed)

	return res, nil
}
