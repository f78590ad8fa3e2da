package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/hasher"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/manifest"
)

type generateSlot struct {
	digest hasher.Digest
	bytes  int64
	err    error
}

// Generate hashes every file under the root and writes the manifest. Files
// that cannot be opened or read are counted and left out of the manifest.
// If ctx is cancelled the run stops between files and no manifest is written.
func (c *Checker) Generate(ctx context.Context) (*GenerateResult, error) {
	start := time.Now()

	w, err := c.newWalker()
	if err != nil {
		return nil, err
	}
	files, err := w.Walk(ctx)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", c.opts.Root, err)
	}

	c.logger.Info("Generating manifest",
		"root", c.opts.Root,
		"files", len(files),
		"workers", c.workers,
		"manifest", c.opts.ManifestPath)

	total := len(files)
	slots := make([]generateSlot, total)
	err = c.forEach(ctx, total, func(wk *worker, i int) {
		f := files[i]
		d, n, hashErr := c.hash(wk, f.Path, f.Size, i, total)
		slots[i] = generateSlot{digest: d, bytes: n, err: hashErr}

		if hashErr != nil {
			c.logger.Warn("Unable to read file", "path", f.Path, "error", hashErr)
			c.done(f.Path, f.Size, i, total, Unreadable, hashErr)
			return
		}
		c.done(f.Path, n, i, total, Hashed, nil)
	})
	if err != nil {
		if isCanceled(err) {
			c.logger.Warn("Generate interrupted, manifest not written")
		}
		return nil, fmt.Errorf("generate interrupted: %w", err)
	}

	res := &GenerateResult{}
	entries := make([]manifest.Entry, 0, total)
	for i, slot := range slots {
		res.BytesHashed += slot.bytes
		if slot.err != nil {
			res.Bad++
			res.BadPaths = append(res.BadPaths, files[i].Path)
			continue
		}
		res.Good++
		entries = append(entries, manifest.NewEntry(files[i].Path, slot.digest))
	}

	if err := manifest.Write(c.opts.ManifestPath, entries); err != nil {
		return nil, fmt.Errorf("writing manifest %s: %w", c.opts.ManifestPath, err)
	}

	res.Entries = len(entries)
	res.Elapsed = time.Since(start)

	c.logger.Info("Manifest written",
		"good", res.Good,
		"bad", res.Bad,
		"bytes", res.BytesHashed,
		"elapsed", res.Elapsed)

	return res, nil
}
