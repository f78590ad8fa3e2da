package checker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/config"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/hasher"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/logging"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/manifest"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/tuner"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/walker"
)

// Options configures a Checker.
type Options struct {
	// Root is the directory hashed in generate mode.
	Root string

	// ManifestPath is where the manifest is read from and written to.
	ManifestPath string

	// Self is the running executable, excluded from generation. Empty means
	// os.Executable is used.
	Self string

	// Exclude holds glob patterns skipped during generation.
	Exclude []string

	// Workers is the number of files hashed concurrently. Zero picks a count
	// from the machine's resources.
	Workers int

	// BufferSize is the per-worker read buffer in bytes.
	BufferSize int

	// OnEvent receives progress events. It must be safe for concurrent use
	// when Workers is not 1.
	OnEvent func(Event)
}

// DefaultOptions returns the sequential configuration: one worker and one
// 8 MiB buffer over the current directory.
func DefaultOptions() Options {
	return Options{
		Root:         config.DefaultRoot,
		ManifestPath: manifest.DefaultFileName,
		Workers:      config.DefaultWorkers,
		BufferSize:   hasher.DefaultBufferSize,
	}
}

// Checker runs the generate and verify pipelines.
type Checker struct {
	opts    Options
	workers int
	logger  *logging.Logger
}

// worker holds the per-goroutine hashing state.
type worker struct {
	h   *hasher.Hasher
	buf []byte
}

// New creates a Checker, filling defaults for unset options.
func New(opts Options) (*Checker, error) {
	if opts.Root == "" {
		opts.Root = config.DefaultRoot
	}
	if opts.ManifestPath == "" {
		opts.ManifestPath = manifest.DefaultFileName
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = hasher.DefaultBufferSize
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("workers must be >= 0, got %d", opts.Workers)
	}
	if opts.Self == "" {
		if exe, err := os.Executable(); err == nil {
			opts.Self = exe
		}
	}

	c := &Checker{
		opts:    opts,
		workers: tuner.Resolve(opts.Workers, opts.BufferSize),
		logger:  logging.Get("checker"),
	}
	return c, nil
}

// Workers returns the resolved worker count.
func (c *Checker) Workers() int {
	return c.workers
}

// ManifestPath returns the manifest location used by the checker.
func (c *Checker) ManifestPath() string {
	return c.opts.ManifestPath
}

// SelectMode inspects the manifest once: absent selects generate, present
// selects verify.
func (c *Checker) SelectMode() (Mode, error) {
	ok, err := manifest.Exists(c.opts.ManifestPath)
	if err != nil {
		return ModeGenerate, err
	}
	if ok {
		return ModeVerify, nil
	}
	return ModeGenerate, nil
}

// Run selects the mode and executes the matching pipeline.
func (c *Checker) Run(ctx context.Context) (*Report, error) {
	mode, err := c.SelectMode()
	if err != nil {
		return nil, err
	}
	return c.RunMode(ctx, mode)
}

// RunMode executes the pipeline for an already selected mode.
func (c *Checker) RunMode(ctx context.Context, mode Mode) (*Report, error) {
	report := &Report{Mode: mode, Manifest: c.opts.ManifestPath}

	switch mode {
	case ModeGenerate:
		res, err := c.Generate(ctx)
		if err != nil {
			return nil, err
		}
		report.Generate = res
	case ModeVerify:
		res, err := c.Verify(ctx)
		if err != nil {
			return nil, err
		}
		report.Verify = res
	default:
		return nil, fmt.Errorf("unknown mode %d", mode)
	}

	return report, nil
}

func (c *Checker) newWorker() *worker {
	return &worker{
		h:   hasher.New(),
		buf: make([]byte, c.opts.BufferSize),
	}
}

// forEach calls fn for indexes [0, n). With one worker the calls run in
// order on the calling goroutine; otherwise a fixed pool of workers pulls
// indexes from a shared counter. Cancellation is checked between files.
func (c *Checker) forEach(ctx context.Context, n int, fn func(w *worker, i int)) error {
	if n == 0 {
		return ctx.Err()
	}

	if c.workers <= 1 {
		w := c.newWorker()
		for i := range n {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(w, i)
		}
		return nil
	}

	var next atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for range min(c.workers, n) {
		g.Go(func() error {
			w := c.newWorker()
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				i := int(next.Add(1) - 1)
				if i >= n {
					return nil
				}
				fn(w, i)
			}
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// hash streams one file, emitting start, chunk and done events around it.
func (c *Checker) hash(w *worker, path string, size int64, index, total int) (hasher.Digest, int64, error) {
	c.emit(Event{Kind: EventFileStart, Path: path, Size: size, Index: index, Total: total})

	var onChunk func(int64)
	if c.opts.OnEvent != nil {
		onChunk = func(done int64) {
			c.emit(Event{Kind: EventChunk, Path: path, Size: size, Done: done, Index: index, Total: total})
		}
	}

	return HashFile(path, w.h, w.buf, onChunk)
}

func (c *Checker) emit(e Event) {
	if c.opts.OnEvent != nil {
		c.opts.OnEvent(e)
	}
}

func (c *Checker) done(path string, size int64, index, total int, outcome Outcome, err error) {
	c.emit(Event{
		Kind:    EventFileDone,
		Path:    path,
		Size:    size,
		Done:    size,
		Index:   index,
		Total:   total,
		Outcome: outcome,
		Err:     err,
	})
}

// isCanceled reports whether err comes from context cancellation.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Checker) newWalker() (*walker.Walker, error) {
	return walker.New(walker.Options{
		Root:    c.opts.Root,
		Exclude: c.opts.Exclude,
		Self:    c.opts.Self,
	})
}
