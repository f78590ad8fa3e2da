// Package output renders hashsweep run results in several formats
// (plain, pretty, json, yaml, template).
//
// Formatters are looked up by name from a registry, so the CLI can select
// one at runtime:
//
//	formatter, err := output.Get("json")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, output.FromReport(root, report)); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/checker"
)

// Mismatch is a manifest entry whose current digest differs from the
// stored one.
type Mismatch struct {
	Path     string `json:"path" yaml:"path"`
	Expected string `json:"expected" yaml:"expected"`
	Actual   string `json:"actual" yaml:"actual"`
}

// Result is the formatter input: one generate or verify run, flattened.
type Result struct {
	// Mode is "generate" or "verify".
	Mode string

	// Root is the directory that was hashed.
	Root string

	// Manifest is the manifest path read or written.
	Manifest string

	// Generate counters.
	Good     int
	Bad      int
	BadPaths []string

	// Verify counters.
	Verified       int
	Failed         int
	NotFound       int
	Malformed      int
	FailedPaths    []string
	MissingPaths   []string
	MalformedLines []string
	Mismatches     []Mismatch

	// BytesHashed is the total number of bytes read.
	BytesHashed int64

	// Duration is the wall time of the run.
	Duration time.Duration
}

// FromReport converts an engine report into a Result.
func FromReport(root string, rep *checker.Report) *Result {
	r := &Result{
		Mode:     rep.Mode.String(),
		Root:     root,
		Manifest: rep.Manifest,
	}

	if g := rep.Generate; g != nil {
		r.Good = g.Good
		r.Bad = g.Bad
		r.BadPaths = g.BadPaths
		r.BytesHashed = g.BytesHashed
		r.Duration = g.Elapsed
	}

	if v := rep.Verify; v != nil {
		r.Verified = v.Verified
		r.Failed = v.Failed
		r.NotFound = v.NotFound
		r.Malformed = v.Malformed
		r.FailedPaths = v.FailedPaths
		r.MissingPaths = v.MissingPaths
		r.MalformedLines = v.MalformedLines
		r.BytesHashed = v.BytesHashed
		r.Duration = v.Elapsed
		for _, m := range v.Mismatches {
			r.Mismatches = append(r.Mismatches, Mismatch(m))
		}
	}

	return r
}

// IsGenerate reports whether the result comes from a generate run.
func (r *Result) IsGenerate() bool {
	return r.Mode == checker.ModeGenerate.String()
}

// ManifestName is the base name of the manifest, as used in status lines.
func (r *Result) ManifestName() string {
	if r.Manifest == "" {
		return "hashes.txt"
	}
	return filepath.Base(r.Manifest)
}

// HasErrors mirrors checker.Report.HasErrors.
func (r *Result) HasErrors() bool {
	if r.IsGenerate() {
		return r.Bad > 0
	}
	return r.Failed > 0 || r.NotFound > 0 || r.Malformed > 0
}

// Summary returns the one-line totals printed at the end of a run.
func (r *Result) Summary() string {
	if r.IsGenerate() {
		return fmt.Sprintf("%d files hashed, unable to read %d files.", r.Good, r.Bad)
	}
	return fmt.Sprintf("%d files verified, %d files failed, %d files not found.",
		r.Verified, r.Failed, r.NotFound)
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format: %s", name)
	}
	return factory(), nil
}

// Available returns the registered formatter names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns the formatter names in the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// IsText reports whether a format is meant for humans. Status lines for
// machine-readable formats go to stderr so stdout stays parseable.
func IsText(name string) bool {
	return name == "plain" || name == "pretty"
}
