// Package checker is the hash/verify engine. It chooses between generating a
// manifest and verifying an existing one, streams files through the hasher,
// and classifies every file into a report.
package checker

import (
	"errors"
	"fmt"
	"time"
)

// Mode is the pipeline a run executes.
type Mode int

const (
	// ModeGenerate hashes the tree and writes a new manifest.
	ModeGenerate Mode = iota
	// ModeVerify re-hashes the files listed in an existing manifest.
	ModeVerify
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeGenerate:
		return "generate"
	case ModeVerify:
		return "verify"
	default:
		return "unknown"
	}
}

// Outcome classifies one file or manifest line.
type Outcome int

const (
	// Hashed is a successfully hashed file during generate.
	Hashed Outcome = iota
	// Unreadable is a file that could not be opened or read during generate.
	Unreadable
	// Verified is a manifest entry whose digest matches.
	Verified
	// Failed is a manifest entry whose digest differs.
	Failed
	// NotFound is a manifest entry whose file is missing or unreadable.
	NotFound
	// Malformed is a manifest line that could not be parsed.
	Malformed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Hashed:
		return "hashed"
	case Unreadable:
		return "unreadable"
	case Verified:
		return "verified"
	case Failed:
		return "failed"
	case NotFound:
		return "not_found"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// EventKind identifies an engine event.
type EventKind int

const (
	// EventFileStart fires before a file is opened.
	EventFileStart EventKind = iota
	// EventChunk fires after each buffer is folded into the digest.
	EventChunk
	// EventFileDone fires once a file has been classified.
	EventFileDone
)

// Event reports engine progress to observers such as progress bars.
type Event struct {
	Kind EventKind

	// Path is the file being processed.
	Path string

	// Size is the file size known at start (traversal size in generate,
	// zero in verify until the file is opened).
	Size int64

	// Done is the number of bytes hashed so far for this file.
	Done int64

	// Index is the position of the file in the run, Total the run length.
	Index int
	Total int

	// Outcome is set on EventFileDone.
	Outcome Outcome

	// Err is the open or read error behind Unreadable and NotFound.
	Err error
}

// GenerateResult summarizes a generate run.
type GenerateResult struct {
	// Good counts files hashed and written to the manifest.
	Good int
	// Bad counts files that could not be opened or read.
	Bad int
	// BadPaths lists the unreadable files in traversal order.
	BadPaths []string
	// Entries is the manifest content written.
	Entries int
	// BytesHashed is the total number of bytes read.
	BytesHashed int64
	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// Mismatch records a failed verification.
type Mismatch struct {
	Path     string
	Expected string
	Actual   string
}

// VerifyResult summarizes a verify run.
type VerifyResult struct {
	Verified  int
	Failed    int
	NotFound  int
	Malformed int

	// FailedPaths and MissingPaths follow manifest line order.
	FailedPaths  []string
	MissingPaths []string

	// MalformedLines describes unparseable lines as "line N: text".
	MalformedLines []string

	Mismatches  []Mismatch
	BytesHashed int64
	Elapsed     time.Duration
}

// Report is the outcome of Run.
type Report struct {
	Mode     Mode
	Manifest string
	Generate *GenerateResult
	Verify   *VerifyResult
}

// HasErrors reports whether the run should end with a failure status:
// unreadable files in generate, or any non-verified entry in verify.
func (r *Report) HasErrors() bool {
	switch r.Mode {
	case ModeGenerate:
		return r.Generate != nil && r.Generate.Bad > 0
	case ModeVerify:
		v := r.Verify
		return v != nil && (v.Failed > 0 || v.NotFound > 0 || v.Malformed > 0)
	default:
		return false
	}
}

// ErrManifestMissing is returned by Verify when there is no manifest.
var ErrManifestMissing = errors.New("manifest not found")

// OpenError is returned when a file cannot be opened for hashing.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("opening %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// ReadError is returned when reading fails after the file was opened.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
