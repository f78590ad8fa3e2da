// Package manifest reads and writes the line-oriented digest manifest.
//
// Each line holds one entry:
//
//	<path> <32 uppercase hex digest>
//
// Lines are separated by "\n" with no trailing newline after the last entry.
// The digest is always the last 32 characters of a line.
package manifest

import (
	"errors"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/hasher"
)

// DefaultFileName is the manifest file name in the working directory.
const DefaultFileName = "hashes.txt"

// ErrMalformedLine is returned when a manifest line cannot be split into a
// path and a digest.
var ErrMalformedLine = errors.New("malformed manifest line")

// Entry pairs a file path with its digest text.
type Entry struct {
	// Path is the file path as written at generation time.
	Path string

	// Digest is the 32-character hex digest exactly as stored.
	Digest string
}

// NewEntry builds an entry from a computed digest.
func NewEntry(path string, d hasher.Digest) Entry {
	return Entry{Path: path, Digest: d.String()}
}

// Line is one non-blank line read from a manifest.
type Line struct {
	// Number is the 1-based line number.
	Number int

	// Text is the raw line without its line terminator.
	Text string

	// Entry is the parsed entry. Only valid when Err is nil.
	Entry Entry

	// Err is set when the line could not be parsed.
	Err error
}
