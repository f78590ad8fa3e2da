// Package history keeps a local record of generate and verify runs in a
// Badger database so past results can be listed and inspected.
package history

import (
	"time"

	json "github.com/goccy/go-json"
)

// Counts holds the per-run classification totals.
type Counts struct {
	Hashed     int `json:"hashed,omitempty"`
	Unreadable int `json:"unreadable,omitempty"`
	Verified   int `json:"verified,omitempty"`
	Failed     int `json:"failed,omitempty"`
	NotFound   int `json:"not_found,omitempty"`
	Malformed  int `json:"malformed,omitempty"`
}

// Record is one stored run.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// Mode is "generate" or "verify".
	Mode     string `json:"mode"`
	Root     string `json:"root"`
	Manifest string `json:"manifest"`

	Counts Counts `json:"counts"`

	// Problem paths, in the order the run reported them.
	UnreadablePaths []string `json:"unreadable_paths,omitempty"`
	FailedPaths     []string `json:"failed_paths,omitempty"`
	MissingPaths    []string `json:"missing_paths,omitempty"`
	MalformedLines  []string `json:"malformed_lines,omitempty"`

	BytesHashed int64         `json:"bytes_hashed"`
	Elapsed     time.Duration `json:"elapsed"`

	// Interrupted is set when the run was cancelled before finishing.
	Interrupted bool `json:"interrupted,omitempty"`
}

// OK reports whether the run finished without problems.
func (r *Record) OK() bool {
	c := r.Counts
	return !r.Interrupted && c.Unreadable == 0 && c.Failed == 0 && c.NotFound == 0 && c.Malformed == 0
}

// Files returns the number of files the run classified.
func (r *Record) Files() int {
	c := r.Counts
	return c.Hashed + c.Unreadable + c.Verified + c.Failed + c.NotFound
}

// Encode serializes the record.
func (r *Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Decode deserializes data into the record.
func (r *Record) Decode(data []byte) error {
	return json.Unmarshal(data, r)
}
