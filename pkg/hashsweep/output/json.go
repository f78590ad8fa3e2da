package output

import (
	"bytes"
	"time"

	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
)

// document is the structure shared by the json and yaml formatters.
type document struct {
	Mode     string       `json:"mode" yaml:"mode"`
	Root     string       `json:"root" yaml:"root"`
	Manifest string       `json:"manifest" yaml:"manifest"`
	Generate *generateDoc `json:"generate,omitempty" yaml:"generate,omitempty"`
	Verify   *verifyDoc   `json:"verify,omitempty" yaml:"verify,omitempty"`
	Stats    statsDoc     `json:"stats" yaml:"stats"`
	OK       bool         `json:"ok" yaml:"ok"`
}

type generateDoc struct {
	Hashed     int      `json:"hashed" yaml:"hashed"`
	Unreadable int      `json:"unreadable" yaml:"unreadable"`
	BadPaths   []string `json:"unreadable_paths,omitempty" yaml:"unreadable_paths,omitempty"`
}

type verifyDoc struct {
	Verified       int        `json:"verified" yaml:"verified"`
	Failed         int        `json:"failed" yaml:"failed"`
	NotFound       int        `json:"not_found" yaml:"not_found"`
	Malformed      int        `json:"malformed" yaml:"malformed"`
	MissingPaths   []string   `json:"missing_paths,omitempty" yaml:"missing_paths,omitempty"`
	FailedPaths    []string   `json:"failed_paths,omitempty" yaml:"failed_paths,omitempty"`
	MalformedLines []string   `json:"malformed_lines,omitempty" yaml:"malformed_lines,omitempty"`
	Mismatches     []Mismatch `json:"mismatches,omitempty" yaml:"mismatches,omitempty"`
}

type statsDoc struct {
	BytesHashed int64  `json:"bytes_hashed" yaml:"bytes_hashed"`
	BytesHuman  string `json:"bytes_human" yaml:"bytes_human"`
	Duration    string `json:"duration" yaml:"duration"`
}

func buildDocument(r *Result) document {
	doc := document{
		Mode:     r.Mode,
		Root:     r.Root,
		Manifest: r.Manifest,
		OK:       !r.HasErrors(),
		Stats: statsDoc{
			BytesHashed: r.BytesHashed,
			BytesHuman:  humanize.IBytes(uint64(r.BytesHashed)),
			Duration:    r.Duration.Round(time.Millisecond).String(),
		},
	}

	if r.IsGenerate() {
		doc.Generate = &generateDoc{
			Hashed:     r.Good,
			Unreadable: r.Bad,
			BadPaths:   r.BadPaths,
		}
		return doc
	}

	doc.Verify = &verifyDoc{
		Verified:       r.Verified,
		Failed:         r.Failed,
		NotFound:       r.NotFound,
		Malformed:      r.Malformed,
		MissingPaths:   r.MissingPaths,
		FailedPaths:    r.FailedPaths,
		MalformedLines: r.MalformedLines,
		Mismatches:     r.Mismatches,
	}
	return doc
}

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
