package output

import (
	"bytes"
	"fmt"
)

// PlainFormatter writes the classic line-oriented report: the diagnostic
// lists followed by the totals line.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	if r.IsGenerate() {
		fmt.Fprintf(w, "%s saved.\n", r.ManifestName())
		writeList(w, "The following files could not be read:", r.BadPaths)
		w.WriteString(r.Summary())
		w.WriteByte('\n')
		return nil
	}

	writeList(w, "The following files were not found:", r.MissingPaths)
	writeList(w, "The following files failed verification:", r.FailedPaths)
	writeList(w, "The following manifest lines could not be parsed:", r.MalformedLines)

	w.WriteString(r.Summary())
	w.WriteByte('\n')
	return nil
}

func writeList(w *bytes.Buffer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	w.WriteString(title)
	w.WriteByte('\n')
	for _, item := range items {
		w.WriteString(item)
		w.WriteByte('\n')
	}
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
