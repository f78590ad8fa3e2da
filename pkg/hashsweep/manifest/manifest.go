package manifest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/hasher"
)

// maxLineSize caps a single manifest line.
const maxLineSize = 1024 * 1024

// FormatLine renders an entry as a manifest line. Paths that would make the
// line ambiguous (embedded line breaks, a leading quote) are Go-quoted.
func FormatLine(e Entry) string {
	return quotePath(e.Path) + " " + e.Digest
}

// ParseLine splits a manifest line into path and digest. Trailing whitespace
// is ignored. The last 32 characters must be hex and must be preceded by a
// single space and a non-empty path.
func ParseLine(line string) (Entry, error) {
	s := strings.TrimRight(line, " \t\r\n")
	if len(s) < hasher.DigestLen+2 {
		return Entry{}, fmt.Errorf("%w: too short: %q", ErrMalformedLine, line)
	}

	split := len(s) - hasher.DigestLen
	digest := s[split:]
	if _, err := hasher.ParseDigest(digest); err != nil {
		return Entry{}, fmt.Errorf("%w: bad digest %q", ErrMalformedLine, digest)
	}
	if s[split-1] != ' ' {
		return Entry{}, fmt.Errorf("%w: missing separator before digest: %q", ErrMalformedLine, line)
	}

	path := unquotePath(s[:split-1])
	if path == "" {
		return Entry{}, fmt.Errorf("%w: empty path: %q", ErrMalformedLine, line)
	}

	return Entry{Path: path, Digest: digest}, nil
}

// Encode joins entries into manifest text without a trailing newline.
func Encode(entries []Entry) []byte {
	var buf bytes.Buffer
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(FormatLine(e))
	}
	return buf.Bytes()
}

// Decode streams lines from r, calling fn for each non-blank line. Parse
// failures are reported through Line.Err rather than stopping the scan.
// An error returned by fn stops decoding and is returned.
func Decode(r io.Reader, fn func(Line) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	number := 0
	for scanner.Scan() {
		number++
		text := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}

		entry, parseErr := ParseLine(text)
		if err := fn(Line{Number: number, Text: text, Entry: entry, Err: parseErr}); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	return nil
}

// Read streams the manifest at path through fn.
func Read(path string, fn func(Line) error) (retErr error) {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening manifest: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("closing manifest: %w", closeErr)
		}
	}()

	return Decode(f, fn)
}

// ReadAll returns every non-blank line of the manifest at path.
func ReadAll(path string) ([]Line, error) {
	var lines []Line
	err := Read(path, func(l Line) error {
		lines = append(lines, l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// Write replaces the manifest at path with entries. The content is written
// to a temp file and renamed into place, so readers never observe a partial
// manifest.
func Write(path string, entries []Entry) error {
	data := Encode(entries)

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set manifest permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Exists reports whether a manifest is present at path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking manifest: %w", err)
}

func quotePath(p string) string {
	if strings.ContainsAny(p, "\n\r") || strings.HasPrefix(p, `"`) {
		return strconv.Quote(p)
	}
	return p
}

func unquotePath(p string) string {
	if len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"' {
		if unquoted, err := strconv.Unquote(p); err == nil {
			return unquoted
		}
	}
	return p
}
