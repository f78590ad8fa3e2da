package checker

import (
	"errors"
	"io"
	"os"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/hasher"
)

// HashFile streams the file at path through h using buf as the read buffer.
// h is reset first. onChunk, if non-nil, receives the running byte count
// after every chunk. Open failures return *OpenError and mid-stream read
// failures return *ReadError.
func HashFile(path string, h *hasher.Hasher, buf []byte, onChunk func(done int64)) (hasher.Digest, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return hasher.Digest{}, 0, &OpenError{Path: path, Err: err}
	}
	defer f.Close()

	h.Reset()

	var done int64
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Update(buf[:n])
			done += int64(n)
			if onChunk != nil {
				onChunk(done)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return hasher.Digest{}, done, &ReadError{Path: path, Err: err}
		}
	}

	return h.Digest(), done, nil
}
