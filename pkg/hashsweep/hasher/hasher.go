// Package hasher provides the streaming 128-bit digest used to fingerprint
// file contents. The digest is XXH3-128 with the default seed: fast and
// non-cryptographic, suitable for detecting bit rot but not tampering.
package hasher

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/zeebo/xxh3"
)

// DefaultBufferSize is the read buffer size used when streaming files
// through a Hasher. It bounds peak memory per worker regardless of file size.
const DefaultBufferSize = 8 * 1024 * 1024

// DigestLen is the length of a rendered Digest.
const DigestLen = 32

// ErrInvalidDigest is returned when a string is not a 32-character hex digest.
var ErrInvalidDigest = errors.New("invalid digest")

// Digest is a 128-bit file fingerprint.
type Digest struct {
	Hi uint64
	Lo uint64
}

// String renders the digest as 32 uppercase, zero-padded hex characters,
// high half first.
func (d Digest) String() string {
	return fmt.Sprintf("%016X%016X", d.Hi, d.Lo)
}

// IsZero reports whether the digest is the zero value.
func (d Digest) IsZero() bool {
	return d.Hi == 0 && d.Lo == 0
}

// ParseDigest parses a 32-character hex string in either case.
func ParseDigest(s string) (Digest, error) {
	if len(s) != DigestLen {
		return Digest{}, fmt.Errorf("%w: want %d characters, got %d", ErrInvalidDigest, DigestLen, len(s))
	}

	hi, err := strconv.ParseUint(s[:16], 16, 64)
	if err != nil {
		return Digest{}, fmt.Errorf("%w: %q", ErrInvalidDigest, s)
	}
	lo, err := strconv.ParseUint(s[16:], 16, 64)
	if err != nil {
		return Digest{}, fmt.Errorf("%w: %q", ErrInvalidDigest, s)
	}

	return Digest{Hi: hi, Lo: lo}, nil
}

// Hasher accumulates a stream of bytes into a Digest. A single Hasher may be
// reused across files, but Reset must be called before each new stream.
// It is not safe for concurrent use.
type Hasher struct {
	h *xxh3.Hasher
}

// New returns a Hasher in its initial state.
func New() *Hasher {
	return &Hasher{h: xxh3.New()}
}

// Reset returns the accumulator to its initial state.
func (h *Hasher) Reset() {
	h.h.Reset()
}

// Update folds p into the running digest. The result does not depend on how
// a stream is split into chunks.
func (h *Hasher) Update(p []byte) {
	_, _ = h.h.Write(p) // xxh3.Hasher.Write never fails
}

// Write implements io.Writer so a Hasher can sit behind io.Copy.
func (h *Hasher) Write(p []byte) (int, error) {
	h.Update(p)
	return len(p), nil
}

// Digest returns the digest of everything written since the last Reset.
// It does not reset the Hasher.
func (h *Hasher) Digest() Digest {
	sum := h.h.Sum128()
	return Digest{Hi: sum.Hi, Lo: sum.Lo}
}

// Sum returns the digest of p in one shot.
func Sum(p []byte) Digest {
	sum := xxh3.Hash128(p)
	return Digest{Hi: sum.Hi, Lo: sum.Lo}
}
