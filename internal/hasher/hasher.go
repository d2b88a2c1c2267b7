// Package hasher computes hex-encoded content digests with a per-run
// selectable algorithm.
package hasher

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
	"lukechampine.com/blake3"
)

// Algorithm identifies the digest used for a whole run. Snapshots hashed
// with different algorithms must never be compared against each other.
type Algorithm string

const (
	// Blake3 is cryptographic: collision-resistant, 64 hex chars.
	Blake3 Algorithm = "blake3"
	// XXH3 is fast and non-cryptographic: change-detection only, 32 hex chars.
	XXH3 Algorithm = "xxh3"
)

// Parse maps a configuration string to an Algorithm.
func Parse(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case Blake3:
		return Blake3, nil
	case XXH3:
		return XXH3, nil
	}
	return "", fmt.Errorf("hasher: unknown algorithm %q (want %q or %q)", s, Blake3, XXH3)
}

const bufSize = 1 << 20

// File returns the hex digest of the file's entire content, streamed through
// a fixed-size buffer.
func File(path string, algo Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hasher: open %s: %w", path, err)
	}
	defer f.Close()

	switch algo {
	case Blake3:
		h := blake3.New(32, nil)
		if _, err := io.CopyBuffer(h, f, make([]byte, bufSize)); err != nil {
			return "", fmt.Errorf("hasher: read %s: %w", path, err)
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	case XXH3:
		h := xxh3.New()
		if _, err := io.CopyBuffer(h, f, make([]byte, bufSize)); err != nil {
			return "", fmt.Errorf("hasher: read %s: %w", path, err)
		}
		sum := h.Sum128().Bytes()
		return hex.EncodeToString(sum[:]), nil
	}
	return "", fmt.Errorf("hasher: unknown algorithm %q", algo)
}
