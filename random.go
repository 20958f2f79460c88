package openkeepass

import (
	"crypto/rand"
	"io"
)

// defaultRandSource is the cryptographically secure source NewHeader
// uses unless a caller overrides it with WithRandomSource, for the
// master seed, transform seed, protected stream key, stream start
// bytes, and encryption IV every fresh header needs, per spec.md §4.1.
func defaultRandSource() io.Reader {
	return rand.Reader
}

// randomBytes reads exactly n bytes from r, or returns an error if r
// is exhausted first.
func randomBytes(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
