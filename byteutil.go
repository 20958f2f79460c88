package openkeepass

import (
	"crypto/subtle"
	"encoding/binary"
)

func putUint32LE(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func putUint64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func uint32LE(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

func uint64LE(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

func concat(bufs ...[]byte) []byte {
	n := 0
	for _, b := range bufs {
		n += len(b)
	}
	out := make([]byte, 0, n)
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out
}

// constantTimeEqual reports whether a and b are equal, without
// leaking timing information about where they first differ. Used for
// the stream-start-bytes and hashed-block hash comparisons, both of
// which double as authenticity checks.
func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
