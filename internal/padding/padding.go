// Package padding implements PKCS#7 padding for block ciphers.
//
// The shape is adapted from zombiezen.com/go/sandpass's streaming
// io.Reader/io.Writer padding package to the one-shot, whole-buffer
// form the KDBX outer cipher needs: KDBX is decrypted and encrypted
// in a single CryptBlocks call over the entire file body, never
// streamed.
package padding

import "errors"

// Errors returned by Strip.
var (
	ErrBadBlockSize = errors.New("padding: bad block size")
	ErrDataSize     = errors.New("padding: input is not a multiple of block size")
	ErrWrongPadding = errors.New("padding: wrong padding")
)

// Pad appends PKCS#7 padding to b so its length is a multiple of
// blockSize. blockSize must be in (1, 256).
func Pad(b []byte, blockSize int) []byte {
	if blockSize <= 1 || blockSize >= 256 {
		panic("padding: illegal PKCS7 block size")
	}
	n := blockSize - len(b)%blockSize
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// Strip removes and validates PKCS#7 padding from b. The returned
// slice aliases b.
func Strip(b []byte, blockSize int) ([]byte, error) {
	if blockSize <= 1 || blockSize >= 256 {
		return b, ErrBadBlockSize
	}
	n := len(b)
	if n == 0 || n%blockSize != 0 {
		return b, ErrDataSize
	}
	pad := int(b[n-1])
	if pad == 0 || pad > blockSize || pad > n {
		return b, ErrWrongPadding
	}
	for _, x := range b[n-pad : n-1] {
		if x != byte(pad) {
			return b, ErrWrongPadding
		}
	}
	return b[:n-pad], nil
}
