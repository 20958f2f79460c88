package openkeepass

import "crypto/sha256"

// sha256Sum hashes each of bufs in order, as if they had been
// concatenated, without materializing the concatenation.
func sha256Sum(bufs ...[]byte) []byte {
	h := sha256.New()
	for _, b := range bufs {
		h.Write(b)
	}
	return h.Sum(nil)
}
