package openkeepass

import (
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/salsa20/salsa"
)

// keepassSalsaNonce is the fixed 8-byte nonce the KDBX format uses for
// its inner Salsa20 stream. It is a protocol constant, not a secret.
var keepassSalsaNonce = [8]byte{0xe8, 0x30, 0x09, 0x4b, 0x97, 0x20, 0x5d, 0x2a}

// salsaSigma is the "nothing up my sleeve" constant Salsa20 mixes into
// every block ("expand 32-byte k"), same as salsa.go's
// nothingUpMySleeve in the teacher.
var salsaSigma = [16]byte{'e', 'x', 'p', 'a', 'n', 'd', ' ', '3', '2', '-', 'b', 'y', 't', 'e', ' ', 'k'}

// salsaStream is a stateful Salsa20/20 keystream generator keyed by a
// 32-byte key and the fixed KeePass nonce. Successive calls to
// xorKeyStream continue the keystream where the previous call left
// off, exactly like the teacher's Salsa20Reader: order of calls
// matters, since the protected-string pass depends on the keystream
// lining up with document order on both read and write.
type salsaStream struct {
	key     [32]byte
	counter uint64
	block   [64]byte
	off     int // bytes of block already consumed
}

func newSalsaStream(key []byte) (*salsaStream, error) {
	if len(key) != 32 {
		return nil, errors.New("openkeepass: salsa20 key must be 32 bytes")
	}
	s := &salsaStream{}
	copy(s.key[:], key)
	return s, nil
}

// xorKeyStream XORs the next len(src) keystream bytes into src and
// writes the result to dst. dst and src may overlap exactly.
func (s *salsaStream) xorKeyStream(dst, src []byte) {
	for i := 0; i < len(src); i++ {
		if s.off == 64 {
			s.off = 0
		}
		if s.off == 0 {
			s.nextBlock()
		}
		dst[i] = src[i] ^ s.block[s.off]
		s.off++
	}
}

func (s *salsaStream) nextBlock() {
	var in [16]byte
	copy(in[0:8], keepassSalsaNonce[:])
	binary.LittleEndian.PutUint64(in[8:16], s.counter)
	var zero [64]byte
	salsa.XORKeyStream(s.block[:], zero[:], &in, &s.key)
	s.counter++
}
