package openkeepass

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// hashedBlockSize is the size hashed blocks are split into on write,
// per spec.md §4.8. The last block may be shorter.
const hashedBlockSize = 1 << 20 // 1 MiB

// maxHashedBlockSize bounds a single block's declared length on
// decode, per spec.md §4.8, to keep a corrupt or hostile length field
// from driving a pathological allocation.
const maxHashedBlockSize = 16 << 20 // 16 MiB

var zeroHash [32]byte

// decodeHashedBlocks reads the (index, hash, length, data)* stream
// terminated by a zero-length, all-zero-hash block, per spec.md §4.8,
// and returns the concatenated data.
func decodeHashedBlocks(r []byte) ([]byte, error) {
	var out bytes.Buffer
	off := 0
	wantIndex := uint32(0)

	for {
		if off+4 > len(r) {
			return nil, errCorruptBlock("truncated block index")
		}
		index := binary.LittleEndian.Uint32(r[off : off+4])
		off += 4

		if off+32 > len(r) {
			return nil, errCorruptBlock("truncated block hash")
		}
		hash := r[off : off+32]
		off += 32

		if off+4 > len(r) {
			return nil, errCorruptBlock("truncated block length")
		}
		length := binary.LittleEndian.Uint32(r[off : off+4])
		off += 4

		if length == 0 {
			if !constantTimeEqual(hash, zeroHash[:]) {
				return nil, errCorruptBlock("terminator block has non-zero hash")
			}
			return out.Bytes(), nil
		}
		if length > maxHashedBlockSize {
			return nil, errCorruptBlock("block length exceeds maximum")
		}
		if index != wantIndex {
			return nil, errCorruptBlock("block index out of order")
		}
		if off+int(length) > len(r) {
			return nil, errCorruptBlock("truncated block data")
		}
		data := r[off : off+int(length)]
		off += int(length)

		if !constantTimeEqual(sha256Sum(data), hash) {
			return nil, errCorruptBlock("block hash mismatch")
		}

		out.Write(data)
		wantIndex++
	}
}

// encodeHashedBlocks splits data into hashedBlockSize chunks and
// frames each with its index and SHA-256, followed by a terminator
// block, per spec.md §4.8.
func encodeHashedBlocks(data []byte) []byte {
	var out bytes.Buffer
	index := uint32(0)

	for off := 0; off < len(data); off += hashedBlockSize {
		end := off + hashedBlockSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		writeBlockHeader(&out, index, sha256Sum(chunk), uint32(len(chunk)))
		out.Write(chunk)
		index++
	}

	writeBlockHeader(&out, index, zeroHash[:], 0)
	return out.Bytes()
}

func writeBlockHeader(out *bytes.Buffer, index uint32, hash []byte, length uint32) {
	out.Write(putUint32LE(index))
	out.Write(hash)
	out.Write(putUint32LE(length))
}

func errCorruptBlock(msg string) error {
	return &Error{Op: "decode hashed blocks", Kind: CorruptBlock, Err: errors.New(msg)}
}
