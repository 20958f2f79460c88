package openkeepass

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeHashedBlocksRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 1000)

	encoded := encodeHashedBlocks(data)
	decoded, err := decodeHashedBlocks(encoded)
	if err != nil {
		t.Fatalf("decodeHashedBlocks: %v", err)
	}
	if !bytes.Equal(decoded, data) {
		t.Errorf("round trip mismatch: got %d bytes, want %d", len(decoded), len(data))
	}
}

func TestEncodeDecodeHashedBlocksMultipleChunks(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, hashedBlockSize*2+17)

	encoded := encodeHashedBlocks(data)
	decoded, err := decodeHashedBlocks(encoded)
	if err != nil {
		t.Fatalf("decodeHashedBlocks: %v", err)
	}
	if !bytes.Equal(decoded, data) {
		t.Errorf("round trip mismatch across multiple blocks")
	}
}

func TestDecodeHashedBlocksDetectsTamperedData(t *testing.T) {
	data := []byte("some data that will get corrupted")
	encoded := encodeHashedBlocks(data)
	encoded[40] ^= 0xFF // inside the first block's data region

	_, err := decodeHashedBlocks(encoded)
	if err == nil {
		t.Fatal("expected an error for a tampered block")
	}
	if kind, ok := KindOf(err); !ok || kind != CorruptBlock {
		t.Errorf("got kind %v, want CorruptBlock", kind)
	}
}

func TestDecodeHashedBlocksRejectsOutOfOrderIndex(t *testing.T) {
	data := bytes.Repeat([]byte{0x11}, hashedBlockSize+1)
	encoded := encodeHashedBlocks(data)

	// Give the first block the second block's index (1).
	encoded[0], encoded[1], encoded[2], encoded[3] = 0x01, 0x00, 0x00, 0x00

	_, err := decodeHashedBlocks(encoded)
	if err == nil {
		t.Fatal("expected an error for an out-of-order block index")
	}
}

func TestDecodeHashedBlocksEmptyInput(t *testing.T) {
	encoded := encodeHashedBlocks(nil)
	decoded, err := decodeHashedBlocks(encoded)
	if err != nil {
		t.Fatalf("decodeHashedBlocks: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("got %d bytes, want 0", len(decoded))
	}
}
