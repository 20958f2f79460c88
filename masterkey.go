package openkeepass

import (
	"context"
	"crypto/aes"
)

// compositeKey assembles the composite key from whichever of password
// hash / key-file bytes are present, per spec.md §4.4:
//
//	SHA256(P || K)  when both are given
//	P               when only the password hash is given
//	K               when only key-file bytes are given
//
// passwordHash must already be SHA256(utf8(password)) when present;
// keyFileBytes must already be exactly 32 bytes when present.
func compositeKey(passwordHash, keyFileBytes []byte) []byte {
	switch {
	case len(passwordHash) > 0 && len(keyFileBytes) > 0:
		return sha256Sum(passwordHash, keyFileBytes)
	case len(passwordHash) > 0:
		return passwordHash
	case len(keyFileBytes) > 0:
		return keyFileBytes
	default:
		return nil
	}
}

// transformKey runs the KDBX key-transform (spec.md §4.5): N rounds of
// AES-ECB over the composite key using the transform seed as key,
// treating the 32-byte composite as two independent 16-byte blocks,
// then SHA-256, then combined with the master seed and hashed again to
// produce the final AES-256-CBC key.
//
// ctx is checked every 1024 rounds so a caller can cancel the slow
// step, per spec.md §5; a canceled context returns ctx.Err().
func transformKey(ctx context.Context, composite, transformSeed, masterSeed []byte, rounds uint64) ([]byte, error) {
	block, err := aes.NewCipher(transformSeed)
	if err != nil {
		return nil, err
	}

	x := make([]byte, 32)
	copy(x, composite)
	defer zeroize(x)

	for i := uint64(0); i < rounds; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		block.Encrypt(x[0:16], x[0:16])
		block.Encrypt(x[16:32], x[16:32])
	}

	transformed := sha256Sum(x)
	defer zeroize(transformed)
	return sha256Sum(masterSeed, transformed), nil
}
