package openkeepass

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/packetops/openkeepass/internal/padding"
)

// aesCBCEncrypt PKCS#7-pads and AES-256-CBC-encrypts plaintext with
// the given 32-byte key and 16-byte IV, matching spec.md §4.2/§4.6.
func aesCBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := padding.Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// aesCBCDecrypt AES-256-CBC-decrypts ciphertext and strips PKCS#7
// padding. Any failure — bad key length, ciphertext not a multiple of
// the block size, or invalid padding bytes — is reported the same way
// by the caller (as Kind CannotDecrypt): a padding oracle must not be
// distinguishable from a wrong key.
func aesCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, padding.ErrDataSize
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return padding.Strip(out, aes.BlockSize)
}
