package openkeepass

// zeroize overwrites b with zero bytes in place. Go's garbage collector
// gives no guarantee about when or whether the backing array of a
// discarded key or composite-key slice is actually cleared from
// memory, so Open, Write and transformKey zeroize the composite key,
// the derived master key and the intermediate transform state before
// they return. The password hash and key-file bytes that are hashed
// into a two-part composite key, the Salsa20 stream key and state, and
// the decrypted file body are not zeroized.
func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
