package openkeepass

import (
	"errors"
	"fmt"
)

// Kind identifies the class of failure an Open, Write or ParseHeader
// call produced.
// Callers switch on Kind to distinguish a recoverable wrong-password
// error from a fatal corruption error.
type Kind int

const (
	// InvalidArgument marks a programmer error: a nil or contradictory
	// caller input, such as calling Open or Write with no password and
	// no key file.
	InvalidArgument Kind = iota
	// UnsupportedVersion means the magic bytes matched but the header's
	// major version was not 3.
	UnsupportedVersion
	// CorruptHeader means the header was truncated, had a duplicate
	// field, or was missing a required field.
	CorruptHeader
	// CannotDecrypt covers both PKCS#7 padding failure and a
	// stream-start-bytes mismatch. The two are never distinguished:
	// both indicate a wrong password, key file, or a tampered file.
	CannotDecrypt
	// CorruptBlock means a hashed block's index or SHA-256 didn't match.
	CorruptBlock
	// DecompressionError means GZip failed on a stream that decrypted
	// and passed the hashed-block check cleanly.
	DecompressionError
	// InvalidKeyFile means the key-file XML was malformed or its
	// Base64 payload had the wrong size after the normalize rule ran.
	InvalidKeyFile
	// UnsupportedCipher means the header named a cipher or inner
	// stream algorithm other than AES-256-CBC / Salsa20.
	UnsupportedCipher
	// WriteValidationError means the tree passed to Write is missing
	// Meta or a root Group.
	WriteValidationError
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case UnsupportedVersion:
		return "unsupported version"
	case CorruptHeader:
		return "corrupt header"
	case CannotDecrypt:
		return "cannot decrypt"
	case CorruptBlock:
		return "corrupt block"
	case DecompressionError:
		return "decompression error"
	case InvalidKeyFile:
		return "invalid key file"
	case UnsupportedCipher:
		return "unsupported cipher"
	case WriteValidationError:
		return "write validation error"
	default:
		return "unknown error"
	}
}

// Error is the error type this package reports its failures in,
// InvalidArgument included; a canceled or expired context given to
// Open is returned as is. Op names the operation or stage that failed:
// "open" or "write" for failures detected in Open or Write themselves,
// and "parse header", "decode hashed blocks" or "read protected
// string" for failures those stages report, which Open returns
// without further wrapping.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("openkeepass: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("openkeepass: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func wrapErr(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf returns the Kind carried by err, if err is (or wraps) an
// *Error produced by this package. It returns false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
