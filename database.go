// Package openkeepass reads and writes KDBX v2 ("KeePass 2.x, file
// version 3") password database files: AES-256-CBC outer encryption,
// a hashed-block integrity frame, optional GZip compression, and
// Salsa20-protected in-memory strings.
package openkeepass

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
)

// openOptions collects Open's configuration. The zero value opens with
// no credentials, which always fails with InvalidArgument — at least
// one of WithPassword or WithKeyFile is required.
type openOptions struct {
	ctx           context.Context
	hasPassword   bool
	password      string
	keyFileData   []byte
	hasKeyFile    bool
	normalizeMode NormalizeMode
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

// WithPassword supplies the database password.
func WithPassword(password string) OpenOption {
	return func(o *openOptions) {
		o.hasPassword = true
		o.password = password
	}
}

// WithKeyFile supplies the raw contents of a key file, in either the
// XML or the raw binary form spec.md §6 describes.
func WithKeyFile(data []byte) OpenOption {
	return func(o *openOptions) {
		o.hasKeyFile = true
		o.keyFileData = data
	}
}

// WithNormalizeMode overrides the default key-file normalization rule.
// See NormalizeMode and DESIGN.md.
func WithNormalizeMode(mode NormalizeMode) OpenOption {
	return func(o *openOptions) { o.normalizeMode = mode }
}

// WithContext makes the KDF transform step cancellable.
func WithContext(ctx context.Context) OpenOption {
	return func(o *openOptions) { o.ctx = ctx }
}

// Open decrypts and parses a KDBX v2 file, returning the credential
// tree. At least one of WithPassword or WithKeyFile must be given.
func Open(data []byte, opts ...OpenOption) (*Document, error) {
	o := &openOptions{ctx: context.Background()}
	for _, opt := range opts {
		opt(o)
	}
	if !o.hasPassword && !o.hasKeyFile {
		return nil, &Error{Op: "open", Kind: InvalidArgument, Err: errors.New("no password or key file given")}
	}

	header, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	composite, err := compositeKeyFromOptions(o)
	if err != nil {
		return nil, err
	}
	defer zeroize(composite)

	masterKey, err := transformKey(o.ctx, composite, header.TransformSeed, header.MasterSeed, header.TransformRounds)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, wrapErr("open", CannotDecrypt, err)
	}
	defer zeroize(masterKey)

	encrypted := data[header.HeaderSize:]
	plaintext, err := aesCBCDecrypt(masterKey, header.EncryptionIV, encrypted)
	if err != nil || len(plaintext) < 32 || !constantTimeEqual(plaintext[:32], header.StreamStartBytes) {
		return nil, wrapErr("open", CannotDecrypt, errors.New("wrong password or key file, or corrupted file"))
	}

	blockData, err := decodeHashedBlocks(plaintext[32:])
	if err != nil {
		return nil, err
	}

	xmlBytes, err := decompress(blockData, header.Compression)
	if err != nil {
		return nil, err
	}

	doc, err := unmarshalDocument(xmlBytes)
	if err != nil {
		return nil, wrapErr("open", CorruptBlock, err)
	}

	if err := applyProtectedStream(doc, header.ProtectedStreamKey, false); err != nil {
		return nil, err
	}

	return doc, nil
}

// writeOptions collects Write's configuration.
type writeOptions struct {
	ctx           context.Context
	keyFileData   []byte
	hasKeyFile    bool
	normalizeMode NormalizeMode
	rounds        uint64
	randSource    io.Reader
}

// WriteOption configures Write.
type WriteOption func(*writeOptions)

// WithKeyFileWrite supplies a key file to combine with the password
// when deriving the new file's master key.
func WithKeyFileWrite(data []byte) WriteOption {
	return func(o *writeOptions) {
		o.hasKeyFile = true
		o.keyFileData = data
	}
}

// WithWriteNormalizeMode overrides the default key-file normalization
// rule for Write.
func WithWriteNormalizeMode(mode NormalizeMode) WriteOption {
	return func(o *writeOptions) { o.normalizeMode = mode }
}

// WithRounds overrides the KDF work factor. Zero uses
// DefaultTransformRounds.
func WithRounds(rounds uint64) WriteOption {
	return func(o *writeOptions) { o.rounds = rounds }
}

// WithRandomSource overrides the source of random seeds and IVs,
// for deterministic tests. Production callers should never set this.
func WithRandomSource(r io.Reader) WriteOption {
	return func(o *writeOptions) { o.randSource = r }
}

// WithWriteContext makes the KDF transform step cancellable.
func WithWriteContext(ctx context.Context) WriteOption {
	return func(o *writeOptions) { o.ctx = ctx }
}

// Write serializes doc into a fresh KDBX v2 file encrypted under
// password (optionally combined with a key file). password may be
// empty only if WithKeyFileWrite is given.
func Write(doc *Document, password string, opts ...WriteOption) ([]byte, error) {
	if doc == nil {
		return nil, &Error{Op: "write", Kind: InvalidArgument, Err: errors.New("nil document")}
	}
	if doc.Root.UUID == uuid.Nil {
		return nil, &Error{Op: "write", Kind: WriteValidationError, Err: errors.New("root group has no UUID")}
	}
	if doc.Meta.DatabaseName == "" {
		return nil, &Error{Op: "write", Kind: WriteValidationError, Err: errors.New("meta is missing a database name")}
	}

	o := &writeOptions{ctx: context.Background()}
	for _, opt := range opts {
		opt(o)
	}
	if password == "" && !o.hasKeyFile {
		return nil, &Error{Op: "write", Kind: InvalidArgument, Err: errors.New("no password or key file given")}
	}

	header, err := NewHeader(o.rounds, o.randSource)
	if err != nil {
		return nil, wrapErr("write", InvalidArgument, err)
	}

	composite, err := compositeKeyFromWriteOptions(password, o)
	if err != nil {
		return nil, err
	}
	defer zeroize(composite)

	masterKey, err := transformKey(o.ctx, composite, header.TransformSeed, header.MasterSeed, header.TransformRounds)
	if err != nil {
		return nil, wrapErr("write", InvalidArgument, err)
	}
	defer zeroize(masterKey)

	working := cloneDocument(doc)
	if err := applyProtectedStream(working, header.ProtectedStreamKey, true); err != nil {
		return nil, err
	}

	xmlBytes, err := marshalDocument(working)
	if err != nil {
		return nil, wrapErr("write", WriteValidationError, err)
	}

	compressed, err := compress(xmlBytes, header.Compression)
	if err != nil {
		return nil, wrapErr("write", DecompressionError, err)
	}

	blockData := encodeHashedBlocks(compressed)
	plaintext := concat(header.StreamStartBytes, blockData)

	ciphertext, err := aesCBCEncrypt(masterKey, header.EncryptionIV, plaintext)
	if err != nil {
		return nil, wrapErr("write", InvalidArgument, err)
	}

	return concat(header.Marshal(), ciphertext), nil
}

func compositeKeyFromOptions(o *openOptions) ([]byte, error) {
	var passwordHash, keyFileBytes []byte
	if o.hasPassword {
		passwordHash = sha256Sum([]byte(o.password))
	}
	if o.hasKeyFile {
		kf, err := parseKeyFile(o.keyFileData, o.normalizeMode, o.hasPassword)
		if err != nil {
			return nil, wrapErr("open", InvalidKeyFile, err)
		}
		keyFileBytes = kf
	}
	composite := compositeKey(passwordHash, keyFileBytes)
	if composite == nil {
		return nil, &Error{Op: "open", Kind: InvalidArgument, Err: errors.New("no password or key file given")}
	}
	return composite, nil
}

func compositeKeyFromWriteOptions(password string, o *writeOptions) ([]byte, error) {
	var passwordHash, keyFileBytes []byte
	hasPassword := password != ""
	if hasPassword {
		passwordHash = sha256Sum([]byte(password))
	}
	if o.hasKeyFile {
		kf, err := parseKeyFile(o.keyFileData, o.normalizeMode, hasPassword)
		if err != nil {
			return nil, wrapErr("write", InvalidKeyFile, err)
		}
		keyFileBytes = kf
	}
	composite := compositeKey(passwordHash, keyFileBytes)
	if composite == nil {
		return nil, &Error{Op: "write", Kind: InvalidArgument, Err: errors.New("no password or key file given")}
	}
	return composite, nil
}

func decompress(data []byte, compression uint32) ([]byte, error) {
	if compression == CompressionNone {
		return data, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, wrapErr("open", DecompressionError, err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapErr("open", DecompressionError, err)
	}
	return out, nil
}

func compress(data []byte, compression uint32) ([]byte, error) {
	if compression == CompressionNone {
		return data, nil
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
