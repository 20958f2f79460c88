package openkeepass

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func sampleDocument() *Document {
	doc := &Document{
		Meta: Meta{
			Generator:           "openkeepass-test",
			DatabaseName:        "Test Database",
			DatabaseDescription: "built for round-trip tests",
		},
		Root: Group{
			UUID: uuid.New(),
			Name: "Root",
		},
	}

	entry := Entry{
		UUID: uuid.New(),
		Times: Times{
			LastModificationTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}
	entry.Set("Title", "example.com", false)
	entry.Set("UserName", "alice", false)
	entry.Set("Password", "hunter2", true)
	entry.Set("URL", "https://example.com", false)

	history := Entry{UUID: entry.UUID}
	history.Set("Title", "example.com", false)
	history.Set("Password", "oldpassword", true)
	entry.History = []Entry{history}

	doc.Root.Entries = []Entry{entry}
	return doc
}

func TestWriteOpenRoundTripPasswordOnly(t *testing.T) {
	doc := sampleDocument()

	data, err := Write(doc, "correct horse battery staple", WithRounds(4))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Open(data, WithPassword("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteOpenRoundTripPasswordAndKeyFile(t *testing.T) {
	doc := sampleDocument()
	keyFile := []byte(`<KeyFile><Key><Data>YWFhYWFhYWFhYWFhYWFhYWFhYWFhYWFhYWFhYWFhYWE=</Data></Key></KeyFile>`)

	data, err := Write(doc, "hunter2", WithKeyFileWrite(keyFile), WithRounds(4))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Open(data, WithPassword("hunter2"), WithKeyFile(keyFile))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenKeyFileOnlyRawFixture(t *testing.T) {
	doc := sampleDocument()
	rawKeyFile := bytes.Repeat([]byte{0x42}, 64)

	data, err := Write(doc, "", WithKeyFileWrite(rawKeyFile), WithRounds(4))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Open(data, WithKeyFile(rawKeyFile))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenWrongPasswordFails(t *testing.T) {
	doc := sampleDocument()
	data, err := Write(doc, "correct password", WithRounds(4))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	_, err = Open(data, WithPassword("wrong password"))
	if err == nil {
		t.Fatal("expected an error opening with the wrong password")
	}
	if kind, ok := KindOf(err); !ok || kind != CannotDecrypt {
		t.Errorf("got kind %v, want CannotDecrypt", kind)
	}
}

func TestOpenTamperedBlockFails(t *testing.T) {
	doc := sampleDocument()
	data, err := Write(doc, "correct password", WithRounds(4))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	header, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}

	// Flip a byte 48 bytes into the ciphertext, inside the first hashed
	// block's framing; the AES-CBC layer will still decrypt (garbage in,
	// garbage out) and the padding at the end is untouched, so this
	// exercises the hashed block check further down the pipeline rather
	// than a padding failure.
	tampered := append([]byte(nil), data...)
	tampered[header.HeaderSize+48] ^= 0xFF

	_, err = Open(tampered, WithPassword("correct password"))
	if err == nil {
		t.Fatal("expected an error opening a tampered file")
	}
}

func TestOpenUnsupportedVersionRejected(t *testing.T) {
	doc := sampleDocument()
	data, err := Write(doc, "correct password", WithRounds(4))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Bytes 8:12 are the little-endian version uint32, major version in
	// the high 16 bits: bump it from 3 to 4.
	corrupted := append([]byte(nil), data...)
	corrupted[10] = 4
	corrupted[11] = 0

	_, err = Open(corrupted, WithPassword("correct password"))
	if err == nil {
		t.Fatal("expected an error opening an unsupported version")
	}
	if kind, ok := KindOf(err); !ok || kind != UnsupportedVersion {
		t.Errorf("got kind %v, want UnsupportedVersion", kind)
	}
}

func TestOpenPreservesHistory(t *testing.T) {
	doc := sampleDocument()
	data, err := Write(doc, "correct password", WithRounds(4))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Open(data, WithPassword("correct password"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	entry := got.Root.Entries[0]
	if len(entry.History) != 1 {
		t.Fatalf("got %d history entries, want 1", len(entry.History))
	}
	if entry.History[0].Strings["Password"].Text != "oldpassword" {
		t.Errorf("history password = %q, want %q", entry.History[0].Strings["Password"].Text, "oldpassword")
	}
	if !strings.Contains(entry.Strings["Password"].Text, "hunter2") {
		t.Errorf("current password = %q, want to contain %q", entry.Strings["Password"].Text, "hunter2")
	}
}

func TestOpenRequiresCredential(t *testing.T) {
	doc := sampleDocument()
	data, err := Write(doc, "correct password", WithRounds(4))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	_, err = Open(data)
	if err == nil {
		t.Fatal("expected an error opening with no credentials")
	}
	if kind, ok := KindOf(err); !ok || kind != InvalidArgument {
		t.Errorf("got kind %v, want InvalidArgument", kind)
	}
}

func TestWriteValidatesDocument(t *testing.T) {
	_, err := Write(&Document{}, "password")
	if err == nil {
		t.Fatal("expected an error writing a document with no root UUID or database name")
	}
	if kind, ok := KindOf(err); !ok || kind != WriteValidationError {
		t.Errorf("got kind %v, want WriteValidationError", kind)
	}
}

func TestTransformKeyRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := transformKey(ctx, make([]byte, 32), make([]byte, 32), make([]byte, 32), 100000)
	if err == nil {
		t.Fatal("expected transformKey to observe the canceled context")
	}
}
