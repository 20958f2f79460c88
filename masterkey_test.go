package openkeepass

import (
	"bytes"
	"context"
	"testing"
)

func TestCompositeKeyPasswordOnly(t *testing.T) {
	passwordHash := sha256Sum([]byte("password"))
	got := compositeKey(passwordHash, nil)
	if !bytes.Equal(got, passwordHash) {
		t.Errorf("compositeKey(passwordHash, nil) = %x, want %x", got, passwordHash)
	}
}

func TestCompositeKeyFileOnly(t *testing.T) {
	keyFileBytes := bytes.Repeat([]byte{0x09}, 32)
	got := compositeKey(nil, keyFileBytes)
	if !bytes.Equal(got, keyFileBytes) {
		t.Errorf("compositeKey(nil, keyFileBytes) = %x, want %x", got, keyFileBytes)
	}
}

func TestCompositeKeyBoth(t *testing.T) {
	passwordHash := sha256Sum([]byte("password"))
	keyFileBytes := bytes.Repeat([]byte{0x09}, 32)
	want := sha256Sum(passwordHash, keyFileBytes)
	got := compositeKey(passwordHash, keyFileBytes)
	if !bytes.Equal(got, want) {
		t.Errorf("compositeKey(both) = %x, want %x", got, want)
	}
}

func TestCompositeKeyNeither(t *testing.T) {
	if got := compositeKey(nil, nil); got != nil {
		t.Errorf("compositeKey(nil, nil) = %x, want nil", got)
	}
}

func TestTransformKeyDeterministic(t *testing.T) {
	composite := bytes.Repeat([]byte{0x01}, 32)
	transformSeed := bytes.Repeat([]byte{0x02}, 32)
	masterSeed := bytes.Repeat([]byte{0x03}, 32)

	a, err := transformKey(context.Background(), composite, transformSeed, masterSeed, 500)
	if err != nil {
		t.Fatalf("transformKey: %v", err)
	}
	b, err := transformKey(context.Background(), composite, transformSeed, masterSeed, 500)
	if err != nil {
		t.Fatalf("transformKey: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("transformKey is not deterministic for identical inputs")
	}

	c, err := transformKey(context.Background(), composite, transformSeed, masterSeed, 501)
	if err != nil {
		t.Fatalf("transformKey: %v", err)
	}
	if bytes.Equal(a, c) {
		t.Error("transformKey produced the same output for a different round count")
	}
}
