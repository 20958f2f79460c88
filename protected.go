package openkeepass

import "encoding/base64"

// applyProtectedStream is the protected-string pass spec.md §4.10
// describes and §9's design notes insist on isolating: a pure
// transformation over the already-parsed Document, run once after
// unmarshalDocument on read (encrypt=false, converting base64
// ciphertext into plaintext) and once before marshalDocument on write
// (encrypt=true, converting plaintext into base64 ciphertext).
//
// It never touches XML and never runs interleaved with parsing, so the
// only thing that determines correctness is that both directions visit
// protected fields in the same order: this group's own entries in
// StringOrder, then each entry's History oldest-first, then child
// groups depth-first. protectedStreamKey is the raw 32-byte header
// field; the actual Salsa20 key is SHA-256 of it, per spec.md §4.9.
func applyProtectedStream(doc *Document, protectedStreamKey []byte, encrypt bool) error {
	stream, err := newSalsaStream(sha256Sum(protectedStreamKey))
	if err != nil {
		return err
	}
	return walkGroupProtected(&doc.Root, stream, encrypt)
}

func walkGroupProtected(g *Group, stream *salsaStream, encrypt bool) error {
	for i := range g.Entries {
		if err := walkEntryProtected(&g.Entries[i], stream, encrypt); err != nil {
			return err
		}
	}
	for i := range g.Groups {
		if err := walkGroupProtected(&g.Groups[i], stream, encrypt); err != nil {
			return err
		}
	}
	return nil
}

func walkEntryProtected(e *Entry, stream *salsaStream, encrypt bool) error {
	for _, key := range e.StringOrder {
		v, ok := e.Strings[key]
		if !ok || !v.Protected {
			continue
		}
		text, err := transformProtectedText(stream, v.Text, encrypt)
		if err != nil {
			return err
		}
		v.Text = text
		e.Strings[key] = v
	}
	for i := range e.History {
		if err := walkEntryProtected(&e.History[i], stream, encrypt); err != nil {
			return err
		}
	}
	return nil
}

func transformProtectedText(stream *salsaStream, text string, encrypt bool) (string, error) {
	if encrypt {
		plain := []byte(text)
		ct := make([]byte, len(plain))
		stream.xorKeyStream(ct, plain)
		return base64.StdEncoding.EncodeToString(ct), nil
	}

	ct, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return "", wrapErr("read protected string", CorruptBlock, err)
	}
	plain := make([]byte, len(ct))
	stream.xorKeyStream(plain, ct)
	return string(plain), nil
}
