package openkeepass

import (
	"time"

	"github.com/google/uuid"
)

// Document is the decrypted credential tree: the object model the
// codec produces on Open and consumes on Write. spec.md §1 treats the
// XML schema binding that produces this tree as an external
// collaborator; this module supplies the default (and only) one, in
// xmlcodec.go, so the library is usable on its own.
type Document struct {
	Meta Meta
	Root Group
}

// Meta carries the small set of database-wide fields this codec
// round-trips. KeePass's real <Meta> element has many more fields
// (icons, recycle bin settings, custom data); this module keeps only
// the ones a caller of this codec plausibly needs, matching spec.md's
// framing of icon enrichment and similar decoration as out of scope.
type Meta struct {
	Generator           string
	DatabaseName        string
	DatabaseDescription string
}

// Group is a node in the credential tree: a named folder holding
// entries and child groups.
type Group struct {
	UUID    uuid.UUID
	Name    string
	Notes   string
	Groups  []Group
	Entries []Entry
}

// Entry is a single credential record. Strings holds every key/value
// property KeePass attached to the entry (Title, UserName, Password,
// URL, Notes, and any custom fields); StringOrder fixes the order
// those properties were declared in the document, which is exactly
// the order the protected-string pass must visit them in on both read
// and write (spec.md §4.10).
type Entry struct {
	UUID        uuid.UUID
	Times       Times
	Strings     map[string]Value
	StringOrder []string
	History     []Entry
}

// Value is one property of an Entry. Protected values carry
// ciphertext in Text until the protected-string pass runs.
type Value struct {
	Text      string
	Protected bool
}

// Times is the small subset of KeePass's <Times> block this codec
// round-trips.
type Times struct {
	LastModificationTime time.Time
}

// Set assigns a string property on e, appending key to StringOrder the
// first time it's seen so document order is preserved for later
// protected-string passes.
func (e *Entry) Set(key, text string, protected bool) {
	if e.Strings == nil {
		e.Strings = make(map[string]Value)
	}
	if _, exists := e.Strings[key]; !exists {
		e.StringOrder = append(e.StringOrder, key)
	}
	e.Strings[key] = Value{Text: text, Protected: protected}
}

// cloneDocument deep-copies doc so Write can run the protected-string
// pass on a working copy instead of mutating the caller's plaintext
// tree in place.
func cloneDocument(doc *Document) *Document {
	return &Document{Meta: doc.Meta, Root: cloneGroup(doc.Root)}
}

func cloneGroup(g Group) Group {
	out := g
	if g.Groups != nil {
		out.Groups = make([]Group, len(g.Groups))
		for i, sub := range g.Groups {
			out.Groups[i] = cloneGroup(sub)
		}
	}
	if g.Entries != nil {
		out.Entries = make([]Entry, len(g.Entries))
		for i, e := range g.Entries {
			out.Entries[i] = cloneEntry(e)
		}
	}
	return out
}

func cloneEntry(e Entry) Entry {
	out := e
	if e.Strings != nil {
		out.Strings = make(map[string]Value, len(e.Strings))
		for k, v := range e.Strings {
			out.Strings[k] = v
		}
	}
	out.StringOrder = append([]string(nil), e.StringOrder...)
	if e.History != nil {
		out.History = make([]Entry, len(e.History))
		for i, h := range e.History {
			out.History[i] = cloneEntry(h)
		}
	}
	return out
}
