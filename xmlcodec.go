// This file is the XML serializer collaborator spec.md §1 describes:
// it binds the decompressed plaintext KeePassFile document to the
// Document object model, in both directions. It is grounded on the
// teacher's keepass_xml.go/xml_types.go token-walking technique for
// preserving declaration order, but deliberately does *not* apply the
// Salsa20 cipher while walking — that coupling is exactly the anti-
// pattern spec.md §9's design notes calls out. Marshal and Unmarshal
// here only ever see Value.Text as already-plaintext-or-ciphertext-
// as-appropriate; protected.go is responsible for the transition.
package openkeepass

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const kdbxTimeLayout = "2006-01-02T15:04:05Z"

// unmarshalDocument parses plaintext KeePassFile XML into a Document,
// preserving each entry's property declaration order and each group's
// child order exactly as encountered.
func unmarshalDocument(data []byte) (*Document, error) {
	var raw struct {
		Meta struct {
			Generator           string `xml:"Generator"`
			DatabaseName        string `xml:"DatabaseName"`
			DatabaseDescription string `xml:"DatabaseDescription"`
		} `xml:"Meta"`
		Root struct {
			Group xmlGroup `xml:"Group"`
		} `xml:"Root"`
	}

	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	doc := &Document{
		Meta: Meta{
			Generator:           raw.Meta.Generator,
			DatabaseName:        raw.Meta.DatabaseName,
			DatabaseDescription: raw.Meta.DatabaseDescription,
		},
		Root: raw.Root.Group.toGroup(),
	}
	return doc, nil
}

// marshalDocument serializes doc back into plaintext KeePassFile XML,
// in the same field order unmarshalDocument produces, so a
// round-tripped document consumes the protected-string keystream
// identically on both sides.
func marshalDocument(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<KeePassFile><Meta>")
	writeXMLElement(&buf, "Generator", doc.Meta.Generator)
	writeXMLElement(&buf, "DatabaseName", doc.Meta.DatabaseName)
	writeXMLElement(&buf, "DatabaseDescription", doc.Meta.DatabaseDescription)
	buf.WriteString("</Meta><Root>")
	if err := marshalGroup(&buf, &doc.Root); err != nil {
		return nil, err
	}
	buf.WriteString("</Root></KeePassFile>")
	return buf.Bytes(), nil
}

// xmlGroup and xmlEntry are the token-walking intermediate shapes used
// only during Unmarshal, mirroring the teacher's approach of decoding
// each element's children by hand so declaration order is captured as
// data (StringOrder) instead of relied upon implicitly.

type xmlGroup struct {
	uuidBytes []byte
	name      string
	notes     string
	groups    []xmlGroup
	entries   []xmlEntry
}

func (g *xmlGroup) toGroup() Group {
	out := Group{
		Name:  g.name,
		Notes: g.notes,
	}
	if id, err := uuid.FromBytes(g.uuidBytes); err == nil {
		out.UUID = id
	}
	for _, sub := range g.groups {
		out.Groups = append(out.Groups, sub.toGroup())
	}
	for _, e := range g.entries {
		out.Entries = append(out.Entries, e.toEntry())
	}
	return out
}

func (g *xmlGroup) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "UUID":
				var s string
				if err := d.DecodeElement(&s, &t); err != nil {
					return err
				}
				g.uuidBytes, _ = base64.StdEncoding.DecodeString(s)
			case "Name":
				if err := d.DecodeElement(&g.name, &t); err != nil {
					return err
				}
			case "Notes":
				if err := d.DecodeElement(&g.notes, &t); err != nil {
					return err
				}
			case "Group":
				var sub xmlGroup
				if err := d.DecodeElement(&sub, &t); err != nil {
					return err
				}
				g.groups = append(g.groups, sub)
			case "Entry":
				var e xmlEntry
				if err := d.DecodeElement(&e, &t); err != nil {
					return err
				}
				g.entries = append(g.entries, e)
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

type xmlEntry struct {
	uuidBytes   []byte
	strings     map[string]Value
	stringOrder []string
	lastMod     string
	history     []xmlEntry
}

func (e *xmlEntry) toEntry() Entry {
	out := Entry{
		Strings:     e.strings,
		StringOrder: e.stringOrder,
	}
	if id, err := uuid.FromBytes(e.uuidBytes); err == nil {
		out.UUID = id
	}
	out.Times.LastModificationTime = parseKdbxTime(e.lastMod)
	for _, h := range e.history {
		out.History = append(out.History, h.toEntry())
	}
	return out
}

func (e *xmlEntry) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	e.strings = make(map[string]Value)
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "UUID":
				var s string
				if err := d.DecodeElement(&s, &t); err != nil {
					return err
				}
				e.uuidBytes, _ = base64.StdEncoding.DecodeString(s)
			case "String":
				var pair struct {
					Key   string `xml:"Key"`
					Value struct {
						Text      string `xml:",chardata"`
						Protected bool   `xml:"Protected,attr"`
					} `xml:"Value"`
				}
				if err := d.DecodeElement(&pair, &t); err != nil {
					return err
				}
				if _, exists := e.strings[pair.Key]; !exists {
					e.stringOrder = append(e.stringOrder, pair.Key)
				}
				e.strings[pair.Key] = Value{Text: pair.Value.Text, Protected: pair.Value.Protected}
			case "Times":
				var times struct {
					LastModificationTime string `xml:"LastModificationTime"`
				}
				if err := d.DecodeElement(&times, &t); err != nil {
					return err
				}
				e.lastMod = times.LastModificationTime
			case "History":
				var h struct {
					Entries []xmlEntry `xml:"Entry"`
				}
				if err := d.DecodeElement(&h, &t); err != nil {
					return err
				}
				e.history = h.Entries
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func marshalGroup(buf *bytes.Buffer, g *Group) error {
	buf.WriteString("<Group>")
	writeXMLElement(buf, "UUID", base64.StdEncoding.EncodeToString(g.UUID[:]))
	writeXMLElement(buf, "Name", g.Name)
	writeXMLElement(buf, "Notes", g.Notes)
	for i := range g.Groups {
		if err := marshalGroup(buf, &g.Groups[i]); err != nil {
			return err
		}
	}
	for i := range g.Entries {
		if err := marshalEntry(buf, &g.Entries[i]); err != nil {
			return err
		}
	}
	buf.WriteString("</Group>")
	return nil
}

func marshalEntry(buf *bytes.Buffer, e *Entry) error {
	buf.WriteString("<Entry>")
	writeXMLElement(buf, "UUID", base64.StdEncoding.EncodeToString(e.UUID[:]))
	for _, key := range e.StringOrder {
		v := e.Strings[key]
		buf.WriteString("<String><Key>")
		xml.EscapeText(buf, []byte(key))
		buf.WriteString("</Key><Value")
		if v.Protected {
			buf.WriteString(` Protected="True"`)
		}
		buf.WriteString(">")
		xml.EscapeText(buf, []byte(v.Text))
		buf.WriteString("</Value></String>")
	}
	buf.WriteString("<Times>")
	writeXMLElement(buf, "LastModificationTime", formatKdbxTime(e.Times.LastModificationTime))
	buf.WriteString("</Times>")
	if len(e.History) > 0 {
		buf.WriteString("<History>")
		for i := range e.History {
			if err := marshalEntry(buf, &e.History[i]); err != nil {
				return err
			}
		}
		buf.WriteString("</History>")
	}
	buf.WriteString("</Entry>")
	return nil
}

func writeXMLElement(buf *bytes.Buffer, name, value string) {
	fmt.Fprintf(buf, "<%s>", name)
	xml.EscapeText(buf, []byte(value))
	fmt.Fprintf(buf, "</%s>", name)
}

func parseKdbxTime(s string) time.Time {
	t, err := time.Parse(kdbxTimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatKdbxTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(kdbxTimeLayout)
}
