package xmp

import (
	"slices"
)

// Well-known namespace URIs.
const (
	NSRDF       = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSXML       = "http://www.w3.org/XML/1998/namespace"
	NSMeta      = "adobe:ns:meta/"
	NSDC        = "http://purl.org/dc/elements/1.1/"
	NSXMP       = "http://ns.adobe.com/xap/1.0/"
	NSXMPRights = "http://ns.adobe.com/xap/1.0/rights/"
	NSXMPMM     = "http://ns.adobe.com/xap/1.0/mm/"
	NSPhotoshop = "http://ns.adobe.com/photoshop/1.0/"
	NSTIFF      = "http://ns.adobe.com/tiff/1.0/"
	NSEXIF      = "http://ns.adobe.com/exif/1.0/"
	NSIptcCore  = "http://iptc.org/std/Iptc4xmpCore/1.0/xmlns/"
	NSXSD       = "http://www.w3.org/2001/XMLSchema#"
)

// wellKnownPrefixes supplies prefixes for serializing namespaces the
// document never declared.
var wellKnownPrefixes = map[string]string{
	NSDC:        "dc",
	NSXMP:       "xmp",
	NSXMPRights: "xmpRights",
	NSXMPMM:     "xmpMM",
	NSPhotoshop: "photoshop",
	NSTIFF:      "tiff",
	NSEXIF:      "exif",
	NSIptcCore:  "Iptc4xmpCore",
	NSRDF:       "rdf",
	NSMeta:      "x",
}

// Document is a parsed XMP packet.
//
// Documents are values: the With and Without methods return modified copies
// and leave the receiver untouched.
type Document struct {
	// About is the rdf:about subject, usually empty.
	About string

	// Toolkit is the x:xmptk attribute of the x:xmpmeta wrapper.
	Toolkit string

	// Namespaces maps declared prefixes to namespace URIs. Declarations are
	// kept even when no property uses them.
	Namespaces map[string]string

	// Properties holds the top-level properties.
	Properties map[QName]Value

	// ReadOnly mirrors the packet trailer's end="r".
	ReadOnly bool
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Namespaces: make(map[string]string),
		Properties: make(map[QName]Value),
	}
}

// Get returns the property named q.
func (d *Document) Get(q QName) (Value, bool) {
	v, ok := d.Properties[q]
	return v, ok
}

// Names returns the property names in a stable order.
func (d *Document) Names() []QName {
	names := make([]QName, 0, len(d.Properties))
	for q := range d.Properties {
		names = append(names, q)
	}
	slices.SortFunc(names, compareQName)
	return names
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := &Document{
		About:      d.About,
		Toolkit:    d.Toolkit,
		ReadOnly:   d.ReadOnly,
		Namespaces: make(map[string]string, len(d.Namespaces)),
		Properties: make(map[QName]Value, len(d.Properties)),
	}
	for p, uri := range d.Namespaces {
		out.Namespaces[p] = uri
	}
	for q, v := range d.Properties {
		out.Properties[q] = Clone(v)
	}
	return out
}

// With returns a copy with property q set to v.
func (d *Document) With(q QName, v Value) *Document {
	out := d.Clone()
	out.Properties[q] = Clone(v)
	return out
}

// Without returns a copy with property q removed.
func (d *Document) Without(q QName) *Document {
	out := d.Clone()
	delete(out.Properties, q)
	return out
}

// RegisterNamespace returns a copy with prefix bound to uri.
func (d *Document) RegisterNamespace(prefix, uri string) *Document {
	out := d.Clone()
	out.Namespaces[prefix] = uri
	return out
}

// Equal reports whether two documents carry semantically equal properties
// under the same subject. Namespace declarations and packet attributes are
// presentation and are not compared.
func Equal(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.About != b.About || len(a.Properties) != len(b.Properties) {
		return false
	}
	for q, v := range a.Properties {
		w, ok := b.Properties[q]
		if !ok || !ValueEqual(v, w) {
			return false
		}
	}
	return true
}
