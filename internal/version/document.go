// Package version stores metadata snapshots as a version tree with delta
// compression, and compares and three-way merges versions.
package version

import (
	"maps"
	"slices"

	"github.com/simonhull/imagemeta/internal/xmp"
)

// Properties maps property names to values within one namespace.
type Properties map[string]xmp.Value

// Document is a metadata snapshot: namespace -> property -> value.
//
// EXIF directories appear as "exif:IFD0", "exif:Exif", "exif:GPS" and
// "exif:Interop", IPTC as "iptc", and XMP namespaces under their URIs.
// Documents are treated as immutable once handed to a Store.
type Document map[string]Properties

// Namespaces returns the namespace names in sorted order.
func (d Document) Namespaces() []string {
	return slices.Sorted(maps.Keys(d))
}

// Get returns one property value.
func (d Document) Get(namespace, property string) (xmp.Value, bool) {
	v, ok := d[namespace][property]
	return v, ok
}

// With returns a copy with one property set. A nil value removes it.
func (d Document) With(namespace, property string, v xmp.Value) Document {
	out := d.Clone()
	out.set(namespace, property, v)
	return out
}

// set mutates d in place. Empty namespaces are dropped.
func (d Document) set(namespace, property string, v xmp.Value) {
	if v == nil {
		if props, ok := d[namespace]; ok {
			delete(props, property)
			if len(props) == 0 {
				delete(d, namespace)
			}
		}
		return
	}
	props, ok := d[namespace]
	if !ok {
		props = make(Properties)
		d[namespace] = props
	}
	props[property] = xmp.Clone(v)
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for ns, props := range d {
		cp := make(Properties, len(props))
		for name, v := range props {
			cp[name] = xmp.Clone(v)
		}
		out[ns] = cp
	}
	return out
}

// Equal reports semantic equality, with xmp.ValueEqual per property.
// Empty namespaces count as absent.
func Equal(a, b Document) bool {
	if countNonEmpty(a) != countNonEmpty(b) {
		return false
	}
	for ns, props := range a {
		other := b[ns]
		if len(props) != len(other) {
			return false
		}
		for name, v := range props {
			w, ok := other[name]
			if !ok || !xmp.ValueEqual(v, w) {
				return false
			}
		}
	}
	return true
}

func countNonEmpty(d Document) int {
	n := 0
	for _, props := range d {
		if len(props) > 0 {
			n++
		}
	}
	return n
}

// FromXMP converts an XMP document: each namespace URI becomes a namespace
// and each property its local name.
func FromXMP(doc *xmp.Document) Document {
	out := make(Document)
	if doc == nil {
		return out
	}
	for q, v := range doc.Properties {
		out.set(q.Space, q.Local, v)
	}
	return out
}

// ToXMP converts the namespaces that hold XMP properties back into an XMP
// document. Namespaces that are not URIs (exif:*, iptc) are skipped.
func (d Document) ToXMP() *xmp.Document {
	out := xmp.NewDocument()
	for ns, props := range d {
		if !isURI(ns) {
			continue
		}
		for name, v := range props {
			out.Properties[xmp.QName{Space: ns, Local: name}] = xmp.Clone(v)
		}
	}
	return out
}

func isURI(ns string) bool {
	for i := 0; i < len(ns); i++ {
		switch ns[i] {
		case '/', '#':
			return true
		}
	}
	return false
}
