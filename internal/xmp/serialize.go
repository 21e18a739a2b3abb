package xmp

import (
	"bytes"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// SerializeOptions controls packet output.
type SerializeOptions struct {
	// OmitPacketWrapper drops the <?xpacket?> header and trailer.
	OmitPacketWrapper bool

	// TargetSize pads the packet with whitespace up to this many bytes so
	// later edits can be made in place. Ignored when the packet is already
	// larger or the wrapper is omitted.
	TargetSize int

	// ReadOnly writes end="r" in the trailer.
	ReadOnly bool

	// Resolver decides which scalars need an explicit rdf:datatype to parse
	// back to the same kind. Pass the same resolver to Parse.
	Resolver TypeResolver
}

const (
	packetHeader = "<?xpacket begin=\"\ufeff\" id=\"W5M0MpCehiHzreSzNTczkc9d\"?>\n"
	paddingLine  = 100
)

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
	"\n", "&#xA;",
	"\r", "&#xD;",
	"\t", "&#x9;",
)

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\r", "&#xD;",
)

// Serialize writes doc as an XMP packet. Output is deterministic: namespaces,
// properties and struct fields are sorted; Seq, Alt and Bag keep item order.
func Serialize(doc *Document, opts SerializeOptions) ([]byte, error) {
	w := &writer{opts: opts, prefixes: assignPrefixes(doc)}

	if !opts.OmitPacketWrapper {
		w.buf.WriteString(packetHeader)
	}
	w.buf.WriteString(`<x:xmpmeta xmlns:x="adobe:ns:meta/"`)
	if doc.Toolkit != "" {
		w.buf.WriteString(` x:xmptk="` + attrEscaper.Replace(doc.Toolkit) + `"`)
	}
	w.buf.WriteString(">\n")
	w.buf.WriteString(` <rdf:RDF xmlns:rdf="` + NSRDF + `">` + "\n")
	w.buf.WriteString(`  <rdf:Description rdf:about="` + attrEscaper.Replace(doc.About) + `"`)

	uris := make([]string, 0, len(w.prefixes))
	for uri := range w.prefixes {
		uris = append(uris, uri)
	}
	sort.Slice(uris, func(i, j int) bool { return w.prefixes[uris[i]] < w.prefixes[uris[j]] })
	for _, uri := range uris {
		fmt.Fprintf(&w.buf, "\n    xmlns:%s=\"%s\"", w.prefixes[uri], attrEscaper.Replace(uri))
	}
	w.buf.WriteString(">\n")

	for _, q := range doc.Names() {
		if err := w.value(q, doc.Properties[q], w.qname(q), 3); err != nil {
			return nil, fmt.Errorf("xmp: property %s: %w", q, err)
		}
	}

	w.buf.WriteString("  </rdf:Description>\n </rdf:RDF>\n</x:xmpmeta>\n")

	if !opts.OmitPacketWrapper {
		trailer := `<?xpacket end="w"?>`
		if opts.ReadOnly {
			trailer = `<?xpacket end="r"?>`
		}
		w.pad(opts.TargetSize - w.buf.Len() - len(trailer))
		w.buf.WriteString(trailer)
	}
	return w.buf.Bytes(), nil
}

type writer struct {
	buf      bytes.Buffer
	opts     SerializeOptions
	prefixes map[string]string // uri -> prefix
}

func (w *writer) qname(q QName) string {
	return w.prefixes[q.Space] + ":" + q.Local
}

// value writes one element. typeName is the name the parser will type the
// element's scalars by (the property for rdf:li items).
func (w *writer) value(typeName QName, v Value, elem string, depth int) error {
	ind := strings.Repeat(" ", depth)
	switch v := v.(type) {
	case Text, Integer, Real, Date:
		text, _ := Lexical(v)
		if !validXMLText(text) {
			return fmt.Errorf("value contains characters not allowed in XML")
		}
		w.buf.WriteString(ind + "<" + elem)
		if w.needsDatatype(typeName, v.Kind()) {
			w.buf.WriteString(` rdf:datatype="` + datatypeFor(v.Kind()) + `"`)
		}
		w.buf.WriteString(">" + textEscaper.Replace(text) + "</" + elem + ">\n")
	case LangAlt:
		w.buf.WriteString(ind + "<" + elem + ">\n" + ind + " <rdf:Alt>\n")
		for _, lang := range v.Langs() {
			if lang == "" {
				return fmt.Errorf("language alternative without a language tag")
			}
			if !validXMLText(v[lang]) {
				return fmt.Errorf("value for %s contains characters not allowed in XML", lang)
			}
			fmt.Fprintf(&w.buf, "%s  <rdf:li xml:lang=\"%s\">%s</rdf:li>\n",
				ind, attrEscaper.Replace(lang), textEscaper.Replace(v[lang]))
		}
		w.buf.WriteString(ind + " </rdf:Alt>\n" + ind + "</" + elem + ">\n")
	case Array:
		container := "rdf:" + v.Form.String()
		w.buf.WriteString(ind + "<" + elem + ">\n" + ind + " <" + container + ">\n")
		for i, item := range v.Items {
			if err := w.value(typeName, item, "rdf:li", depth+2); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		w.buf.WriteString(ind + " </" + container + ">\n" + ind + "</" + elem + ">\n")
	case Struct:
		if len(v) == 0 {
			w.buf.WriteString(ind + "<" + elem + ` rdf:parseType="Resource"/>` + "\n")
			return nil
		}
		w.buf.WriteString(ind + "<" + elem + ` rdf:parseType="Resource">` + "\n")
		for _, f := range v.Fields() {
			if err := w.value(f, v[f], w.qname(f), depth+1); err != nil {
				return fmt.Errorf("field %s: %w", f, err)
			}
		}
		w.buf.WriteString(ind + "</" + elem + ">\n")
	default:
		return fmt.Errorf("unsupported value %T", v)
	}
	return nil
}

// needsDatatype reports whether a scalar of kind k would parse back as a
// different kind without an explicit rdf:datatype.
func (w *writer) needsDatatype(typeName QName, k Kind) bool {
	declared := KindText
	if w.opts.Resolver != nil {
		if rk, ok := w.opts.Resolver.ScalarKind(typeName); ok && rk.IsScalar() {
			declared = rk
		}
	}
	return declared != k
}

func (w *writer) pad(n int) {
	for n > 0 {
		line := min(n, paddingLine)
		w.buf.WriteString(strings.Repeat(" ", line-1))
		w.buf.WriteByte('\n')
		n -= line
	}
}

// assignPrefixes maps every namespace the document declares or uses to a
// unique prefix, preferring the document's own declarations.
func assignPrefixes(doc *Document) map[string]string {
	out := make(map[string]string)
	taken := map[string]bool{"x": true, "rdf": true, "xml": true, "xmlns": true}

	declared := make([]string, 0, len(doc.Namespaces))
	for p := range doc.Namespaces {
		declared = append(declared, p)
	}
	sort.Strings(declared)
	for _, p := range declared {
		uri := doc.Namespaces[p]
		if uri == NSRDF || uri == NSMeta || uri == NSXML || taken[p] || !validPrefix(p) {
			continue
		}
		if _, ok := out[uri]; ok {
			continue
		}
		out[uri] = p
		taken[p] = true
	}

	var used []string
	for _, q := range doc.Names() {
		used = collectSpaces(doc.Properties[q], append(used, q.Space))
	}
	slices.Sort(used)
	used = slices.Compact(used)

	n := 0
	for _, uri := range used {
		if _, ok := out[uri]; ok {
			continue
		}
		if p, ok := wellKnownPrefixes[uri]; ok && !taken[p] {
			out[uri] = p
			taken[p] = true
			continue
		}
		for {
			n++
			p := "ns" + strconv.Itoa(n)
			if !taken[p] {
				out[uri] = p
				taken[p] = true
				break
			}
		}
	}
	return out
}

func collectSpaces(v Value, acc []string) []string {
	switch v := v.(type) {
	case Array:
		for _, item := range v.Items {
			acc = collectSpaces(item, acc)
		}
	case Struct:
		for q, f := range v {
			acc = collectSpaces(f, append(acc, q.Space))
		}
	}
	return acc
}

func validPrefix(p string) bool {
	if p == "" || strings.HasPrefix(strings.ToLower(p), "xml") {
		return false
	}
	for i, r := range p {
		letter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !letter && (i == 0 || !(r == '-' || r == '.' || (r >= '0' && r <= '9'))) {
			return false
		}
	}
	return true
}

func validXMLText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
		if r == 0xFFFE || r == 0xFFFF {
			return false
		}
	}
	return true
}
