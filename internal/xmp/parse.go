package xmp

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
)

// TypeResolver declares the scalar kind of a property, struct field or
// array item. The schema registry implements it; for array properties it
// reports the item kind.
type TypeResolver interface {
	ScalarKind(property QName) (Kind, bool)
}

const (
	// DefaultMaxDepth bounds struct/array nesting.
	DefaultMaxDepth = 64
	// DefaultMaxSize bounds the packet size accepted by Parse.
	DefaultMaxSize = 16 << 20
)

// Option configures Parse.
type Option func(*parseOptions)

type parseOptions struct {
	resolver TypeResolver
	maxDepth int
	maxSize  int
}

// WithResolver types scalars by the given schema.
func WithResolver(r TypeResolver) Option {
	return func(o *parseOptions) {
		o.resolver = r
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(o *parseOptions) {
		o.maxDepth = n
	}
}

// WithMaxSize overrides DefaultMaxSize.
func WithMaxSize(n int) Option {
	return func(o *parseOptions) {
		o.maxSize = n
	}
}

var (
	packetBegin = []byte("<?xpacket begin=")
	packetEnd   = []byte("<?xpacket end=")
	utf8BOM     = []byte{0xEF, 0xBB, 0xBF}
)

// Parse decodes an XMP packet. The xpacket wrapper is optional; a bare
// x:xmpmeta or rdf:RDF element is accepted too.
func Parse(data []byte, opts ...Option) (*Document, error) {
	o := parseOptions{maxDepth: DefaultMaxDepth, maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(&o)
	}

	if o.maxSize > 0 && len(data) > o.maxSize {
		return nil, &ParseError{Code: ErrCodeTooLarge, Err: ErrTooLarge}
	}

	body, readOnly := locatePacket(data)

	p := &parser{
		dec:  xml.NewDecoder(bytes.NewReader(body)),
		opts: o,
		doc:  NewDocument(),
	}
	p.doc.ReadOnly = readOnly

	if err := p.run(); err != nil {
		return nil, err
	}
	return p.doc, nil
}

// locatePacket returns the bytes between the xpacket header and trailer.
func locatePacket(data []byte) ([]byte, bool) {
	start := bytes.Index(data, packetBegin)
	if start < 0 {
		return bytes.TrimPrefix(data, utf8BOM), false
	}
	hdrEnd := bytes.Index(data[start:], []byte("?>"))
	if hdrEnd < 0 {
		return data[start:], false
	}
	body := data[start+hdrEnd+2:]

	end := bytes.Index(body, packetEnd)
	if end < 0 {
		return body, false
	}
	trailer := body[end+len(packetEnd):]
	readOnly := len(trailer) > 1 && trailer[1] == 'r'
	return body[:end], readOnly
}

type parser struct {
	dec    *xml.Decoder
	opts   parseOptions
	doc    *Document
	sawRDF bool
}

func (p *parser) run() error {
	for {
		tok, err := p.dec.Token()
		if err == io.EOF {
			if !p.sawRDF {
				return &ParseError{Code: ErrCodeNoRDF, Err: ErrNoRDF}
			}
			return nil
		}
		if err != nil {
			return p.wrap(err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		p.declare(se.Attr)

		switch {
		case se.Name.Space == NSMeta && (se.Name.Local == "xmpmeta" || se.Name.Local == "xapmeta"):
			p.doc.Toolkit = attrValue(se.Attr, NSMeta, "xmptk")
		case se.Name.Space == NSRDF && se.Name.Local == "RDF":
			p.sawRDF = true
			if err := p.parseRDF(); err != nil {
				return err
			}
		}
	}
}

func (p *parser) parseRDF() error {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return p.wrap(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			p.declare(t.Attr)
			if err := p.parseNode(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// parseNode reads one rdf:Description (or typed node) into the document.
func (p *parser) parseNode(se xml.StartElement) error {
	if about := attrValue(se.Attr, NSRDF, "about"); about != "" && p.doc.About == "" {
		p.doc.About = about
	}
	for _, a := range se.Attr {
		if isPropertyAttr(a) {
			q := QName(a.Name)
			putValue(p.doc.Properties, q, p.scalar(q, a.Value, ""), "")
		}
	}

	for {
		tok, err := p.dec.Token()
		if err != nil {
			return p.wrap(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			p.declare(t.Attr)
			q := QName(t.Name)
			v, lang, err := p.parseProperty(t, q, 1)
			if err != nil {
				return err
			}
			putValue(p.doc.Properties, q, v, lang)
		case xml.EndElement:
			return nil
		}
	}
}

// parseProperty decodes one property element. name types scalars: it is
// the property itself, a struct field, or the owning property of an rdf:li.
func (p *parser) parseProperty(se xml.StartElement, name QName, depth int) (Value, string, error) {
	if depth > p.opts.maxDepth {
		return nil, "", &ParseError{Code: ErrCodeDepthExceeded, Err: ErrDepthExceeded}
	}

	lang := attrValue(se.Attr, NSXML, "lang")
	datatype := attrValue(se.Attr, NSRDF, "datatype")
	resource := attrValue(se.Attr, NSRDF, "resource")

	var fields Struct
	for _, a := range se.Attr {
		if isPropertyAttr(a) {
			if fields == nil {
				fields = make(Struct)
			}
			q := QName(a.Name)
			fields[q] = p.scalar(q, a.Value, "")
		}
	}

	if attrValue(se.Attr, NSRDF, "parseType") == "Resource" {
		if fields == nil {
			fields = make(Struct)
		}
		if err := p.parseFields(fields, depth); err != nil {
			return nil, "", err
		}
		return fields, lang, nil
	}

	var text strings.Builder
	var inner Value
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, "", p.wrap(err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			p.declare(t.Attr)
			switch {
			case t.Name.Space == NSRDF && isContainer(t.Name.Local):
				v, err := p.parseArray(t, name, depth+1)
				if err != nil {
					return nil, "", err
				}
				inner = v
			case t.Name.Space == NSRDF && t.Name.Local == "Description":
				s := make(Struct)
				for _, a := range t.Attr {
					if isPropertyAttr(a) {
						q := QName(a.Name)
						s[q] = p.scalar(q, a.Value, "")
					}
				}
				if err := p.parseFields(s, depth+1); err != nil {
					return nil, "", err
				}
				inner = s
			default:
				// Field element without rdf:parseType; read it as a struct field.
				if fields == nil {
					fields = make(Struct)
				}
				q := QName(t.Name)
				v, l, err := p.parseProperty(t, q, depth+1)
				if err != nil {
					return nil, "", err
				}
				putValue(fields, q, v, l)
			}
		case xml.EndElement:
			switch {
			case inner != nil:
				if s, ok := inner.(Struct); ok {
					for q, v := range fields {
						s[q] = v
					}
				}
				return inner, lang, nil
			case fields != nil:
				return fields, lang, nil
			case resource != "":
				return Text(resource), lang, nil
			default:
				return p.scalar(name, text.String(), datatype), lang, nil
			}
		}
	}
}

// parseFields reads child property elements into s until the enclosing end tag.
func (p *parser) parseFields(s Struct, depth int) error {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return p.wrap(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			p.declare(t.Attr)
			q := QName(t.Name)
			v, lang, err := p.parseProperty(t, q, depth+1)
			if err != nil {
				return err
			}
			putValue(s, q, v, lang)
		case xml.EndElement:
			return nil
		}
	}
}

func (p *parser) parseArray(se xml.StartElement, name QName, depth int) (Value, error) {
	if depth > p.opts.maxDepth {
		return nil, &ParseError{Code: ErrCodeDepthExceeded, Err: ErrDepthExceeded}
	}

	form := containerForm(se.Name.Local)
	var items []Value
	var langs []string

	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, p.wrap(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			p.declare(t.Attr)
			if t.Name.Space != NSRDF || t.Name.Local != "li" {
				if err := p.dec.Skip(); err != nil {
					return nil, p.wrap(err)
				}
				continue
			}
			v, lang, err := p.parseProperty(t, name, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
			langs = append(langs, lang)
		case xml.EndElement:
			if form == Alt && p.isLangAlt(name, items, langs) {
				la := make(LangAlt, len(items))
				for i, item := range items {
					la[langs[i]] = string(item.(Text))
				}
				return la, nil
			}
			return Array{Form: form, Items: items}, nil
		}
	}
}

// isLangAlt reports whether an rdf:Alt holds language alternatives. An empty
// Alt is read as an empty LangAlt.
func (p *parser) isLangAlt(name QName, items []Value, langs []string) bool {
	if len(items) == 0 {
		return true
	}
	for i, item := range items {
		if _, ok := item.(Text); !ok || langs[i] == "" {
			return false
		}
	}
	return true
}

// scalar types text by explicit datatype, then by schema, defaulting to Text.
func (p *parser) scalar(name QName, text, datatype string) Value {
	kind := KindText
	switch {
	case datatype != "":
		kind = kindFromDatatype(datatype)
	case p.opts.resolver != nil:
		if k, ok := p.opts.resolver.ScalarKind(name); ok && k.IsScalar() {
			kind = k
		}
	}
	return Coerce(text, kind)
}

// Coerce converts text to the requested scalar kind, falling back to Text
// when the text does not have that form.
func Coerce(text string, kind Kind) Value {
	switch kind {
	case KindInteger:
		if n, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(text), "+"), 10, 64); err == nil {
			return Integer(n)
		}
	case KindReal:
		if f, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			return Real(f)
		}
	case KindDate:
		if d, err := ParseDate(text); err == nil {
			return d
		}
	}
	return Text(text)
}

func kindFromDatatype(dt string) Kind {
	switch strings.TrimPrefix(dt, NSXSD) {
	case "integer", "int", "long", "short", "nonNegativeInteger":
		return KindInteger
	case "double", "float", "decimal":
		return KindReal
	case "dateTime", "date", "gYear", "gYearMonth":
		return KindDate
	default:
		return KindText
	}
}

func datatypeFor(k Kind) string {
	switch k {
	case KindInteger:
		return NSXSD + "integer"
	case KindReal:
		return NSXSD + "double"
	case KindDate:
		return NSXSD + "dateTime"
	default:
		return NSXSD + "string"
	}
}

// putValue stores v under q, folding xml:lang scalars into a LangAlt.
func putValue(m map[QName]Value, q QName, v Value, lang string) {
	if t, ok := v.(Text); ok && lang != "" {
		la, _ := m[q].(LangAlt)
		if la == nil {
			la = make(LangAlt)
		}
		la[lang] = string(t)
		m[q] = la
		return
	}
	m[q] = v
}

func (p *parser) declare(attrs []xml.Attr) {
	for _, a := range attrs {
		if a.Name.Space == "xmlns" {
			p.doc.Namespaces[a.Name.Local] = a.Value
		}
	}
}

func (p *parser) wrap(err error) error {
	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		return &ParseError{Code: ErrCodeSyntax, Line: syn.Line, Err: err}
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return &ParseError{Code: ErrCodeSyntax, Err: err}
}

func isPropertyAttr(a xml.Attr) bool {
	switch a.Name.Space {
	case "", "xmlns", NSRDF, NSXML:
		return false
	}
	return true
}

func isContainer(local string) bool {
	return local == "Seq" || local == "Bag" || local == "Alt"
}

func containerForm(local string) ArrayForm {
	switch local {
	case "Bag":
		return Bag
	case "Alt":
		return Alt
	default:
		return Seq
	}
}

func attrValue(attrs []xml.Attr, space, local string) string {
	for _, a := range attrs {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
