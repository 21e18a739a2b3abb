// Package xmp implements the XMP data model and its RDF/XML packet form.
//
// Values form a closed set: Text, Date, Real, Integer, LangAlt, Array and
// Struct. Every consumer switches on Kind and the compiler-visible set of
// cases is the whole model.
package xmp

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// QName is a namespaced XMP name. Space holds the namespace URI, not a prefix.
type QName struct {
	Space string
	Local string
}

// String returns the name in Clark notation: {uri}local.
func (q QName) String() string {
	return "{" + q.Space + "}" + q.Local
}

// ParseQName parses Clark notation produced by QName.String.
func ParseQName(s string) (QName, error) {
	if !strings.HasPrefix(s, "{") {
		return QName{}, fmt.Errorf("xmp: %q is not a {uri}local name", s)
	}
	end := strings.IndexByte(s, '}')
	if end < 0 || end == len(s)-1 {
		return QName{}, fmt.Errorf("xmp: %q is not a {uri}local name", s)
	}
	return QName{Space: s[1:end], Local: s[end+1:]}, nil
}

func compareQName(a, b QName) int {
	if c := strings.Compare(a.Space, b.Space); c != 0 {
		return c
	}
	return strings.Compare(a.Local, b.Local)
}

// Kind identifies the variant of a Value.
type Kind int

const (
	KindText Kind = iota
	KindDate
	KindReal
	KindInteger
	KindLangAlt
	KindArray
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindDate:
		return "Date"
	case KindReal:
		return "Real"
	case KindInteger:
		return "Integer"
	case KindLangAlt:
		return "LangAlt"
	case KindArray:
		return "Array"
	case KindStruct:
		return "Struct"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// IsScalar reports whether k is one of the single-text kinds.
func (k Kind) IsScalar() bool {
	return k == KindText || k == KindDate || k == KindReal || k == KindInteger
}

// Value is an XMP property value. Implementations are limited to the types
// in this package.
type Value interface {
	Kind() Kind
	isValue()
}

// Text is a simple string value.
type Text string

// Integer is an xsd:integer value.
type Integer int64

// Real is an xsd:double value.
type Real float64

// Date is an XMP date. Raw keeps the lexical form so partial dates such as
// "2024" or "2024-03" survive a round trip.
type Date struct {
	Time time.Time
	Raw  string
}

// LangAlt maps RFC 3066 language tags to text. "x-default" is the fallback.
type LangAlt map[string]string

// ArrayForm selects the RDF container used for an Array.
type ArrayForm int

const (
	Seq ArrayForm = iota
	Bag
	Alt
)

func (f ArrayForm) String() string {
	switch f {
	case Bag:
		return "Bag"
	case Alt:
		return "Alt"
	default:
		return "Seq"
	}
}

// Array is an ordered (Seq), unordered (Bag) or alternative (Alt) list.
type Array struct {
	Form  ArrayForm
	Items []Value
}

// Struct maps namespaced field names to values.
type Struct map[QName]Value

func (Text) Kind() Kind    { return KindText }
func (Integer) Kind() Kind { return KindInteger }
func (Real) Kind() Kind    { return KindReal }
func (Date) Kind() Kind    { return KindDate }
func (LangAlt) Kind() Kind { return KindLangAlt }
func (Array) Kind() Kind   { return KindArray }
func (Struct) Kind() Kind  { return KindStruct }

func (Text) isValue()    {}
func (Integer) isValue() {}
func (Real) isValue()    {}
func (Date) isValue()    {}
func (LangAlt) isValue() {}
func (Array) isValue()   {}
func (Struct) isValue()  {}

// NewDate returns a Date with a full-precision lexical form.
func NewDate(t time.Time) Date {
	return Date{Time: t, Raw: t.Format(time.RFC3339Nano)}
}

// String returns the lexical form of the date.
func (d Date) String() string {
	if d.Raw != "" {
		return d.Raw
	}
	return d.Time.Format(time.RFC3339Nano)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate parses the ISO 8601 subset XMP allows.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t, Raw: s}, nil
		}
	}
	return Date{}, fmt.Errorf("xmp: %q is not an XMP date", s)
}

// Lexical returns the text form of a scalar value.
func Lexical(v Value) (string, bool) {
	switch v := v.(type) {
	case Text:
		return string(v), true
	case Integer:
		return strconv.FormatInt(int64(v), 10), true
	case Real:
		return strconv.FormatFloat(float64(v), 'g', -1, 64), true
	case Date:
		return v.String(), true
	default:
		return "", false
	}
}

// Langs returns the languages of a LangAlt, "x-default" first and the rest sorted.
func (l LangAlt) Langs() []string {
	langs := make([]string, 0, len(l))
	for lang := range l {
		if lang != DefaultLang {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	if _, ok := l[DefaultLang]; ok {
		langs = append([]string{DefaultLang}, langs...)
	}
	return langs
}

// DefaultLang is the fallback language of a LangAlt.
const DefaultLang = "x-default"

// Fields returns the struct field names in a stable order.
func (s Struct) Fields() []QName {
	names := make([]QName, 0, len(s))
	for q := range s {
		names = append(names, q)
	}
	slices.SortFunc(names, compareQName)
	return names
}

// Clone returns a deep copy of v.
func Clone(v Value) Value {
	switch v := v.(type) {
	case LangAlt:
		out := make(LangAlt, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out
	case Array:
		items := make([]Value, len(v.Items))
		for i, item := range v.Items {
			items[i] = Clone(item)
		}
		return Array{Form: v.Form, Items: items}
	case Struct:
		out := make(Struct, len(v))
		for k, f := range v {
			out[k] = Clone(f)
		}
		return out
	default:
		return v
	}
}

// ValueEqual reports semantic equality: scalars and structs compare exactly,
// Seq and Alt compare in order, Bag compares as a multiset.
func ValueEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a := a.(type) {
	case Text, Integer:
		return a == b
	case Real:
		bv := b.(Real)
		return a == bv || (math.IsNaN(float64(a)) && math.IsNaN(float64(bv)))
	case Date:
		return a.String() == b.(Date).String()
	case LangAlt:
		bv := b.(LangAlt)
		if len(a) != len(bv) {
			return false
		}
		for k, s := range a {
			if t, ok := bv[k]; !ok || t != s {
				return false
			}
		}
		return true
	case Array:
		bv := b.(Array)
		if a.Form != bv.Form || len(a.Items) != len(bv.Items) {
			return false
		}
		if a.Form == Bag {
			return bagEqual(a.Items, bv.Items)
		}
		for i := range a.Items {
			if !ValueEqual(a.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case Struct:
		bv := b.(Struct)
		if len(a) != len(bv) {
			return false
		}
		for k, f := range a {
			g, ok := bv[k]
			if !ok || !ValueEqual(f, g) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func bagEqual(a, b []Value) bool {
	used := make([]bool, len(b))
outer:
	for _, x := range a {
		for j, y := range b {
			if !used[j] && ValueEqual(x, y) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}
