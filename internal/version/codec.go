package version

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/simonhull/imagemeta/internal/xmp"
)

// Values are encoded as single-key objects naming their variant:
//
//	{"text":"..."} {"int":3} {"real":"1.5"} {"date":"2024-03"}
//	{"langAlt":{"x-default":"..."}} {"seq":[...]} {"bag":[...]} {"alt":[...]}
//	{"struct":{"{uri}local":...}}
//
// Reals travel as strings so NaN and infinities survive. encoding/json sorts
// map keys, and Bag items are sorted by their encoding, so equal documents
// encode to identical bytes.

func marshalValue(v xmp.Value) ([]byte, error) {
	var (
		key  string
		body any
	)
	switch x := v.(type) {
	case xmp.Text:
		key, body = "text", string(x)
	case xmp.Integer:
		key, body = "int", int64(x)
	case xmp.Real:
		key, body = "real", strconv.FormatFloat(float64(x), 'g', -1, 64)
	case xmp.Date:
		key, body = "date", x.String()
	case xmp.LangAlt:
		key, body = "langAlt", map[string]string(x)
	case xmp.Array:
		items := make([]json.RawMessage, len(x.Items))
		for i, item := range x.Items {
			raw, err := marshalValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = raw
		}
		switch x.Form {
		case xmp.Bag:
			key = "bag"
			slices.SortFunc(items, func(a, b json.RawMessage) int { return bytes.Compare(a, b) })
		case xmp.Alt:
			key = "alt"
		default:
			key = "seq"
		}
		body = items
	case xmp.Struct:
		fields := make(map[string]json.RawMessage, len(x))
		for q, f := range x {
			raw, err := marshalValue(f)
			if err != nil {
				return nil, err
			}
			fields[q.String()] = raw
		}
		key, body = "struct", fields
	default:
		return nil, fmt.Errorf("version: cannot encode %T", v)
	}
	return json.Marshal(map[string]any{key: body})
}

func unmarshalValue(data []byte) (xmp.Value, error) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	if len(wrapper) != 1 {
		return nil, fmt.Errorf("version: value object has %d keys, want 1", len(wrapper))
	}
	var (
		key string
		raw json.RawMessage
	)
	for k, r := range wrapper {
		key, raw = k, r
	}

	switch key {
	case "text":
		var s string
		err := json.Unmarshal(raw, &s)
		return xmp.Text(s), err
	case "int":
		var n int64
		err := json.Unmarshal(raw, &n)
		return xmp.Integer(n), err
	case "real":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(s, 64)
		return xmp.Real(f), err
	case "date":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		d, err := xmp.ParseDate(s)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "langAlt":
		var m map[string]string
		err := json.Unmarshal(raw, &m)
		return xmp.LangAlt(m), err
	case "seq", "bag", "alt":
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		arr := xmp.Array{Form: map[string]xmp.ArrayForm{"seq": xmp.Seq, "bag": xmp.Bag, "alt": xmp.Alt}[key]}
		for _, item := range items {
			v, err := unmarshalValue(item)
			if err != nil {
				return nil, err
			}
			arr.Items = append(arr.Items, v)
		}
		return arr, nil
	case "struct":
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		s := make(xmp.Struct, len(fields))
		for name, fraw := range fields {
			q, err := xmp.ParseQName(name)
			if err != nil {
				return nil, err
			}
			if s[q], err = unmarshalValue(fraw); err != nil {
				return nil, err
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("version: unknown value kind %q", key)
	}
}

// MarshalJSON encodes the properties with sorted keys.
func (p Properties) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p))
	for name, v := range p {
		raw, err := marshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes properties written by MarshalJSON.
func (p *Properties) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Properties, len(raw))
	for name, r := range raw {
		v, err := unmarshalValue(r)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		out[name] = v
	}
	*p = out
	return nil
}

// Canonical returns the canonical JSON encoding of d. Empty namespaces are
// left out, matching Equal.
func Canonical(d Document) ([]byte, error) {
	out := make(Document, len(d))
	for ns, props := range d {
		if len(props) > 0 {
			out[ns] = props
		}
	}
	return json.Marshal(out)
}

// Hash returns the hex SHA-256 of the canonical encoding.
func Hash(d Document) (string, error) {
	data, err := Canonical(d)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// changeJSON is the wire form of a Change. Absent values are omitted.
type changeJSON struct {
	Old json.RawMessage `json:"old,omitempty"`
	New json.RawMessage `json:"new,omitempty"`
}

// MarshalJSON encodes both sides of the change.
func (c Change) MarshalJSON() ([]byte, error) {
	var w changeJSON
	var err error
	if c.Old != nil {
		if w.Old, err = marshalValue(c.Old); err != nil {
			return nil, err
		}
	}
	if c.New != nil {
		if w.New, err = marshalValue(c.New); err != nil {
			return nil, err
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a change written by MarshalJSON.
func (c *Change) UnmarshalJSON(data []byte) error {
	var w changeJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Change{}
	var err error
	if len(w.Old) > 0 {
		if c.Old, err = unmarshalValue(w.Old); err != nil {
			return err
		}
	}
	if len(w.New) > 0 {
		if c.New, err = unmarshalValue(w.New); err != nil {
			return err
		}
	}
	return nil
}
