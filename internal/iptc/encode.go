package iptc

import (
	"fmt"
	"slices"
	"time"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/schema"
)

// Encode writes the datasets in order. Lengths above 32767 bytes use the
// extended form with a 4-byte length.
func Encode(doc *Document) []byte {
	var out []byte
	for _, ds := range doc.Datasets {
		out = appendDataset(out, ds.Record, ds.Dataset, ds.Raw)
	}
	return out
}

func appendDataset(out []byte, record, dataset uint8, raw []byte) []byte {
	out = append(out, Marker, record, dataset)
	if len(raw) <= 0x7FFF {
		out = binary.Encode(out, uint16(len(raw)), binary.BigEndian)
	} else {
		out = binary.Encode(out, uint16(0x8004), binary.BigEndian)
		out = binary.Encode(out, uint32(len(raw)), binary.BigEndian)
	}
	return append(out, raw...)
}

// With returns a copy where name holds exactly values. Accepted values are
// string, time.Time, uint16 and []byte depending on the dataset type. Non
// repeatable datasets take a single value. Text that Latin-1 cannot hold
// switches the stream to UTF-8, re-encoding existing text and adding the
// 1:90 declaration.
func (d *Document) With(name string, values ...any) (*Document, error) {
	reg := d.reg
	if reg == nil {
		reg = defaultRegistry()
	}
	def, ok := reg.DatasetByName(name)
	if !ok {
		return nil, fmt.Errorf("iptc: unknown dataset %q", name)
	}
	if !def.Repeatable && len(values) > 1 {
		return nil, fmt.Errorf("iptc: %s is not repeatable", name)
	}

	out := d.clone()
	out.reg = reg

	encoded := make([]Dataset, 0, len(values))
	for _, v := range values {
		raw, needUTF8, err := encodeValue(def, v, out.UTF8)
		if err != nil {
			return nil, fmt.Errorf("iptc: %s: %w", name, err)
		}
		if needUTF8 {
			out.switchToUTF8()
			if raw, _, err = encodeValue(def, v, true); err != nil {
				return nil, fmt.Errorf("iptc: %s: %w", name, err)
			}
		}
		if def.MaxLength > 0 && len(raw) > def.MaxLength {
			return nil, fmt.Errorf("iptc: %s value is %d bytes, limit %d", name, len(raw), def.MaxLength)
		}
		encoded = append(encoded, Dataset{
			Record:  def.Record,
			Dataset: def.Dataset,
			Name:    def.Name,
			Raw:     raw,
			Value:   v,
		})
	}

	// Replace at the position of the first existing entry, or append.
	at := slices.IndexFunc(out.Datasets, func(ds Dataset) bool { return ds.Name == name })
	out.Datasets = slices.DeleteFunc(out.Datasets, func(ds Dataset) bool { return ds.Name == name })
	if at < 0 || at > len(out.Datasets) {
		at = len(out.Datasets)
	}
	out.Datasets = slices.Insert(out.Datasets, at, encoded...)
	return out, nil
}

// Without returns a copy with every dataset named name removed.
func (d *Document) Without(name string) *Document {
	out := d.clone()
	out.Datasets = slices.DeleteFunc(out.Datasets, func(ds Dataset) bool { return ds.Name == name })
	return out
}

// switchToUTF8 re-encodes text datasets as UTF-8 and declares it in 1:90.
func (d *Document) switchToUTF8() {
	if d.UTF8 {
		return
	}
	d.UTF8 = true
	for i, ds := range d.Datasets {
		if s, ok := ds.Value.(string); ok && ds.Name != "" {
			d.Datasets[i].Raw = []byte(s)
		}
	}

	marker := Dataset{
		Record:  schema.RecordEnvelope,
		Dataset: schema.DatasetCodedCharset,
		Name:    "CodedCharacterSet",
		Raw:     slices.Clone(utf8Designator),
		Value:   slices.Clone(utf8Designator),
	}
	i := slices.IndexFunc(d.Datasets, func(ds Dataset) bool {
		return ds.Record == schema.RecordEnvelope && ds.Dataset == schema.DatasetCodedCharset
	})
	if i >= 0 {
		d.Datasets[i] = marker
		return
	}
	// 1:90 belongs in the envelope record, ahead of record 2.
	at := slices.IndexFunc(d.Datasets, func(ds Dataset) bool { return ds.Record > schema.RecordEnvelope })
	if at < 0 {
		at = len(d.Datasets)
	}
	d.Datasets = slices.Insert(d.Datasets, at, marker)
}

// encodeValue returns the raw bytes for v and whether the stream must switch
// to UTF-8 first.
func encodeValue(def schema.DatasetDefinition, v any, utf8Stream bool) ([]byte, bool, error) {
	switch def.Type {
	case schema.DatasetDate:
		switch x := v.(type) {
		case time.Time:
			return []byte(x.Format("20060102")), false, nil
		case string:
			return []byte(x), false, nil
		}
	case schema.DatasetTime:
		switch x := v.(type) {
		case time.Time:
			return []byte(x.Format("150405-0700")), false, nil
		case string:
			return []byte(x), false, nil
		}
	case schema.DatasetUint16:
		if x, ok := v.(uint16); ok {
			return binary.Encode(nil, x, binary.BigEndian), false, nil
		}
	case schema.DatasetBinary:
		if x, ok := v.([]byte); ok {
			return slices.Clone(x), false, nil
		}
	default:
		if s, ok := v.(string); ok {
			raw, ok := encodeText(s, utf8Stream)
			if !ok {
				return nil, true, nil
			}
			return raw, false, nil
		}
	}
	return nil, false, fmt.Errorf("cannot store %T", v)
}
