package iptc

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/schema"
	"github.com/simonhull/imagemeta/internal/types"
)

// Marker starts every dataset.
const Marker = 0x1C

// DuplicatePolicy decides which occurrence of a repeated non-repeatable
// dataset is kept.
type DuplicatePolicy int

const (
	// LastWins replaces the earlier value in place.
	LastWins DuplicatePolicy = iota
	// FirstWins ignores later occurrences.
	FirstWins
)

func (p DuplicatePolicy) String() string {
	if p == FirstWins {
		return "first-wins"
	}
	return "last-wins"
}

// Option configures Parse.
type Option func(*options)

type options struct {
	reg        *schema.Registry
	duplicates DuplicatePolicy
}

// WithRegistry selects the dataset definitions. The default is a shared
// schema.NewDefault registry.
func WithRegistry(reg *schema.Registry) Option {
	return func(o *options) {
		if reg != nil {
			o.reg = reg
		}
	}
}

// WithDuplicatePolicy selects how duplicates of non-repeatable datasets are
// resolved. Either way a warning is recorded.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(o *options) {
		o.duplicates = p
	}
}

var defaultRegistry = sync.OnceValue(schema.NewDefault)

// Parse decodes an IPTC stream. It never fails: bytes that do not form a
// dataset are skipped with a warning and unknown datasets are kept raw.
func Parse(data []byte, opts ...Option) *Document {
	o := options{duplicates: LastWins}
	for _, opt := range opts {
		opt(&o)
	}
	if o.reg == nil {
		o.reg = defaultRegistry()
	}

	doc := &Document{reg: o.reg}
	sr := binary.FromBytes(data, "iptc")
	seen := make(map[[2]uint8]int) // non-repeatable dataset -> index in doc.Datasets

	pos := int64(0)
	for pos < sr.Size() {
		if data[pos] != Marker {
			skip := bytes.IndexByte(data[pos:], Marker)
			if skip < 0 {
				doc.warn(pos, "%d trailing bytes without a dataset marker", len(data)-int(pos))
				break
			}
			doc.warn(pos, "skipped %d bytes before dataset marker", skip)
			pos += int64(skip)
			continue
		}

		ds, next, err := readDataset(sr, pos)
		if err != nil {
			doc.warn(pos, "%v", err)
			resync := bytes.IndexByte(data[pos+1:], Marker)
			if resync < 0 {
				break
			}
			pos += 1 + int64(resync)
			continue
		}
		start := pos
		pos = next

		if ds.Record == schema.RecordEnvelope && ds.Dataset == schema.DatasetCodedCharset {
			doc.UTF8 = declaresUTF8(ds.Raw)
		}

		def, known := o.reg.Dataset(ds.Record, ds.Dataset)
		if !known {
			ds.Value = bytes.Clone(ds.Raw)
			doc.Datasets = append(doc.Datasets, ds)
			continue
		}
		ds.Name = def.Name
		ds.Value = doc.decode(def, ds.Raw, start)

		key := [2]uint8{ds.Record, ds.Dataset}
		if i, dup := seen[key]; dup && !def.Repeatable {
			doc.warn(start, "duplicate non-repeatable dataset %s (%d:%d), %s", def.Name, ds.Record, ds.Dataset, o.duplicates)
			if o.duplicates == LastWins {
				doc.Datasets[i] = ds
			}
			continue
		}
		if !def.Repeatable {
			seen[key] = len(doc.Datasets)
		}
		doc.Datasets = append(doc.Datasets, ds)
	}
	return doc
}

// readDataset reads the dataset at pos and returns the offset after it.
func readDataset(sr *binary.SafeReader, pos int64) (Dataset, int64, error) {
	r := binary.NewReader(sr, pos+1)
	cr := binary.NewChainReader(r)
	record := binary.ReadChained[uint8](cr, "record number")
	dataset := binary.ReadChained[uint8](cr, "dataset number")
	length := uint64(binary.ReadChained[uint16](cr, "dataset length"))
	if err := cr.Error(); err != nil {
		return Dataset{}, 0, fmt.Errorf("truncated dataset header: %w", err)
	}

	// Extended form: the low 15 bits count the length bytes that follow.
	if length&0x8000 != 0 {
		n := int(length & 0x7FFF)
		if n == 0 || n > 8 {
			return Dataset{}, 0, fmt.Errorf("dataset %d:%d has invalid extended length size %d", record, dataset, n)
		}
		lb := cr.Bytes(n, "extended length")
		if err := cr.Error(); err != nil {
			return Dataset{}, 0, fmt.Errorf("truncated extended length: %w", err)
		}
		length = 0
		for _, b := range lb {
			length = length<<8 | uint64(b)
		}
	}

	if length > uint64(r.Remaining()) {
		return Dataset{}, 0, fmt.Errorf("dataset %d:%d length %d exceeds remaining %d bytes", record, dataset, length, r.Remaining())
	}
	raw, err := r.ReadBytes(int(length), "dataset data")
	if err != nil {
		return Dataset{}, 0, err
	}
	return Dataset{Record: record, Dataset: dataset, Raw: raw}, r.Offset(), nil
}

func (d *Document) decode(def schema.DatasetDefinition, raw []byte, pos int64) any {
	switch def.Type {
	case schema.DatasetBinary:
		return bytes.Clone(raw)
	case schema.DatasetUint16:
		if len(raw) == 2 {
			return binary.Decode[uint16](raw, binary.BigEndian)
		}
		d.warn(pos, "%s: expected 2 bytes, got %d", def.Name, len(raw))
		return bytes.Clone(raw)
	case schema.DatasetDate:
		s := decodeText(raw, d.UTF8)
		if t, err := time.Parse("20060102", s); err == nil {
			return t
		}
		d.warn(pos, "%s: %q is not a CCYYMMDD date", def.Name, s)
		return s
	case schema.DatasetTime:
		s := decodeText(raw, d.UTF8)
		for _, layout := range []string{"150405-0700", "150405"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		d.warn(pos, "%s: %q is not a HHMMSS±HHMM time", def.Name, s)
		return s
	default:
		return decodeText(raw, d.UTF8)
	}
}

func (d *Document) warn(off int64, format string, args ...any) {
	d.Warnings = append(d.Warnings, types.Warning{
		Stage:   "dataset",
		Message: fmt.Sprintf(format, args...),
		Offset:  off,
	})
}
