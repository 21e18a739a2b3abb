package exif

import (
	"context"
	"fmt"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/schema"
	"github.com/simonhull/imagemeta/internal/types"
)

const entrySize = 12

// rawEntry is an IFD entry with its value bytes resolved.
type rawEntry struct {
	ID    uint16
	Type  schema.DataType
	Count uint32
	Raw   []byte
	// Offset is where the value bytes live: inside the entry for inline
	// values, otherwise the value-or-offset field.
	Offset int64
}

// ifdReader reads single directories out of one TIFF byte space. Offsets are
// relative to the start of sr.
type ifdReader struct {
	sr         *binary.SafeReader
	order      binary.Endianness
	maxEntries int
}

// read parses the directory at off. Entries whose value lies outside the
// data, or whose type is unknown, are skipped with a warning. A count above
// maxEntries or a directory that does not fit is a MalformedHeaderError.
func (r ifdReader) read(ctx context.Context, off int64) ([]rawEntry, uint32, []types.Warning, error) {
	if !r.sr.InBounds(off, 2) {
		return nil, 0, nil, &types.MalformedHeaderError{Reason: "IFD offset outside data", Offset: off}
	}
	count, err := binary.ReadEndian[uint16](r.sr, off, "IFD entry count", r.order)
	if err != nil {
		return nil, 0, nil, err
	}
	if int(count) > r.maxEntries {
		return nil, 0, nil, &types.MalformedHeaderError{
			Reason: fmt.Sprintf("IFD entry count %d exceeds limit %d", count, r.maxEntries),
			Offset: off,
		}
	}
	if !r.sr.InBounds(off+2, int64(count)*entrySize) {
		return nil, 0, nil, &types.MalformedHeaderError{
			Reason: fmt.Sprintf("IFD with %d entries runs past end of data", count),
			Offset: off,
		}
	}

	var warnings []types.Warning
	entries := make([]rawEntry, 0, count)
	rd := binary.NewReaderEndian(r.sr, off+2, r.order)

	for i := 0; i < int(count); i++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, nil, err
		}

		entryOff := rd.Offset()
		cr := binary.NewChainReader(rd)
		id := binary.ReadChained[uint16](cr, "tag id")
		typ := schema.DataType(binary.ReadChained[uint16](cr, "tag type"))
		n := binary.ReadChained[uint32](cr, "tag count")
		field := cr.Bytes(4, "value or offset")
		if err := cr.Error(); err != nil {
			return nil, 0, nil, err
		}

		size := uint64(typ.Size()) * uint64(n)
		if typ.Size() == 0 {
			warnings = append(warnings, types.Warning{
				Stage:   "ifd",
				Message: fmt.Sprintf("tag 0x%04X has unknown type %d", id, typ),
				Offset:  entryOff,
			})
			continue
		}

		e := rawEntry{ID: id, Type: typ, Count: n}
		if size <= 4 {
			e.Raw = field[:size]
			e.Offset = entryOff + 8
		} else {
			valOff := int64(binary.Decode[uint32](field, r.order))
			if size > uint64(r.sr.Size()) || !r.sr.InBounds(valOff, int64(size)) {
				warnings = append(warnings, types.Warning{
					Stage:   "ifd",
					Message: fmt.Sprintf("tag 0x%04X value (%d bytes at %d) lies outside data", id, size, valOff),
					Offset:  entryOff,
				})
				continue
			}
			raw, err := r.sr.Slice(valOff, int64(size), "tag value")
			if err != nil {
				return nil, 0, nil, err
			}
			e.Raw = raw
			e.Offset = valOff
		}
		entries = append(entries, e)
	}

	// A missing next pointer ends the chain.
	next, err := binary.ReadEndian[uint32](r.sr, rd.Offset(), "next IFD offset", r.order)
	if err != nil {
		warnings = append(warnings, types.Warning{
			Stage:   "ifd",
			Message: "next IFD pointer missing",
			Offset:  rd.Offset(),
		})
		next = 0
	}
	return entries, next, warnings, nil
}

// parseHeader validates a TIFF header and returns the byte order and first
// IFD offset.
func parseHeader(sr *binary.SafeReader) (binary.Endianness, uint32, error) {
	if sr.Size() < 8 {
		return 0, 0, &types.MalformedHeaderError{Reason: "TIFF header truncated"}
	}
	mark, err := sr.Slice(0, 2, "byte order mark")
	if err != nil {
		return 0, 0, err
	}

	var order binary.Endianness
	switch string(mark) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, 0, &types.MalformedHeaderError{Reason: fmt.Sprintf("invalid byte order mark %q", mark)}
	}

	magic, err := binary.ReadEndian[uint16](sr, 2, "TIFF magic", order)
	if err != nil {
		return 0, 0, err
	}
	if magic != 0x002A {
		return 0, 0, &types.MalformedHeaderError{Reason: fmt.Sprintf("invalid TIFF magic 0x%04X", magic), Offset: 2}
	}

	first, err := binary.ReadEndian[uint32](sr, 4, "first IFD offset", order)
	if err != nil {
		return 0, 0, err
	}
	return order, first, nil
}
