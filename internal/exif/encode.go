package exif

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/schema"
)

type directory struct {
	tags   []Tag
	offset uint32
	next   *directory
}

// size returns the byte length of the directory itself and of its
// out-of-line value area.
func (d *directory) size() (int, int) {
	data := 0
	for _, t := range d.tags {
		if len(t.Raw) > 4 {
			data += len(t.Raw) + len(t.Raw)%2
		}
	}
	return 2 + len(d.tags)*entrySize + 4, data
}

func (d *directory) set(id uint16, v uint32, order binary.Endianness) {
	t := Tag{ID: id, Type: schema.TypeLong, Count: 1, Raw: binary.Encode(nil, v, order)}
	for i := range d.tags {
		if d.tags[i].ID == id {
			d.tags[i] = t
			return
		}
	}
	d.tags = append(d.tags, t)
}

// Encode writes doc as a TIFF block with a fresh layout: header, IFD0, the
// Exif, Interop and GPS directories, the remaining chain directories, then
// the thumbnail. Pointer and thumbnail offset tags are recomputed. The maker
// note is copied verbatim, so formats that store absolute offsets (Canon)
// only survive when their position is unchanged.
func Encode(doc *Document) ([]byte, error) {
	order := doc.Order
	chain := map[int]*directory{}
	exifDir, gpsDir, interopDir := &directory{}, &directory{}, &directory{}

	for _, list := range [][]Tag{doc.Tags, doc.Unknown} {
		for _, t := range list {
			if isPointer(t.ID, t.Group) {
				continue
			}
			switch t.Group {
			case schema.GroupExif:
				exifDir.tags = append(exifDir.tags, t)
			case schema.GroupGPS:
				gpsDir.tags = append(gpsDir.tags, t)
			case schema.GroupInterop:
				interopDir.tags = append(interopDir.tags, t)
			default:
				d, ok := chain[t.IFD]
				if !ok {
					d = &directory{}
					chain[t.IFD] = d
				}
				d.tags = append(d.tags, t)
			}
		}
	}

	hasThumb := len(doc.Thumbnail) > 0
	if hasThumb && chain[1] == nil {
		chain[1] = &directory{}
	}
	if chain[0] == nil && (len(chain) > 0 || len(exifDir.tags) > 0 || len(gpsDir.tags) > 0 || len(interopDir.tags) > 0) {
		chain[0] = &directory{}
	}
	if len(chain) == 0 {
		chain[0] = &directory{}
	}

	// Placeholders so sizes are final before offsets are assigned.
	if len(interopDir.tags) > 0 {
		exifDir.set(schema.TagInteropIFD, 0, order)
	}
	if len(exifDir.tags) > 0 {
		chain[0].set(schema.TagExifIFD, 0, order)
	}
	if len(gpsDir.tags) > 0 {
		chain[0].set(schema.TagGPSIFD, 0, order)
	}
	if hasThumb {
		chain[1].set(schema.TagThumbnailStart, 0, order)
		chain[1].set(schema.TagThumbnailLen, uint32(len(doc.Thumbnail)), order)
	}

	indices := make([]int, 0, len(chain))
	for i := range chain {
		indices = append(indices, i)
	}
	slices.Sort(indices)
	for i := 0; i+1 < len(indices); i++ {
		chain[indices[i]].next = chain[indices[i+1]]
	}

	layout := []*directory{chain[indices[0]]}
	for _, d := range []*directory{exifDir, interopDir, gpsDir} {
		if len(d.tags) > 0 {
			layout = append(layout, d)
		}
	}
	for _, i := range indices[1:] {
		layout = append(layout, chain[i])
	}

	cur := 8
	for _, d := range layout {
		slices.SortStableFunc(d.tags, func(a, b Tag) int { return cmp.Compare(a.ID, b.ID) })
		ifdLen, dataLen := d.size()
		d.offset = uint32(cur)
		cur += ifdLen + dataLen
	}
	thumbOff := cur
	total := cur + len(doc.Thumbnail)
	if int64(total) > math.MaxUint32 {
		return nil, fmt.Errorf("exif: encoded size %d exceeds 4 GiB", total)
	}

	if len(interopDir.tags) > 0 {
		exifDir.set(schema.TagInteropIFD, interopDir.offset, order)
	}
	if len(exifDir.tags) > 0 {
		chain[0].set(schema.TagExifIFD, exifDir.offset, order)
	}
	if len(gpsDir.tags) > 0 {
		chain[0].set(schema.TagGPSIFD, gpsDir.offset, order)
	}
	if hasThumb {
		chain[1].set(schema.TagThumbnailStart, uint32(thumbOff), order)
	}

	out := make([]byte, 0, total)
	if order == binary.LittleEndian {
		out = append(out, 'I', 'I')
	} else {
		out = append(out, 'M', 'M')
	}
	out = binary.Encode(out, uint16(0x002A), order)
	out = binary.Encode(out, uint32(8), order)

	for _, d := range layout {
		out = writeDirectory(out, d, order)
	}
	out = append(out, doc.Thumbnail...)
	return out, nil
}

func writeDirectory(out []byte, d *directory, order binary.Endianness) []byte {
	ifdLen, _ := d.size()
	dataOff := d.offset + uint32(ifdLen)

	out = binary.Encode(out, uint16(len(d.tags)), order)
	var data []byte
	for _, t := range d.tags {
		out = binary.Encode(out, t.ID, order)
		out = binary.Encode(out, uint16(t.Type), order)
		out = binary.Encode(out, t.Count, order)
		if len(t.Raw) <= 4 {
			var field [4]byte
			copy(field[:], t.Raw)
			out = append(out, field[:]...)
			continue
		}
		out = binary.Encode(out, dataOff+uint32(len(data)), order)
		data = append(data, t.Raw...)
		if len(t.Raw)%2 == 1 {
			data = append(data, 0)
		}
	}

	var next uint32
	if d.next != nil {
		next = d.next.offset
	}
	out = binary.Encode(out, next, order)
	return append(out, data...)
}
