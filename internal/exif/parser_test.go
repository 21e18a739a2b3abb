package exif

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/schema"
	"github.com/simonhull/imagemeta/internal/types"
)

type testEntry struct {
	id    uint16
	typ   schema.DataType
	count uint32
	raw   []byte
}

func ifdLen(entries []testEntry) int {
	n := 2 + 12*len(entries) + 4
	for _, e := range entries {
		if len(e.raw) > 4 {
			n += len(e.raw)
		}
	}
	return n
}

// tiffBuilder assembles TIFF fixtures one directory at a time.
type tiffBuilder struct {
	order binary.Endianness
	buf   []byte
}

func newTIFF(order binary.Endianness, first uint32) *tiffBuilder {
	b := &tiffBuilder{order: order}
	if order == binary.LittleEndian {
		b.buf = []byte("II")
	} else {
		b.buf = []byte("MM")
	}
	b.buf = binary.Encode(b.buf, uint16(0x2A), order)
	b.buf = binary.Encode(b.buf, first, order)
	return b
}

// ifd appends a directory followed by its out-of-line values.
func (b *tiffBuilder) ifd(entries []testEntry, next uint32) {
	off := uint32(len(b.buf))
	dataOff := off + uint32(2+12*len(entries)+4)
	var data []byte
	b.buf = binary.Encode(b.buf, uint16(len(entries)), b.order)
	for _, e := range entries {
		b.buf = binary.Encode(b.buf, e.id, b.order)
		b.buf = binary.Encode(b.buf, uint16(e.typ), b.order)
		b.buf = binary.Encode(b.buf, e.count, b.order)
		if len(e.raw) <= 4 {
			var f [4]byte
			copy(f[:], e.raw)
			b.buf = append(b.buf, f[:]...)
			continue
		}
		b.buf = binary.Encode(b.buf, dataOff+uint32(len(data)), b.order)
		data = append(data, e.raw...)
	}
	b.buf = binary.Encode(b.buf, next, b.order)
	b.buf = append(b.buf, data...)
}

func shortEntry(o binary.Endianness, id, v uint16) testEntry {
	return testEntry{id, schema.TypeShort, 1, binary.Encode(nil, v, o)}
}

func longEntry(o binary.Endianness, id uint16, v uint32) testEntry {
	return testEntry{id, schema.TypeLong, 1, binary.Encode(nil, v, o)}
}

func asciiEntry(id uint16, s string) testEntry {
	raw := append([]byte(s), 0)
	return testEntry{id, schema.TypeASCII, uint32(len(raw)), raw}
}

func rationalEntry(o binary.Endianness, id uint16, pairs ...uint32) testEntry {
	var raw []byte
	for _, v := range pairs {
		raw = binary.Encode(raw, v, o)
	}
	return testEntry{id, schema.TypeRational, uint32(len(pairs) / 2), raw}
}

// orientationTIFF is the smallest useful block: II, one Orientation entry.
func orientationTIFF() []byte {
	b := newTIFF(binary.LittleEndian, 8)
	b.ifd([]testEntry{shortEntry(binary.LittleEndian, 0x0112, 1)}, 0)
	return b.buf
}

func TestParseOrientation(t *testing.T) {
	data := orientationTIFF()
	want := []byte{
		'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00,
		0x01, 0x00,
		0x12, 0x01, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	if string(data) != string(want) {
		t.Fatalf("fixture = % X", data)
	}

	doc, err := NewParser(schema.NewDefault()).Parse(context.Background(), data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got, ok := GetTag[uint16](doc, "Orientation")
	if !ok || got != 1 {
		t.Errorf("GetTag[uint16](Orientation) = %d, %v; want 1, true", got, ok)
	}
	if doc.Order != binary.LittleEndian {
		t.Errorf("Order = %v, want II", doc.Order)
	}
	if len(doc.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", doc.Warnings)
	}
}

func TestParseMalformedHeader(t *testing.T) {
	tooMany := newTIFF(binary.LittleEndian, 8).buf
	tooMany = append(tooMany, 0xE9, 0x03) // 1001 entries

	tests := []struct {
		name string
		data []byte
		opts []Option
	}{
		{"truncated", []byte("II*"), nil},
		{"bad order mark", []byte{'X', 'X', 0x2A, 0, 8, 0, 0, 0}, nil},
		{"bad magic", []byte{'I', 'I', 0x2B, 0, 8, 0, 0, 0}, nil},
		{"magic read with wrong order", []byte{'M', 'M', 0x2A, 0, 0, 0, 0, 8}, nil},
		{"IFD offset outside data", newTIFF(binary.LittleEndian, 100).buf, nil},
		{"entry ceiling", tooMany, nil},
		{"custom entry ceiling", func() []byte {
			b := newTIFF(binary.BigEndian, 8)
			b.ifd([]testEntry{shortEntry(binary.BigEndian, 0x0112, 1), shortEntry(binary.BigEndian, 0x0128, 2)}, 0)
			return b.buf
		}(), []Option{WithMaxEntries(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(nil, tt.opts...).Parse(context.Background(), tt.data)
			if !errors.Is(err, types.ErrMalformedHeader) {
				t.Fatalf("Parse() error = %v, want ErrMalformedHeader", err)
			}
			var mh *types.MalformedHeaderError
			if !errors.As(err, &mh) {
				t.Errorf("error %T is not a *MalformedHeaderError", err)
			}
		})
	}
}

func TestParseCircularReference(t *testing.T) {
	o := binary.LittleEndian

	selfLoop := newTIFF(o, 8)
	selfLoop.ifd([]testEntry{shortEntry(o, 0x0112, 1)}, 8)

	exifLoop := newTIFF(o, 8)
	exifLoop.ifd([]testEntry{longEntry(o, schema.TagExifIFD, 8)}, 0)

	// IFD0 -> IFD1 -> IFD0
	twoStep := newTIFF(o, 8)
	first := []testEntry{shortEntry(o, 0x0112, 1)}
	twoStep.ifd(first, uint32(8+ifdLen(first)))
	twoStep.ifd([]testEntry{shortEntry(o, 0x0103, 6)}, 8)

	tests := []struct {
		name string
		data []byte
	}{
		{"next pointer to self", selfLoop.buf},
		{"sub-IFD pointer to IFD0", exifLoop.buf},
		{"two step chain", twoStep.buf},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(nil).Parse(context.Background(), tt.data)
			if !errors.Is(err, types.ErrCircularReference) {
				t.Fatalf("Parse() error = %v, want ErrCircularReference", err)
			}
			var cr *types.CircularReferenceError
			if errors.As(err, &cr) && cr.Offset != 8 {
				t.Errorf("revisited offset = %d, want 8", cr.Offset)
			}
		})
	}
}

// fullTIFF builds a big-endian block with IFD0, Exif, GPS and a thumbnail
// IFD. The maker note is not in any known layout.
func fullTIFF(makerNote []byte, cameraMake string) []byte {
	o := binary.BigEndian

	ifd0 := []testEntry{
		asciiEntry(0x010F, cameraMake),
		shortEntry(o, 0x0112, 6),
		longEntry(o, schema.TagExifIFD, 0),
		longEntry(o, schema.TagGPSIFD, 0),
		longEntry(o, 0xC0DE, 42),
	}
	exifIFD := []testEntry{
		rationalEntry(o, 0x829A, 1, 250),
		{schema.TagMakerNote, schema.TypeUndefined, uint32(len(makerNote)), makerNote},
	}
	gpsIFD := []testEntry{
		asciiEntry(0x0001, "N"),
		rationalEntry(o, 0x0002, 40, 1, 30, 1, 0, 1),
		asciiEntry(0x0003, "W"),
		rationalEntry(o, 0x0004, 74, 1, 0, 1, 36, 1),
	}
	ifd1 := []testEntry{
		longEntry(o, schema.TagThumbnailStart, 0),
		longEntry(o, schema.TagThumbnailLen, 4),
	}

	exifOff := uint32(8 + ifdLen(ifd0))
	gpsOff := exifOff + uint32(ifdLen(exifIFD))
	ifd1Off := gpsOff + uint32(ifdLen(gpsIFD))
	thumbOff := ifd1Off + uint32(ifdLen(ifd1))

	ifd0[2] = longEntry(o, schema.TagExifIFD, exifOff)
	ifd0[3] = longEntry(o, schema.TagGPSIFD, gpsOff)
	ifd1[0] = longEntry(o, schema.TagThumbnailStart, thumbOff)

	b := newTIFF(o, 8)
	b.ifd(ifd0, ifd1Off)
	b.ifd(exifIFD, 0)
	b.ifd(gpsIFD, 0)
	b.ifd(ifd1, 0)
	b.buf = append(b.buf, 0xFF, 0xD8, 0xFF, 0xD9)
	return b.buf
}

func TestParseFullDocument(t *testing.T) {
	data := fullTIFF([]byte("garbage-bytes"), "NIKON CORPORATION")
	doc, err := NewParser(schema.NewDefault()).Parse(context.Background(), data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := doc.Make(); got != "NIKON CORPORATION" {
		t.Errorf("Make() = %q", got)
	}
	if got, _ := GetTag[uint16](doc, "Orientation"); got != 6 {
		t.Errorf("Orientation = %d, want 6", got)
	}
	if got, _ := GetTag[Rational](doc, "ExposureTime"); got != (Rational{1, 250}) {
		t.Errorf("ExposureTime = %v, want 1/250", got)
	}

	if len(doc.Unknown) != 1 || doc.Unknown[0].ID != 0xC0DE || doc.Unknown[0].Value != uint32(42) {
		t.Errorf("Unknown = %+v, want tag 0xC0DE = 42", doc.Unknown)
	}
	for _, tag := range doc.Tags {
		if tag.ID == 0xC0DE && tag.Group == schema.GroupImage {
			t.Error("unknown tag also listed as known")
		}
	}

	if doc.GPS == nil {
		t.Fatal("GPS = nil")
	}
	if math.Abs(doc.GPS.Latitude-40.5) > 1e-9 || math.Abs(doc.GPS.Longitude+74.01) > 1e-9 {
		t.Errorf("GPS = %v, %v; want 40.5, -74.01", doc.GPS.Latitude, doc.GPS.Longitude)
	}

	if string(doc.Thumbnail) != "\xFF\xD8\xFF\xD9" {
		t.Errorf("Thumbnail = % X", doc.Thumbnail)
	}

	// The maker note failure is recorded, not fatal.
	var sawMakerNote bool
	for _, w := range doc.Warnings {
		if w.Stage == "makernote" {
			sawMakerNote = true
		}
	}
	if !sawMakerNote {
		t.Errorf("Warnings = %v, want a makernote warning", doc.Warnings)
	}
	if doc.MakerNote == nil || string(doc.MakerNote.Raw) != "garbage-bytes" || doc.MakerNote.Format != "" {
		t.Errorf("MakerNote = %+v, want opaque raw bytes", doc.MakerNote)
	}
}

func TestParseAppleMakerNote(t *testing.T) {
	note := []byte("Apple iOS\x00\x00\x01MM")
	note = binary.Encode(note, uint16(1), binary.BigEndian)
	note = binary.Encode(note, uint16(0x0001), binary.BigEndian)
	note = binary.Encode(note, uint16(schema.TypeSLong), binary.BigEndian)
	note = binary.Encode(note, uint32(1), binary.BigEndian)
	note = binary.Encode(note, uint32(14), binary.BigEndian)
	note = binary.Encode(note, uint32(0), binary.BigEndian)

	doc, err := NewParser(nil).Parse(context.Background(), fullTIFF(note, "Apple"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	for _, w := range doc.Warnings {
		if w.Stage == "makernote" {
			t.Errorf("unexpected maker note warning: %v", w)
		}
	}
	if doc.MakerNote == nil || doc.MakerNote.Format != "apple" {
		t.Fatalf("MakerNote = %+v, want apple format", doc.MakerNote)
	}
	if v, ok := doc.MakerNote.Get("MakerNoteVersion"); !ok || v != int32(14) {
		t.Errorf("MakerNoteVersion = %v, %v; want 14", v, ok)
	}
}

func TestMakerNotePanicIsWarning(t *testing.T) {
	notes := NewMakerNotes()
	notes.Register("nikon", MakerNoteParserFunc(func(MakerNoteInput) (*MakerNote, error) {
		panic("boom")
	}))

	doc, err := NewParser(nil, WithMakerNotes(notes)).Parse(context.Background(), fullTIFF([]byte("Nikon\x00..."), "NIKON"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Warnings) == 0 || doc.Warnings[len(doc.Warnings)-1].Stage != "makernote" {
		t.Errorf("Warnings = %v, want makernote warning", doc.Warnings)
	}
}

func TestParseOutOfRangeValueIsWarning(t *testing.T) {
	o := binary.LittleEndian
	b := newTIFF(o, 8)
	b.ifd([]testEntry{
		shortEntry(o, 0x0112, 1),
		// 64 ASCII bytes claimed at an offset far past the end.
		{0x010E, schema.TypeASCII, 64, binary.Encode(nil, uint32(0xFFFF), o)},
	}, 0)
	// The builder wrote the 4-byte raw inline; that is the bogus offset.

	doc, err := NewParser(nil).Parse(context.Background(), b.buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := doc.Tag("ImageDescription"); ok {
		t.Error("out of range tag should be skipped")
	}
	if len(doc.Warnings) != 1 || doc.Warnings[0].Stage != "ifd" {
		t.Errorf("Warnings = %v", doc.Warnings)
	}
	if v, _ := GetTag[uint16](doc, "Orientation"); v != 1 {
		t.Errorf("Orientation = %d", v)
	}
}

func TestParseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewParser(nil).Parse(ctx, orientationTIFF())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Parse() error = %v, want context.Canceled", err)
	}
}

func TestParseConcurrent(t *testing.T) {
	p := NewParser(schema.NewDefault())
	data := fullTIFF([]byte("garbage-bytes"), "Canon")
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := p.Parse(context.Background(), data)
			if err != nil {
				t.Error(err)
				return
			}
			if v, _ := GetTag[uint16](doc, "Orientation"); v != 6 {
				t.Errorf("Orientation = %d", v)
			}
		}()
	}
	wg.Wait()
}
