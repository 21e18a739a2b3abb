package exif

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/schema"
)

// MakerNote is a manufacturer-specific block from tag 0x927C.
type MakerNote struct {
	Make string
	// Format names the decoder that understood the block, "" when the block
	// was kept opaque.
	Format string
	Raw    []byte
	Tags   []Tag
}

// Get returns the decoded value of a named maker note entry.
func (m *MakerNote) Get(name string) (any, bool) {
	for _, t := range m.Tags {
		if t.Name == name {
			return t.Value, true
		}
	}
	return nil, false
}

// MakerNoteInput is what a MakerNoteParser receives.
type MakerNoteInput struct {
	// Data is the maker note value.
	Data []byte
	// TIFF is the enclosing EXIF block. Some formats (Canon) store offsets
	// relative to it.
	TIFF []byte
	// Offset is the position of Data within TIFF.
	Offset int64
	Order  binary.Endianness
}

// MakerNoteParser decodes one manufacturer's maker note layout.
type MakerNoteParser interface {
	TryParse(in MakerNoteInput) (*MakerNote, error)
}

// MakerNoteParserFunc adapts a function to MakerNoteParser.
type MakerNoteParserFunc func(in MakerNoteInput) (*MakerNote, error)

// TryParse calls f.
func (f MakerNoteParserFunc) TryParse(in MakerNoteInput) (*MakerNote, error) {
	return f(in)
}

// MakerNotes maps camera makes to parsers.
type MakerNotes struct {
	mu      sync.RWMutex
	parsers map[string]MakerNoteParser
}

// NewMakerNotes returns an empty registry.
func NewMakerNotes() *MakerNotes {
	return &MakerNotes{parsers: make(map[string]MakerNoteParser)}
}

// DefaultMakerNotes returns a registry with the Canon, Nikon and Apple
// parsers.
func DefaultMakerNotes() *MakerNotes {
	m := NewMakerNotes()
	m.Register("canon", MakerNoteParserFunc(parseCanon))
	m.Register("nikon", MakerNoteParserFunc(parseNikon))
	m.Register("apple", MakerNoteParserFunc(parseApple))
	return m
}

// Register binds a parser to a make. Makes are matched on their first word,
// case-insensitively ("NIKON CORPORATION" matches "nikon").
func (m *MakerNotes) Register(cameraMake string, p MakerNoteParser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parsers[makeKey(cameraMake)] = p
}

// Lookup returns the parser registered for make.
func (m *MakerNotes) Lookup(cameraMake string) (MakerNoteParser, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.parsers[makeKey(cameraMake)]
	return p, ok
}

func makeKey(cameraMake string) string {
	fields := strings.Fields(strings.ToLower(cameraMake))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// parse runs the parser for make. Makes without a parser yield an opaque
// MakerNote. A panicking parser is reported as an error.
func (m *MakerNotes) parse(cameraMake string, in MakerNoteInput) (mn *MakerNote, err error) {
	p, ok := m.Lookup(cameraMake)
	if !ok {
		return &MakerNote{Make: cameraMake, Raw: in.Data}, nil
	}
	defer func() {
		if r := recover(); r != nil {
			mn, err = nil, fmt.Errorf("%s maker note parser panicked: %v", makeKey(cameraMake), r)
		}
	}()
	mn, err = p.TryParse(in)
	if err != nil {
		return nil, fmt.Errorf("%s maker note: %w", makeKey(cameraMake), err)
	}
	if mn == nil {
		return nil, fmt.Errorf("%s maker note: parser returned nothing", makeKey(cameraMake))
	}
	mn.Make = cameraMake
	if mn.Raw == nil {
		mn.Raw = in.Data
	}
	return mn, nil
}

// Maker note directories are small; a large count means we are not looking
// at one.
const makerNoteMaxEntries = 512

var errMakerNoteHeader = errors.New("unrecognized header")

// readMakerIFD reads one directory from src at off and names its entries.
func readMakerIFD(src []byte, off int64, order binary.Endianness, names map[uint16]string) ([]Tag, error) {
	r := ifdReader{sr: binary.FromBytes(src, "makernote"), order: order, maxEntries: makerNoteMaxEntries}
	entries, _, _, err := r.read(context.Background(), off)
	if err != nil {
		return nil, err
	}
	tags := make([]Tag, 0, len(entries))
	for _, e := range entries {
		tags = append(tags, Tag{
			Group:  schema.GroupExif,
			ID:     e.ID,
			Name:   names[e.ID],
			Type:   e.Type,
			Count:  e.Count,
			Raw:    e.Raw,
			Offset: e.Offset,
			Value:  decodeValue(e.Type, e.Count, e.Raw, order),
		})
	}
	return tags, nil
}

var canonNames = map[uint16]string{
	0x0001: "CameraSettings",
	0x0004: "ShotInfo",
	0x0006: "ImageType",
	0x0007: "FirmwareVersion",
	0x0009: "OwnerName",
	0x000C: "SerialNumber",
	0x0010: "ModelID",
	0x0095: "LensModel",
}

// parseCanon reads a headerless IFD whose offsets are relative to the
// enclosing TIFF block.
func parseCanon(in MakerNoteInput) (*MakerNote, error) {
	if in.Offset <= 0 || len(in.TIFF) == 0 {
		return nil, errors.New("maker note position unknown")
	}
	tags, err := readMakerIFD(in.TIFF, in.Offset, in.Order, canonNames)
	if err != nil {
		return nil, err
	}
	return &MakerNote{Format: "canon", Tags: tags}, nil
}

var nikonNames = map[uint16]string{
	0x0001: "MakerNoteVersion",
	0x0002: "ISO",
	0x0004: "Quality",
	0x0005: "WhiteBalance",
	0x0007: "FocusMode",
	0x001D: "SerialNumber",
	0x0084: "Lens",
}

// parseNikon reads the type 3 layout: "Nikon\0", a 4-byte version, then a
// complete TIFF header with offsets relative to that header.
func parseNikon(in MakerNoteInput) (*MakerNote, error) {
	if !bytes.HasPrefix(in.Data, []byte("Nikon\x00")) || len(in.Data) < 18 {
		return nil, errMakerNoteHeader
	}
	inner := in.Data[10:]
	order, first, err := parseHeader(binary.FromBytes(inner, "nikon makernote"))
	if err != nil {
		return nil, err
	}
	tags, err := readMakerIFD(inner, int64(first), order, nikonNames)
	if err != nil {
		return nil, err
	}
	return &MakerNote{Format: "nikon3", Tags: tags}, nil
}

var appleNames = map[uint16]string{
	0x0001: "MakerNoteVersion",
	0x0008: "AccelerationVector",
	0x000A: "HDRImageType",
	0x000B: "BurstUUID",
	0x0011: "ContentIdentifier",
	0x0015: "ImageUniqueID",
}

// parseApple reads "Apple iOS\0", a 2-byte version and "MM", followed by a
// big-endian IFD at offset 14. Offsets are relative to the maker note.
func parseApple(in MakerNoteInput) (*MakerNote, error) {
	if !bytes.HasPrefix(in.Data, []byte("Apple iOS\x00")) || len(in.Data) < 16 {
		return nil, errMakerNoteHeader
	}
	if string(in.Data[12:14]) != "MM" {
		return nil, fmt.Errorf("unexpected byte order %q", in.Data[12:14])
	}
	tags, err := readMakerIFD(in.Data, 14, binary.BigEndian, appleNames)
	if err != nil {
		return nil, err
	}
	return &MakerNote{Format: "apple", Tags: tags}, nil
}
