// Package types provides the core data structures shared by the container,
// metadata and preservation packages: formats, segment locations, typed
// errors and warnings.
package types

// SegmentType classifies a metadata segment inside a container.
type SegmentType int

const (
	// SegmentUnknown is a metadata-carrying segment the engine does not parse
	// (ICC profiles, vendor APPn blocks, extended XMP). Preserved verbatim.
	SegmentUnknown SegmentType = iota
	// SegmentExif carries a TIFF-structured EXIF block.
	SegmentExif
	// SegmentIPTC carries an IPTC-IIM dataset stream.
	SegmentIPTC
	// SegmentXMP carries an XMP packet.
	SegmentXMP
	// SegmentText carries a free-text entry (PNG text chunks, JPEG comments).
	SegmentText
)

func (t SegmentType) String() string {
	switch t {
	case SegmentExif:
		return "Exif"
	case SegmentIPTC:
		return "IPTC"
	case SegmentXMP:
		return "XMP"
	case SegmentText:
		return "Text"
	default:
		return "Unknown"
	}
}

// Location is one segment boundary reported by a container locator.
//
// Offset/Length span the whole container unit including its framing (marker
// and length for JPEG, length/type/CRC for PNG, chunk header for RIFF).
// PayloadOffset/PayloadLength span the bytes a metadata parser consumes.
type Location struct {
	Type SegmentType

	Offset int64
	Length int64

	PayloadOffset int64
	PayloadLength int64

	// Marker is the container's name for the unit: "APP1", "COM", "eXIf",
	// "iTXt", "EXIF", "XMP ".
	Marker string

	// Keyword and Language are set for text segments.
	Keyword  string
	Language string

	// Compressed is set when the payload is deflate-compressed inside the unit.
	Compressed bool
}

// End returns the offset one past the last byte of the segment.
func (l Location) End() int64 {
	return l.Offset + l.Length
}

// Overlaps reports whether two locations share any byte.
func (l Location) Overlaps(o Location) bool {
	return l.Offset < o.End() && o.Offset < l.End()
}

// TextEntry is a decoded free-text segment.
type TextEntry struct {
	Keyword  string
	Language string
	Value    string
}
