// Package jpeg locates and frames metadata segments in JPEG files.
package jpeg

import (
	"bytes"
	"context"
	"fmt"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/registry"
	"github.com/simonhull/imagemeta/internal/types"
)

// Markers
const (
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerSOS   = 0xDA
	markerAPP0  = 0xE0
	markerAPP1  = 0xE1
	markerAPP13 = 0xED
	markerAPP15 = 0xEF
	markerCOM   = 0xFE
)

const (
	iptcResourceID   = 0x0404
	maxSegmentLength = 0xFFFF
)

// Signatures that open APPn payloads.
var (
	exifHeader        = []byte("Exif\x00\x00")
	xmpHeader         = []byte("http://ns.adobe.com/xap/1.0/\x00")
	photoshopHeader   = []byte("Photoshop 3.0\x00")
	resourceSignature = []byte("8BIM")
)

func init() {
	registry.Register(types.FormatJPEG, locator{})
	registry.RegisterFramer(types.FormatJPEG, framer{})
}

type locator struct{}

// Locate walks marker segments from SOI up to the first SOS. Everything after
// SOS is entropy-coded image data and is left to the gaps.
func (locator) Locate(ctx context.Context, sr *binary.SafeReader) (*registry.Layout, error) {
	soi, err := binary.Read[uint16](sr, 0, "SOI marker")
	if err != nil || soi != 0xFF00|markerSOI {
		return nil, &types.CorruptedFileError{Path: sr.Label(), Reason: "missing SOI marker"}
	}

	layout := &registry.Layout{InsertAt: 2}
	offset := int64(2)
	for offset < sr.Size() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prefix, err := binary.Read[uint8](sr, offset, "marker prefix")
		if err != nil {
			return nil, err
		}
		if prefix != 0xFF {
			return nil, &types.CorruptedFileError{
				Path:   sr.Label(),
				Offset: offset,
				Reason: fmt.Sprintf("expected marker, found 0x%02X", prefix),
			}
		}
		marker, err := binary.Read[uint8](sr, offset+1, "marker")
		if err != nil {
			return nil, err
		}
		switch {
		case marker == 0xFF: // fill byte
			offset++
			continue
		case marker == markerEOI || marker == markerSOS:
			return layout, nil
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7): // TEM, RSTn
			offset += 2
			continue
		}

		length, err := binary.Read[uint16](sr, offset+2, "segment length")
		if err != nil {
			return nil, err
		}
		if length < 2 || !sr.InBounds(offset+2, int64(length)) {
			return nil, &types.CorruptedFileError{
				Path:   sr.Label(),
				Offset: offset,
				Reason: fmt.Sprintf("segment 0x%02X length %d exceeds file", marker, length),
			}
		}

		if loc, ok, err := classify(sr, offset, marker, int64(length)); err != nil {
			return nil, err
		} else if ok {
			layout.Segments = append(layout.Segments, loc)
		}

		// New segments go after a leading APP0 (JFIF) header.
		if marker == markerAPP0 && layout.InsertAt == offset {
			layout.InsertAt = offset + 2 + int64(length)
		}
		offset += 2 + int64(length)
	}
	return layout, nil
}

// classify reports whether the marker segment at offset carries metadata.
func classify(sr *binary.SafeReader, offset int64, marker uint8, length int64) (types.Location, bool, error) {
	loc := types.Location{
		Type:          types.SegmentUnknown,
		Offset:        offset,
		Length:        2 + length,
		PayloadOffset: offset + 4,
		PayloadLength: length - 2,
		Marker:        markerName(marker),
	}

	switch {
	case marker == markerCOM:
		loc.Type = types.SegmentText
		return loc, true, nil
	case marker < markerAPP0 || marker > markerAPP15:
		return loc, false, nil
	}

	body, err := sr.Slice(loc.PayloadOffset, loc.PayloadLength, loc.Marker+" payload")
	if err != nil {
		return loc, false, err
	}
	switch marker {
	case markerAPP1:
		switch {
		case bytes.HasPrefix(body, exifHeader):
			loc.Type = types.SegmentExif
			skip(&loc, len(exifHeader))
		case bytes.HasPrefix(body, xmpHeader):
			loc.Type = types.SegmentXMP
			skip(&loc, len(xmpHeader))
		}
	case markerAPP13:
		if bytes.HasPrefix(body, photoshopHeader) {
			if start, n, ok := findResource(body, len(photoshopHeader), iptcResourceID); ok {
				loc.Type = types.SegmentIPTC
				loc.PayloadOffset += int64(start)
				loc.PayloadLength = int64(n)
			}
		}
	}
	return loc, true, nil
}

func skip(loc *types.Location, n int) {
	loc.PayloadOffset += int64(n)
	loc.PayloadLength -= int64(n)
}

func markerName(marker uint8) string {
	switch {
	case marker == markerCOM:
		return "COM"
	case marker >= markerAPP0 && marker <= markerAPP15:
		return fmt.Sprintf("APP%d", marker-markerAPP0)
	default:
		return fmt.Sprintf("0x%02X", marker)
	}
}

// resource is one Photoshop image resource block inside APP13.
type resource struct {
	id    uint16
	start int // offset of the block within the APP13 body
	data  int // offset of the resource data
	size  int
	end   int // offset after the padded block
}

// resources splits an APP13 body into its 8BIM blocks, starting at pos.
// Parsing stops quietly at the first malformed block.
func resources(body []byte, pos int) []resource {
	var out []resource
	for pos+6 <= len(body) && bytes.Equal(body[pos:pos+4], resourceSignature) {
		r := resource{start: pos, id: binary.Decode[uint16](body[pos+4:], binary.BigEndian)}
		p := pos + 6
		if p >= len(body) {
			break
		}
		// Pascal string padded to an even total length.
		nameLen := int(body[p]) + 1
		if nameLen%2 != 0 {
			nameLen++
		}
		p += nameLen
		if p+4 > len(body) {
			break
		}
		r.size = int(binary.Decode[uint32](body[p:], binary.BigEndian))
		r.data = p + 4
		if r.size < 0 || r.data+r.size > len(body) {
			break
		}
		r.end = r.data + r.size
		if r.size%2 != 0 && r.end < len(body) {
			r.end++
		}
		out = append(out, r)
		pos = r.end
	}
	return out
}

func findResource(body []byte, pos int, id uint16) (start, n int, ok bool) {
	for _, r := range resources(body, pos) {
		if r.id == id {
			return r.data, r.size, true
		}
	}
	return 0, 0, false
}
