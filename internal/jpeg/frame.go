package jpeg

import (
	"bytes"
	"fmt"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/types"
)

type framer struct{}

// Frame builds a marker segment: FF xx, a big-endian length that counts
// itself, then the signature and payload.
func (framer) Frame(loc types.Location, original, payload []byte) ([]byte, error) {
	switch loc.Type {
	case types.SegmentExif:
		return segment(markerAPP1, exifHeader, payload)
	case types.SegmentXMP:
		return segment(markerAPP1, xmpHeader, payload)
	case types.SegmentText:
		return segment(markerCOM, nil, payload)
	case types.SegmentIPTC:
		body := photoshopBody(original, payload)
		return segment(markerAPP13, nil, body)
	default:
		return nil, &types.UnsupportedWriteError{
			Format: types.FormatJPEG,
			Reason: fmt.Sprintf("cannot frame %s segment", loc.Type),
		}
	}
}

// Finalize has nothing to fix up: JPEG segments carry their own lengths.
func (framer) Finalize(out []byte) ([]byte, error) {
	return out, nil
}

func segment(marker uint8, signature, payload []byte) ([]byte, error) {
	length := 2 + len(signature) + len(payload)
	if length > maxSegmentLength {
		return nil, fmt.Errorf("jpeg: %s payload of %d bytes exceeds the 64 KiB segment limit",
			markerName(marker), len(payload))
	}
	out := make([]byte, 0, 2+length)
	out = append(out, 0xFF, marker)
	out = binary.Encode(out, uint16(length), binary.BigEndian)
	out = append(out, signature...)
	return append(out, payload...), nil
}

// photoshopBody returns an APP13 body with the IPTC resource set to iptc.
// Other image resources in the original segment are kept in place.
func photoshopBody(original, iptc []byte) []byte {
	var body []byte
	if len(original) > 4 {
		body = original[4:]
	}
	if !bytes.HasPrefix(body, photoshopHeader) {
		out := bytes.Clone(photoshopHeader)
		return appendResource(out, iptcResourceID, iptc)
	}

	out := bytes.Clone(photoshopHeader)
	pos := len(photoshopHeader)
	replaced := false
	for _, r := range resources(body, pos) {
		if r.id == iptcResourceID && !replaced {
			out = appendResource(out, iptcResourceID, iptc)
			replaced = true
		} else {
			out = append(out, body[r.start:r.end]...)
		}
		pos = r.end
	}
	if !replaced {
		out = appendResource(out, iptcResourceID, iptc)
	}
	// Anything after the last well-formed block is carried over untouched.
	return append(out, body[pos:]...)
}

// appendResource writes an 8BIM block with an empty name.
func appendResource(out []byte, id uint16, data []byte) []byte {
	out = append(out, resourceSignature...)
	out = binary.Encode(out, id, binary.BigEndian)
	out = append(out, 0, 0) // empty Pascal name, padded
	out = binary.Encode(out, uint32(len(data)), binary.BigEndian)
	out = append(out, data...)
	if len(data)%2 != 0 {
		out = append(out, 0)
	}
	return out
}
