package webp

import (
	"context"
	"fmt"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/types"
)

type framer struct{}

func (framer) Frame(loc types.Location, original, payload []byte) ([]byte, error) {
	switch loc.Type {
	case types.SegmentExif:
		return Chunk("EXIF", payload), nil
	case types.SegmentXMP:
		return Chunk("XMP ", payload), nil
	default:
		return nil, &types.UnsupportedWriteError{
			Format: types.FormatWebP,
			Reason: fmt.Sprintf("cannot frame %s segment", loc.Type),
		}
	}
}

// Chunk frames data as a RIFF chunk, padded to an even length.
func Chunk(fourCC string, data []byte) []byte {
	out := make([]byte, 0, chunkHeaderSize+len(data)+1)
	out = append(out, fourCC...)
	out = binary.Encode(out, uint32(len(data)), binary.LittleEndian)
	out = append(out, data...)
	if len(data)%2 != 0 {
		out = append(out, 0)
	}
	return out
}

// Finalize rewrites the RIFF size and the VP8X metadata flags to match the
// chunks actually present. A simple-format file that gained metadata gets a
// VP8X chunk synthesized from its VP8 or VP8L frame header.
func (framer) Finalize(out []byte) ([]byte, error) {
	cs, err := chunks(context.Background(), binary.FromBytes(out, "webp output"))
	if err != nil {
		return nil, err
	}

	var flags byte
	vp8x := -1
	for i, c := range cs {
		switch c.fourCC {
		case "VP8X":
			vp8x = i
		case "EXIF":
			flags |= flagEXIF
		case "XMP ":
			flags |= flagXMP
		case "ICCP":
			flags |= flagICC
		}
	}

	const metaFlags = flagEXIF | flagXMP | flagICC
	switch {
	case vp8x >= 0:
		c := cs[vp8x]
		if c.size < 10 {
			return nil, &types.CorruptedFileError{Path: "webp output", Offset: c.offset, Reason: "VP8X chunk too short"}
		}
		out[c.data()] = out[c.data()]&^metaFlags | flags
	case flags != 0:
		header, err := synthesizeVP8X(out, cs, flags)
		if err != nil {
			return nil, err
		}
		grown := make([]byte, 0, len(out)+len(header))
		grown = append(grown, out[:headerSize]...)
		grown = append(grown, header...)
		out = append(grown, out[headerSize:]...)
	}

	size := uint32(len(out) - 8)
	copy(out[4:8], binary.Encode(nil, size, binary.LittleEndian))
	return out, nil
}

// synthesizeVP8X builds a VP8X chunk with the canvas size of the first frame.
func synthesizeVP8X(out []byte, cs []chunk, flags byte) ([]byte, error) {
	for _, c := range cs {
		data := out[c.data() : c.data()+c.size]
		var w, h uint32
		switch c.fourCC {
		case "VP8 ":
			// Frame tag (3 bytes), start code 9D 01 2A, then 14-bit sizes.
			if len(data) < 10 || data[3] != 0x9D || data[4] != 0x01 || data[5] != 0x2A {
				return nil, fmt.Errorf("webp: invalid VP8 frame header")
			}
			w = uint32(binary.Decode[uint16](data[6:], binary.LittleEndian) & 0x3FFF)
			h = uint32(binary.Decode[uint16](data[8:], binary.LittleEndian) & 0x3FFF)
		case "VP8L":
			if len(data) < 5 || data[0] != 0x2F {
				return nil, fmt.Errorf("webp: invalid VP8L header")
			}
			bits := binary.Decode[uint32](data[1:], binary.LittleEndian)
			w = bits&0x3FFF + 1
			h = (bits>>14)&0x3FFF + 1
			if bits&(1<<28) != 0 {
				flags |= flagAlpha
			}
		default:
			continue
		}

		body := make([]byte, 10)
		body[0] = flags
		put24(body[4:], w-1)
		put24(body[7:], h-1)
		return Chunk("VP8X", body), nil
	}
	return nil, fmt.Errorf("webp: no image frame to size a VP8X chunk")
}

func put24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}
