// Package webp locates and frames metadata chunks in RIFF WebP files.
package webp

import (
	"context"
	"fmt"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/registry"
	"github.com/simonhull/imagemeta/internal/types"
)

// RIFF layout: "RIFF", little-endian size of everything after it, "WEBP".
const (
	headerSize      = 12
	chunkHeaderSize = 8
)

// VP8X feature flags.
const (
	flagAnimation = 0x02
	flagXMP       = 0x04
	flagEXIF      = 0x08
	flagAlpha     = 0x10
	flagICC       = 0x20
)

func init() {
	registry.Register(types.FormatWebP, locator{})
	registry.RegisterFramer(types.FormatWebP, framer{})
}

// chunk is one RIFF chunk inside the WEBP form.
type chunk struct {
	fourCC string
	offset int64 // start of the chunk header
	size   int64 // payload size, without padding
}

func (c chunk) data() int64 { return c.offset + chunkHeaderSize }

// end returns the offset after the padded chunk.
func (c chunk) end() int64 { return c.data() + c.size + c.size%2 }

// chunks walks the RIFF body. A missing pad byte after a final odd-sized
// chunk is tolerated.
func chunks(ctx context.Context, sr *binary.SafeReader) ([]chunk, error) {
	head, err := sr.Slice(0, headerSize, "RIFF header")
	if err != nil || string(head[:4]) != "RIFF" || string(head[8:12]) != "WEBP" {
		return nil, &types.CorruptedFileError{Path: sr.Label(), Reason: "invalid RIFF WEBP header"}
	}

	var out []chunk
	offset := int64(headerSize)
	for offset+chunkHeaderSize <= sr.Size() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fourCC, err := sr.Slice(offset, 4, "chunk FourCC")
		if err != nil {
			return nil, err
		}
		size, err := binary.ReadLE[uint32](sr, offset+4, "chunk size")
		if err != nil {
			return nil, err
		}
		c := chunk{fourCC: string(fourCC), offset: offset, size: int64(size)}
		if !sr.InBounds(c.data(), c.size) {
			return nil, &types.CorruptedFileError{
				Path:   sr.Label(),
				Offset: offset,
				Reason: fmt.Sprintf("%q chunk size %d exceeds file", c.fourCC, size),
			}
		}
		out = append(out, c)
		offset = c.end()
	}
	return out, nil
}

type locator struct{}

// Locate reports EXIF, XMP and ICCP chunks. New chunks are appended after
// the image data, where the extended format expects EXIF and XMP.
func (locator) Locate(ctx context.Context, sr *binary.SafeReader) (*registry.Layout, error) {
	cs, err := chunks(ctx, sr)
	if err != nil {
		return nil, err
	}

	layout := &registry.Layout{InsertAt: sr.Size()}
	if len(cs) > 0 {
		last := cs[len(cs)-1]
		layout.InsertAt = min(last.end(), sr.Size())
		if layout.InsertAt < sr.Size() {
			layout.Warnings = append(layout.Warnings, types.Warning{
				Stage:   "container",
				Message: fmt.Sprintf("%d trailing bytes after the last chunk", sr.Size()-layout.InsertAt),
				Offset:  layout.InsertAt,
			})
		}
	}

	for _, c := range cs {
		loc := types.Location{
			Offset:        c.offset,
			Length:        min(c.end(), sr.Size()) - c.offset,
			PayloadOffset: c.data(),
			PayloadLength: c.size,
			Marker:        c.fourCC,
		}
		switch c.fourCC {
		case "EXIF":
			loc.Type = types.SegmentExif
			prefix, _ := sr.Slice(c.data(), min(c.size, 6), "EXIF prefix")
			if string(prefix) == "Exif\x00\x00" {
				loc.PayloadOffset += 6
				loc.PayloadLength -= 6
			}
		case "XMP ":
			loc.Type = types.SegmentXMP
		case "ICCP":
			loc.Type = types.SegmentUnknown
		default:
			continue
		}
		layout.Segments = append(layout.Segments, loc)
	}
	return layout, nil
}
