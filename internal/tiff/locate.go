// Package tiff locates metadata in TIFF files. A TIFF file is itself an EXIF
// structure, so the whole file is one segment. TIFF is read-only: no framer
// is registered.
package tiff

import (
	"context"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/registry"
	"github.com/simonhull/imagemeta/internal/types"
)

func init() {
	registry.Register(types.FormatTIFF, locator{})
}

type locator struct{}

func (locator) Locate(ctx context.Context, sr *binary.SafeReader) (*registry.Layout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	head, err := sr.Slice(0, 4, "TIFF header")
	if err != nil {
		return nil, &types.CorruptedFileError{Path: sr.Label(), Reason: "file too small for a TIFF header"}
	}
	switch string(head) {
	case "II\x2a\x00", "MM\x00\x2a":
	default:
		return nil, &types.CorruptedFileError{Path: sr.Label(), Reason: "invalid TIFF header"}
	}

	return &registry.Layout{
		Segments: []types.Location{{
			Type:          types.SegmentExif,
			Offset:        0,
			Length:        sr.Size(),
			PayloadOffset: 0,
			PayloadLength: sr.Size(),
			Marker:        "TIFF",
		}},
		InsertAt: sr.Size(),
	}, nil
}
