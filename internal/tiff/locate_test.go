package tiff

import (
	"context"
	"errors"
	"testing"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/registry"
	"github.com/simonhull/imagemeta/internal/types"
)

func TestLocateWholeFile(t *testing.T) {
	data := []byte("II\x2a\x00\x08\x00\x00\x00\x00\x00\x00\x00\x00\x00")
	layout, err := locator{}.Locate(context.Background(), binary.FromBytes(data, "test.tif"))
	if err != nil {
		t.Fatal(err)
	}
	if len(layout.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(layout.Segments))
	}
	loc := layout.Segments[0]
	if loc.Type != types.SegmentExif || loc.Length != int64(len(data)) || loc.PayloadLength != int64(len(data)) {
		t.Errorf("segment = %+v", loc)
	}
}

func TestLocateBadHeader(t *testing.T) {
	for _, data := range [][]byte{[]byte("II"), []byte("XX\x2a\x00\x08\x00\x00\x00")} {
		_, err := locator{}.Locate(context.Background(), binary.FromBytes(data, "bad.tif"))
		var corrupt *types.CorruptedFileError
		if !errors.As(err, &corrupt) {
			t.Errorf("Locate(% X) err = %v, want *CorruptedFileError", data, err)
		}
	}
}

func TestReadOnly(t *testing.T) {
	if registry.GetFramer(types.FormatTIFF) != nil {
		t.Error("TIFF has a framer registered")
	}
	if registry.Get(types.FormatTIFF) == nil {
		t.Error("TIFF locator not registered")
	}
}
