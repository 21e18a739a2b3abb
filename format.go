package imagemeta

import (
	"io"

	"github.com/simonhull/imagemeta/internal/types"
)

// Format is an alias to types.Format.
type Format = types.Format

// Container formats.
const (
	FormatUnknown = types.FormatUnknown
	FormatJPEG    = types.FormatJPEG
	FormatPNG     = types.FormatPNG
	FormatTIFF    = types.FormatTIFF
	FormatWebP    = types.FormatWebP
)

// DetectFormat identifies the container by its magic bytes.
func DetectFormat(r io.ReaderAt, size int64, path string) (Format, error) {
	return types.DetectFormat(r, size, path)
}
