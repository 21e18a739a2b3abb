package types

import (
	"bytes"
	"io"

	"github.com/simonhull/imagemeta/internal/binary"
)

// Format represents the detected image container format.
type Format int

const (
	// FormatUnknown represents an unknown or unsupported format.
	FormatUnknown Format = iota
	// FormatJPEG represents JPEG/JFIF/EXIF files.
	FormatJPEG
	// FormatPNG represents PNG files.
	FormatPNG
	// FormatTIFF represents TIFF files (and TIFF-based raw formats).
	FormatTIFF
	// FormatWebP represents RIFF WebP files.
	FormatWebP
)

var formatNames = [...]string{
	FormatUnknown: "Unknown",
	FormatJPEG:    "JPEG",
	FormatPNG:     "PNG",
	FormatTIFF:    "TIFF",
	FormatWebP:    "WebP",
}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return "Unknown"
	}
	return formatNames[f]
}

// Extensions returns common file extensions for this format.
func (f Format) Extensions() []string {
	switch f {
	case FormatJPEG:
		return []string{".jpg", ".jpeg", ".jpe"}
	case FormatPNG:
		return []string{".png"}
	case FormatTIFF:
		return []string{".tif", ".tiff", ".dng"}
	case FormatWebP:
		return []string{".webp"}
	default:
		return nil
	}
}

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	tiffII    = []byte{'I', 'I', 0x2A, 0x00}
	tiffMM    = []byte{'M', 'M', 0x00, 0x2A}
)

// DetectFormat determines the container format by examining magic bytes.
//
// Detection only looks at the file signature; it does not validate the
// container structure.
func DetectFormat(r io.ReaderAt, size int64, path string) (Format, error) {
	if size < 4 {
		return FormatUnknown, &UnsupportedFormatError{
			Path:   path,
			Reason: "file too small",
		}
	}

	sr := binary.NewSafeReader(r, size, path)

	n := int64(12)
	if size < n {
		n = size
	}
	head, err := sr.Slice(0, n, "file magic bytes")
	if err != nil {
		return FormatUnknown, &UnsupportedFormatError{
			Path:   path,
			Reason: "failed to read file header",
		}
	}

	switch {
	case bytes.HasPrefix(head, jpegMagic):
		return FormatJPEG, nil
	case bytes.HasPrefix(head, pngMagic):
		return FormatPNG, nil
	case bytes.HasPrefix(head, tiffII), bytes.HasPrefix(head, tiffMM):
		return FormatTIFF, nil
	case len(head) >= 12 && string(head[:4]) == "RIFF" && string(head[8:12]) == "WEBP":
		return FormatWebP, nil
	}

	return FormatUnknown, &UnsupportedFormatError{
		Path:   path,
		Reason: "unsupported file format",
	}
}
