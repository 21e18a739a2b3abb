package imagemeta

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestOutOfBoundsError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *OutOfBoundsError
		contains []string
	}{
		{
			name: "offset beyond file size",
			err: &OutOfBoundsError{
				Path:   "photo.jpg",
				Offset: 1000,
				Length: 4,
				Size:   500,
				What:   "segment header",
			},
			contains: []string{"photo.jpg", "offset 1000 out of bounds", "size: 500", "segment header"},
		},
		{
			name: "read would exceed file size",
			err: &OutOfBoundsError{
				Path:   "image.png",
				Offset: 100,
				Length: 50,
				Size:   120,
				What:   "chunk data",
			},
			contains: []string{"image.png", "read of 50 bytes", "offset 100", "exceed size 120", "chunk data"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(msg, substr) {
					t.Errorf("error message %q should contain %q", msg, substr)
				}
			}
		})
	}
}

func TestUnsupportedFormatError_Error(t *testing.T) {
	err := &UnsupportedFormatError{
		Path:   "anim.gif",
		Reason: "unsupported file format",
	}

	msg := err.Error()
	if !strings.Contains(msg, "anim.gif") {
		t.Errorf("error should contain path, got: %s", msg)
	}
	if !strings.Contains(msg, "unsupported format") {
		t.Errorf("error should contain 'unsupported format', got: %s", msg)
	}
}

func TestCorruptedFileError_Error(t *testing.T) {
	err := &CorruptedFileError{
		Path:   "broken.jpg",
		Offset: 256,
		Reason: "segment length runs past end of file",
	}

	msg := err.Error()
	if !strings.Contains(msg, "broken.jpg") {
		t.Errorf("error should contain path, got: %s", msg)
	}
	if !strings.Contains(msg, "offset 256") {
		t.Errorf("error should contain offset, got: %s", msg)
	}
}

func TestUnsupportedWriteError_Error(t *testing.T) {
	err := &UnsupportedWriteError{Format: FormatTIFF, Reason: "no framer registered"}
	if got := err.Error(); got != "write not supported for TIFF: no framer registered" {
		t.Errorf("Error() = %q", got)
	}
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"malformed header", &MalformedHeaderError{Offset: 4, Reason: "bad byte order"}, ErrMalformedHeader},
		{"circular reference", &CircularReferenceError{Offset: 8, From: "next IFD"}, ErrCircularReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("exif: %w", tt.err)
			if !errors.Is(wrapped, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.target)
			}
		})
	}
}
