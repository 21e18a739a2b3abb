package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching. The structured error types below
// match these through their Is methods.
var (
	ErrMalformedHeader   = errors.New("malformed header")
	ErrCircularReference = errors.New("circular reference")
)

// OutOfBoundsError is returned when attempting to read beyond the source bounds.
type OutOfBoundsError struct {
	Path   string
	What   string
	Offset int64
	Length int
	Size   int64
}

func (e *OutOfBoundsError) Error() string {
	if e.Offset >= e.Size {
		return fmt.Sprintf("%s: offset %d out of bounds (size: %d) while reading %s",
			e.Path, e.Offset, e.Size, e.What)
	}
	return fmt.Sprintf("%s: read of %d bytes at offset %d would exceed size %d while reading %s",
		e.Path, e.Length, e.Offset, e.Size, e.What)
}

// UnsupportedFormatError is returned when the container is not JPEG, PNG, TIFF or WebP.
type UnsupportedFormatError struct {
	Path   string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: unsupported format: %s", e.Path, e.Reason)
}

// CorruptedFileError is returned when container structure is invalid.
type CorruptedFileError struct {
	Path   string
	Reason string
	Offset int64
}

func (e *CorruptedFileError) Error() string {
	return fmt.Sprintf("%s: corrupted file at offset %d: %s", e.Path, e.Offset, e.Reason)
}

// MalformedHeaderError reports structural corruption in a TIFF header or IFD.
// It is fatal to the parse of the segment it occurs in.
type MalformedHeaderError struct {
	Reason string
	Offset int64
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("malformed header at offset %d: %s", e.Offset, e.Reason)
}

// Is reports whether target is ErrMalformedHeader.
func (e *MalformedHeaderError) Is(target error) bool {
	return target == ErrMalformedHeader
}

// CircularReferenceError reports an IFD offset that was already visited in
// the same traversal.
type CircularReferenceError struct {
	// Offset is the revisited IFD offset.
	Offset int64
	// From names the pointer that led back ("next IFD", "Exif IFD", ...).
	From string
}

func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("circular reference: %s points to already visited IFD at offset %d", e.From, e.Offset)
}

// Is reports whether target is ErrCircularReference.
func (e *CircularReferenceError) Is(target error) bool {
	return target == ErrCircularReference
}

// UnsupportedWriteError indicates write is not supported for this format.
type UnsupportedWriteError struct {
	Reason string
	Format Format
}

func (e *UnsupportedWriteError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("write not supported for %s: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("write not supported for %s", e.Format)
}
