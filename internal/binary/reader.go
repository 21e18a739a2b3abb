// Package binary provides bounds-checked binary reading and writing primitives
// shared by the container and metadata parsers.
package binary

import (
	"bytes"
	"fmt"
	"io"
)

// SafeReader wraps io.ReaderAt with bounds checking and helpful error messages.
//
// The label identifies the source in errors (a file path, or a segment name
// such as "exif" when the reader wraps an in-memory payload).
type SafeReader struct {
	r     io.ReaderAt
	label string
	size  int64
}

// NewSafeReader creates a new SafeReader.
func NewSafeReader(r io.ReaderAt, size int64, label string) *SafeReader {
	return &SafeReader{
		r:     r,
		size:  size,
		label: label,
	}
}

// FromBytes wraps an in-memory payload.
func FromBytes(data []byte, label string) *SafeReader {
	return NewSafeReader(bytes.NewReader(data), int64(len(data)), label)
}

// Label returns the source label used in error messages.
func (sr *SafeReader) Label() string {
	return sr.label
}

// Size returns the number of readable bytes.
func (sr *SafeReader) Size() int64 {
	return sr.size
}

// InBounds reports whether n bytes starting at off lie inside the source.
func (sr *SafeReader) InBounds(off, n int64) bool {
	return off >= 0 && n >= 0 && off <= sr.size && n <= sr.size-off
}

// ReadAt reads bytes at the given offset with context for error messages.
func (sr *SafeReader) ReadAt(b []byte, off int64, what string) error {
	if off < 0 || off >= sr.size {
		return fmt.Errorf("%s: offset %d out of bounds (size: %d) while reading %s",
			sr.label, off, sr.size, what)
	}

	if int64(len(b)) > sr.size-off {
		return fmt.Errorf("%s: read of %d bytes at offset %d would exceed size %d while reading %s",
			sr.label, len(b), off, sr.size, what)
	}

	n, err := sr.r.ReadAt(b, off)
	if err != nil && err != io.EOF {
		return fmt.Errorf("%s: failed to read %s at offset %d: %w", sr.label, what, off, err)
	}

	if n < len(b) {
		return fmt.Errorf("%s: short read for %s at offset %d: got %d bytes, expected %d",
			sr.label, what, off, n, len(b))
	}

	return nil
}

// Slice returns a copy of n bytes starting at off.
func (sr *SafeReader) Slice(off, n int64, what string) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	if !sr.InBounds(off, n) {
		return nil, fmt.Errorf("%s: range [%d, %d) outside size %d while reading %s",
			sr.label, off, off+n, sr.size, what)
	}
	buf := make([]byte, n)
	if err := sr.ReadAt(buf, off, what); err != nil {
		return nil, err
	}
	return buf, nil
}

// Read reads a big-endian value of type T from the given offset.
// Container framing (JPEG markers, PNG chunks, IPTC lengths) is big-endian.
func Read[T uint8 | uint16 | uint32 | uint64](sr *SafeReader, off int64, what string) (T, error) {
	return ReadEndian[T](sr, off, what, BigEndian)
}

// Reader provides sequential reading with automatic offset tracking.
type Reader struct {
	*SafeReader
	offset int64
	order  Endianness
}

// NewReader creates a big-endian Reader starting at the given offset.
func NewReader(sr *SafeReader, offset int64) *Reader {
	return NewReaderEndian(sr, offset, BigEndian)
}

// NewReaderEndian creates a Reader with the given byte order.
func NewReaderEndian(sr *SafeReader, offset int64, order Endianness) *Reader {
	return &Reader{
		SafeReader: sr,
		offset:     offset,
		order:      order,
	}
}

// ReadValue reads a numeric value and advances the offset.
func ReadValue[T uint8 | uint16 | uint32 | uint64](r *Reader, what string) (T, error) {
	val, err := ReadEndian[T](r.SafeReader, r.offset, what, r.order)
	if err != nil {
		var zero T
		return zero, err
	}

	r.offset += int64(sizeOf[T]())
	return val, nil
}

// ReadBytes reads n bytes and advances the offset.
func (r *Reader) ReadBytes(n int, what string) ([]byte, error) {
	buf, err := r.SafeReader.Slice(r.offset, int64(n), what)
	if err != nil {
		return nil, err
	}
	r.offset += int64(n)
	return buf, nil
}

// ReadString reads a string of the given length and advances the offset.
func (r *Reader) ReadString(length int, what string) (string, error) {
	buf, err := r.ReadBytes(length, what)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// Skip advances the offset by n bytes.
func (r *Reader) Skip(n int64) {
	r.offset += n
}

// Offset returns the current offset.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Remaining returns the number of bytes between the offset and the end of the source.
func (r *Reader) Remaining() int64 {
	if r.offset >= r.size {
		return 0
	}
	return r.size - r.offset
}

// ChainReader allows chaining multiple reads with deferred error checking.
type ChainReader struct {
	*Reader
	err error
}

// NewChainReader creates a new ChainReader.
func NewChainReader(r *Reader) *ChainReader {
	return &ChainReader{Reader: r}
}

// ReadChained reads a value with deferred error checking.
// If a previous read failed, returns zero value without attempting read.
func ReadChained[T uint8 | uint16 | uint32 | uint64](cr *ChainReader, what string) T {
	if cr.err != nil {
		var zero T
		return zero
	}

	val, err := ReadValue[T](cr.Reader, what)
	if err != nil {
		cr.err = err
		var zero T
		return zero
	}

	return val
}

// Bytes reads n raw bytes, accumulating any error.
func (cr *ChainReader) Bytes(n int, what string) []byte {
	if cr.err != nil {
		return nil
	}

	val, err := cr.Reader.ReadBytes(n, what)
	if err != nil {
		cr.err = err
		return nil
	}

	return val
}

// Error returns the accumulated error, if any.
func (cr *ChainReader) Error() error {
	return cr.err
}
