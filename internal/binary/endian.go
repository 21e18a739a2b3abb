package binary

import "encoding/binary"

// Endianness represents byte order for multi-byte values.
type Endianness int

const (
	// BigEndian uses big-endian byte order.
	// Used by: JPEG/PNG framing, IPTC, TIFF files marked "MM".
	BigEndian Endianness = iota

	// LittleEndian uses little-endian byte order.
	// Used by: RIFF/WebP chunk sizes, TIFF files marked "II".
	LittleEndian
)

// ByteOrder returns the encoding/binary byte order for e.
func (e Endianness) ByteOrder() binary.ByteOrder {
	if e == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func (e Endianness) appendOrder() binary.AppendByteOrder {
	if e == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// String returns the TIFF byte-order mark for e.
func (e Endianness) String() string {
	if e == LittleEndian {
		return "II"
	}
	return "MM"
}

func sizeOf[T uint8 | uint16 | uint32 | uint64]() int {
	var zero T
	switch any(zero).(type) {
	case uint16:
		return 2
	case uint32:
		return 4
	case uint64:
		return 8
	default:
		return 1
	}
}

// ReadLE reads a numeric value of type T at the given offset using little-endian byte order.
//
// Example:
//
//	chunkSize, err := binary.ReadLE[uint32](sr, offset+4, "RIFF chunk size")
func ReadLE[T uint8 | uint16 | uint32 | uint64](sr *SafeReader, off int64, what string) (T, error) {
	return ReadEndian[T](sr, off, what, LittleEndian)
}

// ReadEndian reads a numeric value of type T at the given offset with specified byte order.
//
// TIFF structures pick their byte order at runtime from the header, so the
// EXIF parser calls this directly with the detected order.
func ReadEndian[T uint8 | uint16 | uint32 | uint64](sr *SafeReader, off int64, what string, endian Endianness) (T, error) {
	var zero T
	buf := make([]byte, sizeOf[T]())
	if err := sr.ReadAt(buf, off, what); err != nil {
		return zero, err
	}
	return Decode[T](buf, endian), nil
}

// Decode converts the leading bytes of b to T. b must hold at least sizeof(T) bytes.
func Decode[T uint8 | uint16 | uint32 | uint64](b []byte, endian Endianness) T {
	order := endian.ByteOrder()
	var zero T
	switch any(zero).(type) {
	case uint16:
		return T(order.Uint16(b))
	case uint32:
		return T(order.Uint32(b))
	case uint64:
		return T(order.Uint64(b))
	default:
		return T(b[0])
	}
}

// Encode appends v to b in the given byte order.
func Encode[T uint8 | uint16 | uint32 | uint64](b []byte, v T, endian Endianness) []byte {
	order := endian.appendOrder()
	switch any(v).(type) {
	case uint16:
		return order.AppendUint16(b, uint16(v))
	case uint32:
		return order.AppendUint32(b, uint32(v))
	case uint64:
		return order.AppendUint64(b, uint64(v))
	default:
		return append(b, byte(v))
	}
}
