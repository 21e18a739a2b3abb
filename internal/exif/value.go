package exif

import (
	"bytes"
	"fmt"
	"math"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/schema"
)

// Rational is an unsigned TIFF RATIONAL.
type Rational struct {
	Num, Den uint32
}

// Float returns the rational as a float, 0 when the denominator is 0.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// SRational is a signed TIFF SRATIONAL.
type SRational struct {
	Num, Den int32
}

// Float returns the rational as a float, 0 when the denominator is 0.
func (r SRational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r SRational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// decodeValue converts raw entry bytes into a Go value. Single-element
// numeric values decode to the scalar type, longer ones to a slice:
//
//	BYTE      uint8 / []uint8
//	ASCII     string (trailing NULs removed)
//	SHORT     uint16 / []uint16
//	LONG, IFD uint32 / []uint32
//	RATIONAL  Rational / []Rational
//	SBYTE     int8 / []int8
//	UNDEFINED []byte
//	SSHORT    int16 / []int16
//	SLONG     int32 / []int32
//	SRATIONAL SRational / []SRational
//	FLOAT     float32 / []float32
//	DOUBLE    float64 / []float64
func decodeValue(t schema.DataType, count uint32, raw []byte, order binary.Endianness) any {
	n := int(count)
	switch t {
	case schema.TypeASCII:
		return string(bytes.TrimRight(raw, "\x00"))
	case schema.TypeUndefined:
		return bytes.Clone(raw)
	case schema.TypeByte:
		return one(bytes.Clone(raw))
	case schema.TypeSByte:
		return one(decodeEach(raw, n, 1, func(b []byte) int8 { return int8(b[0]) }))
	case schema.TypeShort:
		return one(decodeEach(raw, n, 2, func(b []byte) uint16 { return binary.Decode[uint16](b, order) }))
	case schema.TypeSShort:
		return one(decodeEach(raw, n, 2, func(b []byte) int16 { return int16(binary.Decode[uint16](b, order)) }))
	case schema.TypeLong, schema.TypeIFD:
		return one(decodeEach(raw, n, 4, func(b []byte) uint32 { return binary.Decode[uint32](b, order) }))
	case schema.TypeSLong:
		return one(decodeEach(raw, n, 4, func(b []byte) int32 { return int32(binary.Decode[uint32](b, order)) }))
	case schema.TypeRational:
		return one(decodeEach(raw, n, 8, func(b []byte) Rational {
			return Rational{binary.Decode[uint32](b, order), binary.Decode[uint32](b[4:], order)}
		}))
	case schema.TypeSRational:
		return one(decodeEach(raw, n, 8, func(b []byte) SRational {
			return SRational{int32(binary.Decode[uint32](b, order)), int32(binary.Decode[uint32](b[4:], order))}
		}))
	case schema.TypeFloat:
		return one(decodeEach(raw, n, 4, func(b []byte) float32 { return math.Float32frombits(binary.Decode[uint32](b, order)) }))
	case schema.TypeDouble:
		return one(decodeEach(raw, n, 8, func(b []byte) float64 { return math.Float64frombits(binary.Decode[uint64](b, order)) }))
	default:
		return bytes.Clone(raw)
	}
}

func decodeEach[T any](raw []byte, n, size int, fn func([]byte) T) []T {
	out := make([]T, 0, n)
	for i := 0; i < n && (i+1)*size <= len(raw); i++ {
		out = append(out, fn(raw[i*size:]))
	}
	return out
}

// one unwraps single-element slices.
func one[T any](s []T) any {
	if len(s) == 1 {
		return s[0]
	}
	return s
}

// EncodeValue converts a Go value into raw bytes of TIFF type t. It accepts
// the types decodeValue produces plus plain int and []int for integer types.
// It returns the raw bytes and the TIFF count.
func EncodeValue(t schema.DataType, v any, order binary.Endianness) ([]byte, uint32, error) {
	switch t {
	case schema.TypeASCII:
		s, ok := v.(string)
		if !ok {
			return nil, 0, fmt.Errorf("ASCII value must be a string, got %T", v)
		}
		raw := append([]byte(s), 0)
		return raw, uint32(len(raw)), nil
	case schema.TypeUndefined, schema.TypeByte:
		switch x := v.(type) {
		case []byte:
			return bytes.Clone(x), uint32(len(x)), nil
		case uint8:
			return []byte{x}, 1, nil
		case string:
			return []byte(x), uint32(len(x)), nil
		}
	case schema.TypeSByte:
		if vals, ok := ints[int8](v); ok {
			return encodeEach(vals, func(b []byte, x int8) []byte { return append(b, byte(x)) })
		}
	case schema.TypeShort:
		if vals, ok := ints[uint16](v); ok {
			return encodeEach(vals, func(b []byte, x uint16) []byte { return binary.Encode(b, x, order) })
		}
	case schema.TypeSShort:
		if vals, ok := ints[int16](v); ok {
			return encodeEach(vals, func(b []byte, x int16) []byte { return binary.Encode(b, uint16(x), order) })
		}
	case schema.TypeLong, schema.TypeIFD:
		if vals, ok := ints[uint32](v); ok {
			return encodeEach(vals, func(b []byte, x uint32) []byte { return binary.Encode(b, x, order) })
		}
	case schema.TypeSLong:
		if vals, ok := ints[int32](v); ok {
			return encodeEach(vals, func(b []byte, x int32) []byte { return binary.Encode(b, uint32(x), order) })
		}
	case schema.TypeRational:
		if vals, ok := many[Rational](v); ok {
			return encodeEach(vals, func(b []byte, x Rational) []byte {
				return binary.Encode(binary.Encode(b, x.Num, order), x.Den, order)
			})
		}
	case schema.TypeSRational:
		if vals, ok := many[SRational](v); ok {
			return encodeEach(vals, func(b []byte, x SRational) []byte {
				return binary.Encode(binary.Encode(b, uint32(x.Num), order), uint32(x.Den), order)
			})
		}
	case schema.TypeFloat:
		if vals, ok := many[float32](v); ok {
			return encodeEach(vals, func(b []byte, x float32) []byte { return binary.Encode(b, math.Float32bits(x), order) })
		}
	case schema.TypeDouble:
		if vals, ok := many[float64](v); ok {
			return encodeEach(vals, func(b []byte, x float64) []byte { return binary.Encode(b, math.Float64bits(x), order) })
		}
	default:
		return nil, 0, fmt.Errorf("unsupported TIFF type %d", t)
	}
	return nil, 0, fmt.Errorf("cannot encode %T as %s", v, t)
}

func encodeEach[T any](vals []T, fn func([]byte, T) []byte) ([]byte, uint32, error) {
	var raw []byte
	for _, x := range vals {
		raw = fn(raw, x)
	}
	return raw, uint32(len(vals)), nil
}

func many[T any](v any) ([]T, bool) {
	switch x := v.(type) {
	case T:
		return []T{x}, true
	case []T:
		return x, true
	}
	return nil, false
}

type integer interface {
	~int8 | ~int16 | ~int32 | ~uint8 | ~uint16 | ~uint32
}

// ints accepts T, []T, int or []int and converts to []T.
func ints[T integer](v any) ([]T, bool) {
	if vals, ok := many[T](v); ok {
		return vals, true
	}
	switch x := v.(type) {
	case int:
		return []T{T(x)}, true
	case []int:
		out := make([]T, len(x))
		for i, n := range x {
			out[i] = T(n)
		}
		return out, true
	}
	return nil, false
}
