package schema

import (
	"github.com/simonhull/imagemeta/internal/xmp"
)

// Group is the family of IFDs a tag belongs to. Tags of the main IFD chain
// (IFD0, IFD1, ...) share GroupImage.
type Group int

const (
	GroupImage Group = iota
	GroupExif
	GroupGPS
	GroupInterop
)

func (g Group) String() string {
	switch g {
	case GroupExif:
		return "Exif"
	case GroupGPS:
		return "GPS"
	case GroupInterop:
		return "Interop"
	default:
		return "Image"
	}
}

// DataType is a TIFF field type.
type DataType uint16

const (
	TypeByte      DataType = 1
	TypeASCII     DataType = 2
	TypeShort     DataType = 3
	TypeLong      DataType = 4
	TypeRational  DataType = 5
	TypeSByte     DataType = 6
	TypeUndefined DataType = 7
	TypeSShort    DataType = 8
	TypeSLong     DataType = 9
	TypeSRational DataType = 10
	TypeFloat     DataType = 11
	TypeDouble    DataType = 12
	TypeIFD       DataType = 13
)

var typeSizes = map[DataType]int{
	TypeByte: 1, TypeASCII: 1, TypeShort: 2, TypeLong: 4, TypeRational: 8,
	TypeSByte: 1, TypeUndefined: 1, TypeSShort: 2, TypeSLong: 4, TypeSRational: 8,
	TypeFloat: 4, TypeDouble: 8, TypeIFD: 4,
}

// Size returns the byte size of one value of the type, 0 for unknown types.
func (t DataType) Size() int {
	return typeSizes[t]
}

func (t DataType) String() string {
	switch t {
	case TypeByte:
		return "BYTE"
	case TypeASCII:
		return "ASCII"
	case TypeShort:
		return "SHORT"
	case TypeLong:
		return "LONG"
	case TypeRational:
		return "RATIONAL"
	case TypeSByte:
		return "SBYTE"
	case TypeUndefined:
		return "UNDEFINED"
	case TypeSShort:
		return "SSHORT"
	case TypeSLong:
		return "SLONG"
	case TypeSRational:
		return "SRATIONAL"
	case TypeFloat:
		return "FLOAT"
	case TypeDouble:
		return "DOUBLE"
	case TypeIFD:
		return "IFD"
	default:
		return "UNKNOWN"
	}
}

// TagDefinition describes one EXIF/TIFF tag. Immutable once registered.
type TagDefinition struct {
	ID    uint16
	Name  string
	Group Group
	Type  DataType
	// Category is a free-form grouping used for display ("camera", "image", "gps").
	Category string
}

// DatasetType is the declared value type of an IPTC dataset.
type DatasetType int

const (
	DatasetString DatasetType = iota
	DatasetDate               // CCYYMMDD
	DatasetTime               // HHMMSS±HHMM
	DatasetBinary
	DatasetUint16
)

// DatasetDefinition describes one IPTC-IIM dataset.
type DatasetDefinition struct {
	Record     uint8
	Dataset    uint8
	Name       string
	Type       DatasetType
	Repeatable bool
	// MaxLength is the IIM length limit, 0 for none.
	MaxLength int
}

// Validator checks a present property value.
type Validator func(v xmp.Value) error

// Property describes one XMP property of a schema.
type Property struct {
	Name     string
	Kind     xmp.Kind
	ItemKind xmp.Kind      // for KindArray
	Form     xmp.ArrayForm // for KindArray
	Required bool
	Validate Validator
}

// Schema describes an XMP namespace.
type Schema struct {
	Namespace  string
	Prefix     string
	Version    int
	Properties map[string]Property
}
