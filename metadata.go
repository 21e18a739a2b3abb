package imagemeta

import (
	"github.com/simonhull/imagemeta/internal/exif"
	"github.com/simonhull/imagemeta/internal/iptc"
	"github.com/simonhull/imagemeta/internal/preserve"
	"github.com/simonhull/imagemeta/internal/schema"
	"github.com/simonhull/imagemeta/internal/types"
	"github.com/simonhull/imagemeta/internal/xmp"
)

// Parsed documents.
type (
	ExifDocument = exif.Document
	ExifTag      = exif.Tag
	GPSInfo      = exif.GPSInfo
	Rational     = exif.Rational
	SRational    = exif.SRational
	IPTCDocument = iptc.Document
	IPTCDataset  = iptc.Dataset
	XMPDocument  = xmp.Document
	TextEntry    = types.TextEntry
)

// XMP values.
type (
	QName     = xmp.QName
	Value     = xmp.Value
	Text      = xmp.Text
	Integer   = xmp.Integer
	Real      = xmp.Real
	Date      = xmp.Date
	LangAlt   = xmp.LangAlt
	Array     = xmp.Array
	Struct    = xmp.Struct
	ArrayForm = xmp.ArrayForm
)

// Well-known XMP namespace URIs.
const (
	NSDC        = xmp.NSDC
	NSXMP       = xmp.NSXMP
	NSXMPRights = xmp.NSXMPRights
	NSXMPMM     = xmp.NSXMPMM
	NSPhotoshop = xmp.NSPhotoshop
	NSTIFF      = xmp.NSTIFF
	NSEXIF      = xmp.NSEXIF
	NSIptcCore  = xmp.NSIptcCore
)

// Value kinds, used by schema properties.
type Kind = xmp.Kind

const (
	KindText    = xmp.KindText
	KindDate    = xmp.KindDate
	KindReal    = xmp.KindReal
	KindInteger = xmp.KindInteger
	KindLangAlt = xmp.KindLangAlt
	KindArray   = xmp.KindArray
	KindStruct  = xmp.KindStruct
)

// Array forms.
const (
	Seq = xmp.Seq
	Bag = xmp.Bag
	Alt = xmp.Alt
)

// Preservation.
type (
	Segment           = preserve.Segment
	PreservedMetadata = preserve.PreservedMetadata
	Modifications     = preserve.Modifications
	Content           = preserve.Content
	SegmentType       = types.SegmentType
	Location          = types.Location
)

// Segment types.
const (
	SegmentUnknown = types.SegmentUnknown
	SegmentExif    = types.SegmentExif
	SegmentIPTC    = types.SegmentIPTC
	SegmentXMP     = types.SegmentXMP
	SegmentText    = types.SegmentText
)

// Schema registry.
type (
	Registry        = schema.Registry
	Schema          = schema.Schema
	Property        = schema.Property
	Migration       = schema.Migration
	MigrationRecord = schema.MigrationRecord
)

// NewRegistry returns a registry holding the built-in EXIF tags, IPTC
// datasets and XMP schemas.
func NewRegistry() *Registry {
	return schema.NewDefault()
}

// WrapInStruct builds a migration for an XMP property that changed from a
// scalar to a struct. See schema.WrapInStruct.
func WrapInStruct(namespace, property string, from, to int, valueField, migratedAtField string) Migration {
	return schema.WrapInStruct(namespace, property, from, to, valueField, migratedAtField)
}

// NewModifications returns an empty change set for Reconstruct.
func NewModifications() *Modifications {
	return preserve.NewModifications()
}

// GetTag returns the first EXIF tag with the given name as T.
func GetTag[T any](doc *ExifDocument, name string) (T, bool) {
	if doc == nil {
		var zero T
		return zero, false
	}
	return exif.GetTag[T](doc, name)
}
