package imagemeta

import (
	"context"
	"io"

	"github.com/simonhull/imagemeta/internal/exif"
	"github.com/simonhull/imagemeta/internal/iptc"
	"github.com/simonhull/imagemeta/internal/preserve"
	"github.com/simonhull/imagemeta/internal/schema"
	"github.com/simonhull/imagemeta/internal/xmp"
)

// schemaRegistry returns the configured registry or the built-in one.
func (o *openOptions) schemaRegistry() *schema.Registry {
	if o.registry != nil {
		return o.registry
	}
	return schema.NewDefault()
}

// Extract locates and parses every metadata segment of the container in r.
func Extract(ctx context.Context, r io.ReaderAt, size int64, opts ...Option) (*PreservedMetadata, error) {
	return newOptions(opts).manager().Extract(ctx, r, size)
}

// Reconstruct writes the container in r with mods applied. pm must have
// been extracted from r. A nil mods reproduces the original bytes.
func Reconstruct(ctx context.Context, r io.ReaderAt, size int64, pm *PreservedMetadata, mods *Modifications, opts ...Option) ([]byte, error) {
	return newOptions(opts).manager().Reconstruct(ctx, r, size, pm, mods)
}

// Snapshot flattens extracted metadata into a version document.
func Snapshot(pm *PreservedMetadata) VersionDocument {
	return preserve.Snapshot(pm)
}

// ParseExif decodes a TIFF-structured EXIF block (without the "Exif\0\0"
// prefix JPEG adds).
func ParseExif(ctx context.Context, data []byte, opts ...Option) (*ExifDocument, error) {
	o := newOptions(opts)
	return exif.NewParser(o.schemaRegistry(), o.exifOptions()...).Parse(ctx, data)
}

// EncodeExif serializes doc as a TIFF structure.
func EncodeExif(doc *ExifDocument) ([]byte, error) {
	return exif.Encode(doc)
}

// ParseIPTC decodes an IPTC-IIM dataset stream. It never fails; problems
// are recorded in the document's Warnings.
func ParseIPTC(data []byte, opts ...Option) *IPTCDocument {
	o := newOptions(opts)
	return iptc.Parse(data,
		iptc.WithRegistry(o.schemaRegistry()),
		iptc.WithDuplicatePolicy(o.duplicates),
	)
}

// EncodeIPTC serializes doc as a dataset stream.
func EncodeIPTC(doc *IPTCDocument) []byte {
	return iptc.Encode(doc)
}

// XMPSerializeOptions is an alias to xmp.SerializeOptions.
type XMPSerializeOptions = xmp.SerializeOptions

// ParseXMP decodes an XMP packet. Scalars are typed by the registry's
// schemas.
func ParseXMP(data []byte, opts ...Option) (*XMPDocument, error) {
	o := newOptions(opts)
	popts := append([]xmp.Option{xmp.WithResolver(o.schemaRegistry())}, o.xmpOptions()...)
	return xmp.Parse(data, popts...)
}

// SerializeXMP writes doc as an XMP packet. Without a resolver in so, the
// built-in registry decides which scalars need an rdf:datatype. A document
// naming no toolkit is written with Toolkit.
func SerializeXMP(doc *XMPDocument, so XMPSerializeOptions) ([]byte, error) {
	if so.Resolver == nil {
		so.Resolver = schema.NewDefault()
	}
	if doc.Toolkit == "" {
		doc = doc.Clone()
		doc.Toolkit = Toolkit
	}
	return xmp.Serialize(doc, so)
}

// NewXMPDocument returns an empty XMP document.
func NewXMPDocument() *XMPDocument {
	return xmp.NewDocument()
}
