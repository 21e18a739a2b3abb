// Package exif parses and encodes EXIF metadata stored as a TIFF structure.
package exif

import (
	"fmt"
	"slices"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/schema"
	"github.com/simonhull/imagemeta/internal/types"
)

// Tag is one IFD entry.
type Tag struct {
	Group schema.Group
	// IFD is the position in the main chain (0 for IFD0, 1 for the thumbnail
	// IFD). It is always 0 for sub-IFD groups.
	IFD   int
	ID    uint16
	Name  string // empty for unknown tags
	Type  schema.DataType
	Count uint32
	// Raw holds the value bytes in the document's byte order.
	Raw []byte
	// Offset is where Raw was read from in the source block; 0 for tags
	// set with WithTag.
	Offset int64
	// Value is the decoded form of Raw.
	Value any
}

// Document is a parsed EXIF block. Documents are immutable; WithTag and
// WithoutTag return modified copies.
type Document struct {
	Order binary.Endianness

	// Tags holds entries with a registry definition, in directory order.
	Tags []Tag

	// Unknown holds entries without a definition. They are kept verbatim so
	// Encode can write them back.
	Unknown []Tag

	GPS       *GPSInfo
	MakerNote *MakerNote
	Thumbnail []byte

	Warnings []types.Warning

	reg *schema.Registry
}

// NewDocument returns an empty document with the given byte order.
func NewDocument(reg *schema.Registry, order binary.Endianness) *Document {
	return &Document{Order: order, reg: reg}
}

// Tag returns the first entry with the given name. IFD0 entries are found
// before IFD1 entries of the same name.
func (d *Document) Tag(name string) (Tag, bool) {
	for _, t := range d.Tags {
		if t.Name == name {
			return t, true
		}
	}
	return Tag{}, false
}

// Lookup returns the entry with the given id in one directory, known or not.
func (d *Document) Lookup(g schema.Group, ifd int, id uint16) (Tag, bool) {
	for _, list := range [][]Tag{d.Tags, d.Unknown} {
		for _, t := range list {
			if t.Group == g && t.IFD == ifd && t.ID == id {
				return t, true
			}
		}
	}
	return Tag{}, false
}

// GetTag returns the decoded value of the named tag as T.
//
//	orientation, ok := exif.GetTag[uint16](doc, "Orientation")
func GetTag[T any](d *Document, name string) (T, bool) {
	var zero T
	t, ok := d.Tag(name)
	if !ok {
		return zero, false
	}
	v, ok := t.Value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Make returns the camera manufacturer, or "".
func (d *Document) Make() string {
	s, _ := GetTag[string](d, "Make")
	return s
}

func (d *Document) clone() *Document {
	out := *d
	out.Tags = slices.Clone(d.Tags)
	out.Unknown = slices.Clone(d.Unknown)
	out.Warnings = slices.Clone(d.Warnings)
	return &out
}

// WithTag returns a copy with the named tag set to v, encoded as the tag's
// registered type. Known tags of the main chain are written to IFD0.
func (d *Document) WithTag(name string, v any) (*Document, error) {
	if d.reg == nil {
		return nil, fmt.Errorf("exif: document has no registry")
	}
	def, ok := d.reg.TagByName(name)
	if !ok {
		return nil, fmt.Errorf("exif: unknown tag %q", name)
	}
	if isPointer(def.ID, def.Group) {
		return nil, fmt.Errorf("exif: %s is managed by the encoder", name)
	}
	raw, count, err := EncodeValue(def.Type, v, d.Order)
	if err != nil {
		return nil, fmt.Errorf("exif: %s: %w", name, err)
	}

	tag := Tag{
		Group: def.Group,
		ID:    def.ID,
		Name:  def.Name,
		Type:  def.Type,
		Count: count,
		Raw:   raw,
		Value: decodeValue(def.Type, count, raw, d.Order),
	}

	out := d.clone()
	i := slices.IndexFunc(out.Tags, func(t Tag) bool {
		return t.Group == tag.Group && t.IFD == 0 && t.ID == tag.ID
	})
	if i >= 0 {
		out.Tags[i] = tag
	} else {
		out.Tags = append(out.Tags, tag)
	}
	if def.Group == schema.GroupGPS {
		out.GPS = decodeGPS(out.Tags)
	}
	return out, nil
}

// WithoutTag returns a copy with every entry of the named tag removed.
func (d *Document) WithoutTag(name string) *Document {
	out := d.clone()
	out.Tags = slices.DeleteFunc(out.Tags, func(t Tag) bool { return t.Name == name })
	if name == "MakerNote" {
		out.MakerNote = nil
	}
	out.GPS = decodeGPS(out.Tags)
	return out
}

func isPointer(id uint16, g schema.Group) bool {
	switch {
	case g == schema.GroupImage && (id == schema.TagExifIFD || id == schema.TagGPSIFD):
		return true
	case g == schema.GroupImage && (id == schema.TagThumbnailStart || id == schema.TagThumbnailLen):
		return true
	case g == schema.GroupExif && id == schema.TagInteropIFD:
		return true
	}
	return false
}
