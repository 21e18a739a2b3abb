package preserve

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/simonhull/imagemeta/internal/exif"
	"github.com/simonhull/imagemeta/internal/iptc"
	"github.com/simonhull/imagemeta/internal/schema"
	"github.com/simonhull/imagemeta/internal/version"
	"github.com/simonhull/imagemeta/internal/xmp"
)

// Snapshot namespaces for non-XMP metadata.
const (
	NamespaceIFD0    = "exif:IFD0"
	NamespaceExif    = "exif:Exif"
	NamespaceGPS     = "exif:GPS"
	NamespaceInterop = "exif:Interop"
	NamespaceIPTC    = "iptc"
)

// Snapshot flattens the parsed metadata into a version document. Named EXIF
// tags of IFD0 and the Exif, GPS and Interop directories, IPTC datasets and
// XMP properties are included; thumbnail IFD tags, unknown tags and unparsed
// segments are not. When several segments of a type exist, the first one
// wins.
func Snapshot(pm *PreservedMetadata) version.Document {
	doc := make(version.Document)
	if e := pm.Exif(); e != nil {
		addExif(doc, e)
	}
	if i := pm.IPTC(); i != nil {
		addIPTC(doc, i)
	}
	if x := pm.XMP(); x != nil {
		for ns, props := range version.FromXMP(x) {
			doc[ns] = props
		}
	}
	return doc
}

func exifNamespace(t exif.Tag) (string, bool) {
	switch t.Group {
	case schema.GroupExif:
		return NamespaceExif, true
	case schema.GroupGPS:
		return NamespaceGPS, true
	case schema.GroupInterop:
		return NamespaceInterop, true
	default:
		return NamespaceIFD0, t.IFD == 0
	}
}

func addExif(doc version.Document, e *exif.Document) {
	for _, t := range e.Tags {
		ns, ok := exifNamespace(t)
		if !ok || t.Name == "" {
			continue
		}
		v := exifValue(t.Value)
		if v == nil {
			continue
		}
		props, ok := doc[ns]
		if !ok {
			props = make(version.Properties)
			doc[ns] = props
		}
		props[t.Name] = v
	}
}

// exifValue maps decoded tag values onto XMP values. Rationals become
// "num/den" text as in the XMP exif namespace.
func exifValue(v any) xmp.Value {
	switch x := v.(type) {
	case string:
		return xmp.Text(x)
	case []byte:
		return bytesValue(x)
	case exif.Rational, exif.SRational:
		return xmp.Text(fmt.Sprint(x))
	case float32:
		return xmp.Real(x)
	case float64:
		return xmp.Real(x)
	case uint8:
		return xmp.Integer(x)
	case uint16:
		return xmp.Integer(x)
	case uint32:
		return xmp.Integer(x)
	case int8:
		return xmp.Integer(x)
	case int16:
		return xmp.Integer(x)
	case int32:
		return xmp.Integer(x)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil
	}
	arr := xmp.Array{Form: xmp.Seq}
	for i := range rv.Len() {
		item := exifValue(rv.Index(i).Interface())
		if item == nil {
			return nil
		}
		arr.Items = append(arr.Items, item)
	}
	return arr
}

// bytesValue keeps printable byte strings (ExifVersion "0231") readable and
// hex-encodes the rest.
func bytesValue(b []byte) xmp.Value {
	if utf8.Valid(b) {
		printable := true
		for _, r := range string(b) {
			if !unicode.IsPrint(r) {
				printable = false
				break
			}
		}
		if printable {
			return xmp.Text(b)
		}
	}
	return xmp.Text("0x" + hex.EncodeToString(b))
}

func addIPTC(doc version.Document, d *iptc.Document) {
	fields := d.Fields()
	if len(fields) == 0 {
		return
	}
	props := make(version.Properties, len(fields))
	for name, values := range fields {
		items := make([]xmp.Value, 0, len(values))
		for _, v := range values {
			items = append(items, iptcValue(v))
		}
		if len(items) == 1 {
			props[name] = items[0]
		} else {
			props[name] = xmp.Array{Form: xmp.Seq, Items: items}
		}
	}
	doc[NamespaceIPTC] = props
}

func iptcValue(v any) xmp.Value {
	switch x := v.(type) {
	case string:
		return xmp.Text(x)
	case uint16:
		return xmp.Integer(x)
	case []byte:
		return bytesValue(x)
	case time.Time:
		if x.Year() == 0 {
			// TimeCreated and friends carry no date.
			return xmp.Text(x.Format("15:04:05-07:00"))
		}
		return xmp.Date{Time: x, Raw: x.Format("2006-01-02")}
	default:
		return xmp.Text(fmt.Sprint(x))
	}
}
