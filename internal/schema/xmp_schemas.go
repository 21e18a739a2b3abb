package schema

import (
	"fmt"
	"strings"

	"github.com/simonhull/imagemeta/internal/xmp"
)

func text() Property    { return Property{Kind: xmp.KindText} }
func date() Property    { return Property{Kind: xmp.KindDate} }
func integer() Property { return Property{Kind: xmp.KindInteger} }
func double() Property  { return Property{Kind: xmp.KindReal} }
func langAlt() Property { return Property{Kind: xmp.KindLangAlt} }

func array(form xmp.ArrayForm, item xmp.Kind) Property {
	return Property{Kind: xmp.KindArray, Form: form, ItemKind: item}
}

func (p Property) with(v Validator) Property {
	p.Validate = v
	return p
}

// IntRange accepts Integer (or integral Real) values within [lo, hi].
func IntRange(lo, hi int64) Validator {
	return func(v xmp.Value) error {
		var n int64
		switch x := v.(type) {
		case xmp.Integer:
			n = int64(x)
		case xmp.Real:
			if float64(x) != float64(int64(x)) {
				return fmt.Errorf("%v is not an integer", float64(x))
			}
			n = int64(x)
		default:
			return fmt.Errorf("expected an integer, got %s", v.Kind())
		}
		if n < lo || n > hi {
			return fmt.Errorf("%d is outside %d..%d", n, lo, hi)
		}
		return nil
	}
}

// MIMEType accepts text of the form type/subtype.
func MIMEType(v xmp.Value) error {
	t, ok := v.(xmp.Text)
	if !ok {
		return fmt.Errorf("expected text, got %s", v.Kind())
	}
	major, minor, found := strings.Cut(string(t), "/")
	if !found || major == "" || minor == "" || strings.ContainsAny(string(t), " \t") {
		return fmt.Errorf("%q is not a MIME type", string(t))
	}
	return nil
}

// TextLength accepts text whose length in runes is within [lo, hi].
func TextLength(lo, hi int) Validator {
	return func(v xmp.Value) error {
		t, ok := v.(xmp.Text)
		if !ok {
			return fmt.Errorf("expected text, got %s", v.Kind())
		}
		n := len([]rune(string(t)))
		if n < lo || n > hi {
			return fmt.Errorf("length %d is outside %d..%d", n, lo, hi)
		}
		return nil
	}
}

func defaultSchemas() []*Schema {
	list := []*Schema{
		{
			Namespace: xmp.NSDC, Prefix: "dc", Version: 1,
			Properties: map[string]Property{
				"contributor": array(xmp.Bag, xmp.KindText),
				"coverage":    text(),
				"creator":     array(xmp.Seq, xmp.KindText),
				"date":        array(xmp.Seq, xmp.KindDate),
				"description": langAlt(),
				"format":      text().with(MIMEType),
				"identifier":  text(),
				"language":    array(xmp.Bag, xmp.KindText),
				"publisher":   array(xmp.Bag, xmp.KindText),
				"relation":    array(xmp.Bag, xmp.KindText),
				"rights":      langAlt(),
				"source":      text(),
				"subject":     array(xmp.Bag, xmp.KindText),
				"title":       langAlt(),
				"type":        array(xmp.Bag, xmp.KindText),
			},
		},
		{
			Namespace: xmp.NSXMP, Prefix: "xmp", Version: 1,
			Properties: map[string]Property{
				"CreateDate":   date(),
				"CreatorTool":  text(),
				"Identifier":   array(xmp.Bag, xmp.KindText),
				"Label":        text(),
				"MetadataDate": date(),
				"ModifyDate":   date(),
				"Nickname":     text(),
				"Rating":       integer().with(IntRange(-1, 5)),
			},
		},
		{
			Namespace: xmp.NSXMPRights, Prefix: "xmpRights", Version: 1,
			Properties: map[string]Property{
				"Certificate":  text(),
				"Marked":       text(),
				"Owner":        array(xmp.Bag, xmp.KindText),
				"UsageTerms":   langAlt(),
				"WebStatement": text(),
			},
		},
		{
			Namespace: xmp.NSXMPMM, Prefix: "xmpMM", Version: 1,
			Properties: map[string]Property{
				"DocumentID":         text(),
				"InstanceID":         text(),
				"OriginalDocumentID": text(),
				"RenditionClass":     text(),
				"VersionID":          text(),
			},
		},
		{
			Namespace: xmp.NSPhotoshop, Prefix: "photoshop", Version: 1,
			Properties: map[string]Property{
				"AuthorsPosition":        text(),
				"CaptionWriter":          text(),
				"Category":               text().with(TextLength(0, 3)),
				"City":                   text(),
				"ColorMode":              integer(),
				"Country":                text(),
				"Credit":                 text(),
				"DateCreated":            date(),
				"Headline":               text(),
				"ICCProfile":             text(),
				"Instructions":           text(),
				"Source":                 text(),
				"State":                  text(),
				"SupplementalCategories": array(xmp.Bag, xmp.KindText),
				"TransmissionReference":  text(),
				"Urgency":                integer().with(IntRange(0, 8)),
			},
		},
		{
			Namespace: xmp.NSTIFF, Prefix: "tiff", Version: 1,
			Properties: map[string]Property{
				"Artist":           text(),
				"Copyright":        langAlt(),
				"DateTime":         date(),
				"ImageDescription": langAlt(),
				"ImageLength":      integer(),
				"ImageWidth":       integer(),
				"Make":             text(),
				"Model":            text(),
				"Orientation":      integer().with(IntRange(1, 8)),
				"ResolutionUnit":   integer(),
				"Software":         text(),
				"XResolution":      text(),
				"YResolution":      text(),
			},
		},
		{
			Namespace: xmp.NSEXIF, Prefix: "exif", Version: 1,
			Properties: map[string]Property{
				"BrightnessValue":   double(),
				"DateTimeDigitized": date(),
				"DateTimeOriginal":  date(),
				"ExposureBiasValue": double(),
				"ExposureTime":      text(),
				"FNumber":           text(),
				"FocalLength":       text(),
				"GPSAltitude":       text(),
				"GPSLatitude":       text(),
				"GPSLongitude":      text(),
				"ISOSpeedRatings":   array(xmp.Seq, xmp.KindInteger),
				"PixelXDimension":   integer(),
				"PixelYDimension":   integer(),
				"UserComment":       langAlt(),
			},
		},
		{
			Namespace: xmp.NSIptcCore, Prefix: "Iptc4xmpCore", Version: 1,
			Properties: map[string]Property{
				"CountryCode":           text().with(TextLength(2, 3)),
				"CreatorContactInfo":    {Kind: xmp.KindStruct},
				"ExtDescrAccessibility": langAlt(),
				"IntellectualGenre":     text(),
				"Location":              text(),
				"Scene":                 array(xmp.Bag, xmp.KindText),
				"SubjectCode":           array(xmp.Bag, xmp.KindText),
			},
		},
	}
	for _, sc := range list {
		for name, p := range sc.Properties {
			p.Name = name
			sc.Properties[name] = p
		}
	}
	return list
}
