package schema

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/simonhull/imagemeta/internal/xmp"
)

func TestDefaultTables(t *testing.T) {
	r := NewDefault()

	tag, ok := r.Tag(GroupImage, 0x0112)
	if !ok || tag.Name != "Orientation" || tag.Type != TypeShort {
		t.Errorf("Tag(Image, 0x0112) = %+v, %v", tag, ok)
	}
	if _, ok := r.Tag(GroupExif, 0x0112); ok {
		t.Error("Orientation should not resolve in the Exif group")
	}
	gps, ok := r.TagByName("GPSLatitude")
	if !ok || gps.Group != GroupGPS || gps.ID != 0x0002 {
		t.Errorf("TagByName(GPSLatitude) = %+v, %v", gps, ok)
	}

	ds, ok := r.Dataset(2, 120)
	if !ok || ds.Name != "Caption" {
		t.Errorf("Dataset(2, 120) = %+v, %v", ds, ok)
	}
	kw, ok := r.DatasetByName("Keywords")
	if !ok || !kw.Repeatable {
		t.Errorf("Keywords = %+v, %v; want repeatable", kw, ok)
	}

	if p, ok := r.Prefix(xmp.NSDC); !ok || p != "dc" {
		t.Errorf("Prefix(dc) = %q, %v", p, ok)
	}
}

func TestTagNamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, tag := range exifTags {
		if seen[tag.Name] {
			t.Errorf("duplicate tag name %q", tag.Name)
		}
		seen[tag.Name] = true
	}
	seen = make(map[string]bool)
	for _, d := range iptcDatasets {
		if seen[d.Name] {
			t.Errorf("duplicate dataset name %q", d.Name)
		}
		seen[d.Name] = true
	}
}

func TestScalarKind(t *testing.T) {
	r := NewDefault()
	tests := []struct {
		name  xmp.QName
		want  xmp.Kind
		found bool
	}{
		{xmp.QName{Space: xmp.NSXMP, Local: "Rating"}, xmp.KindInteger, true},
		{xmp.QName{Space: xmp.NSDC, Local: "title"}, xmp.KindLangAlt, true},
		{xmp.QName{Space: xmp.NSDC, Local: "date"}, xmp.KindDate, true},
		{xmp.QName{Space: xmp.NSDC, Local: "nope"}, 0, false},
		{xmp.QName{Space: "http://example.com/", Local: "x"}, 0, false},
	}
	for _, tt := range tests {
		got, ok := r.ScalarKind(tt.name)
		if ok != tt.found || (ok && got != tt.want) {
			t.Errorf("ScalarKind(%s) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.found)
		}
	}
}

func TestValidate(t *testing.T) {
	r := NewDefault()
	rating := xmp.QName{Space: xmp.NSXMP, Local: "Rating"}
	format := xmp.QName{Space: xmp.NSDC, Local: "format"}
	subject := xmp.QName{Space: xmp.NSDC, Local: "subject"}
	country := xmp.QName{Space: xmp.NSIptcCore, Local: "CountryCode"}

	tests := []struct {
		name  string
		props map[xmp.QName]xmp.Value
		want  []ValidationCode
	}{
		{
			name: "valid",
			props: map[xmp.QName]xmp.Value{
				rating:  xmp.Integer(4),
				format:  xmp.Text("image/jpeg"),
				subject: xmp.Array{Form: xmp.Bag, Items: []xmp.Value{xmp.Text("cat")}},
				country: xmp.Text("US"),
			},
		},
		{
			name:  "rating out of range",
			props: map[xmp.QName]xmp.Value{rating: xmp.Integer(9)},
			want:  []ValidationCode{ValidationInvalid},
		},
		{
			name:  "wrong kind",
			props: map[xmp.QName]xmp.Value{rating: xmp.Text("five")},
			want:  []ValidationCode{ValidationKind},
		},
		{
			name: "wrong array form",
			props: map[xmp.QName]xmp.Value{
				subject: xmp.Array{Form: xmp.Seq, Items: []xmp.Value{xmp.Text("cat")}},
			},
			want: []ValidationCode{ValidationKind},
		},
		{
			name: "two failures",
			props: map[xmp.QName]xmp.Value{
				format:  xmp.Text("jpeg"),
				country: xmp.Text("U"),
			},
			want: []ValidationCode{ValidationInvalid, ValidationInvalid},
		},
		{
			name: "unknown namespace accepted",
			props: map[xmp.QName]xmp.Value{
				{Space: "http://example.com/ns/", Local: "anything"}: xmp.Integer(1),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := xmp.NewDocument()
			for q, v := range tt.props {
				doc = doc.With(q, v)
			}
			errs := r.Validate(doc)
			if len(errs) != len(tt.want) {
				t.Fatalf("Validate() = %v, want %d errors", errs, len(tt.want))
			}
			for i, e := range errs {
				if e.Code != tt.want[i] {
					t.Errorf("errs[%d].Code = %s, want %s", i, e.Code, tt.want[i])
				}
			}
		})
	}
}

func TestValidateRequired(t *testing.T) {
	const ns = "http://example.com/asset/1.0/"
	r := NewDefault()
	err := r.RegisterSchema(Schema{
		Namespace: ns,
		Prefix:    "asset",
		Properties: map[string]Property{
			"id":    {Kind: xmp.KindText, Required: true},
			"notes": {Kind: xmp.KindText},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Schemas the document does not touch impose nothing.
	if errs := r.Validate(xmp.NewDocument()); len(errs) != 0 {
		t.Errorf("empty document: %v", errs)
	}

	doc := xmp.NewDocument().With(xmp.QName{Space: ns, Local: "notes"}, xmp.Text("x"))
	errs := r.Validate(doc)
	if len(errs) != 1 || errs[0].Code != ValidationMissing || errs[0].Property != "id" {
		t.Errorf("Validate() = %v, want missing id", errs)
	}
}

func TestValidateNeverPanics(t *testing.T) {
	const ns = "http://example.com/asset/1.0/"
	r := NewDefault()
	err := r.RegisterSchema(Schema{
		Namespace: ns,
		Prefix:    "asset",
		Properties: map[string]Property{
			"id": {Kind: xmp.KindText, Validate: func(xmp.Value) error { panic("boom") }},
			"tags": {Kind: xmp.KindArray, Form: xmp.Bag, ItemKind: xmp.KindText,
				Validate: func(xmp.Value) error { panic("boom") }},
			"notes": {Kind: xmp.KindText},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	doc := xmp.NewDocument()
	doc.Properties[xmp.QName{Space: ns, Local: "id"}] = xmp.Text("A-1")
	doc.Properties[xmp.QName{Space: ns, Local: "tags"}] = xmp.Array{Form: xmp.Bag, Items: []xmp.Value{xmp.Text("x")}}
	doc.Properties[xmp.QName{Space: ns, Local: "notes"}] = nil

	errs := r.Validate(doc)
	want := map[string]ValidationCode{"id": ValidationInvalid, "tags": ValidationInvalid, "notes": ValidationKind}
	if len(errs) != len(want) {
		t.Fatalf("Validate() = %v, want %d errors", errs, len(want))
	}
	for _, e := range errs {
		if want[e.Property] != e.Code {
			t.Errorf("%s: code = %s, want %s", e.Property, e.Code, want[e.Property])
		}
	}
}

func TestMigrateWrapInStruct(t *testing.T) {
	const ns = "http://example.com/asset/1.0/"
	r := NewDefault()
	if err := r.RegisterSchema(Schema{
		Namespace: ns,
		Prefix:    "asset",
		Version:   2,
		Properties: map[string]Property{
			"owner": {Kind: xmp.KindStruct},
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterMigration(WrapInStruct(ns, "owner", 1, 2, "name", "migratedAt")); err != nil {
		t.Fatal(err)
	}

	owner := xmp.QName{Space: ns, Local: "owner"}
	old := xmp.NewDocument().With(owner, xmp.Text("Ada"))
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	got, records, err := r.Migrate(old, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].FromVersion != 1 || records[0].ToVersion != 2 {
		t.Errorf("records = %+v", records)
	}
	s, ok := got.Properties[owner].(xmp.Struct)
	if !ok {
		t.Fatalf("owner = %#v, want struct", got.Properties[owner])
	}
	if s[xmp.QName{Space: ns, Local: "name"}] != xmp.Text("Ada") {
		t.Errorf("name field = %v", s[xmp.QName{Space: ns, Local: "name"}])
	}
	d, ok := s[xmp.QName{Space: ns, Local: "migratedAt"}].(xmp.Date)
	if !ok || !d.Time.Equal(now) {
		t.Errorf("migratedAt = %v", s[xmp.QName{Space: ns, Local: "migratedAt"}])
	}
	if _, ok := old.Properties[owner].(xmp.Text); !ok {
		t.Error("input document was modified")
	}
	if errs := r.Validate(got); len(errs) != 0 {
		t.Errorf("migrated document invalid: %v", errs)
	}

	// Already migrated content is left alone.
	_, records, err = r.Migrate(got, now)
	if err != nil || len(records) != 0 {
		t.Errorf("second Migrate() = %v, %v", records, err)
	}
}

func TestRegisterMigrationRejects(t *testing.T) {
	r := NewDefault()
	tests := []struct {
		name string
		m    Migration
	}{
		{"backwards", WrapInStruct(xmp.NSDC, "source", 2, 1, "v", "at")},
		{"beyond schema version", WrapInStruct(xmp.NSDC, "source", 1, 3, "v", "at")},
		{"unknown namespace", WrapInStruct("http://nowhere/", "x", 1, 2, "v", "at")},
		{"no functions", Migration{Namespace: xmp.NSDC, FromVersion: 0, ToVersion: 1}},
	}
	for _, tt := range tests {
		if err := r.RegisterMigration(tt.m); !errors.Is(err, ErrInvalidMigration) {
			t.Errorf("%s: err = %v, want ErrInvalidMigration", tt.name, err)
		}
	}
}

func TestRegistryConcurrentReads(t *testing.T) {
	r := NewDefault()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 200 {
				if i == 0 && j%20 == 0 {
					_ = r.RegisterTag(TagDefinition{ID: uint16(0xC000 + j), Name: "Private" + string(rune('A'+j/20)), Group: GroupImage, Type: TypeLong})
					continue
				}
				if _, ok := r.Tag(GroupImage, 0x010F); !ok {
					t.Error("Make disappeared during concurrent registration")
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if _, ok := r.TagByName("PrivateA"); !ok {
		t.Error("registered tag missing")
	}
}
