package iptc

import (
	"bytes"
	"testing"
	"time"
)

func TestParseCaption(t *testing.T) {
	data := []byte{0x1C, 0x02, 0x78, 0x00, 0x05, 0x48, 0x65, 0x6C, 0x6C, 0x6F}
	doc := Parse(data)

	got, ok := doc.String("Caption")
	if !ok || got != "Hello" {
		t.Errorf("Caption = %q, %v; want Hello", got, ok)
	}
	if len(doc.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", doc.Warnings)
	}
	if !bytes.Equal(Encode(doc), data) {
		t.Errorf("Encode() = % X, want % X", Encode(doc), data)
	}
}

func dataset(record, ds uint8, value string) []byte {
	return appendDataset(nil, record, ds, []byte(value))
}

func join(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func TestParseRepeatableAndTyped(t *testing.T) {
	data := join(
		dataset(2, 0, "\x00\x04"),
		dataset(2, 25, "cat"),
		dataset(2, 25, "dog"),
		dataset(2, 55, "20240315"),
		dataset(2, 60, "143000+0100"),
		dataset(2, 200, "\x01\x02"),
	)
	doc := Parse(data)

	if got := doc.Strings("Keywords"); len(got) != 2 || got[0] != "cat" || got[1] != "dog" {
		t.Errorf("Keywords = %v", got)
	}
	if v := doc.Values("ApplicationRecordVersion"); len(v) != 1 || v[0] != uint16(4) {
		t.Errorf("ApplicationRecordVersion = %v", v)
	}
	date, ok := doc.Date("DateCreated")
	if !ok || !date.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DateCreated = %v, %v", date, ok)
	}
	tm, ok := doc.Date("TimeCreated")
	if !ok || tm.Hour() != 14 || tm.Minute() != 30 {
		t.Errorf("TimeCreated = %v, %v", tm, ok)
	}

	unknown := doc.Unknown()
	if len(unknown) != 1 || unknown[0].Dataset != 200 || !bytes.Equal(unknown[0].Raw, []byte{1, 2}) {
		t.Errorf("Unknown() = %+v", unknown)
	}
	if !bytes.Equal(Encode(doc), data) {
		t.Error("Encode() does not reproduce the input")
	}
	if f := doc.Fields(); len(f["Keywords"]) != 2 {
		t.Errorf("Fields()[Keywords] = %v", f["Keywords"])
	}
}

func TestParseDuplicatePolicy(t *testing.T) {
	data := join(dataset(2, 5, "first"), dataset(2, 5, "second"))

	tests := []struct {
		policy DuplicatePolicy
		want   string
	}{
		{LastWins, "second"},
		{FirstWins, "first"},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			doc := Parse(data, WithDuplicatePolicy(tt.policy))
			if got := doc.Strings("ObjectName"); len(got) != 1 || got[0] != tt.want {
				t.Errorf("ObjectName = %v, want [%s]", got, tt.want)
			}
			if len(doc.Warnings) != 1 {
				t.Errorf("Warnings = %v, want one duplicate warning", doc.Warnings)
			}
		})
	}
}

func TestParseExtendedLength(t *testing.T) {
	value := bytes.Repeat([]byte("x"), 40000)
	data := appendDataset(nil, 2, 120, value)
	if data[3] != 0x80 || data[4] != 0x04 {
		t.Fatalf("header = % X, want extended form", data[:9])
	}

	doc := Parse(data)
	got, _ := doc.String("Caption")
	if len(got) != len(value) {
		t.Errorf("Caption length = %d, want %d", len(got), len(value))
	}
	if len(doc.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", doc.Warnings)
	}
}

func TestParseCharsets(t *testing.T) {
	latin1 := Parse(dataset(2, 90, "Z\xfcrich"))
	if got, _ := latin1.String("City"); got != "Zürich" {
		t.Errorf("Latin-1 City = %q", got)
	}

	utf8 := Parse(join(dataset(1, 90, "\x1b%G"), dataset(2, 90, "Zürich")))
	if !utf8.UTF8 {
		t.Error("UTF8 = false after 1:90 ESC % G")
	}
	if got, _ := utf8.String("City"); got != "Zürich" {
		t.Errorf("UTF-8 City = %q", got)
	}
}

func TestParseNeverFails(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage only", []byte("not iptc at all")},
		{"truncated header", []byte{0x1C, 0x02}},
		{"length past end", []byte{0x1C, 0x02, 0x78, 0x00, 0x10, 'a'}},
		{"bad extended size", []byte{0x1C, 0x02, 0x78, 0x80, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Parse(tt.data)
			if doc == nil {
				t.Fatal("Parse() = nil")
			}
			if len(tt.data) > 0 && len(doc.Warnings) == 0 {
				t.Error("expected a warning")
			}
		})
	}
}

func TestParseResyncsAfterBadHeader(t *testing.T) {
	bad := []byte{0x1C, 0x02, 0x78, 0x80, 0x00} // extended length of size 0
	data := join(bad, dataset(2, 25, "boats"), dataset(2, 120, "ok"))

	doc := Parse(data)
	if got, _ := doc.String("Caption"); got != "ok" {
		t.Errorf("Caption = %q, want ok", got)
	}
	if got, _ := doc.String("Keywords"); got != "boats" {
		t.Errorf("Keywords = %q, want boats", got)
	}
	if len(doc.Warnings) != 1 || doc.Warnings[0].Offset != 0 {
		t.Errorf("Warnings = %v, want one at offset 0", doc.Warnings)
	}
}

func TestParseSkipsGarbage(t *testing.T) {
	data := join([]byte{0x00, 0x00}, dataset(2, 120, "ok"))
	doc := Parse(data)
	if got, _ := doc.String("Caption"); got != "ok" {
		t.Errorf("Caption = %q", got)
	}
	if len(doc.Warnings) != 1 || doc.Warnings[0].Offset != 0 {
		t.Errorf("Warnings = %v", doc.Warnings)
	}
}

func TestWith(t *testing.T) {
	doc := Parse(join(dataset(2, 5, "title"), dataset(2, 120, "old")))

	updated, err := doc.With("Caption", "new")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := updated.String("Caption"); got != "new" {
		t.Errorf("Caption = %q", got)
	}
	if got, _ := doc.String("Caption"); got != "old" {
		t.Error("With modified its receiver")
	}

	updated, err = updated.With("Keywords", "a", "b")
	if err != nil {
		t.Fatal(err)
	}
	reparsed := Parse(Encode(updated))
	if got := reparsed.Strings("Keywords"); len(got) != 2 {
		t.Errorf("Keywords = %v", got)
	}

	if _, err := doc.With("Caption", "a", "b"); err == nil {
		t.Error("With accepted two values for a non-repeatable dataset")
	}
	if _, err := doc.With("NoSuchDataset", "x"); err == nil {
		t.Error("With accepted an unknown dataset")
	}
	if _, err := doc.With("DateCreated", 12); err == nil {
		t.Error("With accepted an int date")
	}

	removed := reparsed.Without("Keywords")
	if len(removed.Strings("Keywords")) != 0 {
		t.Error("Without left Keywords")
	}
}

func TestWithSwitchesToUTF8(t *testing.T) {
	doc := Parse(dataset(2, 90, "Z\xfcrich"))
	updated, err := doc.With("Caption", "東京")
	if err != nil {
		t.Fatal(err)
	}
	if !updated.UTF8 {
		t.Fatal("UTF8 = false after adding CJK text")
	}

	reparsed := Parse(Encode(updated))
	if !reparsed.UTF8 {
		t.Error("1:90 declaration not written")
	}
	if got, _ := reparsed.String("City"); got != "Zürich" {
		t.Errorf("City = %q after re-encoding", got)
	}
	if got, _ := reparsed.String("Caption"); got != "東京" {
		t.Errorf("Caption = %q", got)
	}
	if first := reparsed.Datasets[0]; first.Record != 1 || first.Dataset != 90 {
		t.Errorf("first dataset = %d:%d, want 1:90", first.Record, first.Dataset)
	}
}
