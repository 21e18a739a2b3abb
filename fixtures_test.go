package imagemeta_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// tiffOrientation is a big-endian TIFF block with Orientation = 1.
var tiffOrientation = []byte{
	'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08,
	0x00, 0x01,
	0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// iptcCaption is the IPTC stream for Caption = "Hello".
var iptcCaption = []byte{0x1C, 0x02, 0x78, 0x00, 0x05, 'H', 'e', 'l', 'l', 'o'}

const xmpPacket = `<x:xmpmeta xmlns:x="adobe:ns:meta/">` +
	`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">` +
	`<rdf:Description rdf:about="" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:xmp="http://ns.adobe.com/xap/1.0/">` +
	`<dc:title><rdf:Alt><rdf:li xml:lang="x-default">Harbour</rdf:li></rdf:Alt></dc:title>` +
	`<xmp:Rating>3</xmp:Rating>` +
	`</rdf:Description></rdf:RDF></x:xmpmeta>`

func jpegSegment(marker byte, body ...[]byte) []byte {
	payload := bytes.Join(body, nil)
	n := len(payload) + 2
	return append([]byte{0xFF, marker, byte(n >> 8), byte(n)}, payload...)
}

func photoshop(stream []byte) []byte {
	out := []byte("Photoshop 3.0\x008BIM\x04\x04\x00\x00")
	n := len(stream)
	out = append(out, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	out = append(out, stream...)
	if n%2 != 0 {
		out = append(out, 0)
	}
	return out
}

// sampleJPEG holds APP0, APP1 Exif, APP1 XMP, APP13 IPTC and a scan.
func sampleJPEG() []byte {
	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xD8})
	b.Write(jpegSegment(0xE0, []byte("JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")))
	b.Write(jpegSegment(0xE1, []byte("Exif\x00\x00"), tiffOrientation))
	b.Write(jpegSegment(0xE1, []byte("http://ns.adobe.com/xap/1.0/\x00"), []byte(xmpPacket)))
	b.Write(jpegSegment(0xED, photoshop(iptcCaption)))
	b.Write(jpegSegment(0xDB, bytes.Repeat([]byte{1}, 65)))
	b.Write(jpegSegment(0xDA, []byte{1, 1, 0, 0, 0x3F, 0}))
	b.Write([]byte{0x12, 0xFF, 0x00, 0x34, 0xFF, 0xD9})
	return b.Bytes()
}

// bareJPEG carries no metadata segments.
func bareJPEG() []byte {
	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xD8})
	b.Write(jpegSegment(0xDB, bytes.Repeat([]byte{1}, 65)))
	b.Write(jpegSegment(0xDA, []byte{1, 1, 0, 0, 0x3F, 0}))
	b.Write([]byte{0x12, 0x34, 0xFF, 0xD9})
	return b.Bytes()
}

// sampleTIFF is a little-endian TIFF with Orientation = 1.
var sampleTIFF = []byte{
	'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00,
	0x01, 0x00,
	0x12, 0x01, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// writeFixture writes data to name inside a fresh temp directory.
func writeFixture(tb testing.TB, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatal(err)
	}
	return path
}
