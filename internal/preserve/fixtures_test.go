package preserve

import (
	"bytes"

	"github.com/klauspost/compress/zlib"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/png"
	"github.com/simonhull/imagemeta/internal/webp"
)

// tiffOrientation is a big-endian TIFF block whose IFD0 holds one entry,
// Orientation = 1.
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
	`<rdf:Description rdf:about="" xmlns:dc="http://purl.org/dc/elements/1.1/">` +
	`<dc:title><rdf:Alt><rdf:li xml:lang="x-default">Harbour</rdf:li></rdf:Alt></dc:title>` +
	`</rdf:Description></rdf:RDF></x:xmpmeta>`

func jpegSegment(marker byte, body ...[]byte) []byte {
	payload := bytes.Join(body, nil)
	out := []byte{0xFF, marker}
	out = binary.Encode(out, uint16(len(payload)+2), binary.BigEndian)
	return append(out, payload...)
}

// photoshop wraps an IPTC stream in an APP13 body with one 8BIM block.
func photoshop(stream []byte) []byte {
	out := []byte("Photoshop 3.0\x008BIM\x04\x04\x00\x00")
	out = binary.Encode(out, uint32(len(stream)), binary.BigEndian)
	out = append(out, stream...)
	if len(stream)%2 != 0 {
		out = append(out, 0)
	}
	return out
}

// sampleJPEG holds, in order: APP0, APP1 Exif, APP1 XMP, APP13 IPTC, COM,
// then DQT and a scan.
func sampleJPEG(xmpBody string) []byte {
	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xD8})
	b.Write(jpegSegment(0xE0, []byte("JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")))
	b.Write(jpegSegment(0xE1, []byte("Exif\x00\x00"), tiffOrientation))
	b.Write(jpegSegment(0xE1, []byte("http://ns.adobe.com/xap/1.0/\x00"), []byte(xmpBody)))
	b.Write(jpegSegment(0xED, photoshop(iptcCaption)))
	b.Write(jpegSegment(0xFE, []byte("hello")))
	b.Write(jpegSegment(0xDB, bytes.Repeat([]byte{1}, 65)))
	b.Write(jpegSegment(0xDA, []byte{1, 1, 0, 0, 0x3F, 0}))
	b.Write([]byte{0x12, 0xFF, 0x00, 0x34, 0xFF, 0xD9})
	return b.Bytes()
}

func deflate(s string) []byte {
	var b bytes.Buffer
	zw := zlib.NewWriter(&b)
	zw.Write([]byte(s))
	zw.Close()
	return b.Bytes()
}

// samplePNG holds IHDR, tEXt, zTXt, eXIf, IDAT and IEND.
func samplePNG() []byte {
	ihdr := []byte{0, 0, 0, 1, 0, 0, 0, 1, 8, 2, 0, 0, 0}
	var b bytes.Buffer
	b.Write(png.Signature)
	b.Write(png.Chunk("IHDR", ihdr))
	b.Write(png.Chunk("tEXt", []byte("Title\x00Z\xfcrich")))
	b.Write(png.Chunk("zTXt", append([]byte("Comment\x00\x00"), deflate("squeezed")...)))
	b.Write(png.Chunk("eXIf", tiffOrientation))
	b.Write(png.Chunk("IDAT", []byte{0x78, 0x9C, 0x62, 0x00, 0x00}))
	b.Write(png.Chunk("IEND", nil))
	return b.Bytes()
}

// sampleWebP is an extended-format file whose VP8X flags match its chunks.
func sampleWebP() []byte {
	body := bytes.Join([][]byte{
		webp.Chunk("VP8X", []byte{0x08, 0, 0, 0, 63, 0, 0, 47, 0, 0}),
		webp.Chunk("VP8 ", []byte{0x30, 0x01, 0x00, 0x9D, 0x01, 0x2A, 64, 0, 48, 0, 0xAA, 0xBB}),
		webp.Chunk("EXIF", tiffOrientation),
	}, nil)
	out := []byte("RIFF")
	out = binary.Encode(out, uint32(4+len(body)), binary.LittleEndian)
	out = append(out, "WEBP"...)
	return append(out, body...)
}

// sampleTIFF is a little-endian TIFF with Orientation = 1.
var sampleTIFF = []byte{
	'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00,
	0x01, 0x00,
	0x12, 0x01, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}
