// Package png locates and frames metadata chunks in PNG files.
package png

import (
	"bytes"
	"context"
	"fmt"
	"hash/crc32"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/registry"
	"github.com/simonhull/imagemeta/internal/types"
)

// Signature opens every PNG file.
var Signature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

// XMPKeyword is the iTXt keyword that carries an XMP packet.
const XMPKeyword = "XML:com.adobe.xmp"

// Chunk framing: 4-byte length, 4-byte type, data, 4-byte CRC.
const (
	chunkHeaderSize = 8
	chunkCRCSize    = 4
	maxKeywordLen   = 79
)

func init() {
	registry.Register(types.FormatPNG, locator{})
	registry.RegisterFramer(types.FormatPNG, framer{})
}

type locator struct{}

// Locate walks chunks up to IEND.
func (locator) Locate(ctx context.Context, sr *binary.SafeReader) (*registry.Layout, error) {
	sig, err := sr.Slice(0, int64(len(Signature)), "PNG signature")
	if err != nil || !bytes.Equal(sig, Signature) {
		return nil, &types.CorruptedFileError{Path: sr.Label(), Reason: "invalid PNG signature"}
	}

	layout := &registry.Layout{InsertAt: int64(len(Signature))}
	offset := int64(len(Signature))
	for offset < sr.Size() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r := binary.NewReader(sr, offset)
		length, err := binary.ReadValue[uint32](r, "chunk length")
		var kind string
		if err == nil {
			kind, err = r.ReadString(4, "chunk type")
		}
		if err != nil {
			return nil, &types.CorruptedFileError{Path: sr.Label(), Offset: offset, Reason: err.Error()}
		}
		total := chunkHeaderSize + int64(length) + chunkCRCSize
		if !sr.InBounds(offset, total) {
			return nil, &types.CorruptedFileError{
				Path:   sr.Label(),
				Offset: offset,
				Reason: fmt.Sprintf("%s chunk length %d exceeds file", kind, length),
			}
		}

		data, err := sr.Slice(offset+chunkHeaderSize, int64(length), kind+" data")
		if err != nil {
			return nil, err
		}
		stored, err := binary.Read[uint32](sr, offset+chunkHeaderSize+int64(length), kind+" CRC")
		if err != nil {
			return nil, err
		}
		if stored != checksum(kind, data) {
			layout.Warnings = append(layout.Warnings, types.Warning{
				Stage:   "container",
				Message: fmt.Sprintf("%s chunk CRC mismatch", kind),
				Offset:  offset,
			})
		}

		if loc, ok := classify(kind, offset, data); ok {
			loc.Length = total
			layout.Segments = append(layout.Segments, loc)
		}

		if kind == "IHDR" {
			layout.InsertAt = offset + total
		}
		offset += total
		if kind == "IEND" {
			break
		}
	}
	return layout, nil
}

// classify maps a chunk to a metadata segment. PayloadOffset is absolute.
func classify(kind string, offset int64, data []byte) (types.Location, bool) {
	loc := types.Location{
		Type:          types.SegmentUnknown,
		Offset:        offset,
		PayloadOffset: offset + chunkHeaderSize,
		PayloadLength: int64(len(data)),
		Marker:        kind,
	}
	switch kind {
	case "eXIf":
		loc.Type = types.SegmentExif
		// Some writers keep the JPEG APP1 signature.
		if bytes.HasPrefix(data, []byte("Exif\x00\x00")) {
			loc.PayloadOffset += 6
			loc.PayloadLength -= 6
		}
	case "iCCP":
		// ICC profile, preserved raw.
	case "tEXt", "zTXt", "iTXt":
		t, ok := parseText(kind, data)
		if !ok {
			return loc, true
		}
		loc.Type = types.SegmentText
		if kind == "iTXt" && t.keyword == XMPKeyword {
			loc.Type = types.SegmentXMP
		}
		loc.Keyword = t.keyword
		loc.Language = t.language
		loc.Compressed = t.compressed
		loc.PayloadOffset += int64(t.start)
		loc.PayloadLength = int64(len(data) - t.start)
	default:
		return loc, false
	}
	return loc, true
}

type textHeader struct {
	keyword    string
	language   string
	compressed bool
	start      int // offset of the text within the chunk data
}

// parseText reads the keyword header of a text chunk.
//
//	tEXt: keyword 0 text
//	zTXt: keyword 0 method compressed-text
//	iTXt: keyword 0 flag method language 0 translated-keyword 0 text
func parseText(kind string, data []byte) (textHeader, bool) {
	nul := bytes.IndexByte(data, 0)
	if nul < 1 || nul > maxKeywordLen {
		return textHeader{}, false
	}
	h := textHeader{keyword: string(data[:nul]), start: nul + 1}
	switch kind {
	case "zTXt":
		if h.start >= len(data) || data[h.start] != 0 {
			return textHeader{}, false
		}
		h.compressed = true
		h.start++
	case "iTXt":
		if h.start+2 > len(data) {
			return textHeader{}, false
		}
		h.compressed = data[h.start] == 1
		if h.compressed && data[h.start+1] != 0 {
			return textHeader{}, false
		}
		rest := data[h.start+2:]
		langEnd := bytes.IndexByte(rest, 0)
		if langEnd < 0 {
			return textHeader{}, false
		}
		h.language = string(rest[:langEnd])
		transEnd := bytes.IndexByte(rest[langEnd+1:], 0)
		if transEnd < 0 {
			return textHeader{}, false
		}
		h.start += 2 + langEnd + 1 + transEnd + 1
	}
	return h, true
}

func checksum(kind string, data []byte) uint32 {
	crc := crc32.NewIEEE()
	crc.Write([]byte(kind))
	crc.Write(data)
	return crc.Sum32()
}
