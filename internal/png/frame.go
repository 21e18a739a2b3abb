package png

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/charmap"

	"github.com/simonhull/imagemeta/internal/binary"
	"github.com/simonhull/imagemeta/internal/types"
)

type framer struct{}

// Frame builds a chunk for the payload. Text keeps the chunk kind it came
// from unless the value leaves Latin-1, in which case tEXt and zTXt are
// promoted to iTXt.
func (framer) Frame(loc types.Location, original, payload []byte) ([]byte, error) {
	switch loc.Type {
	case types.SegmentExif:
		return Chunk("eXIf", payload), nil
	case types.SegmentXMP:
		return textChunk("iTXt", XMPKeyword, "", false, payload)
	case types.SegmentText:
		keyword := loc.Keyword
		if keyword == "" {
			keyword = "Comment"
		}
		kind := loc.Marker
		if kind != "zTXt" && kind != "iTXt" {
			kind = "tEXt"
		}
		return textChunk(kind, keyword, loc.Language, loc.Compressed || kind == "zTXt", payload)
	default:
		return nil, &types.UnsupportedWriteError{
			Format: types.FormatPNG,
			Reason: fmt.Sprintf("no chunk carries %s metadata", loc.Type),
		}
	}
}

// Finalize has nothing to fix up: every chunk carries its own CRC.
func (framer) Finalize(out []byte) ([]byte, error) {
	return out, nil
}

// Chunk frames data as a PNG chunk with its CRC.
func Chunk(kind string, data []byte) []byte {
	out := make([]byte, 0, chunkHeaderSize+len(data)+chunkCRCSize)
	out = binary.Encode(out, uint32(len(data)), binary.BigEndian)
	out = append(out, kind...)
	out = append(out, data...)
	return binary.Encode(out, checksum(kind, data), binary.BigEndian)
}

func textChunk(kind, keyword, language string, compress bool, text []byte) ([]byte, error) {
	if len(keyword) == 0 || len(keyword) > maxKeywordLen {
		return nil, fmt.Errorf("png: keyword %q must be 1-%d bytes", keyword, maxKeywordLen)
	}

	var latin1 []byte
	if kind != "iTXt" {
		var err error
		if latin1, err = charmap.ISO8859_1.NewEncoder().Bytes(text); err != nil {
			kind = "iTXt"
		}
	}

	data := append([]byte(keyword), 0)
	switch kind {
	case "tEXt":
		data = append(data, latin1...)
	case "zTXt":
		z, err := deflate(latin1)
		if err != nil {
			return nil, err
		}
		data = append(data, 0)
		data = append(data, z...)
	default:
		body := text
		flag := byte(0)
		if compress {
			z, err := deflate(text)
			if err != nil {
				return nil, err
			}
			body, flag = z, 1
		}
		data = append(data, flag, 0)
		data = append(data, language...)
		data = append(data, 0, 0) // language terminator, empty translated keyword
		data = append(data, body...)
		kind = "iTXt"
	}
	return Chunk(kind, data), nil
}

func deflate(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, fmt.Errorf("png: compress text: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("png: compress text: %w", err)
	}
	return buf.Bytes(), nil
}
