package iptc

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// utf8Designator is the ISO 2022 escape sequence 1:90 uses for UTF-8.
var utf8Designator = []byte{0x1B, 0x25, 0x47}

func declaresUTF8(raw []byte) bool {
	return bytes.Contains(raw, utf8Designator)
}

// decodeText decodes a text dataset. Without a UTF-8 declaration the bytes
// are taken as UTF-8 when valid and as ISO-8859-1 otherwise.
func decodeText(raw []byte, declaredUTF8 bool) string {
	if declaredUTF8 || utf8.Valid(raw) {
		return string(raw)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(s)
}

// encodeText encodes s for a stream that is (utf8) or is not declared UTF-8.
// The second result is false when s cannot be represented in Latin-1.
func encodeText(s string, utf8Stream bool) ([]byte, bool) {
	if utf8Stream || isASCII(s) {
		return []byte(s), true
	}
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, false
	}
	return b, true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
