package loader

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encodings reported on a Dataset.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode turns raw bytes into text. Valid UTF-8 (after dropping a BOM) is
// used as is; anything else is read as ISO-8859-1, which maps every byte
// and so cannot fail.
func Decode(raw []byte) (string, string) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), EncodingUTF8
	}

	text, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		// unreachable for ISO-8859-1; keep the bytes rather than lose rows
		return string(raw), EncodingLatin1
	}
	return string(text), EncodingLatin1
}
