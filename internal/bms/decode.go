package bms

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText returns the chart text as UTF-8. Input that is not valid UTF-8 is
// decoded with the legacy encoding; undecodable bytes become U+FFFD.
func decodeText(data []byte, legacy encoding.Encoding) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) || legacy == nil {
		return string(data)
	}
	out, err := legacy.NewDecoder().Bytes(data)
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("�")))
	}
	return string(out)
}
