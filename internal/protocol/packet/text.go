package packet

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
)

var ErrNotText = errors.New("packet: payload is not text")

// decodeText decodes KOI8-R bytes and drops anything that is not printable
// text. It never fails.
func decodeText(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		r := charmap.KOI8R.DecodeByte(c)
		if !isTextRune(r) {
			continue
		}
		sb.WriteRune(r)
	}
	return strings.TrimSpace(sb.String())
}

// decodeTextStrict is decodeText without the leniency: the first byte that
// does not decode to printable text fails the whole field.
func decodeTextStrict(b []byte) (string, error) {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		r := charmap.KOI8R.DecodeByte(c)
		if !isTextRune(r) {
			return "", ErrNotText
		}
		sb.WriteRune(r)
	}
	return strings.TrimSpace(sb.String()), nil
}

func isTextRune(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return true
	case unicode.ReplacementChar:
		return false
	}
	return !unicode.IsControl(r)
}
