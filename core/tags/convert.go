package tags

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rwcarlsen/goexif/tiff"
	"golang.org/x/text/encoding/unicode"

	"github.com/ankit-chaubey/photo-scrub/core"
)

// Windows Explorer writes these as UTF-16LE in BYTE arrays.
var xpTags = map[uint16]bool{
	0x9C9B: true, // XPTitle
	0x9C9C: true, // XPComment
	0x9C9D: true, // XPAuthor
	0x9C9E: true, // XPKeywords
	0x9C9F: true, // XPSubject
}

// Comment-style UNDEFINED values that start with an 8-byte character code.
var charsetTags = map[core.Section]map[uint16]bool{
	core.CaptureInfo: {0x9286: true},               // UserComment
	core.GPSInfo:     {0x001B: true, 0x001C: true}, // GPSProcessingMethod, GPSAreaInformation
}

// Four ASCII digits stored as UNDEFINED, e.g. "0232".
var versionTags = map[core.Section]map[uint16]bool{
	core.CaptureInfo:      {0x9000: true, 0xA000: true}, // ExifVersion, FlashpixVersion
	core.Interoperability: {0x0002: true},               // InteroperabilityVersion
}

var (
	charsetASCII     = []byte("ASCII\x00\x00\x00")
	charsetUnicode   = []byte("UNICODE\x00")
	charsetUndefined = make([]byte, 8)
)

// convert maps a decoded goexif tag onto a core.Value. Anything that does not
// read back cleanly becomes Bytes of the raw value.
func convert(s core.Section, t *tiff.Tag, order binary.ByteOrder) core.Value {
	switch {
	case (s == core.PrimaryImage || s == core.Thumbnail) && xpTags[t.Id]:
		if text, ok := decodeUTF16(t.Val, binary.LittleEndian); ok {
			return core.Text(text)
		}
		return core.Bytes(t.Val)
	case charsetTags[s][t.Id]:
		if text, ok := decodeComment(t.Val, order); ok {
			return core.Text(text)
		}
		return core.Bytes(t.Val)
	case versionTags[s][t.Id]:
		if printable(t.Val) {
			return core.Text(string(t.Val))
		}
		return core.Bytes(t.Val)
	}

	switch t.Format() {
	case tiff.IntVal:
		return collect(t, func(i int) (core.Value, error) {
			n, err := t.Int64(i)
			return core.Int(n), err
		})
	case tiff.RatVal:
		return collect(t, func(i int) (core.Value, error) {
			num, den, err := t.Rat2(i)
			return core.Rational(num, den), err
		})
	case tiff.FloatVal:
		return collect(t, func(i int) (core.Value, error) {
			f, err := t.Float(i)
			return core.Text(strconv.FormatFloat(f, 'g', -1, 64)), err
		})
	case tiff.StringVal:
		str, err := t.StringVal()
		if err != nil {
			return core.Bytes(t.Val)
		}
		return core.Text(str)
	default:
		return core.Bytes(t.Val)
	}
}

// collect reads Count values through at. A single value is returned bare,
// more than one as a Sequence.
func collect(t *tiff.Tag, at func(i int) (core.Value, error)) core.Value {
	n := int(t.Count)
	if n == 1 {
		v, err := at(0)
		if err != nil {
			return core.Bytes(t.Val)
		}
		return v
	}
	vs := make([]core.Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := at(i)
		if err != nil {
			return core.Bytes(t.Val)
		}
		vs = append(vs, v)
	}
	return core.Sequence(vs...)
}

func decodeUTF16(b []byte, order binary.ByteOrder) (string, bool) {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	endian := unicode.LittleEndian
	if order == binary.BigEndian {
		endian = unicode.BigEndian
	}
	dec := unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(b)
	if err != nil {
		return "", false
	}
	return strings.TrimRight(string(out), "\x00"), true
}

// decodeComment reads a value led by an 8-byte character code. JIS and
// unknown codes are left to the caller as bytes.
func decodeComment(b []byte, order binary.ByteOrder) (string, bool) {
	if len(b) < 8 {
		return "", false
	}
	code, body := b[:8], b[8:]
	switch {
	case bytes.Equal(code, charsetASCII):
		return trimComment(string(body)), true
	case bytes.Equal(code, charsetUnicode):
		text, ok := decodeUTF16(body, order)
		return trimComment(text), ok
	case bytes.Equal(code, charsetUndefined):
		body = bytes.TrimRight(body, "\x00 ")
		if printable(body) {
			return string(body), true
		}
	}
	return "", false
}

func trimComment(s string) string {
	return strings.TrimRight(s, "\x00 ")
}

func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, c := range b {
		if c < 0x20 || c == 0x7F {
			return false
		}
	}
	return true
}
