package fixture

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// JPEG markers for Segment.
const (
	APP0  = 0xE0
	APP1  = 0xE1
	APP2  = 0xE2
	APP13 = 0xED
	APP14 = 0xEE
	COM   = 0xFE
)

// Segment is a JPEG marker segment to insert after SOI.
type Segment struct {
	Marker byte
	Data   []byte
}

func ExifSegment(tiffBlock []byte) Segment {
	return Segment{Marker: APP1, Data: append([]byte("Exif\x00\x00"), tiffBlock...)}
}

func XMPSegment(packet string) Segment {
	return Segment{Marker: APP1, Data: append([]byte("http://ns.adobe.com/xap/1.0/\x00"), packet...)}
}

func CommentSegment(s string) Segment {
	return Segment{Marker: COM, Data: []byte(s)}
}

// ICCSegment is an APP2 ICC chunk header with a dummy profile body.
func ICCSegment() Segment {
	return Segment{Marker: APP2, Data: append([]byte("ICC_PROFILE\x00\x01\x01"), make([]byte, 64)...)}
}

// AdobeSegment is an APP14 Adobe block declaring the YCbCr transform.
func AdobeSegment() Segment {
	return Segment{Marker: APP14, Data: []byte{'A', 'd', 'o', 'b', 'e', 0, 100, 0, 0, 0, 0, 1}}
}

// JFIFSegment is a minimal APP0 JFIF 1.01 header.
func JFIFSegment() Segment {
	return Segment{Marker: APP0, Data: []byte{'J', 'F', 'I', 'F', 0, 1, 1, 0, 0, 1, 0, 1, 0, 0}}
}

// JFXXSegment is an APP0 JFIF extension carrying a thumbnail.
func JFXXSegment(thumb []byte) Segment {
	return Segment{Marker: APP0, Data: append([]byte("JFXX\x00\x10"), thumb...)}
}

// FlashPixSegment is an APP2 FlashPix ready block.
func FlashPixSegment(s string) Segment {
	return Segment{Marker: APP2, Data: append([]byte("FPXR\x00"), s...)}
}

// IPTCSegment is an APP13 Photoshop block.
func IPTCSegment(s string) Segment {
	return Segment{Marker: APP13, Data: append([]byte("Photoshop 3.0\x00"), s...)}
}

// Gradient returns a w×h test image.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / max(w, 1)), G: uint8(y * 255 / max(h, 1)), B: 128, A: 255})
		}
	}
	return img
}

// JPEG encodes a w×h gradient and inserts segs, in order, right after SOI.
func JPEG(w, h int, segs ...Segment) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Gradient(w, h), &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return InsertSegments(buf.Bytes(), segs...)
}

// InsertSegments returns a copy of a JPEG with segs inserted after SOI.
func InsertSegments(jpg []byte, segs ...Segment) []byte {
	return insertAt(jpg, 2, segs)
}

// InsertBeforeEOI returns a copy of a JPEG with segs inserted after the
// scan data, just before the final EOI marker.
func InsertBeforeEOI(jpg []byte, segs ...Segment) []byte {
	return insertAt(jpg, len(jpg)-2, segs)
}

func insertAt(jpg []byte, at int, segs []Segment) []byte {
	out := append([]byte(nil), jpg[:at]...)
	for _, s := range segs {
		out = append(out, 0xFF, s.Marker)
		out = binary.BigEndian.AppendUint16(out, uint16(len(s.Data)+2))
		out = append(out, s.Data...)
	}
	return append(out, jpg[at:]...)
}

// PNG encodes a w×h gradient. A non-nil exif block is stored in an eXIf
// chunk right after IHDR.
func PNG(w, h int, exif []byte) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Gradient(w, h)); err != nil {
		panic(err)
	}
	data := buf.Bytes()
	if exif == nil {
		return data
	}
	const ihdrEnd = 8 + 4 + 4 + 13 + 4
	out := append([]byte(nil), data[:ihdrEnd]...)
	out = append(out, Chunk("eXIf", exif)...)
	return append(out, data[ihdrEnd:]...)
}

// Chunk serialises a PNG chunk with its CRC.
func Chunk(typ string, data []byte) []byte {
	out := binary.BigEndian.AppendUint32(nil, uint32(len(data)))
	out = append(out, typ...)
	out = append(out, data...)
	crc := crc32.ChecksumIEEE(append([]byte(typ), data...))
	return binary.BigEndian.AppendUint32(out, crc)
}

// GIF encodes an animation of the given number of w×h frames with a comment extension
// carrying comment.
func GIF(w, h, frames int, comment string) []byte {
	g := &gif.GIF{}
	for i := 0; i < frames; i++ {
		p := image.NewPaletted(image.Rect(0, 0, w, h), palette.Plan9)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				p.SetColorIndex(x, y, uint8((x+y+i*16)%256))
			}
		}
		g.Image = append(g.Image, p)
		g.Delay = append(g.Delay, 10)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		panic(err)
	}
	data := buf.Bytes()
	if comment == "" {
		return data
	}

	// Header and logical screen descriptor, then the global colour table
	// when the packed field flags one.
	at := 13
	if data[10]&0x80 != 0 {
		at += 3 << ((data[10] & 0x07) + 1)
	}
	ext := []byte{0x21, 0xFE}
	for c := []byte(comment); len(c) > 0; {
		n := min(len(c), 255)
		ext = append(ext, byte(n))
		ext = append(ext, c[:n]...)
		c = c[n:]
	}
	ext = append(ext, 0x00)

	out := append([]byte(nil), data[:at]...)
	out = append(out, ext...)
	return append(out, data[at:]...)
}

func BMP(w, h int) []byte {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, Gradient(w, h)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TIFF(w, h int) []byte {
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, Gradient(w, h), nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// WebP wraps chunks in a RIFF WEBP container. On its own the result carries
// no image data and is only good for locating chunks.
func WebP(chunks ...[]byte) []byte {
	var body []byte
	for _, c := range chunks {
		body = append(body, c...)
	}
	out := []byte("RIFF")
	out = binary.LittleEndian.AppendUint32(out, uint32(4+len(body)))
	out = append(out, "WEBP"...)
	return append(out, body...)
}

// RIFFChunk serialises a RIFF chunk, padded to even length.
func RIFFChunk(id string, data []byte) []byte {
	out := append([]byte(id), binary.LittleEndian.AppendUint32(nil, uint32(len(data)))...)
	out = append(out, data...)
	if len(data)%2 != 0 {
		out = append(out, 0)
	}
	return out
}

// WebPImage encodes a w×h gradient as lossless WebP. A non-nil exif block
// is appended as an EXIF chunk after the bitstream.
func WebPImage(w, h int, exif []byte) []byte {
	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, Gradient(w, h), nil); err != nil {
		panic(err)
	}
	chunks := [][]byte{buf.Bytes()[12:]} // VP8L chunk after the RIFF header
	if exif != nil {
		chunks = append(chunks, RIFFChunk("EXIF", exif))
	}
	return WebP(chunks...)
}
