// Package container finds the EXIF tag directory inside an image container
// without decoding any pixel data.
package container

import (
	"bytes"
	"encoding/binary"

	"github.com/ankit-chaubey/photo-scrub/core"
)

// Directory is a located EXIF block: a TIFF header followed by its IFDs.
// Offsets inside the directory are relative to the start of Raw.
type Directory struct {
	Format core.FormatID
	Order  binary.ByteOrder
	Raw    []byte
	IFD0   uint32 // offset of the first IFD
}

// Locate finds the EXIF directory of buf. The format is sniffed from the
// bytes; the declared content type is not trusted. ok is false when the image
// carries no directory or the directory header is unusable, which is a normal
// outcome rather than an error.
func Locate(buf core.ImageBuffer) (dir *Directory, ok bool) {
	format := core.DetectFormat(buf.Data)

	var raw []byte
	switch format {
	case core.FmtJPEG:
		raw = jpegExif(buf.Data)
	case core.FmtPNG:
		raw = pngExif(buf.Data)
	case core.FmtWebP:
		raw = webpExif(buf.Data)
	case core.FmtTIFF:
		raw = buf.Data
	}
	if raw == nil {
		return nil, false
	}

	order, ifd0, ok := tiffHeader(raw)
	if !ok {
		return nil, false
	}
	return &Directory{Format: format, Order: order, Raw: raw, IFD0: ifd0}, true
}

// tiffHeader validates the 8-byte TIFF header: byte order, magic 42 and the
// offset of IFD0.
func tiffHeader(raw []byte) (binary.ByteOrder, uint32, bool) {
	if len(raw) < 8 {
		return nil, 0, false
	}
	var order binary.ByteOrder
	switch {
	case raw[0] == 'I' && raw[1] == 'I':
		order = binary.LittleEndian
	case raw[0] == 'M' && raw[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, 0, false
	}
	if order.Uint16(raw[2:4]) != 42 {
		return nil, 0, false
	}
	ifd0 := order.Uint32(raw[4:8])
	if ifd0 < 8 || uint64(ifd0)+2 > uint64(len(raw)) {
		return nil, 0, false
	}
	return order, ifd0, true
}

// ─── PNG ─────────────────────────────────────────────────────────────────────

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

type pngChunk struct {
	typ  string
	data []byte
}

// readPNGChunks returns the chunks up to IEND or the first damaged chunk.
// CRCs are not checked.
func readPNGChunks(data []byte) []pngChunk {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil
	}
	var chunks []pngChunk
	i := len(pngSignature)
	for i+8 <= len(data) {
		length := binary.BigEndian.Uint32(data[i : i+4])
		typ := string(data[i+4 : i+8])
		i += 8
		if uint64(length)+4 > uint64(len(data)-i) {
			break
		}
		chunks = append(chunks, pngChunk{typ: typ, data: data[i : i+int(length)]})
		i += int(length) + 4 // data + CRC
		if typ == "IEND" {
			break
		}
	}
	return chunks
}

func pngExif(data []byte) []byte {
	for _, c := range readPNGChunks(data) {
		if c.typ == "eXIf" {
			return bytes.TrimPrefix(c.data, exifHeader)
		}
	}
	return nil
}

// ─── WebP ────────────────────────────────────────────────────────────────────

func webpExif(data []byte) []byte {
	if len(data) < 12 {
		return nil
	}
	offset := 12 // skip RIFF header
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if chunkSize < 0 || chunkSize > len(data)-offset {
			break
		}
		if chunkID == "EXIF" {
			return bytes.TrimPrefix(data[offset:offset+chunkSize], exifHeader)
		}
		offset += chunkSize
		if chunkSize%2 != 0 {
			offset++ // padding
		}
	}
	return nil
}
