package core

import (
	"bytes"
	"mime"
	"strings"
)

// FormatID enumerates every recognised image container.
type FormatID string

const (
	FmtJPEG FormatID = "jpeg"
	FmtPNG  FormatID = "png"
	FmtGIF  FormatID = "gif"
	FmtWebP FormatID = "webp"
	FmtTIFF FormatID = "tiff"
	FmtBMP  FormatID = "bmp"

	FmtUnknown FormatID = "unknown"
)

var formatContentTypes = map[FormatID]string{
	FmtJPEG: "image/jpeg",
	FmtPNG:  "image/png",
	FmtGIF:  "image/gif",
	FmtWebP: "image/webp",
	FmtTIFF: "image/tiff",
	FmtBMP:  "image/bmp",
}

// extMap maps lowercase extensions to format IDs.
var extMap = map[string]FormatID{
	".jpg":  FmtJPEG,
	".jpeg": FmtJPEG,
	".jpe":  FmtJPEG,
	".jfif": FmtJPEG,
	".png":  FmtPNG,
	".gif":  FmtGIF,
	".webp": FmtWebP,
	".tiff": FmtTIFF,
	".tif":  FmtTIFF,
	".bmp":  FmtBMP,
}

// DetectFormat identifies an image container from its leading bytes.
func DetectFormat(b []byte) FormatID {
	if len(b) < 4 {
		return FmtUnknown
	}
	switch {
	// JPEG: FF D8 FF
	case b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return FmtJPEG
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	case bytes.HasPrefix(b, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return FmtPNG
	// GIF: GIF87a or GIF89a
	case bytes.HasPrefix(b, []byte("GIF87a")) || bytes.HasPrefix(b, []byte("GIF89a")):
		return FmtGIF
	// WebP: RIFF????WEBP
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return FmtWebP
	// TIFF: 49 49 2A 00 (little-endian) or 4D 4D 00 2A (big-endian)
	case bytes.HasPrefix(b, []byte{0x49, 0x49, 0x2A, 0x00}) ||
		bytes.HasPrefix(b, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return FmtTIFF
	// BMP: 42 4D
	case b[0] == 0x42 && b[1] == 0x4D:
		return FmtBMP
	}
	return FmtUnknown
}

// ContentType returns the canonical MIME type of a format, or "" if unknown.
func (f FormatID) ContentType() string {
	return formatContentTypes[f]
}

// FormatForContentType maps a MIME type back to a format.
func FormatForContentType(contentType string) FormatID {
	ct := NormalizeContentType(contentType)
	for id, t := range formatContentTypes {
		if t == ct {
			return id
		}
	}
	return FmtUnknown
}

// NormalizeContentType lowercases ct, drops parameters and folds the
// non-standard aliases browsers send (image/jpg, image/pjpeg, image/x-png).
func NormalizeContentType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	} else if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	switch ct {
	case "image/jpg", "image/pjpeg":
		return "image/jpeg"
	case "image/x-png":
		return "image/png"
	case "image/x-ms-bmp", "image/x-bmp":
		return "image/bmp"
	}
	return ct
}

// IsImageType reports whether ct is an image/* MIME type.
func IsImageType(ct string) bool {
	return strings.HasPrefix(NormalizeContentType(ct), "image/")
}

// SupportsSurgicalStrip reports whether metadata can be cut out of ct
// without touching compressed pixel data.
func SupportsSurgicalStrip(ct string) bool {
	return NormalizeContentType(ct) == "image/jpeg"
}

// ContentTypeForExt maps a file extension (with dot) to a MIME type, or "".
func ContentTypeForExt(ext string) string {
	return extMap[strings.ToLower(ext)].ContentType()
}

// ExtForContentType returns the preferred file extension for ct, or "".
func ExtForContentType(ct string) string {
	switch FormatForContentType(ct) {
	case FmtJPEG:
		return ".jpg"
	case FmtPNG:
		return ".png"
	case FmtGIF:
		return ".gif"
	case FmtWebP:
		return ".webp"
	case FmtTIFF:
		return ".tiff"
	case FmtBMP:
		return ".bmp"
	}
	return ""
}
