package strip

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/ankit-chaubey/photo-scrub/core"
)

// reencode decodes data to pixels and writes them back out in the declared
// type. Without a usable declared type the sniffed format is the target, and
// PNG when that is unknown too.
func (s *Stripper) reencode(data []byte, ct string) (core.ImageBuffer, error) {
	target := core.FormatForContentType(ct)
	if target == core.FmtUnknown {
		target = core.DetectFormat(data)
	}

	var buf bytes.Buffer
	var err error
	if target == core.FmtGIF && core.DetectFormat(data) == core.FmtGIF {
		err = s.reencodeGIF(&buf, data)
	} else {
		if target == core.FmtUnknown {
			target = core.FmtPNG
		}
		err = s.reencodeStill(&buf, data, target)
	}
	if err != nil {
		return core.ImageBuffer{}, err
	}
	return core.ImageBuffer{Data: buf.Bytes(), ContentType: target.ContentType()}, nil
}

func (s *Stripper) reencodeStill(buf *bytes.Buffer, data []byte, target core.FormatID) error {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return core.WrapError(core.KindDecode, "strip.reencode", "image could not be decoded", err)
	}

	switch target {
	case core.FmtJPEG:
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: s.quality})
	case core.FmtGIF:
		err = gif.Encode(buf, img, nil)
	case core.FmtBMP:
		err = bmp.Encode(buf, img)
	case core.FmtTIFF:
		err = tiff.Encode(buf, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case core.FmtWebP:
		// Lossless VP8L; there is no pure Go lossy encoder.
		err = nativewebp.Encode(buf, img, nil)
	default:
		err = png.Encode(buf, img)
	}
	if err != nil {
		return core.WrapError(core.KindDecode, "strip.reencode", "image could not be encoded", err)
	}
	return nil
}

// reencodeGIF keeps every frame and its timing. Comment and application
// extensions are not written back by the encoder.
func (s *Stripper) reencodeGIF(buf *bytes.Buffer, data []byte) error {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return core.WrapError(core.KindDecode, "strip.reencode", "GIF could not be decoded", err)
	}
	if err := gif.EncodeAll(buf, g); err != nil {
		return core.WrapError(core.KindDecode, "strip.reencode", "GIF could not be encoded", err)
	}
	return nil
}
