package engine

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/dhowden/tag"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ankit-chaubey/photo-scrub/core"
)

const opInspect = "engine.inspect"

// inspect rejects input that cannot be an image and returns the content type
// the rest of the pipeline works with.
func inspect(buf core.ImageBuffer) (string, error) {
	if buf.Len() == 0 {
		return "", core.NewError(core.KindUnsupportedInput, opInspect, "input is empty")
	}

	format := core.DetectFormat(buf.Data)
	if format == core.FmtUnknown {
		return "", core.NewError(core.KindUnsupportedInput, opInspect, describe(buf.Data))
	}

	ct := core.NormalizeContentType(buf.ContentType)
	if ct == "" {
		ct = format.ContentType()
	}
	if !core.IsImageType(ct) {
		return "", core.NewError(core.KindUnsupportedInput, opInspect,
			fmt.Sprintf("declared type %q is not an image type", buf.ContentType))
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(buf.Data)); err != nil {
		return "", core.WrapError(core.KindUnsupportedInput, opInspect,
			fmt.Sprintf("%s header is truncated or damaged", format), err)
	}
	return ct, nil
}

// describe names what unrecognised bytes look like, for the error message.
func describe(data []byte) string {
	format, fileType, err := tag.Identify(bytes.NewReader(data))
	switch {
	case err != nil:
		return "unrecognised image signature"
	case fileType != tag.UnknownFileType:
		return fmt.Sprintf("input is %s audio (%s tags), not an image", fileType, format)
	case format == tag.MP4:
		return "input is an ISO media container (HEIC or MP4), which is not supported"
	}
	return "unrecognised image signature"
}
