package strip

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"

	"github.com/ankit-chaubey/photo-scrub/core/container"
)

var errMetadataRemains = errors.New("strip: metadata still present")

// dropSegment selects the segments the surgical pass removes, before or
// between scans. Only the JFIF header, ICC profile chunks and the Adobe
// transform stay, because decoders read colour handling from them. Every
// other application segment and every comment goes.
func dropSegment(seg container.Segment) bool {
	if seg.Standalone {
		return false
	}
	switch seg.Marker {
	case container.MarkerAPP0:
		return !seg.IsJFIF()
	case container.MarkerAPP2:
		return !seg.IsICC()
	case container.MarkerAPP14:
		return !seg.IsAdobe()
	case container.MarkerCOM:
		return true
	}
	return seg.Marker >= container.MarkerAPP1 && seg.Marker <= container.MarkerAPP15
}

// surgical cuts metadata segments and any trailing images out of a JPEG and
// reports the labels of what it removed. The result is checked before it is
// returned; any error means the caller should re-encode.
func surgical(data []byte) ([]byte, []string, error) {
	segs, err := container.ParseJPEG(data)
	if err != nil {
		return nil, nil, fmt.Errorf("strip: %w", err)
	}

	var removed []string
	clean := segs.Without(func(seg container.Segment) bool {
		if dropSegment(seg) {
			removed = append(removed, seg.Label())
			return true
		}
		return false
	})
	if len(clean.Trailer) > 0 {
		removed = append(removed, "trailer")
		clean.Trailer = nil
	}
	out := clean.Bytes()

	if err := validate(data, out); err != nil {
		return nil, nil, err
	}
	return out, removed, nil
}

// validate checks that out still decodes to an image of the original size
// and that nothing the surgical pass removes is left anywhere in it.
func validate(original, out []byte) error {
	want, err := jpeg.DecodeConfig(bytes.NewReader(original))
	if err != nil {
		return fmt.Errorf("strip: original header: %w", err)
	}
	got, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		return fmt.Errorf("strip: cleaned header: %w", err)
	}
	if got.Width != want.Width || got.Height != want.Height {
		return fmt.Errorf("strip: dimensions changed from %dx%d to %dx%d",
			want.Width, want.Height, got.Width, got.Height)
	}

	segs, err := container.ParseJPEG(out)
	if err != nil {
		return fmt.Errorf("strip: cleaned structure: %w", err)
	}
	for _, seg := range segs.All() {
		if dropSegment(seg) {
			return fmt.Errorf("%w: %s segment", errMetadataRemains, seg.Label())
		}
	}
	if len(segs.Trailer) > 0 {
		return fmt.Errorf("%w: %d bytes after EOI", errMetadataRemains, len(segs.Trailer))
	}
	return nil
}
