// Package strip produces a copy of an image with its metadata removed.
//
// JPEGs are cleaned surgically: metadata segments are cut out and the
// compressed scan data is copied unchanged. Everything else, and any JPEG the
// surgical pass cannot handle, is decoded to pixels and encoded again.
package strip

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ankit-chaubey/photo-scrub/core"
	"github.com/ankit-chaubey/photo-scrub/internal/logger"
)

// DefaultQuality is the JPEG quality used when re-encoding.
const DefaultQuality = 95

// Output is a cleaned image and how it was produced.
type Output struct {
	Buffer   core.ImageBuffer
	Strategy core.Strategy
}

// Stripper removes metadata from image buffers. It holds no per-call state
// and is safe for concurrent use.
type Stripper struct {
	quality int
	log     *zap.Logger
}

// New returns a Stripper that re-encodes JPEGs at quality (1-100; anything
// else selects DefaultQuality). A nil log disables logging.
func New(quality int, log *zap.Logger) *Stripper {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Stripper{quality: quality, log: log}
}

// Quality returns the JPEG quality used for re-encoding.
func (s *Stripper) Quality() int { return s.quality }

// Strip returns buf without metadata. It blocks until the output is ready
// whichever strategy runs. The only error besides cancellation is a
// core.KindDecode error for images that cannot be decoded at all.
func (s *Stripper) Strip(ctx context.Context, buf core.ImageBuffer) (Output, error) {
	log := logger.FromContext(ctx, s.log)
	ct := core.NormalizeContentType(buf.ContentType)

	if core.SupportsSurgicalStrip(ct) {
		data, removed, err := surgical(buf.Data)
		if err == nil {
			log.Debug("metadata segments removed",
				zap.Strings("removed", removed),
				zap.Int("original_size", buf.Len()),
				zap.Int("cleaned_size", len(data)))
			return Output{
				Buffer:   core.ImageBuffer{Data: data, ContentType: ct},
				Strategy: core.StrategySurgical,
			}, nil
		}
		log.Warn("surgical strip failed, falling back to re-encode", zap.Error(err))
	}

	if err := ctx.Err(); err != nil {
		return Output{}, fmt.Errorf("strip: %w", err)
	}

	out, err := s.reencode(buf.Data, ct)
	if err != nil {
		return Output{}, err
	}
	log.Debug("image re-encoded",
		zap.String("content_type", out.ContentType),
		zap.Int("quality", s.quality),
		zap.Int("cleaned_size", out.Len()))
	return Output{Buffer: out, Strategy: core.StrategyReencode}, nil
}
