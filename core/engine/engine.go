// Package engine runs one image through metadata extraction, privacy
// classification and stripping.
package engine

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ankit-chaubey/photo-scrub/core"
	"github.com/ankit-chaubey/photo-scrub/core/container"
	"github.com/ankit-chaubey/photo-scrub/core/privacy"
	"github.com/ankit-chaubey/photo-scrub/core/strip"
	"github.com/ankit-chaubey/photo-scrub/core/tags"
	"github.com/ankit-chaubey/photo-scrub/internal/logger"
)

// Stripper produces a metadata-free copy of an image.
type Stripper interface {
	Strip(ctx context.Context, buf core.ImageBuffer) (strip.Output, error)
}

// Processor is safe for concurrent use; every call works on its own data.
type Processor struct {
	stripper Stripper
	log      *zap.Logger
}

// New returns a Processor. A nil log disables logging.
func New(stripper Stripper, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{stripper: stripper, log: log}
}

// Process extracts, classifies and strips the metadata of buf. Errors are
// *core.Error of kind KindUnsupportedInput or KindDecode, or the context's
// error; no result is returned with an error.
func (p *Processor) Process(ctx context.Context, buf core.ImageBuffer) (*core.ProcessingResult, error) {
	id := uuid.NewString()
	log := p.log.With(zap.String("process_id", id))

	ct, err := inspect(buf)
	if err != nil {
		log.Info("input rejected", zap.Int("size", buf.Len()), zap.Error(err))
		return nil, err
	}
	input := core.ImageBuffer{Data: buf.Data, ContentType: ct}

	var (
		meta core.MetadataMap
		out  strip.Output
	)
	g, gctx := errgroup.WithContext(logger.WithContext(ctx, log))
	g.Go(func() error {
		meta = extract(input, log)
		return nil
	})
	g.Go(func() error {
		var err error
		out, err = p.stripper.Strip(gctx, input)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn("processing failed", zap.Error(err))
		return nil, err
	}

	flags := privacy.Classify(meta)
	res := &core.ProcessingResult{
		ID:           id,
		Original:     buf,
		Cleaned:      out.Buffer,
		Metadata:     meta,
		Flags:        flags,
		OriginalSize: buf.Len(),
		CleanedSize:  out.Buffer.Len(),
		Strategy:     out.Strategy,
	}
	log.Info("image processed",
		zap.String("content_type", ct),
		zap.Int("tags", len(meta)),
		zap.Bool("has_gps", flags.HasGPS),
		zap.Bool("has_personal_data", flags.HasPersonalData),
		zap.String("strategy", string(out.Strategy)),
		zap.Int("original_size", res.OriginalSize),
		zap.Int("cleaned_size", res.CleanedSize))
	return res, nil
}

// extract never fails: missing or unreadable metadata, a panic included,
// yields an empty map.
func extract(buf core.ImageBuffer, log *zap.Logger) (m core.MetadataMap) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("metadata parse aborted", zap.Any("panic", r))
			m = make(core.MetadataMap)
		}
	}()

	dir, ok := container.Locate(buf)
	if !ok {
		log.Debug("no EXIF directory found")
		return make(core.MetadataMap)
	}
	m = tags.Parse(dir)
	log.Debug("metadata extracted",
		zap.String("container", string(dir.Format)),
		zap.Int("tags", len(m)))
	return m
}
