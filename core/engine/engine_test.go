package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ankit-chaubey/photo-scrub/core"
	"github.com/ankit-chaubey/photo-scrub/core/internal/fixture"
	"github.com/ankit-chaubey/photo-scrub/core/strip"
	"github.com/ankit-chaubey/photo-scrub/core/tags"
)

// MockStripper records Strip calls and returns whatever the test set up.
type MockStripper struct {
	mock.Mock
}

func (m *MockStripper) Strip(ctx context.Context, buf core.ImageBuffer) (strip.Output, error) {
	args := m.Called(ctx, buf)
	return args.Get(0).(strip.Output), args.Error(1)
}

func newProcessor() *Processor {
	return New(strip.New(strip.DefaultQuality, nil), nil)
}

func process(t *testing.T, p *Processor, data []byte, ct string) *core.ProcessingResult {
	t.Helper()
	res, err := p.Process(context.Background(), core.ImageBuffer{Data: data, ContentType: ct})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func dimensions(t *testing.T, data []byte) image.Point {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return image.Pt(cfg.Width, cfg.Height)
}

func cameraEXIF() []byte {
	return fixture.EXIF{
		IFD0: []fixture.Entry{
			fixture.ASCII(0x010F, "Acme"),
			fixture.ASCII(0x0110, "X100"),
		},
		Exif: []fixture.Entry{
			fixture.ASCII(0x9003, "2023:07:14 18:02:11"),
		},
		GPS: []fixture.Entry{
			fixture.ASCII(0x0001, "N"),
			fixture.Rational(0x0002, [2]uint32{51, 1}, [2]uint32{30, 1}, [2]uint32{2600, 100}),
			fixture.ASCII(0x0003, "W"),
			fixture.Rational(0x0004, [2]uint32{0, 1}, [2]uint32{7, 1}, [2]uint32{3900, 100}),
		},
	}.Build()
}

func cameraJPEG(w, h int) []byte {
	return fixture.JPEG(w, h, fixture.ExifSegment(cameraEXIF()))
}

func TestProcessCameraJPEG(t *testing.T) {
	original := cameraJPEG(320, 240)
	res := process(t, newProcessor(), original, "image/jpeg")

	assert.GreaterOrEqual(t, len(res.Metadata), 4, "entries: %v", res.Metadata.Names())
	assert.Equal(t, core.ClassificationFlags{HasGPS: true, HasPersonalData: true}, res.Flags)
	assert.NotEmpty(t, res.Metadata.Section(core.GPSInfo))
	v, _ := res.Metadata.Get("Make")
	assert.True(t, v.Equal(core.Text("Acme")), "Make = %v", v)
	assert.Equal(t, core.StrategySurgical, res.Strategy)

	assert.Equal(t, len(original), res.OriginalSize)
	assert.Equal(t, res.Cleaned.Len(), res.CleanedSize)
	assert.Less(t, res.CleanedSize, res.OriginalSize)
	assert.Equal(t, dimensions(t, original), dimensions(t, res.Cleaned.Data))

	_, err := uuid.Parse(res.ID)
	assert.NoError(t, err, "ID %q is not a UUID", res.ID)
	assert.Equal(t, original, res.Original.Data, "original buffer changed")
}

func TestProcessIdempotent(t *testing.T) {
	p := newProcessor()
	first := process(t, p, cameraJPEG(64, 64), "image/jpeg")
	second := process(t, p, first.Cleaned.Data, first.Cleaned.ContentType)

	assert.Empty(t, second.Metadata)
	assert.Equal(t, core.ClassificationFlags{}, second.Flags)
	assert.Equal(t, first.Cleaned.Data, second.Cleaned.Data, "cleaning a clean JPEG changed it")
}

func TestProcessWithoutMetadata(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		declared string
		strategy core.Strategy
	}{
		{"jpeg", fixture.JPEG(40, 30), "image/jpeg", core.StrategySurgical},
		{"png", fixture.PNG(40, 30, nil), "image/png", core.StrategyReencode},
		{"gif", fixture.GIF(40, 30, 2, ""), "image/gif", core.StrategyReencode},
		{"bmp", fixture.BMP(40, 30), "image/bmp", core.StrategyReencode},
		{"webp", fixture.WebPImage(40, 30, nil), "image/webp", core.StrategyReencode},
		{"undeclared png", fixture.PNG(40, 30, nil), "", core.StrategyReencode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := process(t, newProcessor(), tt.data, tt.declared)
			assert.Empty(t, res.Metadata)
			assert.Equal(t, core.ClassificationFlags{}, res.Flags)
			assert.Equal(t, tt.strategy, res.Strategy)
			assert.Equal(t, image.Pt(40, 30), dimensions(t, res.Cleaned.Data))
		})
	}
}

func TestProcessPNGWithEXIF(t *testing.T) {
	block := fixture.EXIF{
		IFD0: []fixture.Entry{fixture.ASCII(0x013B, "Jane Doe")},
		GPS:  []fixture.Entry{fixture.ASCII(0x0001, "S")},
	}.Build()
	res := process(t, newProcessor(), fixture.PNG(16, 16, block), "image/png")

	assert.Equal(t, core.ClassificationFlags{HasGPS: true, HasPersonalData: true}, res.Flags)
	assert.Equal(t, core.StrategyReencode, res.Strategy)
	assert.Equal(t, "image/png", res.Cleaned.ContentType)

	again := process(t, newProcessor(), res.Cleaned.Data, res.Cleaned.ContentType)
	assert.Empty(t, again.Metadata, "cleaned PNG still has metadata")
}

func TestProcessWebPWithEXIF(t *testing.T) {
	original := fixture.WebPImage(20, 12, cameraEXIF())
	res := process(t, newProcessor(), original, "image/webp")

	assert.Equal(t, core.ClassificationFlags{HasGPS: true, HasPersonalData: true}, res.Flags)
	assert.Contains(t, res.Metadata, "Model")
	assert.Equal(t, core.StrategyReencode, res.Strategy)
	assert.Equal(t, "image/webp", res.Cleaned.ContentType)
	assert.Equal(t, image.Pt(20, 12), dimensions(t, res.Cleaned.Data))

	again := process(t, newProcessor(), res.Cleaned.Data, res.Cleaned.ContentType)
	assert.Empty(t, again.Metadata, "cleaned WebP still has metadata")
}

func TestProcessMetadataAfterScan(t *testing.T) {
	original := fixture.InsertBeforeEOI(fixture.JPEG(16, 16),
		fixture.CommentSegment("SECRET-HOME"),
		fixture.Segment{Marker: fixture.APP1, Data: []byte("Exif\x00\x00GPS:51.5N")},
	)
	res := process(t, newProcessor(), original, "image/jpeg")

	assert.Equal(t, core.StrategySurgical, res.Strategy)
	assert.NotContains(t, string(res.Cleaned.Data), "SECRET-HOME")
	assert.NotContains(t, string(res.Cleaned.Data), "GPS:51.5N")
	assert.Equal(t, fixture.JPEG(16, 16), res.Cleaned.Data)
}

func TestProcessDateTimeOriginalIsPersonal(t *testing.T) {
	block := fixture.EXIF{Exif: []fixture.Entry{fixture.ASCII(0x9003, "2020:01:01 00:00:00")}}.Build()
	res := process(t, newProcessor(), fixture.JPEG(8, 8, fixture.ExifSegment(block)), "image/jpeg")
	assert.Equal(t, core.ClassificationFlags{HasPersonalData: true}, res.Flags)
}

func TestProcessThumbnailTagsNotPersonal(t *testing.T) {
	block := fixture.EXIF{
		IFD0: []fixture.Entry{fixture.Short(0x0112, 1)},
		IFD1: []fixture.Entry{fixture.ASCII(0x010F, "Acme"), fixture.ASCII(0x0132, "2020:01:01 00:00:00")},
	}.Build()
	res := process(t, newProcessor(), fixture.JPEG(8, 8, fixture.ExifSegment(block)), "image/jpeg")
	assert.Len(t, res.Metadata.Section(core.Thumbnail), 2, "entries: %v", res.Metadata.Names())
	assert.False(t, res.Flags.HasPersonalData, "thumbnail tags counted as personal data")
}

func TestProcessCorruptEXIF(t *testing.T) {
	garbage := []byte("II*\x00\xFF\xFF\x00\x00garbage")
	original := fixture.JPEG(20, 10, fixture.ExifSegment(garbage))
	res := process(t, newProcessor(), original, "image/jpeg")

	assert.Empty(t, res.Metadata)
	assert.Equal(t, core.ClassificationFlags{}, res.Flags)
	assert.Equal(t, fixture.JPEG(20, 10), res.Cleaned.Data, "corrupt EXIF segment not removed")
}

func TestProcessUnsupportedInput(t *testing.T) {
	valid := fixture.JPEG(16, 16)
	id3 := append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), make([]byte, 64)...)
	flac := append([]byte("fLaC"), make([]byte, 64)...)
	heic := append([]byte("\x00\x00\x00\x18ftypheic"), make([]byte, 64)...)

	tests := []struct {
		name     string
		buf      core.ImageBuffer
		contains string
	}{
		{"empty", core.ImageBuffer{ContentType: "image/jpeg"}, "empty"},
		{"nil data", core.ImageBuffer{}, "empty"},
		{"text", core.ImageBuffer{Data: []byte("hello, this is not an image")}, "unrecognised"},
		{"mp3", core.ImageBuffer{Data: id3, ContentType: "audio/mpeg"}, "MP3 audio"},
		{"flac", core.ImageBuffer{Data: flac}, "FLAC audio"},
		{"heic", core.ImageBuffer{Data: heic, ContentType: "image/heic"}, "HEIC"},
		{"non-image declared type", core.ImageBuffer{Data: valid, ContentType: "application/pdf"}, "not an image type"},
		{"truncated header", core.ImageBuffer{Data: valid[:40], ContentType: "image/jpeg"}, "truncated or damaged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newProcessor().Process(context.Background(), tt.buf)
			assert.Nil(t, res, "result returned with an error")
			require.True(t, core.IsKind(err, core.KindUnsupportedInput), "error = %v", err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestProcessDecodeError(t *testing.T) {
	// IHDR intact, IDAT damaged: the header check passes, the decode fails.
	data := fixture.PNG(16, 16, nil)
	data[8+25+8+2] ^= 0xFF

	res, err := newProcessor().Process(context.Background(), core.ImageBuffer{Data: data, ContentType: "image/png"})
	assert.Nil(t, res, "result returned with an error")
	assert.True(t, core.IsKind(err, core.KindDecode), "error = %v", err)
}

func TestProcessStripperError(t *testing.T) {
	boom := errors.New("boom")
	s := new(MockStripper)
	s.On("Strip", mock.Anything, mock.Anything).Return(strip.Output{}, boom)

	res, err := New(s, nil).Process(context.Background(), core.ImageBuffer{Data: cameraJPEG(8, 8)})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)
	s.AssertNumberOfCalls(t, "Strip", 1)
}

func TestProcessPassesNormalisedType(t *testing.T) {
	jpg := fixture.JPEG(8, 8)
	bmp := fixture.BMP(4, 4)
	withType := func(ct string) interface{} {
		return mock.MatchedBy(func(buf core.ImageBuffer) bool { return buf.ContentType == ct })
	}

	s := new(MockStripper)
	s.On("Strip", mock.Anything, withType("image/jpeg")).
		Return(strip.Output{Buffer: core.ImageBuffer{Data: jpg, ContentType: "image/jpeg"}, Strategy: core.StrategySurgical}, nil).Once()
	s.On("Strip", mock.Anything, withType("image/bmp")).
		Return(strip.Output{Buffer: core.ImageBuffer{Data: bmp, ContentType: "image/bmp"}, Strategy: core.StrategyReencode}, nil).Once()
	p := New(s, nil)

	res := process(t, p, jpg, "Image/JPG; q=1")
	assert.Equal(t, "Image/JPG; q=1", res.Original.ContentType, "Original keeps the declared value")

	process(t, p, bmp, "")
	s.AssertExpectations(t)
}

func TestProcessLogsWithProcessID(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	p := New(strip.New(0, nil), zap.New(obs))
	res := process(t, p, cameraJPEG(8, 8), "image/jpeg")

	done := logs.FilterMessage("image processed").All()
	require.Len(t, done, 1)
	fields := done[0].ContextMap()
	assert.Equal(t, res.ID, fields["process_id"])
	assert.Equal(t, true, fields["has_gps"])

	removed := logs.FilterMessage("metadata segments removed").All()
	require.Len(t, removed, 1, "stripper did not log through the process logger")
	assert.Equal(t, res.ID, removed[0].ContextMap()["process_id"])
}

func TestProcessConcurrent(t *testing.T) {
	p := newProcessor()
	inputs := [][]byte{cameraJPEG(32, 32), fixture.PNG(32, 32, nil), fixture.GIF(32, 32, 2, "c")}

	var wg sync.WaitGroup
	errs := make(chan error, 30)
	ids := make(chan string, 30)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(data []byte) {
			defer wg.Done()
			res, err := p.Process(context.Background(), core.ImageBuffer{Data: data})
			if err != nil {
				errs <- err
				return
			}
			if res.Flags.HasGPS != bytes.Equal(data, inputs[0]) {
				errs <- errors.New("flags mixed up between calls")
			}
			ids <- res.ID
		}(inputs[i%len(inputs)])
	}
	wg.Wait()
	close(errs)
	close(ids)

	for err := range errs {
		assert.NoError(t, err)
	}
	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate ID %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, 30)
}

func TestExtractMatchesParser(t *testing.T) {
	m := extract(core.ImageBuffer{Data: cameraJPEG(8, 8)}, zap.NewNop())
	assert.Len(t, m, 7, "extract() = %v", m.Names())
	_, ok := tags.Lookup(core.GPSInfo, 0x0004)
	assert.True(t, ok, "GPSLongitude missing from the GPS table")
	assert.Contains(t, m, "GPSLongitude")
}
