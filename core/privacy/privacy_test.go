package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ankit-chaubey/photo-scrub/core"
)

func metadata(entries ...core.TagEntry) core.MetadataMap {
	m := make(core.MetadataMap)
	for _, e := range entries {
		m.Add(e)
	}
	return m
}

func entry(s core.Section, code uint16, name string) core.TagEntry {
	return core.TagEntry{Section: s, Code: code, Name: name, Value: core.Text("x")}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		m    core.MetadataMap
		want core.ClassificationFlags
	}{
		{"empty", metadata(), core.ClassificationFlags{}},
		{"nil", nil, core.ClassificationFlags{}},
		{"technical only", metadata(
			entry(core.PrimaryImage, 0x0112, "Orientation"),
			entry(core.CaptureInfo, 0x829A, "ExposureTime"),
		), core.ClassificationFlags{}},
		{"gps only", metadata(
			entry(core.GPSInfo, 0x0000, "GPSVersionID"),
		), core.ClassificationFlags{HasGPS: true}},
		{"unknown gps tag", metadata(
			entry(core.GPSInfo, 0x0099, "GPSInfo_153"),
		), core.ClassificationFlags{HasGPS: true}},
		{"make in primary", metadata(
			entry(core.PrimaryImage, 0x010F, "Make"),
		), core.ClassificationFlags{HasPersonalData: true}},
		{"substring match", metadata(
			entry(core.CaptureInfo, 0x927C, "MakerNote"),
		), core.ClassificationFlags{HasPersonalData: true}},
		{"date digitized", metadata(
			entry(core.CaptureInfo, 0x9004, "DateTimeDigitized"),
		), core.ClassificationFlags{HasPersonalData: true}},
		{"xp author", metadata(
			entry(core.PrimaryImage, 0x9C9D, "XPAuthor"),
		), core.ClassificationFlags{HasPersonalData: true}},
		{"thumbnail ignored", metadata(
			entry(core.Thumbnail, 0x010F, "ThumbnailMake"),
			entry(core.Thumbnail, 0x0132, "ThumbnailDateTime"),
		), core.ClassificationFlags{}},
		{"interop ignored", metadata(
			entry(core.Interoperability, 0x0001, "Artist"),
		), core.ClassificationFlags{}},
		{"case sensitive", metadata(
			entry(core.PrimaryImage, 0xBEEF, "make"),
		), core.ClassificationFlags{}},
		{"both", metadata(
			entry(core.PrimaryImage, 0x013B, "Artist"),
			entry(core.GPSInfo, 0x0002, "GPSLatitude"),
		), core.ClassificationFlags{HasGPS: true, HasPersonalData: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.m))
		})
	}
}

func TestPersonalFields(t *testing.T) {
	m := metadata(
		entry(core.PrimaryImage, 0x0110, "Model"),
		entry(core.PrimaryImage, 0x010F, "Make"),
		entry(core.PrimaryImage, 0x0112, "Orientation"),
		entry(core.CaptureInfo, 0xA434, "LensModel"),
		entry(core.Thumbnail, 0x010F, "ThumbnailMake"),
	)
	assert.Equal(t, []string{"LensModel", "Make", "Model"}, PersonalFields(m))
	assert.Empty(t, PersonalFields(metadata()))
}

func TestClassifyIsPure(t *testing.T) {
	m := metadata(entry(core.PrimaryImage, 0x010F, "Make"))
	first := Classify(m)
	second := Classify(m)
	assert.Equal(t, first, second)
	assert.Len(t, m, 1, "Classify changed its input")
}
