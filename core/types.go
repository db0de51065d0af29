// Package core defines the shared types, error kinds, and format detection
// for photo-scrub.
package core

import (
	"fmt"
	"sort"
)

// ImageBuffer is a raw image payload plus the content type it was declared as.
// It is never modified after it is read.
type ImageBuffer struct {
	Data        []byte
	ContentType string // e.g. "image/jpeg", "image/png"
}

// Len returns the payload size in bytes.
func (b ImageBuffer) Len() int { return len(b.Data) }

// Section is one of the tag directory groups of an EXIF block.
type Section uint8

const (
	PrimaryImage Section = iota
	Thumbnail
	CaptureInfo
	GPSInfo
	Interoperability
)

// Sections lists every section in parse order.
var Sections = []Section{PrimaryImage, Thumbnail, CaptureInfo, GPSInfo, Interoperability}

func (s Section) String() string {
	switch s {
	case PrimaryImage:
		return "PrimaryImage"
	case Thumbnail:
		return "Thumbnail"
	case CaptureInfo:
		return "CaptureInfo"
	case GPSInfo:
		return "GPSInfo"
	case Interoperability:
		return "Interoperability"
	default:
		return fmt.Sprintf("Section(%d)", uint8(s))
	}
}

// TagEntry is a single metadata item.
type TagEntry struct {
	Section Section
	Code    uint16 // numeric tag identifier from the directory
	Name    string // resolved name, or FallbackName(Section, Code)
	Value   Value
}

// FallbackName is the deterministic name for a tag with no table entry.
// It is unique per section and code.
func FallbackName(s Section, code uint16) string {
	return fmt.Sprintf("%s_%d", s, code)
}

// MetadataMap maps resolved tag names to entries, flattened across sections.
// Use Add to insert so that distinct tags never share a name.
type MetadataMap map[string]TagEntry

// Add inserts e. A name already held by another (section, code) pair pushes
// e onto its fallback name; the same (section, code) overwrites the earlier
// value.
func (m MetadataMap) Add(e TagEntry) {
	if prev, ok := m[e.Name]; ok && (prev.Section != e.Section || prev.Code != e.Code) {
		e.Name = FallbackName(e.Section, e.Code)
	}
	m[e.Name] = e
}

// Get returns the value stored under name.
func (m MetadataMap) Get(name string) (Value, bool) {
	e, ok := m[name]
	return e.Value, ok
}

// Section returns the entries of one section ordered by tag code.
func (m MetadataMap) Section(s Section) []TagEntry {
	var out []TagEntry
	for _, e := range m {
		if e.Section == s {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Names returns every key in sorted order.
func (m MetadataMap) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ClassificationFlags are the privacy findings for one image.
type ClassificationFlags struct {
	HasGPS          bool
	HasPersonalData bool
}

// Strategy records how the cleaned buffer was produced.
type Strategy string

const (
	StrategySurgical Strategy = "surgical" // metadata segments cut out, pixels untouched
	StrategyReencode Strategy = "reencode" // decoded to raster and encoded again
)

// ProcessingResult is everything produced for one image. The engine keeps no
// reference to it once returned.
type ProcessingResult struct {
	ID           string
	Original     ImageBuffer
	Cleaned      ImageBuffer
	Metadata     MetadataMap
	Flags        ClassificationFlags
	OriginalSize int
	CleanedSize  int
	Strategy     Strategy
}

// Saved returns how many bytes cleaning removed. It is negative when a
// re-encode grew the file.
func (r *ProcessingResult) Saved() int {
	return r.OriginalSize - r.CleanedSize
}
