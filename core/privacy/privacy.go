// Package privacy decides whether extracted metadata exposes location or
// identifying information.
package privacy

import (
	"sort"
	"strings"

	"github.com/ankit-chaubey/photo-scrub/core"
)

// watchList holds name fragments that mark a tag as personal. Matching is a
// case-sensitive substring test, so "Make" also catches "MakerNote" and
// "LensMake".
var watchList = []string{
	"Artist",
	"Copyright",
	"ImageDescription",
	"Make",
	"Model",
	"Software",
	"DateTime",
	"DateTimeOriginal",
	"XPAuthor",
	"XPComment",
}

// Only these sections are checked for personal data. Thumbnail tags repeat
// IFD0 names but describe the preview, not the photo.
var personalSections = map[core.Section]bool{
	core.PrimaryImage: true,
	core.CaptureInfo:  true,
}

// Classify returns the privacy flags for m.
func Classify(m core.MetadataMap) core.ClassificationFlags {
	var flags core.ClassificationFlags
	for _, e := range m {
		if e.Section == core.GPSInfo {
			flags.HasGPS = true
		}
		if !flags.HasPersonalData && isPersonal(e) {
			flags.HasPersonalData = true
		}
		if flags.HasGPS && flags.HasPersonalData {
			break
		}
	}
	return flags
}

// PersonalFields returns the sorted names of the entries that make
// HasPersonalData true.
func PersonalFields(m core.MetadataMap) []string {
	var names []string
	for name, e := range m {
		if isPersonal(e) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func isPersonal(e core.TagEntry) bool {
	if !personalSections[e.Section] {
		return false
	}
	for _, w := range watchList {
		if strings.Contains(e.Name, w) {
			return true
		}
	}
	return false
}
