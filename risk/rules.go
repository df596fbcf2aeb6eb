package risk

import "regexp"

// Predicate decides whether a rule applies to a metadata map. A returned
// error counts as "did not match".
type Predicate func(md Metadata) (bool, error)

// Rule is one scoring rule. Rules are plain data so adding one is a single
// entry in DefaultRules.
type Rule struct {
	Name      string
	Score     int
	Reason    string
	Predicate Predicate
}

var coordinatePattern = regexp.MustCompile(`[-+]?\d{1,3}\.\d+\s*,\s*[-+]?\d{1,3}\.\d+`)

var (
	gpsKeywords    = newKeywordSet("gps", "latitude", "longitude", "lat", "lon", "location")
	authorKeywords = newKeywordSet("author", "creator", "owner", "user", "last modified by")
	deviceKeywords = newKeywordSet("device", "camera", "model", "serial", "imei", "make")
	editKeywords   = newKeywordSet("software", "application", "producer", "editor", "history", "tool")
	blockKeywords  = newKeywordSet("xmp", "iptc", "exif", "makernote", "thumbnail", "private tag")
)

// DefaultRules returns the built-in rule set in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:      "gps_coordinates",
			Score:     30,
			Reason:    "GPS or precise location metadata is present.",
			Predicate: hasGPSCoordinates,
		},
		{
			Name:      "author_identity",
			Score:     18,
			Reason:    "Author/user identity metadata is present.",
			Predicate: anyFieldContains(authorKeywords),
		},
		{
			Name:      "device_information",
			Score:     18,
			Reason:    "Device or camera-identifying information is present.",
			Predicate: anyFieldContains(deviceKeywords),
		},
		{
			Name:      "editing_traces",
			Score:     15,
			Reason:    "Software/editor processing traces are present.",
			Predicate: anyFieldContains(editKeywords),
		},
		{
			Name:      "hidden_blocks",
			Score:     20,
			Reason:    "Hidden/embedded metadata blocks (XMP/EXIF/IPTC/MakerNote) detected.",
			Predicate: anyFieldContains(blockKeywords),
		},
	}
}

func anyFieldContains(set *keywordSet) Predicate {
	return func(md Metadata) (bool, error) {
		return set.anyField(md), nil
	}
}

func hasGPSCoordinates(md Metadata) (bool, error) {
	if gpsKeywords.anyField(md) {
		return true, nil
	}
	for _, f := range md {
		if coordinatePattern.MatchString(ValueText(f.Value)) {
			return true, nil
		}
	}
	return false, nil
}
