package risk

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// TimelineEvent is one dated metadata field. Timestamp keeps the original
// text; the parsed instant is only used for ordering.
type TimelineEvent struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
}

var timestampKeyHints = newKeywordSet(
	"capture",
	"created",
	"creation",
	"modified",
	"edit",
	"timestamp",
	"date",
	"time",
	"last saved",
)

type timelineCandidate struct {
	event string
	raw   string
	at    time.Time
}

// BuildTimeline collects date-like fields of md in chronological order. When
// md has none, every parseable fallback entry is used instead.
func (a *Analyzer) BuildTimeline(md Metadata, fallback Metadata) []TimelineEvent {
	candidates := timestampCandidates(md)
	if len(candidates) == 0 {
		for _, f := range fallback {
			at, ok := ParseTimestamp(f.Value)
			if !ok {
				continue
			}
			candidates = append(candidates, timelineCandidate{event: f.Key, raw: ValueText(f.Value), at: at})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].at.Before(candidates[j].at)
	})

	timeline := make([]TimelineEvent, 0, len(candidates))
	for _, c := range candidates {
		timeline = append(timeline, TimelineEvent{Event: c.event, Timestamp: c.raw})
	}
	return timeline
}

func timestampCandidates(md Metadata) []timelineCandidate {
	var candidates []timelineCandidate
	for _, f := range md {
		if !timestampKeyHints.containedIn(strings.ToLower(f.Key)) {
			continue
		}
		at, ok := ParseTimestamp(f.Value)
		if !ok {
			continue
		}
		candidates = append(candidates, timelineCandidate{event: f.Key, raw: ValueText(f.Value), at: at})
	}
	return candidates
}

var exifTimestampPattern = regexp.MustCompile(`^\d{4}:\d{2}:\d{2}\s+\d{2}:\d{2}:\d{2}$`)

// strptime-style layouts tried after ISO-8601, in order. Single-digit Go
// fields accept one or two digits, like the C directives they stand in for.
var fallbackLayouts = []string{
	"2006-1-2 15:4:5",
	"2006-1-2 15:4",
	"2-1-2006 15:4:5",
	"2-1-2006 15:4",
	"2006-1-2",
	"2-1-2006",
}

// ParseTimestamp interprets value as a point in time. time.Time values are
// returned unchanged; text is tried as ISO-8601 and then against a fixed list
// of day-first and year-first layouts. Text without an offset is read as UTC.
// Empty or unrecognised values report false.
func ParseTimestamp(value any) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()

	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	}

	text := strings.TrimSpace(ValueText(value))
	if text == "" {
		return time.Time{}, false
	}

	normalized := strings.ReplaceAll(text, "Z", "+00:00")
	normalized = strings.ReplaceAll(normalized, "/", "-")
	if exifTimestampPattern.MatchString(normalized) {
		normalized = strings.Replace(normalized, ":", "-", 2)
	}

	if t, ok := parseISO(normalized); ok {
		return t, true
	}

	collapsed := strings.Join(strings.Fields(normalized), " ")
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, collapsed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var isoTimePattern = regexp.MustCompile(`^(\d{2})(?::?(\d{2})(?::?(\d{2})(?:[.,](\d{1,9}))?)?)?(?:([+-])(\d{2})(?::?(\d{2})(?::?(\d{2}))?)?)?$`)

// parseISO accepts YYYY-MM-DD or YYYYMMDD, optionally followed by any single
// separator character and HH[:MM[:SS[.ffffff]]] with an optional offset.
func parseISO(s string) (time.Time, bool) {
	var year, month, day int
	var rest string
	switch {
	case len(s) >= 10 && s[4] == '-' && s[7] == '-':
		if !allDigits(s[0:4]) || !allDigits(s[5:7]) || !allDigits(s[8:10]) {
			return time.Time{}, false
		}
		year, month, day = atoi(s[0:4]), atoi(s[5:7]), atoi(s[8:10])
		rest = s[10:]
	case len(s) >= 8 && allDigits(s[0:8]):
		year, month, day = atoi(s[0:4]), atoi(s[4:6]), atoi(s[6:8])
		rest = s[8:]
	default:
		return time.Time{}, false
	}
	if !validDate(year, month, day) {
		return time.Time{}, false
	}
	if rest == "" {
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
	}

	// Any single character separates the date from the time.
	_, size := utf8.DecodeRuneInString(rest)
	parts := isoTimePattern.FindStringSubmatch(rest[size:])
	if parts == nil {
		return time.Time{}, false
	}
	hour, minute, second := atoi(parts[1]), atoi(parts[2]), atoi(parts[3])
	if hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}
	nanos := 0
	if frac := parts[4]; frac != "" {
		nanos = atoi((frac + "000000000")[:9])
	}
	loc := time.UTC
	if parts[5] != "" {
		offHour, offMin, offSec := atoi(parts[6]), atoi(parts[7]), atoi(parts[8])
		if offHour > 23 || offMin > 59 || offSec > 59 {
			return time.Time{}, false
		}
		offset := offHour*3600 + offMin*60 + offSec
		if parts[5] == "-" {
			offset = -offset
		}
		if offset != 0 {
			loc = time.FixedZone("", offset)
		}
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, nanos, loc), true
}

func validDate(year, month, day int) bool {
	if year < 1 || month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day && int(t.Month()) == month
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
