package risk

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	editingChainAnomaly  = "Multiple editing chain detected from software metadata."
	stackedBlocksAnomaly = "Possible overwritten/stacked metadata blocks detected."

	minChainTools   = 2
	minStackedBlock = 3
)

var (
	chainSourceKeys = newKeywordSet("software", "application", "producer", "editor")
	stackedKeys     = newKeywordSet("xmp", "iptc", "exif", "makernote", "thumbnail", "history")

	chainDelimiters = regexp.MustCompile(`[>;|,/]+`)
)

// DetectAnomalies reports structural inconsistencies in md and its timeline.
// Each kind of anomaly appears at most once.
func (a *Analyzer) DetectAnomalies(md Metadata, timeline []TimelineEvent) []string {
	anomalies := make([]string, 0, 3)
	if msg, ok := outOfOrderEvent(timeline); ok {
		anomalies = append(anomalies, msg)
	}
	if len(editingChain(md)) >= minChainTools {
		anomalies = append(anomalies, editingChainAnomaly)
	}
	if countStackedBlocks(md) >= minStackedBlock {
		anomalies = append(anomalies, stackedBlocksAnomaly)
	}
	return anomalies
}

// outOfOrderEvent re-parses the timeline and reports the first event that is
// earlier than its predecessor.
func outOfOrderEvent(timeline []TimelineEvent) (string, bool) {
	if len(timeline) < 2 {
		return "", false
	}
	type parsedEvent struct {
		event string
		at    time.Time
	}
	parsed := make([]parsedEvent, 0, len(timeline))
	for _, ev := range timeline {
		if at, ok := ParseTimestamp(ev.Timestamp); ok {
			parsed = append(parsed, parsedEvent{event: ev.Event, at: at})
		}
	}
	for i := 1; i < len(parsed); i++ {
		prev, curr := parsed[i-1], parsed[i]
		if curr.at.Before(prev.at) {
			return fmt.Sprintf("Timestamp mismatch: '%s' occurs before '%s'.", curr.event, prev.event), true
		}
	}
	return "", false
}

// editingChain returns the distinct tools named by software-like fields in
// first-seen order.
func editingChain(md Metadata) []string {
	var tools []string
	seen := make(map[string]struct{})
	for _, f := range md {
		if !chainSourceKeys.containedIn(strings.ToLower(f.Key)) {
			continue
		}
		for _, part := range chainDelimiters.Split(ValueText(f.Value), -1) {
			tool := strings.ToLower(strings.TrimSpace(part))
			if tool == "" {
				continue
			}
			if _, ok := seen[tool]; ok {
				continue
			}
			seen[tool] = struct{}{}
			tools = append(tools, tool)
		}
	}
	return tools
}

func countStackedBlocks(md Metadata) int {
	seen := make(map[string]struct{})
	for _, f := range md {
		if stackedKeys.containedIn(strings.ToLower(f.Key)) {
			seen[f.Key] = struct{}{}
		}
	}
	return len(seen)
}
