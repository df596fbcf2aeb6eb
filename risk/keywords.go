package risk

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

const (
	autoAhoMinTerms     = 4
	autoAhoMinTextBytes = 512
)

// keywordSet answers "does this text contain any of the keywords". Short
// inputs use strings.Contains; long values go through the automaton.
type keywordSet struct {
	words   []string
	matcher *ahocorasick.Matcher
}

func newKeywordSet(words ...string) *keywordSet {
	normalized := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			normalized = append(normalized, w)
		}
	}
	set := &keywordSet{words: normalized}
	if len(normalized) > 0 {
		set.matcher = ahocorasick.NewStringMatcher(normalized)
	}
	return set
}

// containedIn reports whether lowered contains any keyword. lowered must
// already be lower-case.
func (k *keywordSet) containedIn(lowered string) bool {
	if k == nil || len(k.words) == 0 || lowered == "" {
		return false
	}
	if len(k.words) >= autoAhoMinTerms && len(lowered) >= autoAhoMinTextBytes {
		return len(k.matcher.MatchThreadSafe([]byte(lowered))) > 0
	}
	for _, w := range k.words {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}

// anyField reports whether any key or value of md contains a keyword.
func (k *keywordSet) anyField(md Metadata) bool {
	for _, f := range md {
		if k.containedIn(strings.ToLower(f.Key)) || k.containedIn(lowerText(f.Value)) {
			return true
		}
	}
	return false
}
