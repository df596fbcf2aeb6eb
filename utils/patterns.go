package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

// PatternMatcher filters walked files. Each pattern is tried as a glob and,
// when it compiles, as a regular expression against the full path. Globs
// without a separator match the base name; globs with one match the trailing
// path segments. Glob matching ignores case so "*.jpg" also selects camera
// files named IMG_0001.JPG.
type PatternMatcher struct {
	include patternSet
	exclude patternSet
}

type patternSet struct {
	globs   []string
	regexes []*regexp.Regexp
}

func newPatternSet(patterns []string) patternSet {
	var set patternSet
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		set.globs = append(set.globs, strings.ToLower(filepath.ToSlash(pattern)))
		if re, err := regexp.Compile(pattern); err == nil {
			set.regexes = append(set.regexes, re)
		}
	}
	return set
}

func (s patternSet) empty() bool {
	return len(s.globs) == 0 && len(s.regexes) == 0
}

func (s patternSet) matches(path string) bool {
	slashed := strings.ToLower(filepath.ToSlash(path))
	for _, glob := range s.globs {
		if globMatches(glob, slashed) {
			return true
		}
	}
	for _, re := range s.regexes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func globMatches(glob, slashed string) bool {
	depth := strings.Count(glob, "/") + 1
	segments := strings.Split(slashed, "/")
	if len(segments) < depth {
		return false
	}
	tail := strings.Join(segments[len(segments)-depth:], "/")
	matched, _ := filepath.Match(glob, tail)
	return matched
}

func NewPatternMatcher(includePatterns, excludePatterns []string) *PatternMatcher {
	return &PatternMatcher{
		include: newPatternSet(includePatterns),
		exclude: newPatternSet(excludePatterns),
	}
}

func (m *PatternMatcher) ShouldInclude(path string) bool {
	if m == nil {
		return true
	}
	if !m.include.empty() && !m.include.matches(path) {
		return false
	}
	if !m.exclude.empty() && m.exclude.matches(path) {
		return false
	}
	return true
}
