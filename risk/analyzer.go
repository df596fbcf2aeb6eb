// Package risk scores file metadata for privacy exposure and reconstructs a
// forensic timeline from the timestamps it carries.
//
// An Analyzer holds only its rule list, which is fixed at construction, so a
// single instance may be shared by any number of goroutines.
package risk

import (
	"errors"
	"fmt"
	"strings"

	"metarisk/logger"
)

// Level is the categorical banding of a risk score.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Levels lists every level in ascending order.
var Levels = []Level{LevelLow, LevelMedium, LevelHigh}

const (
	anomalyPenalty = 20
	maxScore       = 100

	noIndicatorsReason = "No high-sensitivity metadata indicators were detected."
)

type levelBand struct {
	min, max int
	level    Level
}

var levelBands = []levelBand{
	{0, 29, LevelLow},
	{30, 64, LevelMedium},
	{65, 100, LevelHigh},
}

// Assessment is the result of analyzing one file.
type Assessment struct {
	FilePath     string          `json:"file_path"`
	FileName     string          `json:"file_name"`
	RiskScore    int             `json:"risk_score"`
	RiskLevel    Level           `json:"risk_level"`
	Reasons      []string        `json:"reasons"`
	MatchedRules []string        `json:"matched_rules"`
	Timeline     []TimelineEvent `json:"timeline"`
	Anomalies    []string        `json:"anomalies"`
	EventCount   int             `json:"event_count"`
}

// Analyzer evaluates metadata against a fixed rule list.
type Analyzer struct {
	rules []Rule
}

// Option configures an Analyzer at construction.
type Option func(*Analyzer) error

// WithRules replaces the default rule set.
func WithRules(rules []Rule) Option {
	return func(a *Analyzer) error {
		for _, r := range rules {
			if err := validateRule(r); err != nil {
				return err
			}
		}
		a.rules = append([]Rule(nil), rules...)
		return nil
	}
}

// New builds an Analyzer with the default rules plus any options.
func New(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{rules: DefaultRules()}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Rules returns a copy of the analyzer's rule list.
func (a *Analyzer) Rules() []Rule {
	return append([]Rule(nil), a.rules...)
}

// AnalyzeFile scores md. fallback supplies timeline candidates when md has
// no date-like keys; it may be nil. filePath may be empty.
func (a *Analyzer) AnalyzeFile(md Metadata, filePath string, fallback Metadata) Assessment {
	if md == nil {
		md = Metadata{}
	}

	score := 0
	var matched []Rule
	for _, rule := range a.rules {
		ok, err := evaluateRule(rule, md)
		if err != nil {
			logger.Debugf("Rule %s skipped for %q: %v", rule.Name, filePath, err)
			continue
		}
		if ok {
			matched = append(matched, rule)
			score += rule.Score
		}
	}

	timeline := a.BuildTimeline(md, fallback)
	anomalies := a.DetectAnomalies(md, timeline)
	if len(anomalies) > 0 {
		score += anomalyPenalty
	}
	score = clampScore(score)

	reasons := make([]string, 0, len(matched)+len(anomalies))
	names := make([]string, 0, len(matched))
	for _, rule := range matched {
		reasons = append(reasons, rule.Reason)
		names = append(names, rule.Name)
	}
	reasons = append(reasons, anomalies...)
	if len(reasons) == 0 {
		reasons = []string{noIndicatorsReason}
	}

	return Assessment{
		FilePath:     filePath,
		FileName:     baseName(filePath),
		RiskScore:    score,
		RiskLevel:    ScoreLevel(score),
		Reasons:      reasons,
		MatchedRules: names,
		Timeline:     timeline,
		Anomalies:    anomalies,
		EventCount:   len(timeline),
	}
}

// ScoreLevel maps a score onto its band. Scores outside every band are HIGH.
func ScoreLevel(score int) Level {
	for _, band := range levelBands {
		if score >= band.min && score <= band.max {
			return band.level
		}
	}
	return LevelHigh
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// evaluateRule isolates a single predicate; a panic is reported as an error.
func evaluateRule(rule Rule, md Metadata) (matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
			err = fmt.Errorf("predicate panicked: %v", r)
		}
	}()
	if rule.Predicate == nil {
		return false, errors.New("rule has no predicate")
	}
	return rule.Predicate(md)
}

func validateRule(r Rule) error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("rule name must not be empty")
	}
	if r.Score <= 0 {
		return fmt.Errorf("rule %s: score must be positive", r.Name)
	}
	if r.Predicate == nil {
		return fmt.Errorf("rule %s: predicate is required", r.Name)
	}
	return nil
}
