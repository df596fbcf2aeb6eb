package risk

import "strings"

const unknownFolder = "Unknown"

// Entry is one file handed to AnalyzeBatch.
type Entry struct {
	FilePath string   `json:"file_path"`
	Metadata Metadata `json:"metadata"`
}

// FolderStats counts files per level inside one folder.
type FolderStats struct {
	Total  int `json:"total"`
	Low    int `json:"LOW"`
	Medium int `json:"MEDIUM"`
	High   int `json:"HIGH"`
}

// Count returns the number of files at level.
func (f FolderStats) Count(level Level) int {
	switch level {
	case LevelLow:
		return f.Low
	case LevelMedium:
		return f.Medium
	default:
		return f.High
	}
}

// BatchSummary aggregates assessments across a batch of files.
type BatchSummary struct {
	TotalFiles  int                     `json:"total_files"`
	RiskCounts  map[Level]int           `json:"risk_counts"`
	Folders     map[string]*FolderStats `json:"folders"`
	HighestRisk *Assessment             `json:"highest_risk"`
	Results     []Assessment            `json:"results"`

	folderOrder []string
}

// NewBatchSummary returns an empty summary with every level counter present.
func NewBatchSummary() *BatchSummary {
	counts := make(map[Level]int, len(Levels))
	for _, level := range Levels {
		counts[level] = 0
	}
	return &BatchSummary{
		RiskCounts: counts,
		Folders:    map[string]*FolderStats{},
		Results:    []Assessment{},
	}
}

// Add folds one assessment into the summary. Results keep insertion order and
// the highest score seen first wins ties.
func (s *BatchSummary) Add(a Assessment) {
	s.Results = append(s.Results, a)
	s.TotalFiles = len(s.Results)
	s.RiskCounts[a.RiskLevel]++

	folder := folderOf(a.FilePath)
	stats, ok := s.Folders[folder]
	if !ok {
		stats = &FolderStats{}
		s.Folders[folder] = stats
		s.folderOrder = append(s.folderOrder, folder)
	}
	stats.Total++
	switch a.RiskLevel {
	case LevelLow:
		stats.Low++
	case LevelMedium:
		stats.Medium++
	default:
		stats.High++
	}

	if s.HighestRisk == nil || a.RiskScore > s.HighestRisk.RiskScore {
		highest := a
		s.HighestRisk = &highest
	}
}

// FolderPaths returns folder keys in the order they were first seen.
func (s *BatchSummary) FolderPaths() []string {
	return append([]string(nil), s.folderOrder...)
}

// AnalyzeBatch analyzes entries in order, without fallback timestamps, and
// aggregates the results.
func (a *Analyzer) AnalyzeBatch(entries []Entry) *BatchSummary {
	summary := NewBatchSummary()
	for _, entry := range entries {
		summary.Add(a.AnalyzeFile(entry.Metadata, entry.FilePath, nil))
	}
	return summary
}

// folderOf mirrors a POSIX dirname that also honours backslashes, so paths
// recorded on Windows group the same way on every platform.
func folderOf(path string) string {
	if path == "" {
		return unknownFolder
	}
	i := strings.LastIndexAny(path, `/\`) + 1
	head := path[:i]
	if trimmed := strings.TrimRight(head, `/\`); trimmed != "" {
		return trimmed
	}
	return head
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	return path[strings.LastIndexAny(path, `/\`)+1:]
}
