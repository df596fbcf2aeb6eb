package output

import (
	"metarisk/risk"
)

const SchemaVersion = "1.0.0"

// FileRecord is one analyzed file as written to the report.
type FileRecord struct {
	Path        string              `json:"path"`
	Name        string              `json:"name,omitempty"`
	Size        int64               `json:"size,omitempty"`
	ModTime     string              `json:"mod_time,omitempty"`
	MimeType    string              `json:"mime_type,omitempty"`
	Hashes      map[string]string   `json:"hashes,omitempty"`
	FuzzyHashes map[string]string   `json:"fuzzy_hashes,omitempty"`
	Metadata    risk.Metadata       `json:"metadata,omitempty"`
	Assessment  risk.Assessment     `json:"assessment"`
	Previous    *PreviousAssessment `json:"previous,omitempty"`
}

// PreviousAssessment is the last stored result for the same path.
type PreviousAssessment struct {
	ScannedAt string     `json:"scanned_at"`
	RiskScore int        `json:"risk_score"`
	RiskLevel risk.Level `json:"risk_level"`
}

// Changed reports whether the level moved since the previous scan.
func (r *FileRecord) Changed() bool {
	return r != nil && r.Previous != nil && r.Previous.RiskLevel != r.Assessment.RiskLevel
}

// Summary is the batch aggregate without the per-file results, which the
// report already carries as file records.
type Summary struct {
	TotalFiles  int                          `json:"total_files"`
	RiskCounts  map[risk.Level]int           `json:"risk_counts"`
	Folders     map[string]*risk.FolderStats `json:"folders"`
	HighestRisk *risk.Assessment             `json:"highest_risk"`

	folderOrder []string
}

func newSummary(s *risk.BatchSummary) *Summary {
	if s == nil {
		return nil
	}
	return &Summary{
		TotalFiles:  s.TotalFiles,
		RiskCounts:  s.RiskCounts,
		Folders:     s.Folders,
		HighestRisk: s.HighestRisk,
		folderOrder: s.FolderPaths(),
	}
}

type Metrics struct {
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	TotalFiles     int    `json:"total_files"`
	FilesScanned   int    `json:"files_scanned"`
	FilesProcessed int    `json:"files_processed"`
	FilesSkipped   int    `json:"files_skipped"`
	LevelChanges   int    `json:"level_changes"`
}
