package output

import (
	"strconv"
	"strings"

	"metarisk/risk"
)

var csvHeader = []string{
	"record_type",
	"schema_version",
	"path",
	"name",
	"size",
	"mod_time",
	"mime_type",
	"risk_score",
	"risk_level",
	"matched_rules",
	"reasons",
	"timeline",
	"anomalies",
	"event_count",
	"hashes",
	"fuzzy_hashes",
	"previous_level",
	"previous_score",
	"metadata",
	"total",
	"low",
	"medium",
	"high",
	"system_info",
	"metrics",
}

// csvRow is keyed by header name; missing columns are written empty.
type csvRow map[string]string

func (w *Writer) writeCSVRow(recordType string, row csvRow) error {
	out := make([]string, len(csvHeader))
	out[0] = recordType
	out[1] = SchemaVersion
	for i := 2; i < len(csvHeader); i++ {
		out[i] = row[csvHeader[i]]
	}
	if err := w.csvw.Write(out); err != nil {
		return err
	}
	w.csvw.Flush()
	return w.csvw.Error()
}

func (w *Writer) writeCSVHeader() error {
	if err := w.csvw.Write(csvHeader); err != nil {
		return err
	}
	if w.sysInfo != nil {
		if err := w.writeCSVRow("system_info", csvRow{"system_info": jsonString(w.sysInfo)}); err != nil {
			return err
		}
	}
	w.csvw.Flush()
	return w.csvw.Error()
}

func (w *Writer) writeCSVFile(rec *FileRecord) error {
	a := rec.Assessment
	row := csvRow{
		"path":          rec.Path,
		"name":          rec.Name,
		"mod_time":      rec.ModTime,
		"mime_type":     rec.MimeType,
		"risk_score":    strconv.Itoa(a.RiskScore),
		"risk_level":    string(a.RiskLevel),
		"matched_rules": strings.Join(a.MatchedRules, ";"),
		"reasons":       jsonString(a.Reasons),
		"timeline":      jsonString(a.Timeline),
		"anomalies":     jsonString(a.Anomalies),
		"event_count":   strconv.Itoa(a.EventCount),
	}
	if rec.Size > 0 {
		row["size"] = strconv.FormatInt(rec.Size, 10)
	}
	if len(rec.Hashes) > 0 {
		row["hashes"] = jsonString(rec.Hashes)
	}
	if len(rec.FuzzyHashes) > 0 {
		row["fuzzy_hashes"] = jsonString(rec.FuzzyHashes)
	}
	if rec.Previous != nil {
		row["previous_level"] = string(rec.Previous.RiskLevel)
		row["previous_score"] = strconv.Itoa(rec.Previous.RiskScore)
	}
	if len(rec.Metadata) > 0 {
		row["metadata"] = jsonString(rec.Metadata)
	}
	return w.writeCSVRow("file", row)
}

func levelColumns(row csvRow, total int, count func(risk.Level) int) csvRow {
	row["total"] = strconv.Itoa(total)
	row["low"] = strconv.Itoa(count(risk.LevelLow))
	row["medium"] = strconv.Itoa(count(risk.LevelMedium))
	row["high"] = strconv.Itoa(count(risk.LevelHigh))
	return row
}

func (w *Writer) writeCSVFooter(summary *Summary) error {
	if summary != nil {
		for _, folder := range summary.folderOrder {
			stats := summary.Folders[folder]
			if stats == nil {
				continue
			}
			if err := w.writeCSVRow("folder", levelColumns(csvRow{"path": folder}, stats.Total, stats.Count)); err != nil {
				return err
			}
		}
		row := levelColumns(csvRow{}, summary.TotalFiles, func(l risk.Level) int { return summary.RiskCounts[l] })
		if h := summary.HighestRisk; h != nil {
			row["path"] = h.FilePath
			row["name"] = h.FileName
			row["risk_score"] = strconv.Itoa(h.RiskScore)
			row["risk_level"] = string(h.RiskLevel)
		}
		if err := w.writeCSVRow("summary", row); err != nil {
			return err
		}
	}
	if w.metrics != nil {
		return w.writeCSVRow("metrics", csvRow{"metrics": jsonString(w.metrics)})
	}
	return nil
}
