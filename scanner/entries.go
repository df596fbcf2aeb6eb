package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"metarisk/logger"
	"metarisk/output"
	"metarisk/risk"
)

// AnalyzeEntries scores pre-extracted metadata instead of walking the disk.
// path holds a JSON array of {file_path, metadata} objects; "-" reads stdin.
// Entries are analyzed in order without filesystem fallback timestamps.
func AnalyzeEntries(ctx context.Context, path string, analyzer *risk.Analyzer, metrics *output.Metrics, w *output.Writer) (*risk.BatchSummary, error) {
	entries, err := readEntries(path)
	if err != nil {
		return nil, err
	}
	logger.Infof("Analyzing %d entries from %s", len(entries), path)
	if metrics != nil {
		metrics.TotalFiles = len(entries)
	}

	summary := analyzer.AnalyzeBatch(entries)
	for i, a := range summary.Results {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		w.IncrementScanned()
		w.WriteRecord(output.FileRecord{
			Path:       a.FilePath,
			Name:       a.FileName,
			Metadata:   entries[i].Metadata,
			Assessment: a,
		})
	}
	return summary, nil
}

func readEntries(path string) ([]risk.Entry, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open entries %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	var entries []risk.Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode entries %s: %w", path, err)
	}
	return entries, nil
}
