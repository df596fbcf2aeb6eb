package output

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"metarisk/history"
)

// WriteRecent renders stored assessments, newest first, as a table.
func WriteRecent(w io.Writer, entries []history.Entry) error {
	if _, err := fmt.Fprintf(w, "Recent Assessments (%d)\n", len(entries)); err != nil {
		return err
	}
	if len(entries) == 0 {
		_, err := io.WriteString(w, "No stored assessments.\n")
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header("Scanned At", "Level", "Score", "Events", "Path")
	for _, e := range entries {
		row := []string{
			e.ScannedAt.UTC().Format(time.RFC3339),
			string(e.Assessment.RiskLevel),
			strconv.Itoa(e.Assessment.RiskScore),
			strconv.Itoa(e.Assessment.EventCount),
			e.Path,
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
