package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"metarisk/risk"
	"metarisk/systeminfo"
)

const textRule = "----------------------------------------------------------------"

func writeTextHeader(w io.Writer, sysInfo *systeminfo.SystemInfo) error {
	var b strings.Builder
	b.WriteString("Metadata Risk Report\n")
	fmt.Fprintf(&b, "Generated on: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	if sysInfo != nil {
		host := sysInfo.Hostname
		if host == "" {
			host = "unknown"
		}
		fmt.Fprintf(&b, "Host: %s (%s/%s)\n", host, sysInfo.OS, sysInfo.Arch)
		for _, v := range sysInfo.Volumes {
			fmt.Fprintf(&b, "Volume: %s %s\n", v.Path, v.Fstype)
		}
	}
	b.WriteString(textRule + "\n\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeTextRecord(w io.Writer, rec *FileRecord) error {
	var b strings.Builder
	name := rec.Name
	if name == "" {
		name = filepath.Base(rec.Path)
	}
	fileType := strings.TrimPrefix(filepath.Ext(name), ".")
	if fileType == "" {
		fileType = "unknown"
	}
	fmt.Fprintf(&b, "File Name: %s\n", name)
	fmt.Fprintf(&b, "File Path: %s\n", rec.Path)
	fmt.Fprintf(&b, "File Size: %s\n", humanSize(rec.Size))
	fmt.Fprintf(&b, "File Type: %s\n", fileType)
	if rec.ModTime != "" {
		fmt.Fprintf(&b, "Modified On: %s\n", rec.ModTime)
	}
	if len(rec.Metadata) > 0 {
		b.WriteString("\n")
		for _, field := range rec.Metadata {
			fmt.Fprintf(&b, "%s: %s\n", field.Key, risk.ValueText(field.Value))
		}
	}

	a := rec.Assessment
	b.WriteString("\nPrivacy Risk Analysis\n")
	fmt.Fprintf(&b, "Risk Level: %s\n", a.RiskLevel)
	fmt.Fprintf(&b, "Risk Score: %d/100\n", a.RiskScore)
	fmt.Fprintf(&b, "Timeline Events: %d\n", a.EventCount)
	if len(a.Reasons) > 0 {
		b.WriteString("Risk Reasons:\n")
		for _, reason := range a.Reasons {
			fmt.Fprintf(&b, "- %s\n", reason)
		}
	}
	if len(a.Timeline) > 0 {
		b.WriteString("Forensic Timeline:\n")
		for _, event := range a.Timeline {
			fmt.Fprintf(&b, "- %s: %s\n", event.Event, event.Timestamp)
		}
	}
	if len(a.Anomalies) > 0 {
		b.WriteString("Anomalies:\n")
		for _, anomaly := range a.Anomalies {
			fmt.Fprintf(&b, "- %s\n", anomaly)
		}
	}
	if p := rec.Previous; p != nil {
		fmt.Fprintf(&b, "Previous Scan: %s (%d/100) at %s\n", p.RiskLevel, p.RiskScore, p.ScannedAt)
	}
	b.WriteString(textRule + "\n\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeTextFooter(w io.Writer, summary *Summary, metrics *Metrics) error {
	if summary != nil {
		var b strings.Builder
		b.WriteString("Batch Risk Summary\n")
		fmt.Fprintf(&b, "Total Files: %d\n", summary.TotalFiles)
		for _, level := range risk.Levels {
			fmt.Fprintf(&b, "%s: %d\n", level, summary.RiskCounts[level])
		}
		if h := summary.HighestRisk; h != nil {
			fmt.Fprintf(&b, "Highest Risk: %s (%s, %d/100)\n", h.FilePath, h.RiskLevel, h.RiskScore)
		}
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if len(summary.folderOrder) > 0 {
			if _, err := io.WriteString(w, "Folder Breakdown:\n"); err != nil {
				return err
			}
			if err := renderFolderTable(w, summary); err != nil {
				return err
			}
		}
	}
	if metrics != nil {
		var b strings.Builder
		b.WriteString("\nScan Metrics\n")
		fmt.Fprintf(&b, "Started: %s\n", metrics.StartTime)
		fmt.Fprintf(&b, "Finished: %s\n", metrics.EndTime)
		fmt.Fprintf(&b, "Files Scanned: %d\n", metrics.FilesScanned)
		fmt.Fprintf(&b, "Files Reported: %d\n", metrics.FilesProcessed)
		if metrics.FilesSkipped > 0 {
			fmt.Fprintf(&b, "Known Files Skipped: %d\n", metrics.FilesSkipped)
		}
		if metrics.LevelChanges > 0 {
			fmt.Fprintf(&b, "Risk Level Changes: %d\n", metrics.LevelChanges)
		}
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

func renderFolderTable(w io.Writer, summary *Summary) error {
	table := tablewriter.NewWriter(w)
	header := []any{"Folder", "Total"}
	for _, level := range risk.Levels {
		header = append(header, levelTitle(level))
	}
	table.Header(header...)
	for _, folder := range summary.folderOrder {
		stats := summary.Folders[folder]
		if stats == nil {
			continue
		}
		row := []string{folder, strconv.Itoa(stats.Total)}
		for _, level := range risk.Levels {
			row = append(row, strconv.Itoa(stats.Count(level)))
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// levelTitle turns LOW into Low.
func levelTitle(level risk.Level) string {
	s := strings.ToLower(string(level))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// humanSize renders n the way file managers do: whole bytes below 1 KB, two
// decimals above.
func humanSize(n int64) string {
	size := float64(n)
	units := []string{"B", "KB", "MB", "GB", "TB"}
	for i, unit := range units {
		if size < 1024 || i == len(units)-1 {
			if unit == "B" {
				return fmt.Sprintf("%d B", int64(size))
			}
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return ""
}
