// Package output writes scan results as a single JSON document, a CSV table or
// a plain-text report, rotating the file when it grows past the configured
// size, and optionally mirrors each record to an OTLP log endpoint.
package output

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"metarisk/config"
	"metarisk/logger"
	"metarisk/risk"
	"metarisk/systeminfo"
)

type Writer struct {
	file    *os.File
	buf     *bufio.Writer
	csvw    *csv.Writer
	mu      sync.Mutex
	first   bool
	metrics *Metrics
	summary *Summary
	cfg     *config.Config
	sysInfo *systeminfo.SystemInfo
	otel    *otelLogger
	base    string
	ext     string
	index   int
	format  string
}

func New(cfg *config.Config, sysInfo *systeminfo.SystemInfo, m *Metrics) (*Writer, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	ext := filepath.Ext(cfg.OutputFileName)
	base := strings.TrimSuffix(cfg.OutputFileName, ext)
	format := strings.ToLower(cfg.OutputFormat)
	if format == "" {
		format = "json"
	}

	if sysInfo == nil {
		sysInfo = &systeminfo.SystemInfo{}
	}

	w := &Writer{
		first:   true,
		metrics: m,
		cfg:     cfg,
		sysInfo: sysInfo,
		base:    base,
		ext:     ext,
		format:  format,
	}
	otel, err := newOtelLogger(cfg)
	if err != nil {
		logger.Warnf("OTEL export disabled: %v", err)
	} else {
		w.otel = otel
	}
	if err := w.openFile(); err != nil {
		return nil, fmt.Errorf("open output %s: %w", cfg.OutputFileName, err)
	}
	w.emitRecordLocked("system_info", w.sysInfo)
	return w, nil
}

// Name returns the path of the file currently being written.
func (w *Writer) Name() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fileName()
}

func (w *Writer) fileName() string {
	if w.index > 0 {
		return fmt.Sprintf("%s.%d%s", w.base, w.index, w.ext)
	}
	return w.base + w.ext
}

func (w *Writer) openFile() error {
	f, err := os.OpenFile(w.fileName(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	w.file = f
	w.buf = bufio.NewWriterSize(f, 1024*1024)
	w.csvw = nil
	w.first = true

	switch w.format {
	case "csv":
		w.csvw = csv.NewWriter(w.buf)
		if err := w.writeCSVHeader(); err != nil {
			return err
		}
	case "text":
		if err := writeTextHeader(w.buf, w.sysInfo); err != nil {
			return err
		}
	default:
		if err := w.writeJSONHeader(); err != nil {
			return err
		}
	}
	return w.buf.Flush()
}

func (w *Writer) writeJSONHeader() error {
	sysBytes, err := jsonMarshalIndent(w.sysInfo, "  ", "  ")
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"schema_version\": %q,\n", SchemaVersion)
	b.WriteString("  \"system_info\": ")
	b.Write(sysBytes)
	b.WriteString(",\n  \"files\": [\n")
	_, err = w.buf.WriteString(b.String())
	return err
}

// WriteRecord appends one file record. Extracted metadata is dropped unless
// the configuration asks for it.
func (w *Writer) WriteRecord(rec FileRecord) {
	if !w.cfg.IncludeMetadata {
		rec.Metadata = nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var err error
	switch w.format {
	case "csv":
		err = w.writeCSVFile(&rec)
	case "text":
		err = writeTextRecord(w.buf, &rec)
	default:
		err = w.writeJSONRecord(&rec)
	}
	if err != nil {
		logger.Warnf("Failed to write record for %s: %v", rec.Path, err)
		return
	}
	if w.metrics != nil {
		w.metrics.FilesProcessed++
		if rec.Changed() {
			w.metrics.LevelChanges++
		}
	}
	w.emitRecordLocked("file", &rec)

	w.flush()

	if w.cfg.MaxOutputFileSize > 0 {
		if info, err := w.file.Stat(); err == nil && info.Size() >= w.cfg.MaxOutputFileSize {
			w.rotate()
		}
	}
}

func (w *Writer) writeJSONRecord(rec *FileRecord) error {
	bytes, err := jsonMarshalIndent(rec, "    ", "  ")
	if err != nil {
		return err
	}
	if !w.first {
		if _, err := w.buf.WriteString(",\n"); err != nil {
			return err
		}
	}
	w.first = false
	if _, err := w.buf.WriteString("    "); err != nil {
		return err
	}
	_, err = w.buf.Write(bytes)
	return err
}

// SetSummary attaches the batch aggregate written when the writer closes.
func (w *Writer) SetSummary(s *risk.BatchSummary) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.summary = newSummary(s)
}

func (w *Writer) SetMetrics(m Metrics) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.metrics = &m
}

func (w *Writer) IncrementScanned() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.metrics != nil {
		w.metrics.FilesScanned++
	}
}

func (w *Writer) IncrementSkipped() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.metrics != nil {
		w.metrics.FilesSkipped++
	}
}

func (w *Writer) FilesScanned() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.metrics == nil {
		return 0
	}
	return w.metrics.FilesScanned
}

func (w *Writer) FilesProcessed() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.metrics == nil {
		return 0
	}
	return w.metrics.FilesProcessed
}

func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.summary != nil {
		w.emitRecordLocked("summary", w.summary)
	}
	if w.metrics != nil {
		w.emitRecordLocked("metrics", w.metrics)
	}
	w.closeFile(true)
	if w.otel != nil {
		w.otel.Shutdown()
	}
}

func (w *Writer) rotate() {
	w.closeFile(false)
	w.index++
	if err := w.openFile(); err != nil {
		logger.Errorf("Failed to rotate output to %s: %v", w.fileName(), err)
	}
}

// closeFile finishes the current document. The summary only goes into the
// last file of a rotated series.
func (w *Writer) closeFile(final bool) {
	if w.file == nil {
		return
	}
	var summary *Summary
	if final {
		summary = w.summary
	}
	var err error
	switch w.format {
	case "csv":
		err = w.writeCSVFooter(summary)
	case "text":
		err = writeTextFooter(w.buf, summary, w.metrics)
	default:
		err = w.writeJSONFooter(summary)
	}
	if err != nil {
		logger.Warnf("Failed to finish %s: %v", w.fileName(), err)
	}
	w.flush()
	_ = w.file.Sync()
	_ = w.file.Close()
	w.file = nil
}

func (w *Writer) writeJSONFooter(summary *Summary) error {
	var b strings.Builder
	b.WriteString("\n  ]")
	if summary != nil {
		sBytes, err := jsonMarshalIndent(summary, "  ", "  ")
		if err != nil {
			return err
		}
		b.WriteString(",\n  \"summary\": ")
		b.Write(sBytes)
	}
	if w.metrics != nil {
		mBytes, err := jsonMarshalIndent(w.metrics, "  ", "  ")
		if err != nil {
			return err
		}
		b.WriteString(",\n  \"metrics\": ")
		b.Write(mBytes)
	}
	b.WriteString("\n}\n")
	_, err := w.buf.WriteString(b.String())
	return err
}

func (w *Writer) flush() {
	if w.csvw != nil {
		w.csvw.Flush()
	}
	if w.buf != nil {
		_ = w.buf.Flush()
	}
}

func (w *Writer) emitRecordLocked(recordType string, payload any) {
	if w.otel == nil {
		return
	}
	w.otel.Emit(recordType, payload)
}

func jsonString(value any) string {
	if value == nil {
		return ""
	}
	bytes, err := jsonMarshal(value)
	if err != nil {
		return ""
	}
	return string(bytes)
}
