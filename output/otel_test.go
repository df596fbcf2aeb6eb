package output

import (
	"testing"

	"metarisk/config"
	"metarisk/risk"
	"metarisk/systeminfo"

	otelLog "go.opentelemetry.io/otel/log"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

func findAttr(kvs []otelLog.KeyValue, key string) (otelLog.Value, bool) {
	for _, kv := range kvs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return otelLog.Value{}, false
}

func sampleRecord() *FileRecord {
	return &FileRecord{
		Path:     "/home/jane/photos/IMG_1.jpg",
		Name:     "IMG_1.jpg",
		Size:     2048,
		MimeType: "image/jpeg",
		Hashes:   map[string]string{"sha256": "abc"},
		Metadata: risk.Metadata{{Key: "Artist", Value: "Jane"}},
		Assessment: risk.Assessment{
			FilePath:     "/home/jane/photos/IMG_1.jpg",
			FileName:     "IMG_1.jpg",
			RiskScore:    70,
			RiskLevel:    risk.LevelHigh,
			MatchedRules: []string{"gps_coordinates", "author_identity"},
			Timeline:     []risk.TimelineEvent{{Event: "DateTime", Timestamp: "2024:01:01 10:00:00"}},
			EventCount:   1,
		},
		Previous: &PreviousAssessment{RiskLevel: risk.LevelMedium, RiskScore: 40},
	}
}

func TestResolveOtelEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "https://logs.example.test/v1/logs")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://fallback.example.test")

	cfg := &config.Config{OtelEndpoint: "  https://explicit.example.test  ", OtelFromEnv: true}
	if got := resolveOtelEndpoint(cfg); got != "https://explicit.example.test" {
		t.Fatalf("expected explicit endpoint, got %q", got)
	}

	cfg = &config.Config{OtelFromEnv: true}
	if got := resolveOtelEndpoint(cfg); got != "https://logs.example.test/v1/logs" {
		t.Fatalf("expected logs env endpoint, got %q", got)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "")
	if got := resolveOtelEndpoint(cfg); got != "https://fallback.example.test" {
		t.Fatalf("expected fallback env endpoint, got %q", got)
	}

	cfg = &config.Config{OtelFromEnv: false}
	if got := resolveOtelEndpoint(cfg); got != "" {
		t.Fatalf("expected empty endpoint when env fallback disabled, got %q", got)
	}
}

func TestNewOtelLoggerDisabledWithoutEndpoint(t *testing.T) {
	o, err := newOtelLogger(&config.Config{})
	if err != nil || o != nil {
		t.Fatalf("expected no logger, got %v %v", o, err)
	}
	if _, err := newOtelLogger(&config.Config{OtelEndpoint: "collector:4318"}); err == nil {
		t.Fatal("expected error for endpoint without scheme")
	}
	var nilLogger *otelLogger
	nilLogger.Emit("file", sampleRecord())
	nilLogger.Shutdown()
	if nilLogger.Endpoint() != "" {
		t.Fatal("nil logger should report no endpoint")
	}
}

func TestSanitizeFileRecord(t *testing.T) {
	rec := sampleRecord()
	safe, ok := sanitizePayload(rec, otelPolicy{}).(*FileRecord)
	if !ok {
		t.Fatal("expected *FileRecord")
	}
	if safe.Path != "" || safe.Assessment.FilePath != "" {
		t.Fatalf("expected paths stripped: %+v", safe)
	}
	if safe.Metadata != nil || safe.Assessment.Timeline != nil {
		t.Fatalf("expected metadata values stripped: %+v", safe)
	}
	if safe.Assessment.RiskScore != 70 || safe.Name != "IMG_1.jpg" {
		t.Fatalf("expected scores and name kept: %+v", safe)
	}
	if rec.Path == "" || len(rec.Metadata) != 1 || len(rec.Assessment.Timeline) != 1 {
		t.Fatal("original record must not be mutated")
	}

	full := sanitizePayload(rec, otelPolicy{includePaths: true, includeMetadata: true}).(*FileRecord)
	if full.Path != rec.Path || len(full.Metadata) != 1 {
		t.Fatalf("expected full record when allowed: %+v", full)
	}
}

func TestSanitizeSummaryAndSystemInfo(t *testing.T) {
	summary := newSummary(func() *risk.BatchSummary {
		s := risk.NewBatchSummary()
		s.Add(risk.Assessment{FilePath: "/a/b.jpg", RiskScore: 80, RiskLevel: risk.LevelHigh})
		return s
	}())
	safe := sanitizePayload(summary, otelPolicy{}).(*Summary)
	if safe.Folders != nil || safe.HighestRisk.FilePath != "" {
		t.Fatalf("expected folder paths stripped: %+v", safe)
	}
	if summary.HighestRisk.FilePath != "/a/b.jpg" || summary.Folders["/a"] == nil {
		t.Fatal("original summary must not be mutated")
	}

	info := &systeminfo.SystemInfo{Hostname: "box", OS: "linux", Volumes: []systeminfo.VolumeInfo{{Path: "/srv"}}}
	safeInfo := sanitizePayload(info, otelPolicy{}).(*systeminfo.SystemInfo)
	if safeInfo.Hostname != "" || safeInfo.Volumes != nil || safeInfo.OS != "linux" {
		t.Fatalf("unexpected sanitized system info: %+v", safeInfo)
	}
}

func TestFileSemanticAttributes(t *testing.T) {
	rec := sampleRecord()
	kvs := fileSemanticAttributes(rec, otelPolicy{})
	if _, ok := findAttr(kvs, string(semconv.FilePathKey)); ok {
		t.Fatal("path attribute must be omitted without includePaths")
	}
	if v, ok := findAttr(kvs, string(semconv.FileExtensionKey)); !ok || v.AsString() != "jpg" {
		t.Fatalf("unexpected extension attr: %v", v)
	}
	if v, ok := findAttr(kvs, "metarisk.risk.level"); !ok || v.AsString() != "HIGH" {
		t.Fatalf("unexpected level attr: %v", v)
	}
	if v, ok := findAttr(kvs, "metarisk.risk.score"); !ok || v.AsInt64() != 70 {
		t.Fatalf("unexpected score attr: %v", v)
	}
	if v, ok := findAttr(kvs, "metarisk.file.hash.sha256"); !ok || v.AsString() != "abc" {
		t.Fatalf("unexpected hash attr: %v", v)
	}
	if v, ok := findAttr(kvs, "metarisk.risk.previous_level"); !ok || v.AsString() != "MEDIUM" {
		t.Fatalf("unexpected previous attr: %v", v)
	}

	kvs = fileSemanticAttributes(rec, otelPolicy{includePaths: true})
	if v, ok := findAttr(kvs, string(semconv.FileDirectoryKey)); !ok || v.AsString() != "/home/jane/photos" {
		t.Fatalf("unexpected directory attr: %v", v)
	}
}

func TestMetricsSemanticAttributes(t *testing.T) {
	kvs := metricsSemanticAttributes(&Metrics{StartTime: "s", FilesScanned: 3, FilesSkipped: 1})
	if v, ok := findAttr(kvs, "metarisk.metrics.files_scanned"); !ok || v.AsInt64() != 3 {
		t.Fatalf("unexpected files_scanned: %v", v)
	}
	if v, ok := findAttr(kvs, "metarisk.metrics.files_skipped"); !ok || v.AsInt64() != 1 {
		t.Fatalf("unexpected files_skipped: %v", v)
	}
	if _, ok := findAttr(kvs, "metarisk.metrics.end_time"); ok {
		t.Fatal("empty end time should be omitted")
	}
}

func TestToLogValue(t *testing.T) {
	body := toLogValue(payloadToMap(sampleRecord()))
	if body.Kind() != otelLog.KindMap {
		t.Fatalf("expected map body, got %v", body.Kind())
	}
	if v := toLogValue(nil); v.Kind() != otelLog.KindEmpty {
		t.Fatalf("expected empty value for nil, got %v", v.Kind())
	}
	if v := toLogValue([]any{"a", 1.5, true}); v.Kind() != otelLog.KindSlice || len(v.AsSlice()) != 3 {
		t.Fatalf("unexpected slice value: %v", v)
	}
}
