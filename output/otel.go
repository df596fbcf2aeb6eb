package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"metarisk/config"
	"metarisk/logger"
	"metarisk/risk"
	"metarisk/systeminfo"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otelLog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

type otelLogger struct {
	provider *sdklog.LoggerProvider
	logger   otelLog.Logger
	timeout  time.Duration
	endpoint string
	policy   otelPolicy
}

type otelPolicy struct {
	includePaths    bool
	includeMetadata bool
}

func newOtelLogger(cfg *config.Config) (*otelLogger, error) {
	if cfg == nil {
		return nil, nil
	}
	endpoint := resolveOtelEndpoint(cfg)
	if endpoint == "" {
		return nil, nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("otel endpoint must include scheme (http or https)")
	}

	opts := []otlploghttp.Option{otlploghttp.WithEndpointURL(endpoint)}
	if len(cfg.OtelHeaders) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.OtelHeaders))
	}
	if cfg.OtelTimeout > 0 {
		opts = append(opts, otlploghttp.WithTimeout(cfg.OtelTimeout))
	}

	exp, err := otlploghttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	serviceName := cfg.OtelServiceName
	if serviceName == "" {
		serviceName = "metarisk"
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	)

	return &otelLogger{
		provider: provider,
		logger:   provider.Logger("metarisk"),
		timeout:  cfg.OtelTimeout,
		endpoint: endpoint,
		policy: otelPolicy{
			includePaths:    cfg.OtelExportPaths,
			includeMetadata: cfg.OtelExportMetadata,
		},
	}, nil
}

func resolveOtelEndpoint(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	if endpoint := strings.TrimSpace(cfg.OtelEndpoint); endpoint != "" {
		return endpoint
	}
	if !cfg.OtelFromEnv {
		return ""
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT")); endpoint != "" {
		return endpoint
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

func (o *otelLogger) Endpoint() string {
	if o == nil {
		return ""
	}
	return o.endpoint
}

func (o *otelLogger) Emit(recordType string, payload any) {
	if o == nil || o.logger == nil {
		return
	}
	safePayload := sanitizePayload(payload, o.policy)

	now := time.Now()
	var record otelLog.Record
	record.SetTimestamp(now)
	record.SetObservedTimestamp(now)
	record.SetEventName("metarisk.record")
	record.AddAttributes(
		otelLog.String("record_type", recordType),
		otelLog.String("schema_version", SchemaVersion),
	)
	if attrs := semanticAttributes(safePayload, o.policy); len(attrs) > 0 {
		record.AddAttributes(attrs...)
	}
	if recordType == "file" {
		if rec, ok := safePayload.(*FileRecord); ok && rec.Assessment.RiskLevel == risk.LevelHigh {
			record.SetSeverity(otelLog.SeverityWarn)
		} else {
			record.SetSeverity(otelLog.SeverityInfo)
		}
	}

	if body := toLogValue(payloadToMap(safePayload)); body.Kind() != otelLog.KindEmpty {
		record.SetBody(body)
	} else if data, err := json.Marshal(safePayload); err == nil {
		record.SetBody(otelLog.StringValue(string(data)))
	}

	o.logger.Emit(context.Background(), record)
}

func (o *otelLogger) Shutdown() {
	if o == nil || o.provider == nil {
		return
	}
	timeout := o.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := o.provider.Shutdown(ctx); err != nil {
		logger.Debugf("OTEL shutdown failed: %v", err)
	}
}

// sanitizePayload returns a copy of payload with paths and metadata values
// removed unless the policy allows them. Payloads are never mutated.
func sanitizePayload(payload any, policy otelPolicy) any {
	switch v := payload.(type) {
	case *FileRecord:
		rec := *v
		if !policy.includePaths {
			rec.Path = ""
			rec.Assessment.FilePath = ""
		}
		if !policy.includeMetadata {
			rec.Metadata = nil
			rec.Assessment.Timeline = nil
		}
		return &rec
	case *Summary:
		s := *v
		if s.HighestRisk != nil {
			highest := *s.HighestRisk
			if !policy.includePaths {
				highest.FilePath = ""
			}
			if !policy.includeMetadata {
				highest.Timeline = nil
			}
			s.HighestRisk = &highest
		}
		if !policy.includePaths {
			s.Folders = nil
		}
		return &s
	case *systeminfo.SystemInfo:
		info := *v
		if !policy.includePaths {
			info.Hostname = ""
			info.Volumes = nil
		}
		return &info
	default:
		return payload
	}
}

func semanticAttributes(payload any, policy otelPolicy) []otelLog.KeyValue {
	switch v := payload.(type) {
	case *FileRecord:
		return fileSemanticAttributes(v, policy)
	case *Summary:
		return summarySemanticAttributes(v)
	case *systeminfo.SystemInfo:
		return systemSemanticAttributes(v)
	case *Metrics:
		return metricsSemanticAttributes(v)
	default:
		return nil
	}
}

func fileSemanticAttributes(rec *FileRecord, policy otelPolicy) []otelLog.KeyValue {
	var kvs []otelLog.KeyValue

	if policy.includePaths && rec.Path != "" {
		kvs = append(kvs, otelLog.String(string(semconv.FilePathKey), rec.Path))
		kvs = append(kvs, otelLog.String(string(semconv.FileDirectoryKey), filepath.Dir(rec.Path)))
	}
	if rec.Name != "" {
		kvs = append(kvs, otelLog.String(string(semconv.FileNameKey), rec.Name))
		if ext := strings.TrimPrefix(filepath.Ext(rec.Name), "."); ext != "" {
			kvs = append(kvs, otelLog.String(string(semconv.FileExtensionKey), ext))
		}
	}
	if rec.Size > 0 {
		kvs = append(kvs, otelLog.Int64(string(semconv.FileSizeKey), rec.Size))
	}
	kvs = appendStringAttr(kvs, "metarisk.file.mime_type", rec.MimeType)
	kvs = appendStringAttr(kvs, "metarisk.file.mod_time", rec.ModTime)

	a := rec.Assessment
	kvs = append(kvs,
		otelLog.Int("metarisk.risk.score", a.RiskScore),
		otelLog.String("metarisk.risk.level", string(a.RiskLevel)),
		otelLog.Int("metarisk.risk.event_count", a.EventCount),
		otelLog.Int("metarisk.risk.anomaly_count", len(a.Anomalies)),
	)
	if len(a.MatchedRules) > 0 {
		kvs = append(kvs, otelLog.KeyValue{Key: "metarisk.risk.matched_rules", Value: toLogValue(a.MatchedRules)})
	}
	for algo, value := range rec.Hashes {
		kvs = appendStringAttr(kvs, "metarisk.file.hash."+algo, value)
	}
	for algo, value := range rec.FuzzyHashes {
		kvs = appendStringAttr(kvs, "metarisk.file.fuzzy_hash."+algo, value)
	}
	if p := rec.Previous; p != nil {
		kvs = append(kvs,
			otelLog.String("metarisk.risk.previous_level", string(p.RiskLevel)),
			otelLog.Int("metarisk.risk.previous_score", p.RiskScore),
		)
	}
	return kvs
}

func summarySemanticAttributes(s *Summary) []otelLog.KeyValue {
	kvs := []otelLog.KeyValue{
		otelLog.Int("metarisk.summary.total_files", s.TotalFiles),
		otelLog.Int("metarisk.summary.folders", len(s.folderOrder)),
	}
	for _, level := range risk.Levels {
		kvs = append(kvs, otelLog.Int("metarisk.summary."+strings.ToLower(string(level)), s.RiskCounts[level]))
	}
	if h := s.HighestRisk; h != nil {
		kvs = append(kvs, otelLog.Int("metarisk.summary.highest_score", h.RiskScore))
	}
	return kvs
}

func systemSemanticAttributes(info *systeminfo.SystemInfo) []otelLog.KeyValue {
	var kvs []otelLog.KeyValue
	kvs = appendStringAttr(kvs, string(semconv.OSTypeKey), info.OS)
	kvs = appendStringAttr(kvs, string(semconv.OSNameKey), info.Platform)
	kvs = appendStringAttr(kvs, string(semconv.OSVersionKey), info.PlatformVersion)
	kvs = appendStringAttr(kvs, string(semconv.HostArchKey), info.Arch)
	kvs = appendStringAttr(kvs, string(semconv.HostNameKey), info.Hostname)
	kvs = appendStringAttr(kvs, "metarisk.system.timezone", info.Timezone)
	if info.CPUCount > 0 {
		kvs = append(kvs, otelLog.Int("metarisk.system.cpu_count", info.CPUCount))
	}
	return kvs
}

func metricsSemanticAttributes(m *Metrics) []otelLog.KeyValue {
	var kvs []otelLog.KeyValue
	kvs = appendStringAttr(kvs, "metarisk.metrics.start_time", m.StartTime)
	kvs = appendStringAttr(kvs, "metarisk.metrics.end_time", m.EndTime)
	return append(kvs,
		otelLog.Int("metarisk.metrics.total_files", m.TotalFiles),
		otelLog.Int("metarisk.metrics.files_scanned", m.FilesScanned),
		otelLog.Int("metarisk.metrics.files_processed", m.FilesProcessed),
		otelLog.Int("metarisk.metrics.files_skipped", m.FilesSkipped),
		otelLog.Int("metarisk.metrics.level_changes", m.LevelChanges),
	)
}

// payloadToMap round-trips payload through JSON so the body mirrors the file
// report field names.
func payloadToMap(payload any) map[string]any {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil
	}
	return decoded
}

func toLogValue(value any) otelLog.Value {
	switch v := value.(type) {
	case nil:
		return otelLog.Value{}
	case string:
		return otelLog.StringValue(v)
	case bool:
		return otelLog.BoolValue(v)
	case int:
		return otelLog.IntValue(v)
	case int64:
		return otelLog.Int64Value(v)
	case float64:
		return otelLog.Float64Value(v)
	case map[string]any:
		if v == nil {
			return otelLog.Value{}
		}
		kvs := make([]otelLog.KeyValue, 0, len(v))
		for key, item := range v {
			kvs = append(kvs, otelLog.KeyValue{Key: key, Value: toLogValue(item)})
		}
		return otelLog.MapValue(kvs...)
	case []string:
		values := make([]otelLog.Value, 0, len(v))
		for _, item := range v {
			values = append(values, otelLog.StringValue(item))
		}
		return otelLog.SliceValue(values...)
	case []any:
		values := make([]otelLog.Value, 0, len(v))
		for _, item := range v {
			values = append(values, toLogValue(item))
		}
		return otelLog.SliceValue(values...)
	default:
		return otelLog.Value{}
	}
}

func appendStringAttr(kvs []otelLog.KeyValue, key, value string) []otelLog.KeyValue {
	if value == "" {
		return kvs
	}
	return append(kvs, otelLog.String(key, value))
}
