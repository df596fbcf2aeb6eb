package config

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"metarisk/hasher"
	"metarisk/risk"
	"metarisk/version"
)

type Config struct {
	StartPaths            []string          `json:"start_paths" yaml:"start_paths"`
	InputFile             string            `json:"input_file" yaml:"input_file"`
	CollectSystemInfo     bool              `json:"collect_system_info" yaml:"collect_system_info"`
	OutputFormat          string            `json:"output_format" yaml:"output_format"`
	OutputFileName        string            `json:"output_file_name" yaml:"output_file_name"`
	ConcurrencyLevel      int               `json:"concurrency_level" yaml:"concurrency_level"`
	NiceLevel             string            `json:"nice_level" yaml:"nice_level"`
	HashAlgorithms        []string          `json:"hash_algorithms" yaml:"hash_algorithms"`
	IncludePatterns       []string          `json:"include_patterns" yaml:"include_patterns"`
	ExcludePatterns       []string          `json:"exclude_patterns" yaml:"exclude_patterns"`
	MaxFileSize           int64             `json:"max_file_size" yaml:"max_file_size"`
	MaxOutputFileSize     int64             `json:"max_output_file_size" yaml:"max_output_file_size"`
	LogLevel              string            `json:"log_level" yaml:"log_level"`
	MaxIOPerSecond        int               `json:"max_io_per_second" yaml:"max_io_per_second"`
	ConfigFile            string            `json:"config_file" yaml:"config_file"`
	FuzzyHash             bool              `json:"fuzzy_hash" yaml:"fuzzy_hash"`
	FuzzyAlgorithms       []string          `json:"fuzzy_algorithms" yaml:"fuzzy_algorithms"`
	FuzzyMinSize          int64             `json:"fuzzy_min_size" yaml:"fuzzy_min_size"`
	FuzzyMaxSize          int64             `json:"fuzzy_max_size" yaml:"fuzzy_max_size"`
	KnownHashesFile       string            `json:"known_hashes_file" yaml:"known_hashes_file"`
	DeltaScan             bool              `json:"delta_scan" yaml:"delta_scan"`
	LastScanFile          string            `json:"last_scan_file" yaml:"last_scan_file"`
	LastScanTime          string            `json:"last_scan_time" yaml:"last_scan_time"`
	SkipCount             bool              `json:"skip_count" yaml:"skip_count"`
	MetadataMaxBytes      int64             `json:"metadata_max_bytes" yaml:"metadata_max_bytes"`
	IncludeMetadata       bool              `json:"include_metadata" yaml:"include_metadata"`
	FallbackTimestamps    bool              `json:"fallback_timestamps" yaml:"fallback_timestamps"`
	HistoryDir            string            `json:"history_dir" yaml:"history_dir"`
	HistoryRecent         int               `json:"history_recent" yaml:"history_recent"`
	CustomRulesFile       string            `json:"custom_rules_file" yaml:"custom_rules_file"`
	CustomRules           []risk.CustomRule `json:"custom_rules" yaml:"custom_rules"`
	DiagSlowScanThreshold time.Duration     `json:"diag_slow_scan_threshold" yaml:"diag_slow_scan_threshold"`
	DiagDir               string            `json:"diag_dir" yaml:"diag_dir"`
	DiagGoroutineLeak     bool              `json:"diag_goroutine_leak" yaml:"diag_goroutine_leak"`
	OtelEndpoint          string            `json:"otel_endpoint" yaml:"otel_endpoint"`
	OtelFromEnv           bool              `json:"otel_from_env" yaml:"otel_from_env"`
	OtelHeaders           map[string]string `json:"otel_headers" yaml:"otel_headers"`
	OtelServiceName       string            `json:"otel_service_name" yaml:"otel_service_name"`
	OtelTimeout           time.Duration     `json:"otel_timeout" yaml:"otel_timeout"`
	OtelExportPaths       bool              `json:"otel_export_paths" yaml:"otel_export_paths"`
	OtelExportMetadata    bool              `json:"otel_export_metadata" yaml:"otel_export_metadata"`
	TraceFlight           bool              `json:"trace_flight" yaml:"trace_flight"`
	TraceFlightFile       string            `json:"trace_flight_file" yaml:"trace_flight_file"`
	TraceFlightMaxBytes   uint64            `json:"trace_flight_max_bytes" yaml:"trace_flight_max_bytes"`
	TraceFlightMinAge     time.Duration     `json:"trace_flight_min_age" yaml:"trace_flight_min_age"`
	ConcurrencySet        bool              `json:"-" yaml:"-"`
	MaxIOSet              bool              `json:"-" yaml:"-"`
}

var outputFormats = map[string]string{
	"json": ".json",
	"csv":  ".csv",
	"text": ".txt",
}

// Defaults returns the configuration used when no flag or file overrides a
// field.
func Defaults() *Config {
	return &Config{
		StartPaths:         []string{"."},
		CollectSystemInfo:  true,
		OutputFormat:       "json",
		ConcurrencyLevel:   runtime.NumCPU(),
		NiceLevel:          "medium",
		HashAlgorithms:     []string{"sha256"},
		MaxFileSize:        100 * 1024 * 1024,
		MaxOutputFileSize:  104857600,
		LogLevel:           "info",
		MaxIOPerSecond:     1000,
		FuzzyAlgorithms:    []string{},
		FuzzyMinSize:       256,
		FuzzyMaxSize:       20 * 1024 * 1024,
		LastScanFile:       ".metarisk_last_scan",
		SkipCount:          true,
		MetadataMaxBytes:   16 * 1024 * 1024,
		FallbackTimestamps: true,
		DiagDir:            ".",
		OtelHeaders:        map[string]string{},
		OtelServiceName:    "metarisk",
		OtelTimeout:        5 * time.Second,
		TraceFlightFile:    "trace-flight.out",
	}
}

func LoadConfig() (*Config, error) {
	cfg := Defaults()

	startPath := flag.String("path", strings.Join(cfg.StartPaths, ","), fmt.Sprintf("Comma-separated list of start paths to scan (default: %s).", strings.Join(cfg.StartPaths, ",")))
	input := flag.String("input", "", "Analyze a JSON array of {file_path, metadata} entries instead of scanning (default: none).")
	collectSystemInfo := flag.Bool("collect-system-info", cfg.CollectSystemInfo, fmt.Sprintf("Record a host summary in the report (default: %t).", cfg.CollectSystemInfo))
	format := flag.String("format", cfg.OutputFormat, fmt.Sprintf("Output format: json, csv or text (default: %s).", cfg.OutputFormat))
	output := flag.String("output", "", "Output file name (default: metarisk-<timestamp>.<format>).")
	concurrency := flag.Int("concurrency", cfg.ConcurrencyLevel, fmt.Sprintf("Concurrency level (default: %d).", cfg.ConcurrencyLevel))
	nice := flag.String("nice", cfg.NiceLevel, fmt.Sprintf("Nice level: high, medium, or low (default: %s).", cfg.NiceLevel))
	hashes := flag.String("hashes", strings.Join(cfg.HashAlgorithms, ","), fmt.Sprintf("Comma-separated list of hash algorithms: %s (default: %s).", strings.Join(hasher.Supported, ", "), strings.Join(cfg.HashAlgorithms, ",")))
	includes := flag.String("include", "", "Comma-separated list of include patterns (default: none).")
	excludes := flag.String("exclude", "", "Comma-separated list of exclude patterns (default: none).")
	maxFileSize := flag.Int64("max-file-size", cfg.MaxFileSize, fmt.Sprintf("Maximum file size to process in bytes (default: %d).", cfg.MaxFileSize))
	maxOutputFileSize := flag.Int64("max-output-file-size", cfg.MaxOutputFileSize, fmt.Sprintf("Maximum output file size before rotation in bytes (default: %d).", cfg.MaxOutputFileSize))
	logLevel := flag.String("log-level", cfg.LogLevel, fmt.Sprintf("Log level: debug, info, warn, error, fatal, or panic (default: %s).", cfg.LogLevel))
	maxIO := flag.Int("max-io-per-second", cfg.MaxIOPerSecond, fmt.Sprintf("Maximum files opened per second (default: %d, 0 means unlimited).", cfg.MaxIOPerSecond))
	skipCount := flag.Bool("skip-count", cfg.SkipCount, "Skip initial file counting to start scanning immediately")
	metadataMaxBytes := flag.Int64("metadata-max-bytes", cfg.MetadataMaxBytes, fmt.Sprintf("Maximum bytes metadata parsers may read per file (default: %d, 0 means unlimited).", cfg.MetadataMaxBytes))
	includeMetadata := flag.Bool("include-metadata", cfg.IncludeMetadata, fmt.Sprintf("Write the extracted metadata into each file record (default: %t).", cfg.IncludeMetadata))
	fallbackTimestamps := flag.Bool("fallback-timestamps", cfg.FallbackTimestamps, fmt.Sprintf("Use filesystem times when a file carries no dated metadata (default: %t).", cfg.FallbackTimestamps))
	configFile := flag.String("config", "", "Path to a JSON or YAML configuration file (default: none).")
	fuzzyHash := flag.Bool("fuzzy-hash", cfg.FuzzyHash, fmt.Sprintf("Enable fuzzy hashing (default: %t).", cfg.FuzzyHash))
	fuzzyAlgorithms := flag.String("fuzzy-algorithms", strings.Join(cfg.FuzzyAlgorithms, ","), "Comma-separated list of fuzzy hash algorithms (default: tlsh when fuzzy hashing enabled).")
	fuzzyMinSize := flag.Int64("fuzzy-min-size", cfg.FuzzyMinSize, fmt.Sprintf("Minimum file size in bytes for fuzzy hashing (default: %d).", cfg.FuzzyMinSize))
	fuzzyMaxSize := flag.Int64("fuzzy-max-size", cfg.FuzzyMaxSize, fmt.Sprintf("Maximum file size in bytes for fuzzy hashing (default: %d).", cfg.FuzzyMaxSize))
	knownHashes := flag.String("known-hashes", "", "File of hex digests, one per line, whose files are skipped (default: none).")
	deltaScan := flag.Bool("delta-scan", cfg.DeltaScan, fmt.Sprintf("Only scan files modified since the last run (default: %t).", cfg.DeltaScan))
	lastScanFile := flag.String("last-scan-file", cfg.LastScanFile, fmt.Sprintf("Path to timestamp file for delta scans (default: %s).", cfg.LastScanFile))
	lastScanTime := flag.String("last-scan", cfg.LastScanTime, "Timestamp of last scan in RFC3339 format (default: none).")
	historyDir := flag.String("history-dir", "", "Directory of the assessment history store; enables change tracking (default: none).")
	historyRecent := flag.Int("history-recent", 0, "List the N most recent stored assessments from --history-dir and exit (default: 0/off).")
	customRules := flag.String("custom-rules", "", "JSON or YAML file with extra scoring rules (default: none).")
	diagSlowScanThreshold := flag.Duration("diag-slow-scan-threshold", cfg.DiagSlowScanThreshold, "If positive, emit diagnostics when scan progress stalls for this duration (default: 0/off).")
	diagDir := flag.String("diag-dir", cfg.DiagDir, "Diagnostics output directory (default: current directory).")
	diagGoroutineLeak := flag.Bool("diag-goroutine-leak", cfg.DiagGoroutineLeak, "Write goroutine profile on shutdown (default: false).")
	otelEndpoint := flag.String("otel-endpoint", cfg.OtelEndpoint, "OTLP/HTTP logs endpoint (default: none).")
	otelFromEnv := flag.Bool("otel-from-env", cfg.OtelFromEnv, "Allow OTEL endpoint fallback from OTEL environment variables (default: false).")
	otelHeaders := flag.String("otel-headers", "", "Comma-separated OTEL headers (key=value) for export (default: none).")
	otelServiceName := flag.String("otel-service-name", cfg.OtelServiceName, "OTEL service name for export (default: metarisk).")
	otelTimeout := flag.Duration("otel-timeout", cfg.OtelTimeout, "OTEL export timeout (default: 5s).")
	otelExportPaths := flag.Bool("otel-export-paths", cfg.OtelExportPaths, "Include raw file paths in OTEL payloads (default: false).")
	otelExportMetadata := flag.Bool("otel-export-metadata", cfg.OtelExportMetadata, "Include timeline values and reasons in OTEL payloads (default: false).")
	traceFlight := flag.Bool("trace-flight", cfg.TraceFlight, fmt.Sprintf("Enable flight recorder tracing (default: %t).", cfg.TraceFlight))
	traceFlightFile := flag.String("trace-flight-file", cfg.TraceFlightFile, fmt.Sprintf("Flight recorder output file (default: %s).", cfg.TraceFlightFile))
	traceFlightMaxBytes := flag.Uint64("trace-flight-max-bytes", cfg.TraceFlightMaxBytes, "Max bytes for flight recorder buffer (default: 0 for runtime default).")
	traceFlightMinAge := flag.Duration("trace-flight-min-age", cfg.TraceFlightMinAge, "Minimum age of trace events to retain (default: 0).")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = displayHelp
	flag.Parse()

	if *showVersion {
		fmt.Printf("metarisk version %s\n", version.Version)
		os.Exit(0)
	}

	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "path":
			cfg.StartPaths = parseCommaSeparated(*startPath)
		case "input":
			cfg.InputFile = strings.TrimSpace(*input)
		case "collect-system-info":
			cfg.CollectSystemInfo = *collectSystemInfo
		case "format":
			cfg.OutputFormat = *format
		case "output":
			cfg.OutputFileName = *output
		case "concurrency":
			cfg.ConcurrencyLevel = *concurrency
			cfg.ConcurrencySet = true
		case "nice":
			cfg.NiceLevel = *nice
		case "hashes":
			cfg.HashAlgorithms = parseCommaSeparated(*hashes)
		case "include":
			cfg.IncludePatterns = parseCommaSeparated(*includes)
		case "exclude":
			cfg.ExcludePatterns = parseCommaSeparated(*excludes)
		case "max-file-size":
			cfg.MaxFileSize = *maxFileSize
		case "max-output-file-size":
			cfg.MaxOutputFileSize = *maxOutputFileSize
		case "log-level":
			cfg.LogLevel = *logLevel
		case "max-io-per-second":
			cfg.MaxIOPerSecond = *maxIO
			cfg.MaxIOSet = true
		case "skip-count":
			cfg.SkipCount = *skipCount
		case "metadata-max-bytes":
			cfg.MetadataMaxBytes = *metadataMaxBytes
		case "include-metadata":
			cfg.IncludeMetadata = *includeMetadata
		case "fallback-timestamps":
			cfg.FallbackTimestamps = *fallbackTimestamps
		case "fuzzy-hash":
			cfg.FuzzyHash = *fuzzyHash
		case "fuzzy-algorithms":
			cfg.FuzzyAlgorithms = parseCommaSeparated(*fuzzyAlgorithms)
		case "fuzzy-min-size":
			cfg.FuzzyMinSize = *fuzzyMinSize
		case "fuzzy-max-size":
			cfg.FuzzyMaxSize = *fuzzyMaxSize
		case "known-hashes":
			cfg.KnownHashesFile = strings.TrimSpace(*knownHashes)
		case "delta-scan":
			cfg.DeltaScan = *deltaScan
		case "last-scan-file":
			cfg.LastScanFile = *lastScanFile
		case "last-scan":
			cfg.LastScanTime = *lastScanTime
		case "history-dir":
			cfg.HistoryDir = strings.TrimSpace(*historyDir)
		case "history-recent":
			cfg.HistoryRecent = *historyRecent
		case "custom-rules":
			cfg.CustomRulesFile = strings.TrimSpace(*customRules)
		case "diag-slow-scan-threshold":
			cfg.DiagSlowScanThreshold = *diagSlowScanThreshold
		case "diag-dir":
			cfg.DiagDir = strings.TrimSpace(*diagDir)
		case "diag-goroutine-leak":
			cfg.DiagGoroutineLeak = *diagGoroutineLeak
		case "otel-endpoint":
			cfg.OtelEndpoint = strings.TrimSpace(*otelEndpoint)
		case "otel-from-env":
			cfg.OtelFromEnv = *otelFromEnv
		case "otel-headers":
			cfg.OtelHeaders = parseHeaders(*otelHeaders)
		case "otel-service-name":
			cfg.OtelServiceName = strings.TrimSpace(*otelServiceName)
		case "otel-timeout":
			cfg.OtelTimeout = *otelTimeout
		case "otel-export-paths":
			cfg.OtelExportPaths = *otelExportPaths
		case "otel-export-metadata":
			cfg.OtelExportMetadata = *otelExportMetadata
		case "trace-flight":
			cfg.TraceFlight = *traceFlight
		case "trace-flight-file":
			cfg.TraceFlightFile = *traceFlightFile
		case "trace-flight-max-bytes":
			cfg.TraceFlightMaxBytes = *traceFlightMaxBytes
		case "trace-flight-min-age":
			cfg.TraceFlightMinAge = *traceFlightMinAge
		}
	})

	if cfg.CustomRulesFile != "" {
		rules, err := loadCustomRules(cfg.CustomRulesFile)
		if err != nil {
			return nil, err
		}
		cfg.CustomRules = append(cfg.CustomRules, rules...)
	}

	cfg.normalize(time.Now().UTC())

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalize lower-cases enumerations and fills in derived defaults.
func (cfg *Config) normalize(now time.Time) {
	cfg.OutputFormat = strings.ToLower(strings.TrimSpace(cfg.OutputFormat))
	cfg.NiceLevel = strings.ToLower(strings.TrimSpace(cfg.NiceLevel))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "json"
	}
	if strings.TrimSpace(cfg.OutputFileName) == "" {
		ext, ok := outputFormats[cfg.OutputFormat]
		if !ok {
			ext = "." + cfg.OutputFormat
		}
		cfg.OutputFileName = fmt.Sprintf("metarisk-%s%s", now.Format("20060102-150405"), ext)
	}
	if cfg.DiagDir == "" {
		cfg.DiagDir = "."
	}
	cfg.HashAlgorithms = normalizeAlgorithms(cfg.HashAlgorithms)
	cfg.FuzzyAlgorithms = normalizeAlgorithms(cfg.FuzzyAlgorithms)
	if cfg.FuzzyHash && len(cfg.FuzzyAlgorithms) == 0 {
		cfg.FuzzyAlgorithms = []string{"tlsh"}
	}
	if len(cfg.FuzzyAlgorithms) > 0 {
		cfg.FuzzyHash = true
	}
	if cfg.FuzzyMaxSize > 0 && cfg.FuzzyMaxSize < cfg.FuzzyMinSize {
		cfg.FuzzyMaxSize = cfg.FuzzyMinSize
	}
	if cfg.KnownHashesFile != "" && len(cfg.HashAlgorithms) == 0 {
		cfg.HashAlgorithms = []string{"sha256"}
	}
	if cfg.TraceFlight && cfg.TraceFlightFile == "" {
		cfg.TraceFlightFile = "trace-flight.out"
	}
	if len(cfg.StartPaths) == 0 && cfg.InputFile == "" {
		cfg.StartPaths = []string{"."}
	}
}

func displayHelp() {
	fmt.Println("metarisk - metadata privacy risk and forensic timeline analyzer")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  metarisk [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  metarisk --path \"$HOME/Pictures\" --format text")
	fmt.Println("  metarisk --path \"/srv/share,/tmp\" --hashes sha256,blake3 --history-dir .metarisk-history")
	fmt.Println("  metarisk --input extracted.json --format csv --output summary.csv")
	fmt.Println("  metarisk --history-dir .metarisk-history --history-recent 20")
}

func (cfg *Config) validate() error {
	if cfg.InputFile == "" && len(cfg.StartPaths) == 0 {
		return fmt.Errorf("either start path(s) or --input must be specified")
	}
	if _, ok := outputFormats[cfg.OutputFormat]; !ok {
		return fmt.Errorf("invalid output format: %s (json, csv or text)", cfg.OutputFormat)
	}
	for _, algo := range cfg.HashAlgorithms {
		if !containsString(hasher.Supported, algo) {
			return fmt.Errorf("unsupported hash algorithm: %s", algo)
		}
	}
	if cfg.FuzzyMinSize < 0 || cfg.FuzzyMaxSize < 0 {
		return fmt.Errorf("fuzzy size limits must be zero or positive")
	}
	if cfg.MaxFileSize < 0 {
		return fmt.Errorf("max-file-size must be zero or positive")
	}
	if cfg.MaxOutputFileSize < 0 {
		return fmt.Errorf("max-output-file-size must be zero or positive")
	}
	if cfg.DiagSlowScanThreshold < 0 {
		return fmt.Errorf("diag-slow-scan-threshold must be zero or positive")
	}
	if cfg.TraceFlightMinAge < 0 {
		return fmt.Errorf("trace-flight-min-age must be zero or positive")
	}
	if cfg.OtelTimeout < 0 {
		return fmt.Errorf("otel-timeout must be zero or positive")
	}
	if cfg.OtelEndpoint != "" {
		if !strings.HasPrefix(cfg.OtelEndpoint, "http://") && !strings.HasPrefix(cfg.OtelEndpoint, "https://") {
			return fmt.Errorf("otel-endpoint must include scheme (http or https)")
		}
	}
	if cfg.MaxIOPerSecond < 0 {
		return fmt.Errorf("max-io-per-second must be zero or positive")
	}
	if cfg.MetadataMaxBytes < 0 {
		return fmt.Errorf("metadata-max-bytes must be zero or positive")
	}
	if cfg.ConcurrencyLevel <= 0 {
		return fmt.Errorf("concurrency level must be positive")
	}
	if cfg.NiceLevel != "high" && cfg.NiceLevel != "medium" && cfg.NiceLevel != "low" {
		return fmt.Errorf("invalid nice level: %s", cfg.NiceLevel)
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" &&
		cfg.LogLevel != "error" && cfg.LogLevel != "fatal" && cfg.LogLevel != "panic" {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.DeltaScan && cfg.LastScanFile == "" && cfg.LastScanTime == "" {
		return fmt.Errorf("either last scan file or last scan time must be specified when delta scanning is enabled")
	}
	if cfg.LastScanTime != "" {
		if _, err := time.Parse(time.RFC3339, cfg.LastScanTime); err != nil {
			return fmt.Errorf("invalid last scan time format: %v", err)
		}
	}
	if cfg.HistoryRecent < 0 {
		return fmt.Errorf("history-recent must be zero or positive")
	}
	if cfg.HistoryRecent > 0 && cfg.HistoryDir == "" {
		return fmt.Errorf("history-recent requires history-dir")
	}
	seen := make(map[string]struct{}, len(cfg.CustomRules))
	for _, rule := range cfg.CustomRules {
		name := strings.TrimSpace(rule.Name)
		if name == "" {
			return fmt.Errorf("custom rule without a name")
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("custom rule %s defined twice", name)
		}
		seen[name] = struct{}{}
		if strings.TrimSpace(rule.Expression) == "" {
			return fmt.Errorf("custom rule %s has no expression", name)
		}
	}
	return nil
}

func parseCommaSeparated(input string) []string {
	if input == "" {
		return []string{}
	}
	items := strings.Split(input, ",")
	for i, item := range items {
		items[i] = strings.TrimSpace(item)
	}
	return items
}

func parseHeaders(input string) map[string]string {
	headers := make(map[string]string)
	if input == "" {
		return headers
	}
	items := strings.Split(input, ",")
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		headers[key] = value
	}
	return headers
}

func normalizeAlgorithms(items []string) []string {
	normalized := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" || containsString(normalized, item) {
			continue
		}
		normalized = append(normalized, item)
	}
	return normalized
}

func containsString(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
