package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"metarisk/risk"
)

func loadWithArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	oldArgs := os.Args
	oldFlag := flag.CommandLine
	t.Cleanup(func() {
		os.Args = oldArgs
		flag.CommandLine = oldFlag
	})
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	os.Args = append([]string{"cmd"}, args...)
	return LoadConfig()
}

func validConfig() *Config {
	return &Config{
		StartPaths:       []string{"/"},
		OutputFormat:     "json",
		ConcurrencyLevel: 1,
		NiceLevel:        "high",
		LogLevel:         "info",
	}
}

func TestParseCommaSeparated(t *testing.T) {
	res := parseCommaSeparated("a,b , c")
	if len(res) != 3 || res[1] != "b" {
		t.Fatalf("unexpected result: %v", res)
	}
	if res := parseCommaSeparated(""); len(res) != 0 {
		t.Fatalf("expected empty slice")
	}
}

func TestParseHeaders(t *testing.T) {
	h := parseHeaders("A=1, B = two ,bad,=x")
	if len(h) != 2 || h["A"] != "1" || h["B"] != "two" {
		t.Fatalf("unexpected headers: %v", h)
	}
}

func TestNormalizeAlgorithms(t *testing.T) {
	got := normalizeAlgorithms([]string{" SHA256", "sha256", "", "Blake3"})
	if len(got) != 2 || got[0] != "sha256" || got[1] != "blake3" {
		t.Fatalf("unexpected algorithms: %v", got)
	}
}

func TestLoadFromJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	if err := os.WriteFile(path, []byte(`{"start_paths":["/tmp"],"concurrency_level":3,"include_metadata":true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Defaults()
	if err := cfg.loadFromFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StartPaths[0] != "/tmp" || cfg.ConcurrencyLevel != 3 || !cfg.IncludeMetadata {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if !cfg.ConcurrencySet || cfg.MaxIOSet {
		t.Fatalf("expected only concurrency marked as set: %+v", cfg)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	doc := `start_paths:
  - /srv/share
output_format: text
max_io_per_second: 50
custom_rules:
  - name: drone
    score: 25
    reason: Drone metadata found.
    expression: Contains("dji")
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Defaults()
	if err := cfg.loadFromFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StartPaths[0] != "/srv/share" || cfg.OutputFormat != "text" || cfg.MaxIOPerSecond != 50 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if !cfg.MaxIOSet {
		t.Fatal("expected max io marked as set")
	}
	if len(cfg.CustomRules) != 1 || cfg.CustomRules[0].Name != "drone" || cfg.CustomRules[0].Score != 25 {
		t.Fatalf("unexpected custom rules: %+v", cfg.CustomRules)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := Defaults()
	if err := cfg.loadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := cfg.loadFromFile(bad); err == nil {
		t.Fatal("expected error for malformed file")
	}
}

func TestLoadCustomRules(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "rules.json")
	if err := os.WriteFile(list, []byte(`[{"name":"a","score":5,"expression":"true"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	rules, err := loadCustomRules(list)
	if err != nil || len(rules) != 1 || rules[0].Name != "a" {
		t.Fatalf("list form: %v %+v", err, rules)
	}

	wrapped := filepath.Join(dir, "rules.yml")
	if err := os.WriteFile(wrapped, []byte("custom_rules:\n  - name: b\n    score: 7\n    expression: HasKey(\"gps\")\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rules, err = loadCustomRules(wrapped)
	if err != nil || len(rules) != 1 || rules[0].Name != "b" || rules[0].Score != 7 {
		t.Fatalf("wrapped form: %v %+v", err, rules)
	}

	if _, err := loadCustomRules(filepath.Join(dir, "none.json")); err == nil {
		t.Fatal("expected error for missing rules file")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"no paths or input": func(c *Config) { c.StartPaths = nil },
		"output format":     func(c *Config) { c.OutputFormat = "xml" },
		"concurrency":       func(c *Config) { c.ConcurrencyLevel = 0 },
		"nice level":        func(c *Config) { c.NiceLevel = "bad" },
		"log level":         func(c *Config) { c.LogLevel = "bad" },
		"hash":              func(c *Config) { c.HashAlgorithms = []string{"crc32"} },
		"otel scheme":       func(c *Config) { c.OtelEndpoint = "otel.example.com" },
		"last scan":         func(c *Config) { c.LastScanTime = "yesterday" },
		"negative io":       func(c *Config) { c.MaxIOPerSecond = -1 },
		"recent no store":   func(c *Config) { c.HistoryRecent = 5 },
		"negative recent":   func(c *Config) { c.HistoryDir = "h"; c.HistoryRecent = -1 },
		"rule without name": func(c *Config) { c.CustomRules = []risk.CustomRule{{Expression: "true"}} },
		"rule without expr": func(c *Config) { c.CustomRules = []risk.CustomRule{{Name: "x"}} },
		"duplicate rule": func(c *Config) {
			c.CustomRules = []risk.CustomRule{{Name: "x", Expression: "true"}, {Name: "x", Expression: "false"}}
		},
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(cfg)
		if err := cfg.validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	cfg := validConfig()
	if err := cfg.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.StartPaths = nil
	cfg.InputFile = "entries.json"
	if err := cfg.validate(); err != nil {
		t.Fatalf("input mode should not need start paths: %v", err)
	}
}

func TestDefaultOutputNameFollowsFormat(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	for format, ext := range outputFormats {
		cfg := Defaults()
		cfg.OutputFormat = strings.ToUpper(format)
		cfg.normalize(now)
		want := "metarisk-20240501-083000" + ext
		if cfg.OutputFileName != want {
			t.Fatalf("%s: got %s, want %s", format, cfg.OutputFileName, want)
		}
	}
}

func TestFuzzyHashFlagDefaultsAlgorithm(t *testing.T) {
	cfg, err := loadWithArgs(t, "--fuzzy-hash")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.FuzzyHash {
		t.Fatal("expected fuzzy hash enabled")
	}
	if len(cfg.FuzzyAlgorithms) == 0 || cfg.FuzzyAlgorithms[0] != "tlsh" {
		t.Fatalf("expected tlsh default, got %v", cfg.FuzzyAlgorithms)
	}
}

func TestAnalysisFlags(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.json")
	if err := os.WriteFile(rules, []byte(`[{"name":"drone","score":25,"expression":"Contains(\"dji\")"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadWithArgs(t,
		"--input", "entries.json",
		"--format", "csv",
		"--include-metadata",
		"--fallback-timestamps=false",
		"--history-dir", filepath.Join(dir, "history"),
		"--history-recent", "7",
		"--custom-rules", rules,
		"--known-hashes", "known.txt",
		"--hashes", "",
	)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.InputFile != "entries.json" || cfg.OutputFormat != "csv" || !strings.HasSuffix(cfg.OutputFileName, ".csv") {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if !cfg.IncludeMetadata || cfg.FallbackTimestamps {
		t.Fatalf("unexpected metadata flags: %+v", cfg)
	}
	if cfg.HistoryDir == "" || cfg.HistoryRecent != 7 || cfg.KnownHashesFile != "known.txt" {
		t.Fatalf("unexpected history or known hashes: %+v", cfg)
	}
	if len(cfg.CustomRules) != 1 || cfg.CustomRules[0].Name != "drone" {
		t.Fatalf("unexpected custom rules: %+v", cfg.CustomRules)
	}
	if len(cfg.HashAlgorithms) != 1 || cfg.HashAlgorithms[0] != "sha256" {
		t.Fatalf("known hashes should force a digest, got %v", cfg.HashAlgorithms)
	}
}

func TestCollectSystemInfoFlag(t *testing.T) {
	cfg, err := loadWithArgs(t, "--collect-system-info=false")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CollectSystemInfo {
		t.Fatal("expected system info collection disabled")
	}
}

func TestTraceFlightFlags(t *testing.T) {
	cfg, err := loadWithArgs(t,
		"--trace-flight",
		"--trace-flight-file", "trace.out",
		"--trace-flight-max-bytes", "2048",
		"--trace-flight-min-age", "5s",
	)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.TraceFlight {
		t.Fatal("expected trace flight enabled")
	}
	if cfg.TraceFlightFile != "trace.out" {
		t.Fatalf("unexpected trace flight file: %s", cfg.TraceFlightFile)
	}
	if cfg.TraceFlightMaxBytes != 2048 {
		t.Fatalf("unexpected trace flight max bytes: %d", cfg.TraceFlightMaxBytes)
	}
	if cfg.TraceFlightMinAge != 5*time.Second {
		t.Fatalf("unexpected trace flight min age: %v", cfg.TraceFlightMinAge)
	}
}

func TestOtelFlags(t *testing.T) {
	cfg, err := loadWithArgs(t,
		"--otel-endpoint", "https://otel.example.com/v1/logs",
		"--otel-export-paths",
		"--otel-export-metadata",
		"--otel-headers", "Authorization=Bearer test,Env=prod",
		"--otel-service-name", "metarisk-agent",
		"--otel-timeout", "10s",
	)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OtelEndpoint != "https://otel.example.com/v1/logs" {
		t.Fatalf("unexpected otel endpoint: %s", cfg.OtelEndpoint)
	}
	if cfg.OtelServiceName != "metarisk-agent" {
		t.Fatalf("unexpected otel service name: %s", cfg.OtelServiceName)
	}
	if cfg.OtelTimeout != 10*time.Second {
		t.Fatalf("unexpected otel timeout: %v", cfg.OtelTimeout)
	}
	if !cfg.OtelExportPaths || !cfg.OtelExportMetadata {
		t.Fatalf("expected otel export flags to be enabled: %+v", cfg)
	}
	if cfg.OtelHeaders["Authorization"] != "Bearer test" || cfg.OtelHeaders["Env"] != "prod" {
		t.Fatalf("unexpected otel headers: %v", cfg.OtelHeaders)
	}
}

func TestDefaultSkipCountEnabled(t *testing.T) {
	cfg, err := loadWithArgs(t)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.SkipCount {
		t.Fatal("expected skip-count default to be enabled")
	}
	if !cfg.FallbackTimestamps {
		t.Fatal("expected fallback timestamps enabled by default")
	}
}
