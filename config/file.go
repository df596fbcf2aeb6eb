package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"metarisk/risk"
)

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// decodeFile unmarshals a JSON or YAML document, chosen by extension, into
// v. It also returns the set of top-level keys present in the document.
func decodeFile(path string, v any) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	if isYAML(path) {
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err == nil {
			for k := range raw {
				keys[k] = struct{}{}
			}
		}
		if err := yaml.Unmarshal(data, v); err != nil {
			return nil, err
		}
		return keys, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		for k := range raw {
			keys[k] = struct{}{}
		}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return nil, err
	}
	return keys, nil
}

func (cfg *Config) loadFromFile(path string) error {
	keys, err := decodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %v", path, err)
	}
	if _, ok := keys["concurrency_level"]; ok {
		cfg.ConcurrencySet = true
	}
	if _, ok := keys["max_io_per_second"]; ok {
		cfg.MaxIOSet = true
	}
	return nil
}

type customRulesDocument struct {
	CustomRules []risk.CustomRule `json:"custom_rules" yaml:"custom_rules"`
}

// loadCustomRules reads custom scoring rules either as a bare list or under a
// top-level custom_rules key.
func loadCustomRules(path string) ([]risk.CustomRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read custom rules %s: %v", path, err)
	}
	var (
		list []risk.CustomRule
		doc  customRulesDocument
	)
	unmarshal := json.Unmarshal
	if isYAML(path) {
		unmarshal = yaml.Unmarshal
	}
	if err := unmarshal(data, &list); err == nil {
		return list, nil
	}
	if err := unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse custom rules %s: %v", path, err)
	}
	return doc.CustomRules, nil
}
