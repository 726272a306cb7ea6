package telemetry

import (
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ServerConfig is the model registry configuration of a running server.
// The blob is opaque to fdwatch; Models is a best-effort summary pulled
// from it for the table view.
type ServerConfig struct {
	Raw    any
	Models []ModelSummary
}

// ModelSummary is the part of one model's configuration shown in tables.
type ModelSummary struct {
	Name      string
	Backend   string
	MaxBatch  int
	Instances int
	Inputs    int
	Outputs   int
}

// NewServerConfig wraps a decoded JSON blob. The blob is either one model
// config, a list of model configs, or an object keyed by model name.
func NewServerConfig(raw any) ServerConfig {
	cfg := ServerConfig{Raw: raw}

	switch v := raw.(type) {
	case map[string]any:
		if looksLikeModel(v) {
			cfg.Models = append(cfg.Models, summarize(stringField(v, "name"), v))
			break
		}
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			entry, _ := v[name].(map[string]any)
			cfg.Models = append(cfg.Models, summarize(name, entry))
		}
	case []any:
		for _, item := range v {
			if entry, ok := item.(map[string]any); ok {
				cfg.Models = append(cfg.Models, summarize(stringField(entry, "name"), entry))
			}
		}
	}
	return cfg
}

// Empty reports whether there is no configuration to show.
func (c ServerConfig) Empty() bool {
	return c.Raw == nil
}

// YAML renders the raw blob for display.
func (c ServerConfig) YAML() (string, error) {
	if c.Raw == nil {
		return "", nil
	}
	out, err := yaml.Marshal(c.Raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func looksLikeModel(v map[string]any) bool {
	if _, ok := v["name"].(string); !ok {
		return false
	}
	for _, key := range []string{"backend", "platform", "max_batch_size", "input", "instance_group"} {
		if _, ok := v[key]; ok {
			return true
		}
	}
	return false
}

func summarize(name string, entry map[string]any) ModelSummary {
	s := ModelSummary{Name: name}
	if entry == nil {
		return s
	}

	s.Backend = stringField(entry, "backend")
	if s.Backend == "" {
		s.Backend = stringField(entry, "platform")
	}
	s.MaxBatch = intField(entry, "max_batch_size")

	if groups, ok := entry["instance_group"].([]any); ok {
		for _, g := range groups {
			group, _ := g.(map[string]any)
			count := intField(group, "count")
			if count == 0 {
				count = 1
			}
			s.Instances += count
		}
	}
	if inputs, ok := entry["input"].([]any); ok {
		s.Inputs = len(inputs)
	}
	if outputs, ok := entry["output"].([]any); ok {
		s.Outputs = len(outputs)
	}
	return s
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return scalarString(v)
	}
}

func intField(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}
