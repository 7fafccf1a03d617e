package ftsearch

import (
	"encoding/json"
	"sort"
)

// FieldValue is one field of a document being added. Value is formatted with the same
// rules as command arguments: strings as is, numbers in their shortest form.
type FieldValue struct {
	Name  string
	Value any
}

// FieldsFromMap converts a map into field values ordered by name.
func FieldsFromMap(m map[string]any) []FieldValue {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]FieldValue, 0, len(names))
	for _, name := range names {
		out = append(out, FieldValue{Name: name, Value: m[name]})
	}
	return out
}

// AddOption configures FT.ADD.
type AddOption func(*addConfig)

type addConfig struct {
	score   float64
	payload any
	noSave  bool
	replace bool
	partial bool
}

func newAddConfig(opts []AddOption) addConfig {
	cfg := addConfig{score: 1.0}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// WithScore sets the document score, between 0 and 1. Default: 1.
func WithScore(score float64) AddOption {
	return func(c *addConfig) { c.score = score }
}

// WithPayload attaches v, encoded as JSON, as the document payload.
func WithPayload(v any) AddOption {
	return func(c *addConfig) { c.payload = v }
}

// NoSave indexes the document without storing its fields.
func NoSave() AddOption {
	return func(c *addConfig) { c.noSave = true }
}

// Replace overwrites an existing document with the same id.
func Replace() AddOption {
	return func(c *addConfig) { c.replace = true }
}

// Partial updates only the given fields of an existing document. Implies Replace.
func Partial() AddOption {
	return func(c *addConfig) { c.partial = true }
}

// buildAddArgs returns the FT.ADD arguments:
// index id score [NOSAVE] [REPLACE [PARTIAL]] [PAYLOAD json] FIELDS name value ...
func buildAddArgs(index, id string, fields []FieldValue, cfg addConfig) ([]string, error) {
	if id == "" {
		return nil, configErrorf("document id is required")
	}
	if len(fields) == 0 {
		return nil, configErrorf("document %q: at least one field is required", id)
	}
	if cfg.score < 0 || cfg.score > 1 {
		return nil, configErrorf("document %q: score must be between 0 and 1, got %v", id, cfg.score)
	}

	args := []string{index, id, formatNumber(cfg.score)}
	if cfg.noSave {
		args = append(args, "NOSAVE")
	}
	if cfg.replace || cfg.partial {
		args = append(args, "REPLACE")
		if cfg.partial {
			args = append(args, "PARTIAL")
		}
	}
	if cfg.payload != nil {
		raw, err := json.Marshal(cfg.payload)
		if err != nil {
			return nil, configErrorf("document %q: encode payload: %v", id, err)
		}
		args = append(args, "PAYLOAD", string(raw))
	}

	args = append(args, "FIELDS")
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, configErrorf("document %q: field name is required", id)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, configErrorf("document %q: duplicate field %q", id, f.Name)
		}
		seen[f.Name] = struct{}{}
		v, err := formatValue(f.Value)
		if err != nil {
			return nil, configErrorf("document %q: field %q: %v", id, f.Name, err)
		}
		args = append(args, f.Name, v)
	}
	return args, nil
}
