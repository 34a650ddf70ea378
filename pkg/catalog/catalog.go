package catalog

// Package catalog holds the model families the tool knows how to query, with
// optional YAML/JSON registry-file overrides.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Model describes a pickup query target for one product family. SearchTerm is
// what the fulfillment endpoint's `search` parameter receives; Parts, when
// set, restricts the family to specific part numbers by default.
type Model struct {
	Label      string   `json:"label" yaml:"label"`
	SearchTerm string   `json:"search_term" yaml:"search_term"`
	Parts      []string `json:"parts" yaml:"parts"`
}

type registry struct {
	Models []Model `json:"models" yaml:"models"`
}

// Defaults returns the built-in iPhone 17 Pro family catalog.
func Defaults() []Model {
	return []Model{
		{Label: "iPhone 17 Pro", SearchTerm: "iPhone 17 Pro"},
		{Label: "iPhone 17 Pro Max", SearchTerm: "iPhone 17 Pro Max"},
	}
}

// Load reads a model registry file (YAML or JSON, picked by extension).
func Load(path string) ([]Model, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("models file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open models file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read models file: %w", err)
	}

	reg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	if len(reg.Models) == 0 {
		return nil, errors.New("models file contains no models entries")
	}

	seen := make(map[string]struct{}, len(reg.Models))
	for i := range reg.Models {
		m := sanitizeModel(reg.Models[i])
		if err := validateModel(m); err != nil {
			return nil, fmt.Errorf("model[%d]: %w", i, err)
		}
		key := strings.ToLower(m.Label)
		if _, exists := seen[key]; exists {
			return nil, fmt.Errorf("duplicate model label %q", m.Label)
		}
		seen[key] = struct{}{}
		reg.Models[i] = m
	}

	return reg.Models, nil
}

func parseRegistry(data []byte, ext string) (registry, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg registry
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return registry{}, errors.New("models file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func sanitizeModel(m Model) Model {
	m.Label = strings.TrimSpace(m.Label)
	m.SearchTerm = strings.TrimSpace(m.SearchTerm)

	parts := make([]string, 0, len(m.Parts))
	for _, p := range m.Parts {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	m.Parts = parts

	if m.SearchTerm == "" {
		m.SearchTerm = m.Label
	}
	return m
}

func validateModel(m Model) error {
	if m.Label == "" {
		return errors.New("label is required")
	}
	return nil
}

// Resolve picks the models matching the requested labels, preserving request
// order. Empty labels select the whole catalog. Matching is case-insensitive.
func Resolve(models []Model, labels []string) ([]Model, error) {
	if len(labels) == 0 {
		return models, nil
	}

	idx := make(map[string]Model, len(models))
	for _, m := range models {
		idx[strings.ToLower(m.Label)] = m
	}

	out := make([]Model, 0, len(labels))
	for _, label := range labels {
		m, ok := idx[strings.ToLower(strings.TrimSpace(label))]
		if !ok {
			return nil, fmt.Errorf("unknown model %q (known: %s)", label, strings.Join(Labels(models), ", "))
		}
		out = append(out, m)
	}
	return out, nil
}

// Labels lists the catalog's model labels in order.
func Labels(models []Model) []string {
	out := make([]string, 0, len(models))
	for _, m := range models {
		out = append(out, m.Label)
	}
	return out
}
