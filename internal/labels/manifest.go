package labels

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"tagbench/internal/services"
)

// Manifest is the on-disk YAML form of a label set:
//
//	default: other
//	labels:
//	  - computer-vision
//	  - mlops
type Manifest struct {
	Default string   `yaml:"default,omitempty"`
	Labels  []string `yaml:"labels"`
}

// LoadManifest reads a YAML label manifest and builds its Set.
func LoadManifest(path string) (Set, Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, Manifest{}, services.Wrap(services.ErrConfiguration, "labels", "read manifest", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Set{}, Manifest{}, services.Wrap(services.ErrConfiguration, "labels", "parse manifest", path, err)
	}
	m.Default = strings.TrimSpace(m.Default)
	if _, quoted := unquote(m.Default); quoted {
		return Set{}, Manifest{}, services.Wrap(services.ErrValidation, "labels", "load manifest",
			fmt.Sprintf("%s: default %s is wrapped in quotes", path, m.Default), nil)
	}
	set, err := New(m.Labels)
	if err != nil {
		return Set{}, Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	return set, m, nil
}

// WriteManifest persists set and def as a YAML manifest.
func WriteManifest(path string, set Set, def string) error {
	data, err := yaml.Marshal(Manifest{Default: def, Labels: set.Labels()})
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create manifest directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
