package storage

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/dqlens/internal/models"
	"gopkg.in/yaml.v3"
)

// Format is a snapshot document encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

var formatByExt = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
}

// DemoSource names the embedded demo dataset in messages
const DemoSource = "embedded demo dataset"

//go:embed demo.yaml
var demoYAML []byte

// FormatForPath picks the decoder from a file extension
func FormatForPath(path string) (Format, error) {
	f, ok := formatByExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("unsupported snapshot extension %q (want .yaml, .yml or .json)", filepath.Ext(path))
	}
	return f, nil
}

// Parse decodes a snapshot document. Unknown fields are rejected so that
// typos in hand-written snapshots surface early.
func Parse(data []byte, format Format) (*models.Snapshot, error) {
	var snap models.Snapshot

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&snap); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to parse YAML snapshot: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&snap); err != nil {
			return nil, fmt.Errorf("failed to parse JSON snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", format)
	}

	return &snap, nil
}

// LoadFile reads and decodes a snapshot file
func LoadFile(path string) (*models.Snapshot, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("snapshot not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	snap, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// Demo returns a fresh copy of the embedded demo dataset
func Demo() (*models.Snapshot, error) {
	return Parse(demoYAML, FormatYAML)
}

// Load reads the snapshot at path, or the demo dataset when path is empty.
// The second return value names where the snapshot came from.
func Load(path string) (*models.Snapshot, string, error) {
	if path == "" {
		snap, err := Demo()
		return snap, DemoSource, err
	}
	snap, err := LoadFile(path)
	return snap, path, err
}

type ruleSet struct {
	Rules []models.CustomRule `yaml:"rules" json:"rules"`
}

// LoadRuleSet reads a rules-only document written by WriteRuleSet. A full
// snapshot is accepted too; only its rules are returned.
func LoadRuleSet(path string) ([]models.CustomRule, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set: %w", err)
	}

	var set ruleSet
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &set)
	default:
		err = yaml.Unmarshal(data, &set)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse rule set: %w", path, err)
	}
	if set.Rules == nil {
		set.Rules = []models.CustomRule{}
	}
	return set.Rules, nil
}

// WriteRuleSet writes rules to path, encoded by its extension
func WriteRuleSet(path string, rules []models.CustomRule) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}

	set := ruleSet{Rules: rules}
	if set.Rules == nil {
		set.Rules = []models.CustomRule{}
	}

	var data []byte
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(set, "", "  ")
	default:
		data, err = yaml.Marshal(set)
	}
	if err != nil {
		return fmt.Errorf("failed to encode rule set: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write rule set: %w", err)
	}
	return nil
}
