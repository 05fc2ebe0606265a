package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/dqlens/internal/models"
	"gopkg.in/yaml.v3"
)

// isolate points cwd and home at empty temp dirs so no real config leaks in
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", "")
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.SnapshotDir != ".dqlens" {
		t.Errorf("SnapshotDir = %s", cfg.SnapshotDir)
	}
	if cfg.Format != "text" || cfg.LastRuns != 7 || cfg.Refresh != "standard" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Author != "current.user@company.com" {
		t.Errorf("Author = %s", cfg.Author)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("ConfigFile = %q, want empty", cfg.ConfigFile)
	}
	if cfg.Format != "text" || cfg.LastRuns != 7 {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	content := `snapshot: ./snap.yaml
snapshot_dir: /tmp/dq
format: json
fail_threshold: 5
last_runs: 14
refresh: frequent
author: qa@company.com
category_weights:
  Accuracy: 2
  statistics: 0.5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Snapshot != "./snap.yaml" || cfg.SnapshotDir != "/tmp/dq" {
		t.Errorf("paths = %s, %s", cfg.Snapshot, cfg.SnapshotDir)
	}
	if cfg.Format != "json" || cfg.FailThreshold != 5 || cfg.LastRuns != 14 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Refresh != "frequent" || cfg.Author != "qa@company.com" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %s", cfg.ConfigFile)
	}

	weights, err := cfg.Weights()
	if err != nil {
		t.Fatal(err)
	}
	if weights[models.CategoryAccuracy] != 2 || weights[models.CategoryStatistics] != 0.5 {
		t.Errorf("weights = %v", weights)
	}
	if _, ok := weights[models.CategoryVolume]; ok {
		t.Error("unlisted categories should be absent")
	}
}

func TestLoadSearchesDotfile(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".dqlens.yaml"), []byte("format: both\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Format != "both" {
		t.Errorf("Format = %s, want both", cfg.Format)
	}
	if !strings.HasSuffix(cfg.ConfigFile, ".dqlens.yaml") {
		t.Errorf("ConfigFile = %s", cfg.ConfigFile)
	}
}

func TestLoadPrefersPlainName(t *testing.T) {
	dir := isolate(t)
	_ = os.WriteFile(filepath.Join(dir, "dqlens.yaml"), []byte("last_runs: 3\n"), 0644)
	_ = os.WriteFile(filepath.Join(dir, ".dqlens.yaml"), []byte("last_runs: 9\n"), 0644)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LastRuns != 3 {
		t.Errorf("LastRuns = %d, want 3", cfg.LastRuns)
	}
}

func TestLoadXDG(t *testing.T) {
	dir := isolate(t)
	xdg := filepath.Join(dir, "xdg")
	if err := os.MkdirAll(filepath.Join(xdg, "dqlens"), 0755); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(xdg, "dqlens", "dqlens.yaml"), []byte("refresh: slow\n"), 0644)
	t.Setenv("XDG_CONFIG_HOME", xdg)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Refresh != "slow" {
		t.Errorf("Refresh = %s, want slow", cfg.Refresh)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "dqlens.yaml")
	_ = os.WriteFile(path, []byte("format: json\nfail_threshold: 2\n"), 0644)
	t.Setenv("DQLENS_FORMAT", "both")
	t.Setenv("DQLENS_SNAPSHOT_DIR", "/var/dq")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Format != "both" {
		t.Errorf("Format = %s, env should win over file", cfg.Format)
	}
	if cfg.SnapshotDir != "/var/dq" {
		t.Errorf("SnapshotDir = %s", cfg.SnapshotDir)
	}
	if cfg.FailThreshold != 2 {
		t.Errorf("FailThreshold = %d", cfg.FailThreshold)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DQLENS_LAST_RUNS=21\nDQLENS_FORMAT=json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// already set variables are not overridden by .env
	t.Setenv("DQLENS_FORMAT", "both")
	t.Cleanup(func() { os.Unsetenv("DQLENS_LAST_RUNS") })

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LastRuns != 21 {
		t.Errorf("LastRuns = %d, want 21 from .env", cfg.LastRuns)
	}
	if cfg.Format != "both" {
		t.Errorf("Format = %s, want existing env value", cfg.Format)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	dir := isolate(t)

	if _, err := LoadFromFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("explicit missing file should error")
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("format: [broken"), 0644)
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("malformed yaml should error")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	_ = os.WriteFile(invalid, []byte("format: xml\n"), 0644)
	_, err := LoadFromFile(invalid)
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadFromFileNonFiniteWeight(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "dqlens.yaml")
	_ = os.WriteFile(path, []byte("category_weights:\n  Accuracy: .nan\n  Volume: .inf\n"), 0644)
	_, err := LoadFromFile(path)
	if err == nil || !strings.Contains(err.Error(), "finite number") {
		t.Errorf("err = %v, want non-finite weight rejected", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad format", func(c *Config) { c.Format = "xml" }, "invalid format"},
		{"negative threshold", func(c *Config) { c.FailThreshold = -1 }, "fail_threshold"},
		{"zero last runs", func(c *Config) { c.LastRuns = 0 }, "last_runs"},
		{"empty snapshot dir", func(c *Config) { c.SnapshotDir = "" }, "snapshot_dir"},
		{"unknown refresh", func(c *Config) { c.Refresh = "hourly" }, "unknown refresh preset"},
		{"refresh case-insensitive", func(c *Config) { c.Refresh = "REALTIME" }, ""},
		{"unknown category", func(c *Config) { c.CategoryWeights = map[string]float64{"Completeness": 1} }, "unknown category"},
		{"negative weight", func(c *Config) { c.CategoryWeights = map[string]float64{"volume": -1} }, "cannot be negative"},
		{"zero weight", func(c *Config) { c.CategoryWeights = map[string]float64{"volume": 0} }, ""},
		{"nan weight", func(c *Config) { c.CategoryWeights = map[string]float64{"accuracy": math.NaN()} }, "finite number"},
		{"inf weight", func(c *Config) { c.CategoryWeights = map[string]float64{"volume": math.Inf(1)} }, "finite number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestGetStoragePath(t *testing.T) {
	home := isolate(t)

	cfg := DefaultConfig()
	cfg.SnapshotDir = "~/dq"
	got, err := cfg.GetStoragePath()
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "dq") {
		t.Errorf("GetStoragePath = %s", got)
	}

	cfg.SnapshotDir = "rel"
	got, err = cfg.GetStoragePath()
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(got) || filepath.Base(got) != "rel" {
		t.Errorf("GetStoragePath = %s", got)
	}
}

func TestGenerateSampleConfig(t *testing.T) {
	sample := GenerateSampleConfig()

	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(sample), &raw); err != nil {
		t.Fatalf("sample is not valid YAML: %v", err)
	}

	dir := isolate(t)
	path := filepath.Join(dir, "sample.yaml")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	weights, _ := cfg.Weights()
	if len(weights) != 5 || weights[models.CategoryStatistics] != 0.5 {
		t.Errorf("weights = %v", weights)
	}
}
