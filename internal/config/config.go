package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ppiankov/dqlens/internal/catalog"
	"github.com/ppiankov/dqlens/internal/models"
	"github.com/ppiankov/dqlens/internal/rules"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DQLENS_SNAPSHOT
const EnvPrefix = "DQLENS"

// configNames are searched in order in every config path
var configNames = []string{"dqlens", ".dqlens"}

// Config holds all configuration for dqlens
type Config struct {
	// Snapshot file to load; empty selects the embedded demo dataset
	Snapshot string `mapstructure:"snapshot"`

	// Directory holding snapshots/ history
	SnapshotDir string `mapstructure:"snapshot_dir"`

	// Threshold for CI/CD failure
	FailThreshold int `mapstructure:"fail_threshold"`

	// Output format (text, json, both)
	Format string `mapstructure:"format"`

	// Number of last snapshots to analyze
	LastRuns int `mapstructure:"last_runs"`

	// Per-category score weights; unlisted categories weigh 1
	CategoryWeights map[string]float64 `mapstructure:"category_weights"`

	// Dashboard refresh preset used with --watch
	Refresh string `mapstructure:"refresh"`

	// Recorded as created_by on new rules
	Author string `mapstructure:"author"`

	// Verbose output
	Verbose bool `mapstructure:"verbose"`

	// Debug mode
	Debug bool `mapstructure:"debug"`

	// File the values were read from, empty when none was found
	ConfigFile string `mapstructure:"-"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Snapshot:        "",
		SnapshotDir:     ".dqlens",
		FailThreshold:   0, // 0 means no threshold check
		Format:          "text",
		LastRuns:        7,
		CategoryWeights: map[string]float64{},
		Refresh:         "standard",
		Author:          rules.DefaultAuthor,
		Verbose:         false,
		Debug:           false,
	}
}

// Load loads configuration with the following precedence (lowest to highest):
// 1. Default values
// 2. Config file (dqlens.yaml or .dqlens.yaml in ., ~ or $XDG_CONFIG_HOME/dqlens)
// 3. Environment variables (DQLENS_*), including a .env file in the working directory
// 4. CLI flags (handled by caller)
func Load() (*Config, error) {
	return LoadFromFile("")
}

// LoadFromFile loads configuration from a specific file path
// If path is empty, it searches for config in standard locations
func LoadFromFile(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("snapshot", defaults.Snapshot)
	v.SetDefault("snapshot_dir", defaults.SnapshotDir)
	v.SetDefault("fail_threshold", defaults.FailThreshold)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("last_runs", defaults.LastRuns)
	v.SetDefault("category_weights", defaults.CategoryWeights)
	v.SetDefault("refresh", defaults.Refresh)
	v.SetDefault("author", defaults.Author)
	v.SetDefault("verbose", defaults.Verbose)
	v.SetDefault("debug", defaults.Debug)

	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := readFromSearchPaths(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// readFromSearchPaths tries each config name in the standard locations.
// Finding no file is not an error.
func readFromSearchPaths(v *viper.Viper) error {
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		v.AddConfigPath(filepath.Join(xdgConfig, "dqlens"))
	}

	for _, name := range configNames {
		v.SetConfigName(name)
		err := v.ReadInConfig()
		if err == nil {
			return nil
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// loadDotEnv loads KEY=VALUE pairs without overriding the environment
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"both": true,
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("invalid format: %s (must be text, json, or both)", c.Format)
	}

	if c.FailThreshold < 0 {
		return fmt.Errorf("fail_threshold cannot be negative")
	}

	if c.LastRuns <= 0 {
		return fmt.Errorf("last_runs must be positive")
	}

	if c.SnapshotDir == "" {
		return fmt.Errorf("snapshot_dir cannot be empty")
	}

	if _, err := catalog.RefreshInterval(c.Refresh); err != nil {
		return err
	}

	if _, err := c.Weights(); err != nil {
		return err
	}

	return nil
}

// Weights resolves category_weights keys to categories
func (c *Config) Weights() (map[models.Category]float64, error) {
	weights := make(map[models.Category]float64, len(c.CategoryWeights))

	keys := make([]string, 0, len(c.CategoryWeights))
	for k := range c.CategoryWeights {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		cat, ok := models.ParseCategory(k)
		if !ok {
			return nil, fmt.Errorf("category_weights: unknown category %q", k)
		}
		w := c.CategoryWeights[k]
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("category_weights: weight for %s must be a finite number", cat)
		}
		if w < 0 {
			return nil, fmt.Errorf("category_weights: weight for %s cannot be negative", cat)
		}
		weights[cat] = w
	}
	return weights, nil
}

// GetStoragePath returns the absolute path to the snapshot directory
func (c *Config) GetStoragePath() (string, error) {
	if strings.HasPrefix(c.SnapshotDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, c.SnapshotDir[2:]), nil
	}

	absPath, err := filepath.Abs(c.SnapshotDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return absPath, nil
}

// GenerateSampleConfig generates a sample configuration file content
func GenerateSampleConfig() string {
	return `# dqlens configuration
# Save this file as ./dqlens.yaml, ~/.dqlens.yaml or $XDG_CONFIG_HOME/dqlens/dqlens.yaml
# Every key can be overridden with a DQLENS_<KEY> environment variable.

# Snapshot to load (YAML or JSON). Leave empty to use the embedded demo dataset.
# snapshot: ./snapshots/latest.yaml

# Directory whose snapshots/ subdirectory holds timestamped history files
# (2006-01-02T15-04-05.yaml) used for trends, diff and summarize
snapshot_dir: .dqlens

# Fail threshold for CI/CD (exit code 1 if issues exceed this number)
# Set to 0 to disable threshold checking
fail_threshold: 0

# Output format: text, json, or both
format: text

# Number of last snapshots to analyze in summarize command
last_runs: 7

# Score weight per DMF category (default 1)
category_weights:
  Accuracy: 1
  Freshness: 1
  Statistics: 0.5
  Uniqueness: 1
  Volume: 1

# Dashboard refresh preset for --watch: realtime, frequent, standard, slow
refresh: standard

# Recorded as created_by on rules added from the CLI or dashboard
author: current.user@company.com

# Enable verbose output
verbose: false

# Enable debug mode
debug: false
`
}
