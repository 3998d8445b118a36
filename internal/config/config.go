package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/report"
	"github.com/p4lang/p4c-sub009/pkg/simplify"
)

// Config holds all configuration for p4du
type Config struct {
	// Output format of the check command: text, json, yaml or msgpack
	Format string `yaml:"format" env:"P4DU_FORMAT"`

	// Number of units analyzed concurrently
	Parallelism int `yaml:"parallelism" env:"P4DU_PARALLELISM"`

	// Remove dead writes from the program
	Eliminate bool `yaml:"eliminate" env:"P4DU_ELIMINATE"`

	// Maximum number of analyze-and-eliminate rounds
	MaxPasses int `yaml:"max_passes" env:"P4DU_MAX_PASSES"`

	// Report warnings as errors
	WarningsAsErrors bool `yaml:"warnings_as_errors" env:"P4DU_WARNINGS_AS_ERRORS"`

	// Diagnostic categories that are not reported
	Disable []string `yaml:"disable" env:"P4DU_DISABLE"`

	// Logging
	Verbose bool `yaml:"verbose" env:"P4DU_VERBOSE"`
	LogJSON bool `yaml:"log_json" env:"P4DU_LOG_JSON"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Format:           string(report.FormatText),
		Parallelism:      4,
		Eliminate:        true,
		MaxPasses:        simplify.DefaultMaxPasses,
		WarningsAsErrors: false,
		Disable:          nil,
		Verbose:          false,
		LogJSON:          false,
	}
}

// GlobalConfigFilePath returns the global config file path (~/.p4du/config.yaml)
func GlobalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".p4du/config.yaml"
	}
	return filepath.Join(home, ".p4du", "config.yaml")
}

// ProjectConfigFilePath returns the project-level config file path (./.p4du/config.yaml)
func ProjectConfigFilePath() string {
	return ".p4du/config.yaml"
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.p4du/config.yaml)
// 3. Global config (~/.p4du/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// 1. Load global config (~/.p4du/config.yaml)
	if err := mergeFile(cfg, GlobalConfigFilePath(), false); err != nil {
		return nil, err
	}

	// 2. Load project-level config (./.p4du/config.yaml) - overrides global
	if err := mergeFile(cfg, ProjectConfigFilePath(), false); err != nil {
		return nil, err
	}

	// 3. Override with environment variables
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := mergeFile(cfg, path, true); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeFile overlays the file at path onto cfg. A missing file is an error
// only if required is set.
func mergeFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	// Create parent directories if they don't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("P4DU_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("P4DU_PARALLELISM"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.Parallelism = i
		}
	}
	if v := os.Getenv("P4DU_ELIMINATE"); v != "" {
		cfg.Eliminate = parseBool(v)
	}
	if v := os.Getenv("P4DU_MAX_PASSES"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.MaxPasses = i
		}
	}
	if v := os.Getenv("P4DU_WARNINGS_AS_ERRORS"); v != "" {
		cfg.WarningsAsErrors = parseBool(v)
	}
	if v := os.Getenv("P4DU_DISABLE"); v != "" {
		cfg.Disable = nil
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cfg.Disable = append(cfg.Disable, c)
			}
		}
	}
	if v := os.Getenv("P4DU_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
	if v := os.Getenv("P4DU_LOG_JSON"); v != "" {
		cfg.LogJSON = parseBool(v)
	}
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if _, err := report.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("invalid format: %w", err)
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.MaxPasses < 0 {
		return fmt.Errorf("max_passes must not be negative")
	}
	if _, err := c.DisabledCategories(); err != nil {
		return err
	}
	return nil
}

// DisabledCategories returns the categories named by Disable.
func (c *Config) DisabledCategories() ([]diag.Category, error) {
	var out []diag.Category
	for _, name := range c.Disable {
		found := false
		for _, cat := range diag.Categories {
			if string(cat) == name {
				out = append(out, cat)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("invalid category in disable: %s (must be one of %v)", name, diag.Categories)
		}
	}
	return out, nil
}

// parseBool reports whether s spells true
func parseBool(s string) bool {
	return s == "true" || s == "1" || s == "yes"
}

// parseInt attempts to parse a string as int
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
