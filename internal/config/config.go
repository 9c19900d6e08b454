// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Run inputs
	TargetURL    string   `json:"target_url,omitempty"`    // Brand website to research
	Market       string   `json:"market,omitempty"`        // Market/locale identifier (e.g. "US", "DE")
	PersonaCount int      `json:"persona_count,omitempty"` // Panel size (1-5)
	AssetPaths   []string `json:"asset_paths,omitempty"`   // Creative asset files to judge

	// Behavior
	APIKey         string `json:"api_key,omitempty"`         // Gemini API key
	DatabaseURL    string `json:"database_url,omitempty"`    // PostgreSQL URL for artifact persistence
	MaxConcurrency int    `json:"max_concurrency,omitempty"` // Bound on in-flight judgment calls (0 = unbounded)
	UseBrowser     bool   `json:"use_browser,omitempty"`     // Use headless browser for SPA brand sites
	Verbose        bool   `json:"verbose,omitempty"`         // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required-field checks happen after merging with CLI flags.
func (c *Config) Validate() error {
	if c.PersonaCount < 0 || c.PersonaCount > 5 {
		return fmt.Errorf("config error: 'persona_count' must be between 1 and 5")
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("config error: 'max_concurrency' must be non-negative")
	}

	for _, path := range c.AssetPaths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("config error: asset file not found: %s", path)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Market == "" {
		result.Market = defaults.Market
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.PersonaCount == 0 {
		result.PersonaCount = defaults.PersonaCount
	}
	if result.MaxConcurrency == 0 {
		result.MaxConcurrency = defaults.MaxConcurrency
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
