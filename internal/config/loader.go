package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// rawConfig mirrors SchedulerConfig with pointer fields so a merge can
// distinguish "absent from this file" from "explicitly set to zero".
type rawConfig struct {
	MaxActivityPoolSize *int  `json:"maxActivityPoolSize"`
	MaxActivityRetry    *int  `json:"maxActivityRetry"`
	DebugOperations     *struct {
		Enabled *bool `json:"enabled"`
	} `json:"debugOperations"`
}

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config,
// defaults. Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, projectPath string) (*SchedulerConfig, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}
	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// LoadDefault loads configuration from conventional paths.
// Global: ~/.actsched/config.json
// Project: .actsched/config.json (relative to cwd)
func LoadDefault() (*SchedulerConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	globalPath := filepath.Join(homeDir, ".actsched", "config.json")
	projectPath := filepath.Join(".actsched", "config.json")

	return Load(globalPath, projectPath)
}

// mergeConfigFile reads a JSON config file and merges explicitly-set
// fields into base. Missing files are silently skipped.
func mergeConfigFile(base *SchedulerConfig, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded rawConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if loaded.MaxActivityPoolSize != nil {
		base.MaxActivityPoolSize = *loaded.MaxActivityPoolSize
	}
	if loaded.MaxActivityRetry != nil {
		base.MaxActivityRetry = *loaded.MaxActivityRetry
	}
	if loaded.DebugOperations != nil && loaded.DebugOperations.Enabled != nil {
		base.DebugOperations.Enabled = *loaded.DebugOperations.Enabled
	}

	return nil
}
