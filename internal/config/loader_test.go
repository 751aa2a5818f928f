package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name            string
		globalConfig    map[string]any
		projectConfig   map[string]any
		expectPoolSize  int
		expectRetry     int
		expectDebug     bool
	}{
		{
			name:           "No config files - returns defaults",
			globalConfig:   nil,
			projectConfig:  nil,
			expectPoolSize: 20,
			expectRetry:    5,
			expectDebug:    false,
		},
		{
			name: "Global only - overrides pool size",
			globalConfig: map[string]any{
				"maxActivityPoolSize": 50,
			},
			projectConfig:  nil,
			expectPoolSize: 50,
			expectRetry:    5,
			expectDebug:    false,
		},
		{
			name:         "Project only - overrides retry",
			globalConfig: nil,
			projectConfig: map[string]any{
				"maxActivityRetry": 2,
			},
			expectPoolSize: 20,
			expectRetry:    2,
			expectDebug:    false,
		},
		{
			name: "Both with merge - global sets pool size, project sets debug",
			globalConfig: map[string]any{
				"maxActivityPoolSize": 50,
			},
			projectConfig: map[string]any{
				"debugOperations": map[string]any{"enabled": true},
			},
			expectPoolSize: 50,
			expectRetry:    5,
			expectDebug:    true,
		},
		{
			name: "Project overrides global - project wins",
			globalConfig: map[string]any{
				"maxActivityPoolSize": 50,
				"maxActivityRetry":    10,
			},
			projectConfig: map[string]any{
				"maxActivityPoolSize": 8,
				"maxActivityRetry":    1,
			},
			expectPoolSize: 8,
			expectRetry:    1,
			expectDebug:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()

			globalPath := ""
			if tt.globalConfig != nil {
				globalPath = filepath.Join(tmpDir, "global.json")
				data, err := json.Marshal(tt.globalConfig)
				if err != nil {
					t.Fatalf("marshaling global config: %v", err)
				}
				if err := os.WriteFile(globalPath, data, 0644); err != nil {
					t.Fatalf("writing global config: %v", err)
				}
			}

			projectPath := ""
			if tt.projectConfig != nil {
				projectPath = filepath.Join(tmpDir, "project.json")
				data, err := json.Marshal(tt.projectConfig)
				if err != nil {
					t.Fatalf("marshaling project config: %v", err)
				}
				if err := os.WriteFile(projectPath, data, 0644); err != nil {
					t.Fatalf("writing project config: %v", err)
				}
			}

			cfg, err := Load(globalPath, projectPath)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if cfg.MaxActivityPoolSize != tt.expectPoolSize {
				t.Errorf("pool size = %d, want %d", cfg.MaxActivityPoolSize, tt.expectPoolSize)
			}
			if cfg.MaxActivityRetry != tt.expectRetry {
				t.Errorf("retry = %d, want %d", cfg.MaxActivityRetry, tt.expectRetry)
			}
			if cfg.DebugOperations.Enabled != tt.expectDebug {
				t.Errorf("debug = %v, want %v", cfg.DebugOperations.Enabled, tt.expectDebug)
			}
		})
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()

	globalPath := filepath.Join(tmpDir, "global.json")
	if err := os.WriteFile(globalPath, []byte("{invalid json"), 0644); err != nil {
		t.Fatalf("writing malformed config: %v", err)
	}

	_, err := Load(globalPath, "")
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}

	if err.Error() == "" {
		t.Error("expected descriptive error message")
	}
}

func TestLoad_MissingFilesNotError(t *testing.T) {
	cfg, err := Load("/nonexistent/global.json", "/nonexistent/project.json")
	if err != nil {
		t.Fatalf("expected no error for missing files, got: %v", err)
	}

	if cfg.MaxActivityPoolSize != 20 {
		t.Errorf("pool size = %d, want 20", cfg.MaxActivityPoolSize)
	}
	if cfg.MaxActivityRetry != 5 {
		t.Errorf("retry = %d, want 5", cfg.MaxActivityRetry)
	}
	if cfg.DebugOperations.Enabled {
		t.Error("debug = true, want false")
	}
}

func TestLoad_ZeroValueNotTreatedAsUnset(t *testing.T) {
	tmpDir := t.TempDir()
	projectPath := filepath.Join(tmpDir, "project.json")
	if err := os.WriteFile(projectPath, []byte(`{"maxActivityRetry": 0}`), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load("", projectPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxActivityRetry != 0 {
		t.Errorf("retry = %d, want 0 (explicit zero should override the default)", cfg.MaxActivityRetry)
	}
	if cfg.MaxActivityPoolSize != 20 {
		t.Errorf("pool size = %d, want 20 (untouched by this file)", cfg.MaxActivityPoolSize)
	}
}
