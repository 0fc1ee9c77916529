package config

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/lehigh-university-libraries/partident/internal/errors"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "partident.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		env      map[string]string
		check    func(t *testing.T, cfg Config)
		wantKind apperrors.Kind
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg Config) {
				if cfg.Provider != "gemini" || cfg.Model != "gemini-2.5-flash" || cfg.Port != "8888" || cfg.UploadWorkers != 4 {
					t.Errorf("Unexpected defaults %+v", cfg)
				}
			},
		},
		{
			name: "file overrides defaults",
			file: "provider: ollama\nupload_workers: 2\ndatabase_path: /tmp/p.db\n",
			check: func(t *testing.T, cfg Config) {
				if cfg.Provider != "ollama" || cfg.Model != "mistral-small3.2:24b" || cfg.UploadWorkers != 2 || cfg.DatabasePath != "/tmp/p.db" {
					t.Errorf("Unexpected config %+v", cfg)
				}
			},
		},
		{
			name: "env overrides file",
			file: "provider: ollama\nport: \"9000\"\n",
			env:  map[string]string{"PARTIDENT_PROVIDER": "openai", "OPENAI_MODEL": "gpt-4.1", "PORT": "7000", "PARTIDENT_TEMPERATURE": "0.5"},
			check: func(t *testing.T, cfg Config) {
				if cfg.Provider != "openai" || cfg.Model != "gpt-4.1" || cfg.Port != "7000" || cfg.Temperature != 0.5 {
					t.Errorf("Unexpected config %+v", cfg)
				}
			},
		},
		{
			name: "explicit model wins over provider model",
			env:  map[string]string{"PARTIDENT_MODEL": "custom", "GEMINI_MODEL": "ignored"},
			check: func(t *testing.T, cfg Config) {
				if cfg.Model != "custom" {
					t.Errorf("Expected custom model, got %s", cfg.Model)
				}
			},
		},
		{name: "unknown provider", env: map[string]string{"PARTIDENT_PROVIDER": "bogus"}, wantKind: apperrors.KindConfig},
		{name: "bad workers", env: map[string]string{"PARTIDENT_UPLOAD_WORKERS": "many"}, wantKind: apperrors.KindConfig},
		{name: "zero workers", file: "upload_workers: 0\n", wantKind: apperrors.KindConfig},
		{name: "malformed yaml", file: "provider: [", wantKind: apperrors.KindConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}
			cfg, err := load(path, envMap(tt.env))
			if tt.wantKind != "" {
				if !apperrors.IsKind(err, tt.wantKind) {
					t.Fatalf("Expected %s error, got %v", tt.wantKind, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("load() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil))
	if !apperrors.IsKind(err, apperrors.KindConfig) {
		t.Fatalf("Expected config error, got %v", err)
	}
}
