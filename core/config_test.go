package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setRequiredEnv sets the minimum environment for LoadConfig.
func setRequiredEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("PROJECT_ROOT", root)
	return root
}

func TestLoadConfig_Defaults(t *testing.T) {
	root := setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.LLMModel != "gpt-4o" {
		t.Errorf("LLMModel = %q, want gpt-4o", cfg.LLMModel)
	}
	if cfg.ImageModel != "gpt-image-1" {
		t.Errorf("ImageModel = %q, want gpt-image-1", cfg.ImageModel)
	}
	if cfg.ImageSize != ImageSizeLandscape {
		t.Errorf("ImageSize = %q, want %q", cfg.ImageSize, ImageSizeLandscape)
	}
	if cfg.ImageQuality != ImageQualityHigh {
		t.Errorf("ImageQuality = %q, want %q", cfg.ImageQuality, ImageQualityHigh)
	}
	if cfg.MaxRefinementRounds != 3 {
		t.Errorf("MaxRefinementRounds = %d, want 3", cfg.MaxRefinementRounds)
	}
	if cfg.NumReferences != 5 {
		t.Errorf("NumReferences = %d, want 5", cfg.NumReferences)
	}
	if want := filepath.Join(root, "config", "prompts.yaml"); cfg.PromptsPath != want {
		t.Errorf("PromptsPath = %q, want %q", cfg.PromptsPath, want)
	}
	if want := filepath.Join(root, "output"); cfg.OutputDir != want {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, want)
	}
	if cfg.AITimeout != 120*time.Second {
		t.Errorf("AITimeout = %v, want 120s", cfg.AITimeout)
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.MaxRetries)
	}
}

func TestLoadConfig_HistoryDB(t *testing.T) {
	t.Run("defaults under output dir", func(t *testing.T) {
		root := setRequiredEnv(t)
		t.Setenv("HISTORY_DB", "")
		os.Unsetenv("HISTORY_DB")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if want := filepath.Join(root, "output", "history.db"); cfg.HistoryDB != want {
			t.Errorf("HistoryDB = %q, want %q", cfg.HistoryDB, want)
		}
		if cfg.HistoryRetentionDays != 30 {
			t.Errorf("HistoryRetentionDays = %d, want 30", cfg.HistoryRetentionDays)
		}
	})

	t.Run("relative path", func(t *testing.T) {
		root := setRequiredEnv(t)
		t.Setenv("HISTORY_DB", "data/runs.db")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if want := filepath.Join(root, "data", "runs.db"); cfg.HistoryDB != want {
			t.Errorf("HistoryDB = %q, want %q", cfg.HistoryDB, want)
		}
	})

	t.Run("empty disables", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("HISTORY_DB", "")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error: %v", err)
		}
		if cfg.HistoryDB != "" {
			t.Errorf("HistoryDB = %q, want empty", cfg.HistoryDB)
		}
	})
}

func TestLoadConfig_AbsolutePathKept(t *testing.T) {
	setRequiredEnv(t)
	abs := filepath.Join(t.TempDir(), "guide.md")
	t.Setenv("STYLE_GUIDE_PATH", abs)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.StyleGuidePath != abs {
		t.Errorf("StyleGuidePath = %q, want %q", cfg.StyleGuidePath, abs)
	}
}

func TestLoadConfig_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := LoadConfig()
	cfgErr, ok := IsConfigError(err)
	if !ok {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Code != ErrCodeMissingAuth {
		t.Errorf("Code = %q, want %q", cfgErr.Code, ErrCodeMissingAuth)
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"rounds below range", "MAX_REFINEMENT_ROUNDS", "0"},
		{"rounds above range", "MAX_REFINEMENT_ROUNDS", "11"},
		{"references above range", "NUM_REFERENCES", "21"},
		{"references below range", "NUM_REFERENCES", "0"},
		{"unknown size", "IMAGE_SIZE", "800x600"},
		{"unknown quality", "IMAGE_QUALITY", "ultra"},
		{"negative retries", "MAX_RETRIES", "-1"},
		{"negative retention", "HISTORY_RETENTION_DAYS", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			cfgErr, ok := IsConfigError(err)
			if !ok {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Code != ErrCodeInvalidSetting {
				t.Errorf("Code = %q, want %q", cfgErr.Code, ErrCodeInvalidSetting)
			}
		})
	}
}

func TestLoadConfig_BoundaryValuesAccepted(t *testing.T) {
	for _, rounds := range []string{"1", "10"} {
		setRequiredEnv(t)
		t.Setenv("MAX_REFINEMENT_ROUNDS", rounds)
		if _, err := LoadConfig(); err != nil {
			t.Errorf("MAX_REFINEMENT_ROUNDS=%s: unexpected error %v", rounds, err)
		}
	}
}

func TestConfig_RetryPolicy(t *testing.T) {
	cfg := &Config{MaxRetries: 2, RetryDelay: 3 * time.Second}
	policy := cfg.RetryPolicy()
	if policy.MaxAttempts() != 3 {
		t.Errorf("MaxAttempts() = %d, want 3", policy.MaxAttempts())
	}

	cfg = &Config{}
	if got := cfg.RetryPolicy().MaxAttempts(); got != 1 {
		t.Errorf("MaxAttempts() with no retries = %d, want 1", got)
	}
}

func TestGetHTTPClient(t *testing.T) {
	client := GetHTTPClient(&Config{AllowSelfSignedCerts: true}, 5*time.Second)
	if client.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.Timeout)
	}
	if client.Transport == nil {
		t.Error("expected custom transport for self-signed certs")
	}

	client = GetHTTPClient(nil, time.Second)
	if client.Transport != nil {
		t.Error("expected default transport for nil config")
	}
}

func TestConfigError_Unwrapping(t *testing.T) {
	err := error(ErrInvalidSetting("IMAGE_SIZE", "x", "y"))
	wrapped := errors.Join(errors.New("startup"), err)
	if _, ok := IsConfigError(wrapped); !ok {
		t.Error("IsConfigError() should see through wrapping")
	}
}
