package validation

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"diagramgen/core"
)

func testConfig(t *testing.T) *core.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &core.Config{
		PromptsPath:    filepath.Join(root, "prompts.yaml"),
		StyleGuidePath: filepath.Join(root, "style_guide.md"),
		OutputDir:      filepath.Join(root, "output"),
		ReferencesDir:  filepath.Join(root, "references"),
	}
	for _, p := range []string{cfg.PromptsPath, cfg.StyleGuidePath} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", p, err)
		}
	}
	if err := os.Mkdir(cfg.ReferencesDir, 0755); err != nil {
		t.Fatalf("failed to create references dir: %v", err)
	}
	return cfg
}

func TestStepStatus_String(t *testing.T) {
	tests := []struct {
		status   StepStatus
		expected string
	}{
		{StepPending, "pending"},
		{StepRunning, "running"},
		{StepPassed, "passed"},
		{StepFailed, "failed"},
		{StepWarning, "warning"},
		{StepSkipped, "skipped"},
		{StepStatus(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.status.String(); got != tt.expected {
				t.Errorf("StepStatus(%d).String() = %q, want %q", tt.status, got, tt.expected)
			}
		})
	}
}

func TestValidationSuite_AllPass(t *testing.T) {
	cfg := testConfig(t)
	var buf bytes.Buffer

	result := NewValidationSuite(cfg).WithOutput(&buf).Validate()

	if !result.Success {
		t.Fatalf("expected success, got %s (first error: %v)", result.Summary(), result.GetFirstError())
	}
	if result.PassedSteps != 4 {
		t.Errorf("PassedSteps = %d, want 4", result.PassedSteps)
	}
	if _, err := os.Stat(cfg.OutputDir); err != nil {
		t.Errorf("output directory should be created: %v", err)
	}
	if !strings.Contains(buf.String(), "Prompt Templates") {
		t.Error("progress output should list step names")
	}
}

func TestValidationSuite_MissingPrompts(t *testing.T) {
	cfg := testConfig(t)
	os.Remove(cfg.PromptsPath)

	result := NewValidationSuite(cfg).WithShowProgress(false).Validate()

	if result.Success {
		t.Fatal("expected failure with missing prompts file")
	}
	cfgErr, ok := core.IsConfigError(result.GetFirstError())
	if !ok || cfgErr.Code != core.ErrCodeMissingResource {
		t.Errorf("first error = %v, want MISSING_RESOURCE", result.GetFirstError())
	}
}

func TestValidationSuite_MissingReferencesIsWarning(t *testing.T) {
	cfg := testConfig(t)
	os.Remove(cfg.ReferencesDir)

	result := NewValidationSuite(cfg).WithShowProgress(false).Validate()

	if !result.Success {
		t.Fatalf("missing references should only warn: %s", result.Summary())
	}
	if result.Warnings != 1 {
		t.Errorf("Warnings = %d, want 1", result.Warnings)
	}
}

func TestValidationSuite_FailFast(t *testing.T) {
	cfg := testConfig(t)
	os.Remove(cfg.PromptsPath)
	os.Remove(cfg.StyleGuidePath)

	result := NewValidationSuite(cfg).WithShowProgress(false).WithFailFast(true).Validate()

	if result.TotalSteps != 1 {
		t.Errorf("TotalSteps = %d, want 1 with fail-fast", result.TotalSteps)
	}
}

func TestValidationSuite_WithCheck(t *testing.T) {
	cfg := testConfig(t)
	boom := errors.New("no key")

	result := NewValidationSuite(cfg).
		WithShowProgress(false).
		WithCheck("Image Provider", func() (string, bool, error) { return "", false, boom }).
		Validate()

	if result.Success || result.FailedSteps != 1 {
		t.Errorf("expected one failed step, got %s", result.Summary())
	}
	if !errors.Is(result.GetFirstError(), boom) {
		t.Errorf("GetFirstError() = %v, want %v", result.GetFirstError(), boom)
	}
}

func TestSuiteResult_Summary_Failed(t *testing.T) {
	result := SuiteResult{
		Success:     false,
		TotalSteps:  6,
		PassedSteps: 4,
		FailedSteps: 2,
		Warnings:    1,
		Duration:    2000 * time.Millisecond,
	}

	summary := result.Summary()
	for _, want := range []string{"Failed", "4/6", "2 failed", "1 warning"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary() = %q, should contain %q", summary, want)
		}
	}
}

func TestCheckFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	os.WriteFile(file, []byte("a"), 0644)

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"existing file", file, ""},
		{"missing file", filepath.Join(dir, "b.txt"), "not found"},
		{"empty path", "", "empty"},
		{"directory", dir, "directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFileExists(tt.path)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
