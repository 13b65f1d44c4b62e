package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConfigError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigError
		contains []string
	}{
		{
			name:     "error with action",
			err:      &ConfigError{Code: "TEST_CODE", Message: "Test message", Action: "Take this action"},
			contains: []string{"Test message", "Take this action"},
		},
		{
			name:     "error without action",
			err:      &ConfigError{Code: "TEST_CODE", Message: "Test message only"},
			contains: []string{"Test message only"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(errStr, s) {
					t.Errorf("ConfigError.Error() = %q, expected to contain %q", errStr, s)
				}
			}
		})
	}
}

func TestErrMissingAuth_Actions(t *testing.T) {
	for _, service := range []string{"openai", "google", "azure", "other"} {
		err := ErrMissingAuth(service)
		if err.Code != ErrCodeMissingAuth {
			t.Errorf("%s: Code = %q", service, err.Code)
		}
		if err.Action == "" {
			t.Errorf("%s: expected an action", service)
		}
	}
}

func TestValidationError_Classification(t *testing.T) {
	err := fmt.Errorf("pipeline: %w", NewValidationError("brief", "must not be empty"))

	if !IsValidationError(err) {
		t.Error("IsValidationError() = false, want true")
	}
	if IsProviderError(err) {
		t.Error("IsProviderError() = true, want false")
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatal("errors.As failed to find ValidationError")
	}
	if vErr.Field != "brief" {
		t.Errorf("Field = %q, want brief", vErr.Field)
	}
	if got := vErr.Error(); got != "brief: must not be empty" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsProviderError(t *testing.T) {
	err := fmt.Errorf("round 2: %w", fmt.Errorf("image: %w", ErrProvider))
	if !IsProviderError(err) {
		t.Error("IsProviderError() = false, want true")
	}
	if IsValidationError(err) {
		t.Error("IsValidationError() = true, want false")
	}
}
