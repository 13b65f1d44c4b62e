package core

import (
	"errors"
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeMissingAuth     = "MISSING_AUTH"
	ErrCodeInvalidSetting  = "INVALID_SETTING"
	ErrCodeMissingResource = "MISSING_RESOURCE"
)

// ErrMissingAuth returns an error for missing authentication credentials
func ErrMissingAuth(service string) *ConfigError {
	var action string
	switch service {
	case "openai":
		action = "Set OPENAI_API_KEY in your .env file"
	case "google":
		action = "Set GOOGLE_API_KEY in your .env file or pick an OpenAI image model"
	case "azure":
		action = "Set AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_DEPLOYMENT in your .env file"
	default:
		action = fmt.Sprintf("Set the required API key for %s in your .env file", service)
	}
	return &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: fmt.Sprintf("Missing authentication credentials for %s", service),
		Action:  action,
	}
}

// ErrInvalidSetting returns an error for a setting outside its allowed values.
func ErrInvalidSetting(varName, value, allowed string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidSetting,
		Message: fmt.Sprintf("Invalid %s value %q", varName, value),
		Action:  fmt.Sprintf("Set %s to %s", varName, allowed),
	}
}

// ErrMissingResource returns an error for a required file that cannot be read.
func ErrMissingResource(varName, path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingResource,
		Message: fmt.Sprintf("Cannot read %s at %s", varName, path),
		Action:  fmt.Sprintf("Create the file or point %s at an existing one", varName),
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// ErrValidation is the class of caller mistakes: empty brief, rounds out of
// range, unknown template, missing placeholder. Never retried.
var ErrValidation = errors.New("validation error")

// ErrProvider is the class of failures from external model services.
var ErrProvider = errors.New("provider error")

// ValidationError describes an invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err belongs to the validation class.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsProviderError reports whether err came from an external model service.
func IsProviderError(err error) bool {
	return errors.Is(err, ErrProvider)
}
