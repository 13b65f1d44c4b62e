// Package imagegen turns a text prompt into image bytes through one of the
// supported image providers.
//
// The package is split into:
//   - atoms.go: pure endpoint and parameter helpers
//   - registry.go: model name to provider mapping
//   - openai_provider.go, google_provider.go: provider implementations
//   - router.go: per-call provider selection with lazy construction
package imagegen

import (
	"context"
	"errors"
	"fmt"

	"diagramgen/core"
)

// ErrImageGeneration marks a failed or empty image generation call.
// It is a provider error.
var ErrImageGeneration = fmt.Errorf("image generation failed: %w", core.ErrProvider)

// ErrNoImageData is returned when the provider answered without an image.
var ErrNoImageData = errors.New("response contained no image data")

// ProviderKind is the closed set of image providers.
type ProviderKind int

const (
	ProviderOpenAI ProviderKind = iota
	ProviderAzure
	ProviderGoogle
)

// String returns the lowercase provider name used in logs and config.
func (k ProviderKind) String() string {
	switch k {
	case ProviderOpenAI:
		return "openai"
	case ProviderAzure:
		return "azure"
	case ProviderGoogle:
		return "google"
	default:
		return fmt.Sprintf("provider(%d)", int(k))
	}
}

// ParseProviderKind parses a provider name.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch s {
	case "openai":
		return ProviderOpenAI, nil
	case "azure":
		return ProviderAzure, nil
	case "google":
		return ProviderGoogle, nil
	default:
		return 0, fmt.Errorf("imagegen: unknown provider %q", s)
	}
}

// Request is one image generation call.
type Request struct {
	Prompt  string
	Model   string
	Size    core.ImageSize
	Quality core.ImageQuality
}

// Image is a generated image. Data holds raw bytes, never base64.
type Image struct {
	Data     []byte
	MIMEType string
}

// Provider generates a single image.
type Provider interface {
	Generate(ctx context.Context, req Request) (Image, error)
}

// GenerationError carries the provider and model of a failed call.
type GenerationError struct {
	Provider ProviderKind
	Model    string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("imagegen: %s model %s: %v", e.Provider, e.Model, e.Err)
}

// Unwrap exposes the cause.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is matches ErrImageGeneration and the provider error class.
func (e *GenerationError) Is(target error) bool {
	return target == ErrImageGeneration || target == core.ErrProvider
}

func newGenerationError(kind ProviderKind, model string, err error) error {
	return &GenerationError{Provider: kind, Model: model, Err: err}
}
