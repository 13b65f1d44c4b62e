package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"diagramgen/core"
	"diagramgen/imagegen"
)

// ImageGenerator renders a prompt with the configured image model.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (imagegen.Image, error)
	Model() string
}

var _ ImageGenerator = (*imagegen.Router)(nil)

// ErrEmptyOutput marks a stage that received nothing to work on from the
// stage before it. It is a provider error.
var ErrEmptyOutput = fmt.Errorf("empty model output: %w", core.ErrProvider)

// Visualizer sends the styled description to the image model as-is.
type Visualizer struct {
	images ImageGenerator
	logger *zap.Logger
}

// NewVisualizer creates a Visualizer.
func NewVisualizer(images ImageGenerator, logger *zap.Logger) *Visualizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Visualizer{images: images, logger: logger.Named("visualizer")}
}

// Render returns the raw image bytes for styled.
func (v *Visualizer) Render(ctx context.Context, styled string) ([]byte, error) {
	if strings.TrimSpace(styled) == "" {
		return nil, fmt.Errorf("agents: visualizer: styled description: %w", ErrEmptyOutput)
	}

	img, err := v.images.Generate(ctx, styled)
	if err != nil {
		return nil, fmt.Errorf("agents: visualizer: %w", err)
	}

	v.logger.Info("visualizer generated image",
		zap.String("model", v.images.Model()),
		zap.Int("bytes", len(img.Data)))
	return img.Data, nil
}
