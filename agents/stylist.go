package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"diagramgen/core"
	"diagramgen/llm"
	"diagramgen/prompts"
)

const (
	stylistTemperature = 0.3
	stylistMaxTokens   = 3000
)

// Stylist rewrites a visual description with explicit style directives.
type Stylist struct {
	chat    llm.ChatClient
	prompts Renderer
	guide   *StyleGuide
	logger  *zap.Logger
}

// NewStylist creates a Stylist.
func NewStylist(chat llm.ChatClient, prompts Renderer, guide *StyleGuide, logger *zap.Logger) *Stylist {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stylist{chat: chat, prompts: prompts, guide: guide, logger: logger.Named("stylist")}
}

// Style applies the style guide to description. category may be empty.
func (s *Stylist) Style(ctx context.Context, description, category string) (string, error) {
	guide, err := s.guide.Text()
	if err != nil {
		return "", err
	}

	text, err := s.prompts.Render(prompts.TemplateStylist, map[string]string{
		"visual_description": description,
		"category":           category,
		"style_guide":        guide,
	})
	if err != nil {
		return "", fmt.Errorf("agents: stylist prompt: %w", err)
	}

	styled, err := s.chat.Complete(ctx, llm.Request{
		Text:        text,
		Temperature: stylistTemperature,
		MaxTokens:   stylistMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("agents: stylist: %w", err)
	}

	s.logger.Info("stylist produced styled description", zap.Int("words", core.WordCount(styled)))
	return styled, nil
}
