package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"diagramgen/core"
	"diagramgen/llm"
	"diagramgen/prompts"
)

const (
	criticTemperature = 0.2
	criticMaxTokens   = 3000

	approvalToken      = "APPROVED"
	approvalSummary    = "All dimensions passed"
	feedbackSummaryLen = 200
)

// Critic judges a generated image against the brief and description.
type Critic struct {
	chat    llm.ChatClient
	prompts Renderer
	logger  *zap.Logger
}

// NewCritic creates a Critic.
func NewCritic(chat llm.ChatClient, prompts Renderer, logger *zap.Logger) *Critic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Critic{chat: chat, prompts: prompts, logger: logger.Named("critic")}
}

// Evaluate sends the image (high detail) with the brief and the description
// it was rendered from, and parses the verdict.
func (c *Critic) Evaluate(ctx context.Context, image []byte, brief, description string) (core.CriticOutput, error) {
	if len(image) == 0 {
		return core.CriticOutput{}, fmt.Errorf("agents: critic: image: %w", ErrEmptyOutput)
	}

	text, err := c.prompts.Render(prompts.TemplateCritic, map[string]string{
		"brief":       brief,
		"description": description,
	})
	if err != nil {
		return core.CriticOutput{}, fmt.Errorf("agents: critic prompt: %w", err)
	}

	resp, err := c.chat.Complete(ctx, llm.Request{
		Text:        text,
		Images:      []llm.ImagePart{{Data: image, Detail: llm.DetailHigh}},
		Temperature: criticTemperature,
		MaxTokens:   criticMaxTokens,
	})
	if err != nil {
		return core.CriticOutput{}, fmt.Errorf("agents: critic: %w", err)
	}
	if strings.TrimSpace(resp) == "" {
		return core.CriticOutput{}, fmt.Errorf("agents: critic: verdict: %w", ErrEmptyOutput)
	}

	verdict := ParseVerdict(resp)
	if verdict.Approved {
		c.logger.Info("critic approved image")
	} else {
		c.logger.Info("critic requested refinement", zap.Int("words", core.WordCount(*verdict.RefinedDescription)))
	}
	return verdict, nil
}

// ParseVerdict interprets a critic response. A response starting with
// APPROVED (any case) approves; anything else is the full replacement
// description, summarised by its first 200 characters.
func ParseVerdict(text string) core.CriticOutput {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(strings.ToUpper(text), approvalToken) {
		return core.NewApproval(approvalSummary)
	}
	return core.NewRefinement(text, truncateRunes(text, feedbackSummaryLen))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
