// Package agents holds the four language and image model roles of the
// diagram pipeline: Planner, Stylist, Visualizer and Critic. Each role is a
// small struct over an injected transport so tests can swap in fakes.
package agents

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"diagramgen/core"
	"diagramgen/llm"
	"diagramgen/prompts"
)

// Renderer renders a named prompt template.
type Renderer interface {
	Render(name string, vars map[string]string) (string, error)
}

var _ Renderer = (*prompts.Store)(nil)

const (
	plannerTemperature = 0.7
	plannerMaxTokens   = 2000
)

// Planner turns a brief and reference diagrams into a visual description.
type Planner struct {
	chat    llm.ChatClient
	prompts Renderer
	logger  *zap.Logger
}

// NewPlanner creates a Planner.
func NewPlanner(chat llm.ChatClient, prompts Renderer, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{chat: chat, prompts: prompts, logger: logger.Named("planner")}
}

// Plan sends the brief, the numbered reference descriptions and every
// reference image (low detail) in one message.
func (p *Planner) Plan(ctx context.Context, brief string, refs []core.Reference) (core.PlannerOutput, error) {
	text, err := p.prompts.Render(prompts.TemplatePlanner, map[string]string{
		"brief":                  brief,
		"n":                      strconv.Itoa(len(refs)),
		"reference_descriptions": ReferenceBlock(refs),
	})
	if err != nil {
		return core.PlannerOutput{}, fmt.Errorf("agents: planner prompt: %w", err)
	}

	var images []llm.ImagePart
	for _, ref := range refs {
		if ref.HasImage() {
			images = append(images, llm.ImagePart{Data: ref.ImagePayload, Detail: llm.DetailLow})
		}
	}

	start := time.Now()
	resp, err := p.chat.Complete(ctx, llm.Request{
		Text:        text,
		Images:      images,
		Temperature: plannerTemperature,
		MaxTokens:   plannerMaxTokens,
	})
	if err != nil {
		return core.PlannerOutput{}, fmt.Errorf("agents: planner: %w", err)
	}

	out := core.NewPlannerOutput(resp)
	p.logger.Info("planner produced description",
		zap.Int("words", out.WordCount),
		zap.Int("references", len(refs)),
		zap.Int("reference_images", len(images)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// ReferenceBlock numbers reference descriptions from 1, each on its own
// line prefixed with a newline.
func ReferenceBlock(refs []core.Reference) string {
	var b strings.Builder
	for i, ref := range refs {
		fmt.Fprintf(&b, "\nReference %d: %s", i+1, ref.Description)
	}
	return b.String()
}
