// Package pipeline drives a diagram run: Planner once, then
// Stylist -> Visualizer -> Critic rounds until approval or the round
// budget runs out, then slide adaptation and run metadata.
package pipeline

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"diagramgen/core"
	"diagramgen/logging"
	"diagramgen/slides"
)

// Planner produces the initial visual description.
type Planner interface {
	Plan(ctx context.Context, brief string, refs []core.Reference) (core.PlannerOutput, error)
}

// Stylist applies the style guide to a description.
type Stylist interface {
	Style(ctx context.Context, description, category string) (string, error)
}

// Visualizer renders a styled description to image bytes.
type Visualizer interface {
	Render(ctx context.Context, styled string) ([]byte, error)
}

// Critic judges an image against the brief and the description.
type Critic interface {
	Evaluate(ctx context.Context, image []byte, brief, description string) (core.CriticOutput, error)
}

// SlideAdapter fits the final image to a slide format.
type SlideAdapter interface {
	Adapt(img []byte, key string, bg color.Color) []byte
}

var _ SlideAdapter = (*slides.Adapter)(nil)

// Stages groups the four model-backed stages.
type Stages struct {
	Planner    Planner
	Stylist    Stylist
	Visualizer Visualizer
	Critic     Critic
}

// Options are process-wide run settings.
type Options struct {
	DefaultMaxRounds int
	NumReferences    int
	LLMModel         string
	ImageModel       string
}

// OptionsFromConfig derives Options from cfg.
func OptionsFromConfig(cfg *core.Config) Options {
	return Options{
		DefaultMaxRounds: cfg.MaxRefinementRounds,
		NumReferences:    cfg.NumReferences,
		LLMModel:         cfg.LLMModel,
		ImageModel:       cfg.ImageModel,
	}
}

// Request is one generation call. A nil MaxRounds uses the configured
// default; an empty SlideFormat means "original".
type Request struct {
	Brief       string
	MaxRounds   *int
	SlideFormat string
}

// Orchestrator runs the refinement loop. It holds no per-run state and may
// serve concurrent Generate calls.
type Orchestrator struct {
	stages   Stages
	adapter  SlideAdapter
	refs     ReferenceSource
	store    *RunStore
	opts     Options
	observer Observer
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(orc *Orchestrator) {
		orc.observer = o
	}
}

// WithReferenceSource sets the reference source (default NoReferences).
func WithReferenceSource(src ReferenceSource) Option {
	return func(orc *Orchestrator) {
		orc.refs = src
	}
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(stages Stages, adapter SlideAdapter, store *RunStore, opts Options, logger *zap.Logger, options ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultMaxRounds == 0 {
		opts.DefaultMaxRounds = 3
	}
	if opts.NumReferences == 0 {
		opts.NumReferences = 5
	}

	o := &Orchestrator{
		stages:  stages,
		adapter: adapter,
		refs:    NoReferences{},
		store:   store,
		opts:    opts,
		logger:  logger.Named("pipeline"),
		now:     time.Now,
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// Validate checks a request without running it and returns the trimmed
// brief, the effective round budget and the slide format.
func (o *Orchestrator) Validate(req Request) (brief string, rounds int, format string, err error) {
	brief = strings.TrimSpace(req.Brief)
	if brief == "" {
		return "", 0, "", core.NewValidationError("brief", "cannot be empty")
	}

	rounds = o.opts.DefaultMaxRounds
	if req.MaxRounds != nil {
		rounds = *req.MaxRounds
	}
	if rounds < core.MinRefinementRounds || rounds > core.MaxRefinementRounds {
		return "", 0, "", core.NewValidationError("max_rounds", "must be between %d and %d, got %d",
			core.MinRefinementRounds, core.MaxRefinementRounds, rounds)
	}

	format = req.SlideFormat
	if format == "" {
		format = slides.FormatOriginal
	}
	return brief, rounds, format, nil
}

// run carries the state of a single Generate call.
type run struct {
	o     *Orchestrator
	dir   *RunDir
	start time.Time
	log   *zap.Logger
}

func (r *run) emit(state State, round int, msg string) {
	if r.o.observer == nil {
		return
	}
	now := r.o.now()
	r.o.observer.OnEvent(Event{
		RunID:   r.dir.ID,
		State:   state,
		Round:   round,
		Message: msg,
		Time:    now,
		Elapsed: now.Sub(r.start),
	})
}

func (r *run) fail(round int, err error) error {
	r.log.Error("run failed", zap.Int("round", round), zap.Error(err))
	r.emit(StateFailed, round, err.Error())
	return err
}

// Generate runs the pipeline for req. Non-approval is not an error: the
// result carries Approved=false and the last round's image.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*core.PipelineResult, error) {
	brief, maxRounds, format, err := o.Validate(req)
	if err != nil {
		return nil, err
	}

	start := o.now()
	dir, err := o.store.Create()
	if err != nil {
		return nil, err
	}

	r := &run{o: o, dir: dir, start: start, log: o.logger.With(logging.RunFields(dir.ID, brief)...)}
	r.log.Info("run started", zap.Int("max_rounds", maxRounds), zap.String("slide_format", format))

	category, refs, err := o.refs.Retrieve(ctx, brief, o.opts.NumReferences)
	if err != nil {
		return nil, r.fail(0, fmt.Errorf("pipeline: retrieve references: %w", err))
	}

	r.emit(StatePlanning, 0, "")
	stageStart := o.now()
	plan, err := o.stages.Planner.Plan(ctx, brief, refs)
	if err != nil {
		return nil, r.fail(0, fmt.Errorf("pipeline: planning: %w", err))
	}
	r.log.Info("planning complete", append(logging.StageFields("planner", 0, o.now().Sub(stageStart)),
		zap.Int("words", plan.WordCount), zap.Int("references", len(refs)))...)

	current := plan.Description
	var image []byte
	approved := false
	roundsTaken := 0

	for round := 1; round <= maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, r.fail(round, fmt.Errorf("pipeline: round %d: %w", round, err))
		}
		roundsTaken = round

		r.emit(StateStyling, round, "")
		stageStart = o.now()
		styled, err := o.stages.Stylist.Style(ctx, current, category)
		if err != nil {
			return nil, r.fail(round, fmt.Errorf("pipeline: round %d: styling: %w", round, err))
		}
		r.log.Debug("styling complete", logging.StageFields("stylist", round, o.now().Sub(stageStart))...)

		r.emit(StateVisualizing, round, "")
		stageStart = o.now()
		image, err = o.stages.Visualizer.Render(ctx, styled)
		if err != nil {
			return nil, r.fail(round, fmt.Errorf("pipeline: round %d: visualizing: %w", round, err))
		}
		r.log.Debug("visualizing complete", logging.StageFields("visualizer", round, o.now().Sub(stageStart))...)

		if err := dir.WriteRound(round, styled, image); err != nil {
			return nil, r.fail(round, fmt.Errorf("pipeline: round %d: %w", round, err))
		}

		r.emit(StateCritiquing, round, "")
		stageStart = o.now()
		verdict, err := o.stages.Critic.Evaluate(ctx, image, brief, current)
		if err != nil {
			return nil, r.fail(round, fmt.Errorf("pipeline: round %d: critiquing: %w", round, err))
		}
		if err := verdict.Validate(); err != nil {
			return nil, r.fail(round, fmt.Errorf("pipeline: round %d: %w", round, err))
		}
		r.log.Debug("critique complete", append(logging.StageFields("critic", round, o.now().Sub(stageStart)),
			zap.Bool("approved", verdict.Approved))...)

		if verdict.Approved {
			approved = true
			r.log.Info("critic approved", zap.Int("round", round))
			r.emit(StateAccepted, round, summary(verdict))
			break
		}

		r.log.Info("critic requested refinement",
			zap.Int("round", round),
			zap.String("feedback", logging.Preview(summary(verdict), 200)))
		if round == maxRounds {
			r.emit(StateRoundsExhausted, round, summary(verdict))
			break
		}
		current = *verdict.RefinedDescription
	}

	final := o.adapter.Adapt(image, format, nil)
	imagePath, err := dir.WriteFinal(format, final)
	if err != nil {
		return nil, r.fail(roundsTaken, err)
	}

	elapsed := o.now().Sub(start)
	meta := core.RunMetadata{
		RunID:          dir.ID,
		Brief:          brief,
		Category:       category,
		NumReferences:  len(refs),
		LLMModelID:     o.opts.LLMModel,
		ImageModelID:   o.opts.ImageModel,
		SlideFormat:    format,
		RoundsTaken:    roundsTaken,
		Approved:       approved,
		Timestamp:      start.UTC().Format(time.RFC3339),
		ElapsedSeconds: math.Round(elapsed.Seconds()*100) / 100,
	}
	if err := dir.WriteMetadata(meta); err != nil {
		return nil, r.fail(roundsTaken, err)
	}

	r.log.Info("run finished",
		zap.Int("rounds_taken", roundsTaken),
		zap.Bool("approved", approved),
		zap.String("image_path", imagePath),
		zap.Duration("elapsed", elapsed))
	r.emit(StateCompleted, roundsTaken, imagePath)

	return &core.PipelineResult{
		RunID:       dir.ID,
		ImageBytes:  final,
		ImagePath:   imagePath,
		RoundsTaken: roundsTaken,
		Approved:    approved,
		RunDir:      dir.Path,
	}, nil
}

func summary(v core.CriticOutput) string {
	if v.FeedbackSummary == nil {
		return ""
	}
	return *v.FeedbackSummary
}
