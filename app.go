package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"diagramgen/agents"
	"diagramgen/core"
	"diagramgen/imagegen"
	"diagramgen/llm"
	"diagramgen/logging"
	"diagramgen/pipeline"
	"diagramgen/prompts"
	"diagramgen/slides"
)

// loadEnvironment reads the .env file (if any), resolves the configuration
// and builds the logger. Console logs go to stderr so stdout stays clean for
// command output.
func loadEnvironment(envFile string) (*core.Config, *logging.Logger, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewLogger(logging.Options{
		Level:       logging.ParseLogLevelString(cfg.LogLevel, logging.InfoLevel),
		Development: core.ParseBoolEnv("DEV_MODE", false),
		FilePath:    cfg.LogFile,
		Console:     zapcore.Lock(os.Stderr),
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Configuration loaded",
		zap.String("version", core.Version),
		zap.String("llm_model", cfg.LLMModel),
		zap.String("image_model", cfg.ImageModel),
		zap.String("image_size", string(cfg.ImageSize)),
		zap.String("image_quality", string(cfg.ImageQuality)),
		zap.Int("max_refinement_rounds", cfg.MaxRefinementRounds),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("ai_timeout", cfg.AITimeout),
		zap.String("output_dir", cfg.OutputDir),
		zap.Bool("allow_self_signed_certs", cfg.AllowSelfSignedCerts),
	)
	return cfg, logger, nil
}

// app holds the wired pipeline.
type app struct {
	cfg          *core.Config
	images       *imagegen.Router
	prompts      *prompts.Store
	guide        *agents.StyleGuide
	orchestrator *pipeline.Orchestrator
}

// newApp wires the stages, slide adapter and run store. Every observer
// receives the run events.
func newApp(cfg *core.Config, logger *zap.Logger, observers ...pipeline.Observer) (*app, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	chat, err := llm.NewOpenAIChatClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		images:  imagegen.NewRouter(cfg, logger),
		prompts: prompts.NewStore(cfg.PromptsPath),
		guide:   agents.NewStyleGuide(cfg.StyleGuidePath),
	}

	stages := pipeline.Stages{
		Planner:    agents.NewPlanner(chat, a.prompts, logger),
		Stylist:    agents.NewStylist(chat, a.prompts, a.guide, logger),
		Visualizer: agents.NewVisualizer(a.images, logger),
		Critic:     agents.NewCritic(chat, a.prompts, logger),
	}
	a.orchestrator = pipeline.NewOrchestrator(
		stages,
		slides.NewAdapter(logger),
		pipeline.NewRunStore(cfg.OutputDir),
		pipeline.OptionsFromConfig(cfg),
		logger,
		pipeline.WithObserver(pipeline.NewObservers(observers...)),
	)
	return a, nil
}
