package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"diagramgen/core"
	"diagramgen/logging"
	"diagramgen/pipeline"
	"diagramgen/slides"
)

var generateFlags struct {
	rounds int
	format string
}

var generateCmd = &cobra.Command{
	Use:   "generate [brief]",
	Short: "Generate one diagram from a brief",
	Long: `Run the full pipeline for a single brief and write the run directory
under OUTPUT_DIR.

Usage:
  diagramgen generate "ETL pipeline from Postgres to a warehouse"
  diagramgen generate --rounds 5 --format hd_16_9 "Login sequence"
  cat brief.txt | diagramgen generate

Exit status is 0 when a diagram was produced (approved or not), 2 for an
invalid brief or configuration, and 1 when a model provider fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.IntVarP(&generateFlags.rounds, "rounds", "r", 0, "Maximum refinement rounds (default: MAX_REFINEMENT_ROUNDS)")
	f.StringVarP(&generateFlags.format, "format", "f", slides.FormatOriginal, "Slide format: "+strings.Join(slides.Keys(), ", "))
}

func runGenerate(cmd *cobra.Command, args []string) error {
	brief, err := readBrief(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, logger, err := loadEnvironment(rootFlags.envFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	req := pipeline.Request{Brief: brief, SlideFormat: generateFlags.format}
	if cmd.Flags().Changed("rounds") {
		rounds := generateFlags.rounds
		req.MaxRounds = &rounds
	}

	a, err := newApp(cfg, logger.Zap(), progressPrinter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	result, err := a.orchestrator.Generate(ctx, req)
	if err != nil {
		logger.Error("Generation failed", zap.Error(err))
		return err
	}

	logger.Info("Generation finished", logging.RunFields(result.RunID, brief)...)
	printSummary(cmd.OutOrStdout(), result)
	return nil
}

// readBrief takes the brief from the first argument, or from stdin when it
// is piped. An empty brief is a validation error.
func readBrief(args []string, stdin io.Reader) (string, error) {
	var brief string
	if len(args) > 0 {
		brief = args[0]
	} else if isPiped(stdin) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read brief from stdin: %w", err)
		}
		brief = string(data)
	}

	brief = strings.TrimSpace(brief)
	if brief == "" {
		return "", core.NewValidationError("brief", "cannot be empty; pass it as an argument or pipe it on stdin")
	}
	return brief, nil
}

// isPiped reports false only for an interactive terminal; other readers
// (files, pipes, buffers in tests) are read.
func isPiped(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return true
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}

// progressPrinter prints one line per state transition.
func progressPrinter(w io.Writer) pipeline.Observer {
	dim := color.New(color.Faint)
	return pipeline.ObserverFunc(func(e pipeline.Event) {
		line := string(e.State)
		if e.Round > 0 {
			line += fmt.Sprintf(" (round %d)", e.Round)
		}
		switch e.State {
		case pipeline.StateAccepted:
			line = color.GreenString(line)
		case pipeline.StateRoundsExhausted:
			line = color.YellowString(line)
		case pipeline.StateFailed:
			line = color.RedString(line)
		}
		fmt.Fprintf(w, "%s %s\n", dim.Sprintf("[%6s]", e.Elapsed.Round(100*time.Millisecond)), line)
	})
}

func printSummary(w io.Writer, result *core.PipelineResult) {
	fmt.Fprintln(w)
	if result.Approved {
		color.New(color.FgGreen, color.Bold).Fprintln(w, "✓ Diagram approved")
	} else {
		color.New(color.FgYellow, color.Bold).Fprintln(w, "! Round budget exhausted; keeping the last image")
	}

	label := color.New(color.FgCyan)
	row := func(name, value string) {
		label.Fprintf(w, "  %-9s", name)
		fmt.Fprintln(w, value)
	}
	row("Image", result.ImagePath)
	row("Rounds", fmt.Sprint(result.RoundsTaken))
	row("Approved", fmt.Sprint(result.Approved))
	row("Run dir", result.RunDir)
}
