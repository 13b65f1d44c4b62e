package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"diagramgen/core"
	"diagramgen/core/validation"
	"diagramgen/db"
	"diagramgen/imagegen"
	"diagramgen/prompts"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration, resources and provider credentials",
	Long: `Run the startup checks without generating anything: required prompt
templates and style guide, a writable output directory, and credentials for
the configured image provider. Exits 2 when a check fails.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadEnvironment(rootFlags.envFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	router := imagegen.NewRouter(cfg, logger.Zap())
	store := prompts.NewStore(cfg.PromptsPath)

	result := validation.NewValidationSuite(cfg).
		WithOutput(cmd.OutOrStdout()).
		WithCheck("Prompt Parsing", func() (string, bool, error) {
			names, err := store.Names()
			if err != nil {
				return "", false, err
			}
			if err := store.Require(prompts.TemplatePlanner, prompts.TemplateStylist, prompts.TemplateCritic); err != nil {
				return "", false, err
			}
			return fmt.Sprintf("%d templates: %s", len(names), strings.Join(names, ", ")), false, nil
		}).
		WithCheck("Image Provider", func() (string, bool, error) {
			if err := router.CheckCredentials(cmd.Context()); err != nil {
				return "", false, err
			}
			return fmt.Sprintf("%s via %s", router.Model(), router.Kind()), false, nil
		}).
		WithCheck("Run History", func() (string, bool, error) {
			return checkRunHistory(cmd.Context(), cfg.HistoryDB)
		}).
		Validate()

	if result.Success {
		return nil
	}
	err = result.GetFirstError()
	if err == nil {
		return core.NewValidationError("check", "%s", result.Summary())
	}
	if core.ExitCodeFor(err) != core.ExitCodeUsage {
		err = core.NewValidationError("check", "%v", err)
	}
	return err
}

// checkRunHistory opens (and migrates) the history database. Problems are
// warnings because serve falls back to in-memory history.
func checkRunHistory(ctx context.Context, path string) (string, bool, error) {
	if path == "" {
		return "Disabled (HISTORY_DB is empty)", true, nil
	}
	database, err := db.NewDatabase(path)
	if err != nil {
		return "Runs will not persist across restarts", true, err
	}
	defer database.Close()

	n, err := db.NewRepository(database).CountRuns(ctx)
	if err != nil {
		return "Runs will not persist across restarts", true, err
	}
	return fmt.Sprintf("%d runs stored in %s", n, path), false, nil
}
