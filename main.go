// Command diagramgen turns a plain-language brief into a presentation-ready
// diagram by running the plan, style, render and critique loop.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"diagramgen/core"
)

var rootFlags struct {
	envFile string
}

var rootCmd = &cobra.Command{
	Use:   "diagramgen",
	Short: "Generate slide-ready diagrams from a plain-language brief",
	Long: `diagramgen plans a diagram from a brief, applies the house style guide,
renders it with an image model and has a critic refine the description until
the image is approved or the round budget runs out.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.envFile, "env-file", ".env", "Path to an optional .env file")
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(formatsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.Version = core.GetVersionInfo()
}

func main() {
	os.Exit(execute(context.Background()))
}

func execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return core.ExitCodeSuccess
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, color.YellowString("Interrupted"))
		return core.ExitCodeSIGINT
	}

	fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
	return core.ExitCodeFor(err)
}

