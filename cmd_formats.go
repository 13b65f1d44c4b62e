package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"diagramgen/slides"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the slide formats accepted by --format",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		printFormats(cmd.OutOrStdout())
		return nil
	},
}

func printFormats(w io.Writer) {
	key := color.New(color.FgCyan, color.Bold)
	for _, k := range slides.Keys() {
		f, _ := slides.Lookup(k)
		size := "as generated"
		if f.Resizes() {
			size = fmt.Sprintf("%dx%d", *f.Width, *f.Height)
		}
		key.Fprintf(w, "%-10s", k)
		fmt.Fprintf(w, "  %-22s %s\n", f.Label, size)
	}
}
