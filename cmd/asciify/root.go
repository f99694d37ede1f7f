package main

import (
	"asciier/internal/glyph"
	"asciier/internal/logging"

	"github.com/spf13/cobra"
)

// renderFlags are shared by the image and video commands.
type renderFlags struct {
	columns  int
	palette  string
	minWidth int
}

func (f *renderFlags) register(cmd *cobra.Command, defColumns int) {
	cmd.Flags().IntVarP(&f.columns, "columns", "w", defColumns, "Width of the ASCII grid in characters")
	cmd.Flags().StringVar(&f.palette, "palette", "", "Glyphs from darkest to lightest (default \""+glyph.DefaultGlyphs+"\")")
	cmd.Flags().IntVar(&f.minWidth, "min-width", 0, "Minimum output width in pixels, -1 keeps the source size")
}

func (f *renderFlags) resolvePalette() (glyph.Palette, error) {
	if f.palette == "" {
		return glyph.Default(), nil
	}
	return glyph.New(f.palette)
}

func newRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "asciify",
		Short:         "Convert images and videos into ASCII art",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logging.SetLevel(logging.LevelDebug)
			} else {
				logging.SetLevel(logging.LevelWarn)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newImageCommand())
	rootCmd.AddCommand(newVideoCommand())
	rootCmd.AddCommand(newPaletteCommand())

	return rootCmd
}
