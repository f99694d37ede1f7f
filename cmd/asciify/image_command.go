package main

import (
	"fmt"
	"path/filepath"

	"asciier/internal/apperr"
	"asciier/internal/media"
	"asciier/internal/mediatypes"
	"asciier/internal/render"

	"github.com/spf13/cobra"
)

func newImageCommand() *cobra.Command {
	var flags renderFlags
	var noText, printText bool

	cmd := &cobra.Command{
		Use:   "image <input> <output.png>",
		Short: "Render an image as ASCII art",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, output := args[0], args[1]
			if mediatypes.GetFileType(mediatypes.Ext(input)) != mediatypes.FileTypeImage {
				return fmt.Errorf("%w: %s is not an image", apperr.ErrUnsupportedFormat, filepath.Base(input))
			}

			palette, err := flags.resolvePalette()
			if err != nil {
				return err
			}

			renderer := render.New(media.NewCodec(), render.Options{
				Palette:        palette,
				MinOutputWidth: flags.minWidth,
				SkipText:       noText,
			})

			res, err := renderer.RenderFrame(cmd.Context(), input, output, flags.columns)
			if err != nil {
				return err
			}

			if printText {
				fmt.Fprint(cmd.OutOrStdout(), res.Text)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%dx%d glyphs, %dx%d px)\n", res.ImagePath, res.Columns, res.Rows, res.Width, res.Height)
			if res.TextPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", res.TextPath)
			}
			return nil
		},
	}

	flags.register(cmd, 120)
	cmd.Flags().BoolVar(&noText, "no-text", false, "Do not write the .txt grid beside the image")
	cmd.Flags().BoolVar(&printText, "print", false, "Print the grid to stdout instead of a summary")

	return cmd
}
