package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPaletteCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "palette",
		Short: "Show how intensities map onto glyphs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			palette, err := flags.resolvePalette()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Palette: %q (%d glyphs, darkest first)\n", palette.String(), palette.Len())
			for i := 0; i < 256; i += 32 {
				fmt.Fprintf(out, "  %3d  %q\n", i, palette.Map(uint8(i)))
			}
			fmt.Fprintf(out, "  %3d  %q\n", 255, palette.Map(255))
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.palette, "palette", "", "Glyphs from darkest to lightest")
	return cmd
}
