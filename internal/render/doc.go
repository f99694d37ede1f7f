// Package render converts a single image into rasterised ASCII art.
//
// RenderFrame probes the source size, resamples it to a greyscale grid of
// columns x rows cells where
//
//	rows = floor(columns * height/width * 0.55)
//
// maps every cell through a glyph.Palette, draws the grid white-on-black with
// the 7x13 bitmap font from golang.org/x/image/font/basicfont and scales the
// canvas back to at least the source resolution (and at least
// MinOutputWidth pixels wide). The PNG and the raw text grid are written via
// temp-file-and-rename, so a failed render leaves nothing at the output path.
//
// The same Renderer serves both single image uploads and the per-frame stage
// of the video pipeline; frames use WithoutText since only the image is
// needed for muxing.
package render
