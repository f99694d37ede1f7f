// Package glyph maps 8-bit greyscale intensities onto ASCII glyphs.
//
// A Palette is an ordered run of glyphs from darkest to lightest. Intensity i
// selects palette[floor(i/255 * (N-1))], so 0 always maps to the first glyph
// and 255 to the last:
//
//	p := glyph.Default()
//	p.Map(0)   // '@'
//	p.Map(255) // ' '
//
// Custom palettes must keep the same dark-to-light order; the renderer treats
// the palette position as the brightness bucket and does not reorder it.
package glyph
