package glyph

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultGlyphs is the 12-entry palette ordered darkest to lightest.
const DefaultGlyphs = "@#S%?*+;:,. "

// ErrEmptyPalette is returned when a palette has no glyphs.
var ErrEmptyPalette = errors.New("glyph palette must contain at least one glyph")

// Palette is an immutable, ordered set of single-byte glyphs.
type Palette struct {
	glyphs []byte
}

// New builds a palette from an ASCII string ordered darkest to lightest.
func New(glyphs string) (Palette, error) {
	if glyphs == "" {
		return Palette{}, ErrEmptyPalette
	}
	for i := 0; i < len(glyphs); i++ {
		if glyphs[i] < 0x20 || glyphs[i] > 0x7e {
			return Palette{}, fmt.Errorf("glyph palette: byte %d (%q) is not printable ASCII", i, glyphs[i])
		}
	}
	return Palette{glyphs: []byte(glyphs)}, nil
}

// Default returns the built-in 12-glyph palette.
func Default() Palette {
	return Palette{glyphs: []byte(DefaultGlyphs)}
}

// Len returns the number of glyphs in the palette.
func (p Palette) Len() int {
	return len(p.glyphs)
}

// String returns the palette glyphs in order.
func (p Palette) String() string {
	return string(p.glyphs)
}

// Map returns the glyph for an intensity. The zero Palette uses the default
// glyphs.
func (p Palette) Map(intensity uint8) byte {
	glyphs := p.glyphs
	if len(glyphs) == 0 {
		glyphs = []byte(DefaultGlyphs)
	}
	// Integer arithmetic gives the exact floor of intensity/255*(N-1).
	return glyphs[int(intensity)*(len(glyphs)-1)/255]
}

// Grid maps a row-major greyscale buffer of width*height bytes onto text,
// one newline-terminated line per row.
func (p Palette) Grid(pix []byte, width, height int) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("glyph grid: invalid dimensions %dx%d", width, height)
	}
	if len(pix) < width*height {
		return "", fmt.Errorf("glyph grid: buffer holds %d pixels, need %d", len(pix), width*height)
	}

	var b strings.Builder
	b.Grow((width + 1) * height)
	for y := 0; y < height; y++ {
		row := pix[y*width : (y+1)*width]
		for _, v := range row {
			b.WriteByte(p.Map(v))
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}
