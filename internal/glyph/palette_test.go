package glyph

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestMapMatchesFormulaForAllIntensities(t *testing.T) {
	palettes := []string{DefaultGlyphs, "@ ", "#", "0123456789", "@%#*+=-:. "}

	for _, glyphs := range palettes {
		p, err := New(glyphs)
		if err != nil {
			t.Fatalf("New(%q) error: %v", glyphs, err)
		}
		n := len(glyphs)
		for i := 0; i <= 255; i++ {
			want := glyphs[int(math.Floor(float64(i)/255*float64(n-1)+1e-9))]
			if got := p.Map(uint8(i)); got != want {
				t.Errorf("palette %q: Map(%d) = %q, want %q", glyphs, i, got, want)
			}
		}
	}
}

func TestMapEndpoints(t *testing.T) {
	p := Default()

	if got := p.Map(0); got != '@' {
		t.Errorf("Map(0) = %q, want '@'", got)
	}
	if got := p.Map(255); got != ' ' {
		t.Errorf("Map(255) = %q, want ' '", got)
	}
}

func TestMapDefaultBuckets(t *testing.T) {
	p := Default()

	tests := []struct {
		intensity uint8
		want      byte
	}{
		{0, '@'},
		{23, '@'},
		{24, '#'},
		{85, '%'},
		{170, ';'},
		{254, '.'},
		{255, ' '},
	}

	for _, tt := range tests {
		if got := p.Map(tt.intensity); got != tt.want {
			t.Errorf("Map(%d) = %q, want %q", tt.intensity, got, tt.want)
		}
	}
}

func TestZeroPaletteUsesDefault(t *testing.T) {
	var p Palette
	if got := p.Map(0); got != '@' {
		t.Errorf("zero palette Map(0) = %q, want '@'", got)
	}
	if got := p.Map(255); got != ' ' {
		t.Errorf("zero palette Map(255) = %q, want ' '", got)
	}
}

func TestNewRejectsInvalidPalettes(t *testing.T) {
	if _, err := New(""); !errors.Is(err, ErrEmptyPalette) {
		t.Errorf("New(\"\") error = %v, want ErrEmptyPalette", err)
	}
	if _, err := New("ab\n"); err == nil {
		t.Error("New with a newline glyph should fail")
	}
	if _, err := New("é"); err == nil {
		t.Error("New with non-ASCII glyph should fail")
	}
}

func TestGrid(t *testing.T) {
	p := Default()
	pix := []byte{
		0, 255,
		85, 170,
	}

	grid, err := p.Grid(pix, 2, 2)
	if err != nil {
		t.Fatalf("Grid() error: %v", err)
	}

	want := "@ \n%;\n"
	if grid != want {
		t.Errorf("Grid() = %q, want %q", grid, want)
	}

	lines := strings.Split(strings.TrimSuffix(grid, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(lines))
	}
}

func TestGridRejectsBadInput(t *testing.T) {
	p := Default()

	if _, err := p.Grid([]byte{1, 2, 3}, 2, 2); err == nil {
		t.Error("Grid with short buffer should fail")
	}
	if _, err := p.Grid(nil, 0, 1); err == nil {
		t.Error("Grid with zero width should fail")
	}
}
