package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"asciier/internal/apperr"
	"asciier/internal/glyph"
	"asciier/internal/logging"
	"asciier/internal/media"
	"asciier/internal/metrics"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// CellAspect compensates for glyph cells being taller than they are wide.
	CellAspect = 0.55

	// DefaultMinOutputWidth is the minimum width of a rendered image.
	DefaultMinOutputWidth = 1920

	cellWidth  = 7  // basicfont.Face7x13 advance
	cellHeight = 13 // basicfont.Face7x13 line height
)

// Codec is the image codec the renderer depends on.
type Codec interface {
	Dimensions(path string) (width, height int, err error)
	ResizeGreyscale(path string, width, height int) ([]byte, error)
	EncodePNG(img image.Image, path string) error
}

// ConversionError reports a failed render. It matches apperr.ErrCodecFailure
// and the underlying cause with errors.Is.
type ConversionError struct {
	Path  string
	Stage string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("ascii conversion of %s failed during %s: %v", filepath.Base(e.Path), e.Stage, e.Err)
}

// Unwrap exposes both the taxonomy sentinel and the cause.
func (e *ConversionError) Unwrap() []error {
	return []error{apperr.ErrCodecFailure, e.Err}
}

// Options configures a Renderer.
type Options struct {
	Palette glyph.Palette
	// MinOutputWidth is the smallest width of the final image. Zero means
	// DefaultMinOutputWidth; a negative value disables the minimum.
	MinOutputWidth int
	// SkipText disables the .txt grid artifact. Video frames set this.
	SkipText bool
}

// Result describes the artifacts written by RenderFrame.
type Result struct {
	ImagePath string
	TextPath  string
	Columns   int
	Rows      int
	Width     int
	Height    int
	Text      string
}

// Renderer turns images into rasterised ASCII art.
type Renderer struct {
	codec    Codec
	palette  glyph.Palette
	minWidth int
	skipText bool
}

// New creates a Renderer backed by codec.
func New(codec Codec, opts Options) *Renderer {
	minWidth := opts.MinOutputWidth
	if minWidth == 0 {
		minWidth = DefaultMinOutputWidth
	}
	if minWidth < 0 {
		minWidth = 0
	}
	return &Renderer{
		codec:    codec,
		palette:  opts.Palette,
		minWidth: minWidth,
		skipText: opts.SkipText,
	}
}

// WithoutText returns a copy of r that does not write the text artifact.
func (r *Renderer) WithoutText() *Renderer {
	cp := *r
	cp.skipText = true
	return &cp
}

// Rows returns the grid height for a source of width x height rendered at
// columns, never less than one.
func Rows(columns, width, height int) int {
	rows := int(math.Floor(float64(columns) * (float64(height) / float64(width)) * CellAspect))
	if rows < 1 {
		rows = 1
	}
	return rows
}

// TextPath returns the path of the text artifact written beside imagePath.
func TextPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".txt"
}

// RenderFrame converts inputPath into ASCII art at the given column count and
// writes the rasterised PNG to outputPath plus, unless disabled, the raw grid
// beside it. Nothing is left at outputPath when it fails. Inputs are never
// modified.
func (r *Renderer) RenderFrame(ctx context.Context, inputPath, outputPath string, columns int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if columns <= 0 {
		return nil, &ConversionError{Path: inputPath, Stage: "setup", Err: fmt.Errorf("invalid column count %d", columns)}
	}

	start := time.Now()
	defer func() {
		metrics.RenderDuration.Observe(time.Since(start).Seconds())
	}()

	srcW, srcH, err := r.codec.Dimensions(inputPath)
	if err != nil {
		return nil, &ConversionError{Path: inputPath, Stage: "decode", Err: err}
	}

	rows := Rows(columns, srcW, srcH)
	pix, err := r.codec.ResizeGreyscale(inputPath, columns, rows)
	if err != nil {
		return nil, &ConversionError{Path: inputPath, Stage: "resize", Err: err}
	}

	text, err := r.palette.Grid(pix, columns, rows)
	if err != nil {
		return nil, &ConversionError{Path: inputPath, Stage: "map", Err: err}
	}

	canvas := Rasterize(text, columns, rows)
	outW, outH := r.outputSize(srcW, srcH)
	final := imaging.Resize(canvas, outW, outH, imaging.Linear)

	if err := r.codec.EncodePNG(final, outputPath); err != nil {
		return nil, &ConversionError{Path: inputPath, Stage: "encode", Err: err}
	}

	res := &Result{
		ImagePath: outputPath,
		Columns:   columns,
		Rows:      rows,
		Width:     outW,
		Height:    outH,
		Text:      text,
	}

	if !r.skipText {
		res.TextPath = TextPath(outputPath)
		if err := media.WriteTextAtomic(res.TextPath, text); err != nil {
			if rmErr := os.Remove(outputPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				logging.Warn("failed to remove %s after text write error: %v", outputPath, rmErr)
			}
			return nil, &ConversionError{Path: inputPath, Stage: "write text", Err: err}
		}
	}

	logging.Debug("Rendered %s: %dx%d grid -> %dx%d", filepath.Base(inputPath), columns, rows, outW, outH)
	return res, nil
}

// outputSize returns the final image size: the source size, scaled up with
// its aspect ratio when narrower than the configured minimum width.
func (r *Renderer) outputSize(srcW, srcH int) (int, int) {
	if r.minWidth <= 0 || srcW >= r.minWidth {
		return srcW, srcH
	}
	h := int(math.Ceil(float64(srcH) * float64(r.minWidth) / float64(srcW)))
	return r.minWidth, max(h, srcH)
}

// Rasterize draws a newline-terminated grid of columns x rows glyphs in white
// on a black canvas using a fixed-width 7x13 bitmap font with no letter
// spacing.
func Rasterize(text string, columns, rows int) *image.Gray {
	canvas := image.NewGray(image.Rect(0, 0, columns*cellWidth, rows*cellHeight))

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.White,
		Face: face,
	}

	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, line := range lines {
		if i >= rows {
			break
		}
		d.Dot = fixed.P(0, i*cellHeight+face.Ascent)
		d.DrawString(line)
	}
	return canvas
}
