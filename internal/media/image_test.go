package media

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"asciier/internal/apperr"
)

// createTestImage writes a gradient test image to path in the given format.
func createTestImage(t *testing.T, path string, width, height int, format string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: 128,
				A: 255,
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test image file: %v", err)
	}
	defer f.Close()

	switch format {
	case "jpeg", "jpg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(f, img)
	default:
		t.Fatalf("Unsupported test image format: %s", format)
	}
	if err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
}

func TestGetImageDimensions(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name   string
		width  int
		height int
		format string
	}{
		{"landscape png", 320, 200, "png"},
		{"portrait jpeg", 90, 160, "jpeg"},
		{"square png", 1, 1, "png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, strings.ReplaceAll(tt.name, " ", "_")+"."+tt.format)
			createTestImage(t, path, tt.width, tt.height, tt.format)

			dims, err := GetImageDimensions(path)
			if err != nil {
				t.Fatalf("GetImageDimensions() error: %v", err)
			}
			if dims.Width != tt.width || dims.Height != tt.height {
				t.Errorf("GetImageDimensions() = %dx%d, want %dx%d", dims.Width, dims.Height, tt.width, tt.height)
			}
		})
	}
}

func TestCodecDimensions_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.png")
	if err := os.WriteFile(path, []byte("definitely not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := NewCodec().Dimensions(path)
	if !errors.Is(err, apperr.ErrCodecFailure) {
		t.Errorf("Dimensions() error = %v, want ErrCodecFailure", err)
	}
}

func TestCodecResizeGreyscale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grad.png")
	createTestImage(t, path, 64, 32, "png")

	pix, err := NewCodec().ResizeGreyscale(path, 16, 5)
	if err != nil {
		t.Fatalf("ResizeGreyscale() error: %v", err)
	}
	if len(pix) != 16*5 {
		t.Fatalf("len(pix) = %d, want %d", len(pix), 16*5)
	}

	// Red grows left to right, so luminance must too.
	if pix[0] >= pix[15] {
		t.Errorf("expected left edge darker than right edge, got %d >= %d", pix[0], pix[15])
	}
}

func TestCodecResizeGreyscale_InvalidSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grad.png")
	createTestImage(t, path, 8, 8, "png")

	if _, err := NewCodec().ResizeGreyscale(path, 0, 4); !errors.Is(err, apperr.ErrCodecFailure) {
		t.Errorf("ResizeGreyscale(0, 4) error = %v, want ErrCodecFailure", err)
	}
}

func TestCodecEncodePNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")

	img := image.NewGray(image.Rect(0, 0, 10, 4))
	if err := NewCodec().EncodePNG(img, path); err != nil {
		t.Fatalf("EncodePNG() error: %v", err)
	}

	dims, err := GetImageDimensions(path)
	if err != nil {
		t.Fatalf("re-decode error: %v", err)
	}
	if dims.Width != 10 || dims.Height != 4 {
		t.Errorf("encoded size = %dx%d, want 10x4", dims.Width, dims.Height)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the output file, found %d entries", len(entries))
	}
}

func TestCodecEncodePNG_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.png")

	err := NewCodec().EncodePNG(image.NewGray(image.Rect(0, 0, 2, 2)), path)
	if !errors.Is(err, apperr.ErrCodecFailure) {
		t.Errorf("EncodePNG() error = %v, want ErrCodecFailure", err)
	}
}

func TestGreyscale(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{0, 0, 0, 255})
	img.Set(1, 0, color.RGBA{255, 255, 255, 255})

	pix := Greyscale(img)
	if len(pix) != 2 {
		t.Fatalf("len(pix) = %d, want 2", len(pix))
	}
	if pix[0] != 0 || pix[1] != 255 {
		t.Errorf("Greyscale() = %v, want [0 255]", pix)
	}
}

func TestLoadImageConstrained(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	createTestImage(t, path, 200, 100, "png")

	img, err := LoadImageConstrained(path, 50, 1_000_000)
	if err != nil {
		t.Fatalf("LoadImageConstrained() error: %v", err)
	}
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 25 {
		t.Errorf("constrained size = %dx%d, want 50x25", img.Bounds().Dx(), img.Bounds().Dy())
	}

	img, err = LoadImageConstrained(path, 8192, 1000)
	if err != nil {
		t.Fatalf("LoadImageConstrained() error: %v", err)
	}
	if px := img.Bounds().Dx() * img.Bounds().Dy(); px > 1000 {
		t.Errorf("constrained pixel count = %d, want <= 1000", px)
	}
}
