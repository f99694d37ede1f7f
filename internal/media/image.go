package media

import (
	"fmt"
	"image"
	"os"

	"asciier/internal/apperr"
	"asciier/internal/logging"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// MaxImageDimension is the maximum width or height we'll decode at full size.
	// Larger sources are downscaled before the greyscale resize.
	MaxImageDimension = 8192

	// MaxImagePixels is the maximum total pixels (width * height) we'll process
	MaxImagePixels = 40_000_000
)

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(path string) (*ImageDimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, err
	}

	return &ImageDimensions{
		Width:  config.Width,
		Height: config.Height,
	}, nil
}

// Codec decodes, resizes and encodes images with the imaging library.
type Codec struct{}

// NewCodec returns the imaging-backed codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Dimensions returns the pixel size of the image at path.
func (c *Codec) Dimensions(path string) (int, int, error) {
	dims, err := GetImageDimensions(path)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: decode %s: %v", apperr.ErrCodecFailure, path, err)
	}
	if dims.Width <= 0 || dims.Height <= 0 {
		return 0, 0, fmt.Errorf("%w: %s has invalid dimensions %dx%d", apperr.ErrCodecFailure, path, dims.Width, dims.Height)
	}
	return dims.Width, dims.Height, nil
}

// ResizeGreyscale decodes path, resamples it to exactly width x height
// (aspect ratio is not preserved) and returns one luminance byte per pixel in
// row-major order.
func (c *Codec) ResizeGreyscale(path string, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid target size %dx%d", apperr.ErrCodecFailure, width, height)
	}

	img, err := c.load(path, width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", apperr.ErrCodecFailure, path, err)
	}

	return Greyscale(imaging.Resize(img, width, height, imaging.Lanczos)), nil
}

// load decodes path for a resize to width x height. With libvips available
// the decode shrinks straight to twice the target box, leaving the final
// exact-size resample to imaging.
func (c *Codec) load(path string, width, height int) (image.Image, error) {
	if IsVipsAvailable() {
		img, err := LoadImageWithVips(path, width*2, height*2)
		if err == nil {
			return img, nil
		}
		logging.Debug("vips decode failed for %s, falling back to imaging: %v", path, err)
	}
	return LoadImageConstrained(path, MaxImageDimension, MaxImagePixels)
}

// EncodePNG writes img to path as PNG.
func (c *Codec) EncodePNG(img image.Image, path string) error {
	err := WriteFileAtomic(path, func(f *os.File) error {
		return imaging.Encode(f, img, imaging.PNG)
	})
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", apperr.ErrCodecFailure, path, err)
	}
	return nil
}

// Greyscale converts img to one luminance byte per pixel, row-major.
func Greyscale(img image.Image) []byte {
	grey := imaging.Grayscale(img)
	w, h := grey.Bounds().Dx(), grey.Bounds().Dy()

	pix := make([]byte, w*h)
	for y := 0; y < h; y++ {
		row := grey.Pix[y*grey.Stride : y*grey.Stride+w*4]
		for x := 0; x < w; x++ {
			// R, G and B are equal after Grayscale.
			pix[y*w+x] = row[x*4]
		}
	}
	return pix
}

// LoadImageConstrained loads an image, downscaling if it exceeds size limits
// This prevents OOM when processing very large images
func LoadImageConstrained(path string, maxDimension, maxPixels int) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	if width <= maxDimension && height <= maxDimension && width*height <= maxPixels {
		return img, nil
	}

	targetWidth, targetHeight := width, height

	// First, constrain by max dimension
	if width > maxDimension || height > maxDimension {
		if width > height {
			targetWidth = maxDimension
			targetHeight = height * maxDimension / width
		} else {
			targetHeight = maxDimension
			targetWidth = width * maxDimension / height
		}
	}

	// Then, constrain by total pixels if still too large
	if targetPixels := targetWidth * targetHeight; targetPixels > maxPixels {
		scale := float64(maxPixels) / float64(targetPixels)
		targetWidth = int(float64(targetWidth) * scale)
		targetHeight = int(float64(targetHeight) * scale)
	}

	logging.Info("Constraining large image %s from %dx%d to %dx%d", path, width, height, targetWidth, targetHeight)
	return imaging.Resize(img, targetWidth, targetHeight, imaging.Lanczos), nil
}
