// Package imaging decodes and downscales incoming images before they are
// sent to the embedding server.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrInvalidImage reports undecodable input. Requests carrying such frames
// are rejected without any partial processing.
var ErrInvalidImage = errors.New("invalid image data")

// Validate checks that the data decodes as a supported image format without
// decoding the full pixel array.
func Validate(data []byte) error {
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return nil
}

// ResizeToFit downscales an image to fit within maxSize (width or height)
// while keeping aspect ratio. Images already within bounds are returned
// unchanged, so the common camera-frame path costs one DecodeConfig.
func ResizeToFit(data []byte, maxSize int) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if maxSize <= 0 || (cfg.Width <= maxSize && cfg.Height <= maxSize) {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		newHeight = maxSize
		newWidth = int(float64(width) * float64(maxSize) / float64(height))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}

	return buf.Bytes(), nil
}

// ScaleFactor returns the factor by which bounding boxes from a resized image
// must be multiplied to map back onto the original frame. Returns 1 when no
// resize happened.
func ScaleFactor(data []byte, maxSize int) float64 {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || maxSize <= 0 {
		return 1
	}
	longest := cfg.Width
	if cfg.Height > longest {
		longest = cfg.Height
	}
	if longest <= maxSize {
		return 1
	}
	return float64(longest) / float64(maxSize)
}
