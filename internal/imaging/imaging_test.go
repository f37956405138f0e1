package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"testing"
)

// encodeTestJPEG produces a JPEG of the given dimensions.
func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestValidate(t *testing.T) {
	if err := Validate(encodeTestJPEG(t, 10, 10)); err != nil {
		t.Errorf("valid JPEG rejected: %v", err)
	}
	err := Validate([]byte("definitely not an image"))
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
}

func TestResizeToFit_SmallImageUnchanged(t *testing.T) {
	data := encodeTestJPEG(t, 100, 80)
	out, err := ResizeToFit(data, 200)
	if err != nil {
		t.Fatalf("ResizeToFit failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("image within bounds must be returned unchanged")
	}
}

func TestResizeToFit_Downscales(t *testing.T) {
	data := encodeTestJPEG(t, 400, 200)
	out, err := ResizeToFit(data, 100)
	if err != nil {
		t.Fatalf("ResizeToFit failed: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("failed to decode resized image: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Errorf("expected 100x50, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestResizeToFit_InvalidInput(t *testing.T) {
	_, err := ResizeToFit([]byte("garbage"), 100)
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
}

func TestScaleFactor(t *testing.T) {
	data := encodeTestJPEG(t, 400, 200)
	if f := ScaleFactor(data, 100); f != 4 {
		t.Errorf("expected scale factor 4, got %v", f)
	}
	if f := ScaleFactor(data, 800); f != 1 {
		t.Errorf("expected scale factor 1, got %v", f)
	}
}
