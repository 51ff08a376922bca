package cv

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	xdraw "golang.org/x/image/draw"
)

// Capturer produces a fresh screen frame on every call
type Capturer interface {
	Capture(ctx context.Context) (*image.RGBA, error)
}

// CapturerFunc adapts a plain function to the Capturer interface
type CapturerFunc func(ctx context.Context) (*image.RGBA, error)

func (f CapturerFunc) Capture(ctx context.Context) (*image.RGBA, error) {
	return f(ctx)
}

// DecodeRaster decodes PNG or JPEG bytes into an RGBA image
func DecodeRaster(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no image data", ErrInvalidImage)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return ToRGBA(img), nil
}

// LoadRaster reads and decodes an image file
func LoadRaster(path string) (*image.RGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}

	img, err := DecodeRaster(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// ToRGBA converts any image to *image.RGBA with bounds starting at (0,0).
// An RGBA already anchored at the origin is returned as is.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}

	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	return rgba
}
