package frames

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	backgroundBrightness = 0.45
	backgroundBlurSigma  = 2.0
)

// PrepareBackground decodes a downloaded image and turns it into a dimmed,
// softened full-frame backdrop. Callers treat an error as "no background".
func PrepareBackground(data []byte) (image.Image, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode background: %w", err)
	}
	if src.Bounds().Empty() {
		return nil, fmt.Errorf("background %s image is empty", format)
	}

	img := imaging.Resize(src, Width, Height, imaging.Lanczos)
	img = imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: uint8(float64(c.R) * backgroundBrightness),
			G: uint8(float64(c.G) * backgroundBrightness),
			B: uint8(float64(c.B) * backgroundBrightness),
			A: c.A,
		}
	})
	return imaging.Blur(img, backgroundBlurSigma), nil
}
