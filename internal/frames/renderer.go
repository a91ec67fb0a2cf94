// Package frames draws the still images that make up a video. All output is
// 1280x720 opaque RGB and depends only on the inputs, so re-rendering the same
// unit yields identical pixels.
package frames

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"golang.org/x/image/font"

	"github.com/codebuildervaibhav/script-to-video/internal/segment"
)

const (
	Width  = 1280
	Height = 720
)

// Slide layout.
const (
	slideTextSize   = 62
	slideLabelSize  = 28
	slideWrapWidth  = 22
	slideLineHeight = 80
	slideLabelY     = 50
	slideRuleInset  = 100
	slideRuleOffset = 60
)

// Typewriter layout.
const (
	captionSize       = 56
	captionWrapWidth  = 25
	captionMaxLines   = 3
	captionLineHeight = 72
	captionBaselineY  = Height - 110
	captionShadow     = 3
	overlayMaxAlpha   = 180
	progressBarHeight = 8
)

var (
	accentColor  = color.RGBA{255, 200, 0, 255}
	white        = color.RGBA{255, 255, 255, 255}
	labelColor   = color.RGBA{180, 180, 180, 255}
	shadowColor  = color.RGBA{0, 0, 0, 255}
	flatDark     = color.RGBA{15, 15, 25, 255}
	gradientTop  = color.RGBA{10, 10, 40, 255}
	gradientBase = color.RGBA{40, 20, 100, 255}
)

// Renderer draws the frames of one job. It is not safe for concurrent use.
type Renderer struct {
	label   font.Face
	body    font.Face
	caption font.Face

	slideBase      *image.RGBA
	typewriterBase *image.RGBA
}

// NewRenderer prepares faces and static layers. background is the already
// prepared backdrop for typewriter frames and may be nil.
func NewRenderer(fonts *FontSource, background image.Image) *Renderer {
	r := &Renderer{
		label:   fonts.Face(slideLabelSize),
		body:    fonts.Face(slideTextSize),
		caption: fonts.Face(captionSize),
	}

	r.slideBase = image.NewRGBA(image.Rect(0, 0, Width, Height))
	verticalGradient(r.slideBase, gradientTop, gradientBase)
	strokeRect(r.slideBase, 15, 15, Width-15, Height-15, 3, accentColor)
	strokeRect(r.slideBase, 20, 20, Width-20, Height-20, 1, accentColor)
	fillRect(r.slideBase, image.Rect(slideRuleInset, Height-slideRuleOffset-1, Width-slideRuleInset+1, Height-slideRuleOffset+1), accentColor)

	r.typewriterBase = image.NewRGBA(image.Rect(0, 0, Width, Height))
	fillRect(r.typewriterBase, r.typewriterBase.Bounds(), flatDark)
	if background != nil {
		draw.Draw(r.typewriterBase, r.typewriterBase.Bounds(), background, background.Bounds().Min, draw.Over)
	}
	darkenBottom(r.typewriterBase, overlayMaxAlpha)

	return r
}

// Close releases all font faces and returns the first error.
func (r *Renderer) Close() error {
	var first error
	for _, f := range []font.Face{r.label, r.body, r.caption} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RenderSlide draws slide index (1-based) of total.
func (r *Renderer) RenderSlide(text string, index, total int) *image.RGBA {
	img := cloneRGBA(r.slideBase)

	drawCentered(img, r.label, fmt.Sprintf("%d / %d", index, total), Width/2, slideLabelY, labelColor)

	lines := segment.Wrap(text, slideWrapWidth)
	yStart := (Height - len(lines)*slideLineHeight) / 2
	for i, line := range lines {
		drawShadowed(img, r.body, line, Width/2, yStart+i*slideLineHeight, 2, white)
	}

	return img
}

// RenderTypewriter draws the caption for a cumulative prefix showing words of
// totalWords. Only the last few wrapped lines are shown; the line being typed
// is highlighted.
func (r *Renderer) RenderTypewriter(prefix string, words, totalWords int) *image.RGBA {
	img := cloneRGBA(r.typewriterBase)

	lines := segment.Wrap(prefix, captionWrapWidth)
	if len(lines) > captionMaxLines {
		lines = lines[len(lines)-captionMaxLines:]
	}
	for i, line := range lines {
		y := captionBaselineY - (len(lines)-1-i)*captionLineHeight
		fg := white
		if i == len(lines)-1 {
			fg = accentColor
		}
		drawShadowed(img, r.caption, line, Width/2, y, captionShadow, fg)
	}

	if totalWords > 0 {
		if words > totalWords {
			words = totalWords
		}
		barWidth := Width * words / totalWords
		fillRect(img, image.Rect(0, Height-progressBarHeight, barWidth, Height), accentColor)
	}

	return img
}

// WritePNG encodes img losslessly to path.
func WritePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frame file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return f.Close()
}
