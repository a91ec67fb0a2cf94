package frames

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// verticalGradient fills dst row by row, interpolating from top to bottom.
func verticalGradient(dst *image.RGBA, top, bottom color.RGBA) {
	b := dst.Bounds()
	h := b.Dy()
	for y := 0; y < h; y++ {
		ratio := float64(y) / float64(h)
		c := color.RGBA{
			R: uint8(float64(top.R) + float64(int(bottom.R)-int(top.R))*ratio),
			G: uint8(float64(top.G) + float64(int(bottom.G)-int(top.G))*ratio),
			B: uint8(float64(top.B) + float64(int(bottom.B)-int(top.B))*ratio),
			A: 255,
		}
		fillRect(dst, image.Rect(b.Min.X, b.Min.Y+y, b.Max.X, b.Min.Y+y+1), c)
	}
}

func fillRect(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

// strokeRect outlines the inclusive box (x0,y0)-(x1,y1), growing the stroke
// inward by width pixels.
func strokeRect(dst *image.RGBA, x0, y0, x1, y1, width int, c color.RGBA) {
	for k := 0; k < width; k++ {
		fillRect(dst, image.Rect(x0+k, y0+k, x1-k+1, y0+k+1), c)
		fillRect(dst, image.Rect(x0+k, y1-k, x1-k+1, y1-k+1), c)
		fillRect(dst, image.Rect(x0+k, y0+k, x0+k+1, y1-k+1), c)
		fillRect(dst, image.Rect(x1-k, y0+k, x1-k+1, y1-k+1), c)
	}
}

// darkenBottom composites a black overlay whose opacity grows linearly from 0
// at the vertical midpoint to maxAlpha at the last row.
func darkenBottom(dst *image.RGBA, maxAlpha int) {
	b := dst.Bounds()
	mid := b.Dy() / 2
	last := b.Dy() - 1 - mid
	if last < 1 {
		last = 1
	}
	for y := mid; y < b.Dy(); y++ {
		a := maxAlpha * (y - mid) / last
		keep := 255 - a
		row := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			row[i] = uint8(int(row[i]) * keep / 255)
			row[i+1] = uint8(int(row[i+1]) * keep / 255)
			row[i+2] = uint8(int(row[i+2]) * keep / 255)
		}
	}
}

// drawCentered draws s with its box centered on (cx, cy).
func drawCentered(dst *image.RGBA, face font.Face, s string, cx, cy int, c color.RGBA) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face}
	m := face.Metrics()
	d.Dot = fixed.Point26_6{
		X: fixed.I(cx) - d.MeasureString(s)/2,
		Y: fixed.I(cy) + (m.Ascent-m.Descent)/2,
	}
	d.DrawString(s)
}

// drawShadowed draws a dark offset copy of s and then the foreground copy.
func drawShadowed(dst *image.RGBA, face font.Face, s string, cx, cy, offset int, fg color.RGBA) {
	drawCentered(dst, face, s, cx+offset, cy+offset, shadowColor)
	drawCentered(dst, face, s, cx, cy, fg)
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
