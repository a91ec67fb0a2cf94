package frames

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

func testFonts() *FontSource {
	return NewFontSource(filepath.Join(os.TempDir(), "does-not-exist.ttf"))
}

func TestFontSource_FallsBackToBuiltin(t *testing.T) {
	fs := testFonts()
	if got := fs.Name(); got != "gobold" {
		t.Errorf("font name = %q, want gobold", got)
	}
	face := fs.Face(32)
	if face == nil {
		t.Fatal("expected a face")
	}
	defer face.Close()
	if face.Metrics().Height <= 0 {
		t.Error("expected positive line height")
	}
}

func TestRenderSlide_Deterministic(t *testing.T) {
	r := NewRenderer(testFonts(), nil)
	defer r.Close()

	a := r.RenderSlide("Hello world, this is a slide.", 1, 3)
	b := r.RenderSlide("Hello world, this is a slide.", 1, 3)

	if a.Bounds() != image.Rect(0, 0, Width, Height) {
		t.Fatalf("unexpected bounds %v", a.Bounds())
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("re-rendering the same slide produced different pixels")
	}

	c := r.RenderSlide("Hello world, this is a slide.", 2, 3)
	if bytes.Equal(a.Pix, c.Pix) {
		t.Error("slide label should change the image")
	}
}

func TestRenderSlide_Decorations(t *testing.T) {
	r := NewRenderer(testFonts(), nil)
	defer r.Close()
	img := r.RenderSlide("x", 1, 1)

	if got := img.RGBAAt(15, 360); got != accentColor {
		t.Errorf("outer border pixel = %v, want accent", got)
	}
	if got := img.RGBAAt(Width/2, Height-60); got != accentColor {
		t.Errorf("bottom rule pixel = %v, want accent", got)
	}
	top := img.RGBAAt(5, 0)
	bottom := img.RGBAAt(5, Height-1)
	if !(bottom.B > top.B) {
		t.Errorf("expected gradient to brighten towards the bottom: top %v bottom %v", top, bottom)
	}
}

func TestRenderTypewriter_Deterministic(t *testing.T) {
	r := NewRenderer(testFonts(), nil)
	defer r.Close()

	a := r.RenderTypewriter("one two three", 3, 6)
	b := r.RenderTypewriter("one two three", 3, 6)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("re-rendering the same prefix produced different pixels")
	}

	c := r.RenderTypewriter("one two three four", 4, 6)
	if bytes.Equal(a.Pix, c.Pix) {
		t.Error("longer prefix should change the image")
	}
}

func TestRenderTypewriter_ProgressBar(t *testing.T) {
	r := NewRenderer(testFonts(), nil)
	defer r.Close()

	img := r.RenderTypewriter("one", 1, 2)
	if got := img.RGBAAt(10, Height-1); got != accentColor {
		t.Errorf("progress start = %v, want accent", got)
	}
	if got := img.RGBAAt(Width-10, Height-1); got == accentColor {
		t.Error("progress bar should stop at half width")
	}

	full := r.RenderTypewriter("one two", 2, 2)
	if got := full.RGBAAt(Width-1, Height-1); got != accentColor {
		t.Errorf("full progress end = %v, want accent", got)
	}
}

func TestRenderTypewriter_UsesBackground(t *testing.T) {
	bg := image.NewNRGBA(image.Rect(0, 0, Width, Height))
	for i := 0; i < len(bg.Pix); i += 4 {
		bg.Pix[i], bg.Pix[i+1], bg.Pix[i+2], bg.Pix[i+3] = 0, 200, 0, 255
	}

	plain := NewRenderer(testFonts(), nil)
	defer plain.Close()
	withBG := NewRenderer(testFonts(), bg)
	defer withBG.Close()

	if got := plain.RenderTypewriter("a", 1, 1).RGBAAt(10, 10); got != flatDark {
		t.Errorf("plain top-left = %v, want flat dark", got)
	}
	if got := withBG.RenderTypewriter("a", 1, 1).RGBAAt(10, 10); got.G != 200 {
		t.Errorf("background top-left = %v, want green backdrop", got)
	}
}

func TestPrepareBackground(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			src.SetRGBA(x, y, color.RGBA{200, 200, 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	img, err := PrepareBackground(buf.Bytes())
	if err != nil {
		t.Fatalf("PrepareBackground failed: %v", err)
	}
	if img.Bounds().Dx() != Width || img.Bounds().Dy() != Height {
		t.Fatalf("unexpected size %v", img.Bounds())
	}
	r, _, _, _ := img.At(Width/2, Height/2).RGBA()
	if got := r >> 8; got < 80 || got > 100 {
		t.Errorf("expected centre dimmed to ~90, got %d", got)
	}
}

func TestPrepareBackground_Invalid(t *testing.T) {
	if _, err := PrepareBackground([]byte("<html>not an image</html>")); err == nil {
		t.Error("expected decode error")
	}
}

func TestWritePNG(t *testing.T) {
	r := NewRenderer(testFonts(), nil)
	defer r.Close()
	img := r.RenderSlide("Frame", 1, 1)

	path := filepath.Join(t.TempDir(), "frame_00000.png")
	if err := WritePNG(img, path); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("decoded bounds %v, want %v", decoded.Bounds(), img.Bounds())
	}
	if got := color.RGBAModel.Convert(decoded.At(15, 360)).(color.RGBA); got != accentColor {
		t.Errorf("decoded border pixel = %v", got)
	}
}

func countPixels(img *image.RGBA, y0, y1 int, match func(color.RGBA) bool) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := 0; x < Width; x++ {
			if match(img.RGBAAt(x, y)) {
				n++
			}
		}
	}
	return n
}

func isAccent(c color.RGBA) bool { return c == accentColor }

func isBright(c color.RGBA) bool { return c.R > 200 && c.G > 200 && c.B > 200 }

func TestRenderTypewriter_ScrollsAndHighlights(t *testing.T) {
	r := NewRenderer(testFonts(), nil)
	defer r.Close()

	// 17 words wrap to 4 caption lines (5, 5, 5, 2 words); only the last 3 show.
	long := strings.TrimSpace(strings.Repeat("word ", 17))
	short := strings.TrimSpace(strings.Repeat("word ", 12))
	img := r.RenderTypewriter(long, 10, 20)

	if !bytes.Equal(img.Pix, r.RenderTypewriter(short, 10, 20).Pix) {
		t.Error("caption should show only the last 3 wrapped lines")
	}

	band := func(line int) (int, int) {
		center := captionBaselineY - (captionMaxLines-1-line)*captionLineHeight
		return center - captionLineHeight/2, center + captionLineHeight/2
	}

	topOfBlock, _ := band(0)
	if n := countPixels(img, 0, topOfBlock-20, isBright); n != 0 {
		t.Errorf("%d foreground pixels above the caption block", n)
	}
	if n := countPixels(img, 0, topOfBlock-20, isAccent); n != 0 {
		t.Errorf("%d accent pixels above the caption block", n)
	}

	for line := 0; line < captionMaxLines; line++ {
		y0, y1 := band(line)
		accent := countPixels(img, y0, y1, isAccent)
		bright := countPixels(img, y0, y1, isBright)
		if line == captionMaxLines-1 {
			if accent == 0 {
				t.Error("last caption line is not highlighted")
			}
			continue
		}
		if accent != 0 {
			t.Errorf("line %d has %d accent pixels", line, accent)
		}
		if bright == 0 {
			t.Errorf("line %d is not drawn", line)
		}
	}
}

func TestRenderTypewriter_BottomOverlay(t *testing.T) {
	r := NewRenderer(testFonts(), nil)
	defer r.Close()
	img := r.RenderTypewriter("a", 1, 2)

	if got := img.RGBAAt(5, Height/2); got != flatDark {
		t.Errorf("midpoint = %v, want undarkened %v", got, flatDark)
	}
	if got := img.RGBAAt(5, Height/2-1); got != flatDark {
		t.Errorf("above midpoint = %v, want %v", got, flatDark)
	}

	keep := 255 - overlayMaxAlpha
	want := color.RGBA{
		R: uint8(int(flatDark.R) * keep / 255),
		G: uint8(int(flatDark.G) * keep / 255),
		B: uint8(int(flatDark.B) * keep / 255),
		A: 255,
	}
	if got := img.RGBAAt(Width-1, Height-1); got != want {
		t.Errorf("last row = %v, want fully darkened %v", got, want)
	}
}

type closeFace struct {
	font.Face
	err    error
	closed *int
}

func (f closeFace) Close() error {
	*f.closed++
	return f.err
}

func TestRenderer_CloseClosesAllFaces(t *testing.T) {
	closed := 0
	first := errors.New("label close failed")
	r := &Renderer{
		label:   closeFace{Face: basicfont.Face7x13, err: first, closed: &closed},
		body:    closeFace{Face: basicfont.Face7x13, err: errors.New("body close failed"), closed: &closed},
		caption: closeFace{Face: basicfont.Face7x13, closed: &closed},
	}

	if err := r.Close(); err != first {
		t.Errorf("Close() = %v, want %v", err, first)
	}
	if closed != 3 {
		t.Errorf("closed %d faces, want 3", closed)
	}
}
