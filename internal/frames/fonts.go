package frames

import (
	"log"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// FontSource resolves the caption font once per process and hands out sized
// faces. Paths are tried in order, then the bundled Go Bold font, then the
// fixed 7x13 bitmap font, so Face never fails.
type FontSource struct {
	paths []string

	once sync.Once
	font *opentype.Font
	name string
}

// NewFontSource creates a lazily-loaded font source with the given preference
// order, typically a script-specific font followed by a generic one.
func NewFontSource(paths ...string) *FontSource {
	return &FontSource{paths: paths}
}

func (s *FontSource) load() {
	for _, p := range s.paths {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		f, err := opentype.Parse(data)
		if err != nil {
			log.Printf("WARNING: font %s could not be parsed: %v", p, err)
			continue
		}
		s.font, s.name = f, p
		log.Printf("Loaded font %s", p)
		return
	}

	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		log.Printf("WARNING: built-in font unavailable, using bitmap font: %v", err)
		s.name = "basicfont"
		return
	}
	s.font, s.name = f, "gobold"
	log.Printf("No configured font found, using built-in %s", s.name)
}

// Name returns the path or name of the resolved font.
func (s *FontSource) Name() string {
	s.once.Do(s.load)
	return s.name
}

// Face returns a new face of the given pixel size. Faces are not safe for
// concurrent use; each renderer owns its own.
func (s *FontSource) Face(size float64) font.Face {
	s.once.Do(s.load)
	if s.font == nil {
		return basicfont.Face7x13
	}

	face, err := opentype.NewFace(s.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("WARNING: failed to size font %s at %.0fpx: %v", s.name, size, err)
		return basicfont.Face7x13
	}
	return face
}
