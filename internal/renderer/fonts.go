package renderer

import (
	"fmt"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Fonts holds the parsed bold and regular fonts. Parsed fonts are read-only
// and shared; faces are created per render because truetype faces cache
// glyphs and are not safe for concurrent use.
type Fonts struct {
	bold    *truetype.Font
	regular *truetype.Font
}

var (
	defaultFonts     *Fonts
	defaultFontsErr  error
	defaultFontsOnce sync.Once
)

// DefaultFonts returns the embedded Go Bold / Go Regular pair
func DefaultFonts() (*Fonts, error) {
	defaultFontsOnce.Do(func() {
		defaultFonts, defaultFontsErr = parseFonts(gobold.TTF, goregular.TTF)
	})
	return defaultFonts, defaultFontsErr
}

// LoadFonts loads TTF files for the bold and regular faces. An empty path
// keeps the embedded font for that weight.
func LoadFonts(boldPath, regularPath string) (*Fonts, error) {
	boldData, regularData := gobold.TTF, goregular.TTF

	if boldPath != "" {
		data, err := os.ReadFile(boldPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read bold font: %w", err)
		}
		boldData = data
	}
	if regularPath != "" {
		data, err := os.ReadFile(regularPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read regular font: %w", err)
		}
		regularData = data
	}

	return parseFonts(boldData, regularData)
}

func parseFonts(boldData, regularData []byte) (*Fonts, error) {
	bold, err := truetype.Parse(boldData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	regular, err := truetype.Parse(regularData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	return &Fonts{bold: bold, regular: regular}, nil
}

type faceKey struct {
	bold bool
	size float64
}

// faceSet caches faces for the duration of one render
type faceSet struct {
	fonts *Fonts
	faces map[faceKey]font.Face
}

func (f *Fonts) newFaceSet() *faceSet {
	return &faceSet{fonts: f, faces: make(map[faceKey]font.Face)}
}

func (s *faceSet) face(bold bool, size float64) font.Face {
	key := faceKey{bold: bold, size: size}
	if face, ok := s.faces[key]; ok {
		return face
	}

	f := s.fonts.regular
	if bold {
		f = s.fonts.bold
	}
	face := truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	s.faces[key] = face
	return face
}

func (s *faceSet) measure(bold bool, size float64, text string) float64 {
	return float64(font.MeasureString(s.face(bold, size), text)) / 64
}

func (s *faceSet) close() {
	for _, face := range s.faces {
		face.Close()
	}
}
