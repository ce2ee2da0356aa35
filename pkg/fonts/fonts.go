// Package fonts resolves and sizes the caption font.
//
// Resolution order:
//  1. An explicit font file path, if the caller provided one
//  2. A system font located by name via go-findfont
//  3. The embedded Go Regular face as a built-in fallback
//
// A missing or unreadable font never fails a captioning request; the
// fallback face is always available.
package fonts

import (
	"math"
	"os"
	"sync"

	"github.com/flopp/go-findfont"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	// MinimumSize is the smallest caption font size in points.
	MinimumSize = 13

	// tallAspectThreshold is the height/width ratio above which the font
	// is scaled down so text does not dominate very tall images.
	tallAspectThreshold = 1.666
)

var (
	fallbackOnce sync.Once
	fallbackFont *truetype.Font
)

// fallback returns the parsed embedded Go Regular font.
// goregular.TTF is a valid font baked into the binary, so the parse cannot
// fail at runtime; a failure here would be a build defect.
func fallback() *truetype.Font {
	fallbackOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			panic("fonts: embedded fallback font is invalid: " + err.Error())
		}
		fallbackFont = f
	})
	return fallbackFont
}

// Resolve loads a TrueType font. The name may be a file path or a bare font
// name ("arial.ttf") to look up among installed system fonts. An empty name
// or any load failure yields the embedded fallback.
func Resolve(name string) *truetype.Font {
	if name == "" {
		return fallback()
	}

	data, err := os.ReadFile(name)
	if err != nil {
		// Not a readable path; try the system font directories.
		path, ferr := findfont.Find(name)
		if ferr != nil {
			return fallback()
		}
		if data, err = os.ReadFile(path); err != nil {
			return fallback()
		}
	}

	f, err := truetype.Parse(data)
	if err != nil {
		return fallback()
	}
	return f
}

// SizeFor computes the caption font size in points for a source image of the
// given dimensions: height/13 with a floor of MinimumSize, scaled down by
// 1.5 for very tall images.
func SizeFor(width, height int) float64 {
	size := math.Max(math.Floor(float64(height)/13), MinimumSize)
	if width > 0 && float64(height)/float64(width) >= tallAspectThreshold {
		size = math.Floor(size / 1.5)
	}
	return size
}

// NewFace creates a font.Face at the given point size with full hinting.
func NewFace(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// FaceFor resolves name and sizes it for a width×height source image in one
// step. This is the common path for captioning.
func FaceFor(name string, width, height int) font.Face {
	return NewFace(Resolve(name), SizeFor(width, height))
}
