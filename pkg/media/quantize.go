package media

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/ericpauley/go-quantize/quantize"
)

// MaxPaletteColors is the GIF palette ceiling.
const MaxPaletteColors = 256

// Quantize reduces img to an adaptive palette of at most colors entries
// using median-cut selection and Floyd-Steinberg dithering.
func Quantize(img image.Image, colors int) *image.Paletted {
	if colors <= 0 || colors > MaxPaletteColors {
		colors = MaxPaletteColors
	}

	q := quantize.MedianCutQuantizer{}
	palette := q.Quantize(make(color.Palette, 0, colors), img)
	if len(palette) == 0 {
		palette = color.Palette{color.Black}
	}

	b := img.Bounds()
	p := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette)
	draw.FloydSteinberg.Draw(p, p.Bounds(), img, b.Min)
	return p
}
