package caption

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
)

// Style selects how caption text is drawn.
type Style int

const (
	StyleNormal Style = iota
	StyleBold
	StyleItalic
	StyleBoldItalic
)

const (
	// shearFactor is the horizontal shear applied for italic simulation.
	shearFactor = 0.2

	// boldSpacingDelta widens the vertical advance for bold text so the
	// stacked copies of adjacent lines do not touch.
	boldSpacingDelta = 2

	// Staging margins around italic text so sheared glyph edges are not
	// clipped. Bold+italic stacks copies and needs the larger margin.
	italicMargin     = 4
	boldItalicMargin = 8
)

// boldOffsets are the four draw positions that fake a heavier weight.
var boldOffsets = [4]image.Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}}

// RenderBlock draws a measured text block onto dst with its top-left corner
// at (originX, originY). Lines are centered within the block width. All
// styles are deterministic approximations; no true bold or italic glyph
// variants are consulted.
func RenderBlock(dst *image.RGBA, block Layout, originX, originY int, face font.Face, col color.Color, style Style) {
	if block.Empty() {
		return
	}

	switch style {
	case StyleNormal, StyleBold:
		drawLines(dst, block, originX, originY, face, col, style)
	case StyleItalic, StyleBoldItalic:
		drawSheared(dst, block, originX, originY, face, col, style)
	}
}

// lineAdvance is the vertical distance between consecutive baselines.
func lineAdvance(block Layout, style Style) float64 {
	advance := float64(block.LineHeight) * lineSpacingFactor
	if style == StyleBold || style == StyleBoldItalic {
		advance += boldSpacingDelta
	}
	return advance
}

// drawLines renders every line of the block directly onto dst. Bold styles
// draw each line four times at single-pixel offsets.
func drawLines(dst *image.RGBA, block Layout, originX, originY int, face font.Face, col color.Color, style Style) {
	renderLines(gg.NewContextForRGBA(dst), block, originX, originY, face, col, style)
}

// renderLines draws the block into an existing drawing context.
func renderLines(dc *gg.Context, block Layout, originX, originY int, face font.Face, col color.Color, style Style) {
	dc.SetFontFace(face)
	dc.SetColor(col)

	measure := FaceMeasurer(face)
	ascent := face.Metrics().Ascent.Ceil()
	advance := lineAdvance(block, style)

	offsets := boldOffsets[:1]
	if style == StyleBold || style == StyleBoldItalic {
		offsets = boldOffsets[:]
	}

	for i, line := range block.Lines {
		x := originX + (block.Width-measure(line))/2
		y := float64(originY+ascent) + float64(i)*advance
		for _, off := range offsets {
			dc.DrawString(line, float64(x+off.X), y+float64(off.Y))
		}
	}
}

// drawSheared renders the block into a transparent staging surface, applies
// an affine shear for the italic slant, and composites the result over dst
// using its alpha channel.
func drawSheared(dst *image.RGBA, block Layout, originX, originY int, face font.Face, col color.Color, style Style) {
	margin := italicMargin
	if style == StyleBoldItalic {
		margin = boldItalicMargin
	}

	advance := lineAdvance(block, style)
	contentH := int(math.Ceil(float64(len(block.Lines)-1)*advance)) + block.LineHeight
	stagingW := block.Width + 2*margin + 1 // +1 for the bold pixel offset
	stagingH := contentH + 2*margin

	staging := gg.NewContext(stagingW, stagingH)
	renderLines(staging, block, margin, margin, face, col, style)

	// Shear so the top of the text leans right; the bottom edge stays put.
	// The mapping is x' = x + shearFactor*(H − y), widening by shearFactor*H.
	lean := shearFactor * float64(stagingH)
	sheared := image.NewRGBA(image.Rect(0, 0, stagingW+int(math.Ceil(lean)), stagingH))
	m := f64.Aff3{
		1, -shearFactor, lean,
		0, 1, 0,
	}
	xdraw.BiLinear.Transform(sheared, m, staging.Image(), staging.Image().Bounds(), xdraw.Over, nil)

	target := image.Rect(originX-margin, originY-margin, originX-margin+sheared.Bounds().Dx(), originY-margin+stagingH)
	draw.Draw(dst, target, sheared, image.Point{}, draw.Over)
}
