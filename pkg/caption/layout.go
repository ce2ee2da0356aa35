package caption

import (
	"math"
	"strings"

	"golang.org/x/image/font"
)

// lineSpacingFactor is the vertical advance between lines as a multiple of
// the line height.
const lineSpacingFactor = 1.2

// Measurer reports the pixel width of a rendered string.
type Measurer func(s string) int

// FaceMeasurer adapts a font.Face into a Measurer.
func FaceMeasurer(face font.Face) Measurer {
	return func(s string) int {
		return font.MeasureString(face, s).Ceil()
	}
}

// Layout is a measured, wrapped text block ready to render.
type Layout struct {
	Lines      []string
	Width      int // widest line in pixels
	Height     int // block height including top and bottom padding
	LineHeight int // single line height in pixels
}

// Empty reports whether the block has nothing to draw.
func (l Layout) Empty() bool { return len(l.Lines) == 0 }

// Wrap splits text into lines that fit within maxWidth. Explicit hard
// breaks are honored first; each segment wraps independently. Words are
// accumulated greedily while the candidate line measures under
// maxWidth − WidthPadding. A single word wider than the limit is placed on
// its own line unsplit.
func Wrap(text string, maxWidth int, measure Measurer) []string {
	if text == "" {
		return nil
	}

	var lines []string
	for _, segment := range strings.Split(text, "\n") {
		lines = append(lines, wrapSegment(segment, maxWidth, measure)...)
	}
	return lines
}

func wrapSegment(segment string, maxWidth int, measure Measurer) []string {
	words := strings.Split(segment, " ")
	var lines []string

	i := 0
	for i < len(words) {
		line := ""
		for i < len(words) && measure(line+words[i]) < maxWidth-WidthPadding {
			line += words[i] + " "
			i++
		}
		if line == "" {
			// Single word wider than the limit: keep it whole.
			line = words[i]
			i++
		}
		lines = append(lines, strings.TrimSpace(line))
	}
	return lines
}

// MeasureBlock computes the pixel dimensions of a wrapped block using the
// face's metrics. An empty block has zero height so callers can skip it.
func MeasureBlock(lines []string, face font.Face, measure Measurer) Layout {
	if len(lines) == 0 {
		return Layout{}
	}

	m := face.Metrics()
	lineHeight := (m.Ascent + m.Descent).Ceil()

	width := 0
	for _, line := range lines {
		if w := measure(line); w > width {
			width = w
		}
	}

	total := float64(len(lines)) * float64(lineHeight) * lineSpacingFactor
	return Layout{
		Lines:      lines,
		Width:      width,
		Height:     int(math.Ceil(total)) + TopPadding + BottomPadding,
		LineHeight: lineHeight,
	}
}

// LayoutText wraps and measures in one step.
func LayoutText(text string, maxWidth int, face font.Face) Layout {
	measure := FaceMeasurer(face)
	return MeasureBlock(Wrap(text, maxWidth, measure), face, measure)
}

// CenterOrigin returns the top-left drawing origin for a block centered
// horizontally on the canvas, vertically offset by yOffset (0 for the top
// block, topBlock+frame height for a boxed bottom block).
func CenterOrigin(blockWidth, canvasWidth, yOffset int) (x, y int) {
	return (canvasWidth - blockWidth) / 2, yOffset + TopPadding
}
