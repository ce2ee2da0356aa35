// Package caption composites caption text onto raster images.
//
// The package is organized around four pieces:
//   - Spec: the immutable description of a caption (texts, colors, style)
//   - text layout: wrapping, block measurement, and centering
//   - style rendering: normal/bold/italic drawing onto a canvas
//   - composition: assembling a full output frame, plus the animation
//     adapter that drives composition across GIF frame sequences
package caption

import (
	"image/color"
	"strings"
)

// Block geometry shared by layout and composition.
const (
	// TopPadding is the space above a text block in pixels.
	TopPadding = 10

	// BottomPadding is the space below a text block in pixels.
	BottomPadding = 10

	// WidthPadding is the horizontal slack kept free when wrapping.
	WidthPadding = 10

	// maxBottomHeightRatio is the advisory ceiling for a boxed bottom
	// block as a fraction of the source frame height. Exceeding it is
	// logged, never enforced.
	maxBottomHeightRatio = 0.334
)

// Default colors applied when a Spec leaves a color unset.
var (
	defaultFontColor  = color.RGBA{0, 0, 0, 255}
	defaultBackground = color.RGBA{255, 255, 255, 255}
	defaultSeparator  = color.RGBA{0, 0, 0, 255}
)

// Spec describes a caption. The zero value for any color means "use the
// default". A Spec is never mutated by the engine; construct one per
// request and pass it by value.
type Spec struct {
	TopText    string // required; literal "\n" already converted to hard breaks
	BottomText string // optional

	Bold   bool
	Italic bool

	TopFontColor     color.RGBA
	BottomFontColor  color.RGBA
	TopBackground    color.RGBA
	BottomBackground color.RGBA

	Separator      bool
	SeparatorColor color.RGBA

	// BottomBox extends the canvas with a dedicated block for the bottom
	// text. When false the bottom text is overlaid on the image pixels.
	BottomBox bool
}

// Style returns the text style selected by the Bold/Italic flags.
func (s Spec) Style() Style {
	switch {
	case s.Bold && s.Italic:
		return StyleBoldItalic
	case s.Bold:
		return StyleBold
	case s.Italic:
		return StyleItalic
	}
	return StyleNormal
}

// normalized returns a copy with default colors filled in.
func (s Spec) normalized() Spec {
	if s.TopFontColor.A == 0 {
		s.TopFontColor = defaultFontColor
	}
	if s.BottomFontColor.A == 0 {
		s.BottomFontColor = defaultFontColor
	}
	if s.TopBackground.A == 0 {
		s.TopBackground = defaultBackground
	}
	if s.BottomBackground.A == 0 {
		s.BottomBackground = defaultBackground
	}
	if s.SeparatorColor.A == 0 {
		s.SeparatorColor = defaultSeparator
	}
	return s
}

// HardBreaks converts literal backslash-n sequences from shell arguments
// into real line breaks.
func HardBreaks(text string) string {
	return strings.ReplaceAll(text, `\n`, "\n")
}
