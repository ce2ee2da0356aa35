package caption

import (
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/charmbracelet/log"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/capgen/capgen/pkg/errors"
)

// separatorThickness is the height of the line between a caption block and
// the image.
const separatorThickness = 2

// Compositor assembles output frames: background fills, separators, the
// pasted source frame, and rendered text blocks.
//
// A Compositor holds no per-frame state; one instance may build every frame
// of an animated source, but each Build call owns its canvas exclusively.
type Compositor struct {
	face   font.Face
	logger *log.Logger
}

// NewCompositor creates a compositor drawing with the given face.
// A nil logger disables the advisory diagnostics.
func NewCompositor(face font.Face, logger *log.Logger) *Compositor {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Compositor{face: face, logger: logger}
}

// Build composites a single output frame for the given source frame.
//
// The canvas width always equals the frame width. Its height is
// topBlock + frame + bottomBlock, where the bottom block exists only in
// boxed mode and either block collapses to zero when its text is empty.
func (c *Compositor) Build(frame image.Image, spec Spec) (*image.RGBA, error) {
	if spec.TopText == "" && spec.BottomText == "" {
		return nil, errors.New(errors.ErrCodeLayout, "no caption text to render")
	}
	spec = spec.normalized()

	b := frame.Bounds()
	width, frameH := b.Dx(), b.Dy()

	topBlock := LayoutText(spec.TopText, width, c.face)
	bottomBlock := LayoutText(spec.BottomText, width, c.face)

	topH := topBlock.Height
	bottomBoxH := 0
	if spec.BottomBox && !bottomBlock.Empty() {
		bottomBoxH = bottomBlock.Height
		// Advisory only, never enforced: tall bottom blocks are legal but
		// worth flagging.
		if limit := int(float64(frameH) * maxBottomHeightRatio); bottomBoxH > limit {
			c.logger.Warn("bottom caption block exceeds advisory height ratio",
				"block_height", bottomBoxH, "limit", limit)
		}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, topH+frameH+bottomBoxH))
	dc := gg.NewContextForRGBA(canvas)
	dc.SetColor(color.White)
	dc.Clear()

	if topH > 0 {
		fillRect(dc, 0, 0, width, topH, spec.TopBackground)
	}

	// Paste the source frame below the top block. draw.Over flattens any
	// source transparency onto the canvas background.
	draw.Draw(canvas, image.Rect(0, topH, width, topH+frameH), frame, b.Min, draw.Over)

	if spec.Separator && topH > 0 {
		fillRect(dc, 0, topH-separatorThickness, width, separatorThickness, spec.SeparatorColor)
	}

	if !topBlock.Empty() {
		x, y := CenterOrigin(topBlock.Width, width, 0)
		RenderBlock(canvas, topBlock, x, y, c.face, spec.TopFontColor, spec.Style())
	}

	if !bottomBlock.Empty() {
		if spec.BottomBox {
			c.drawBoxedBottom(canvas, dc, bottomBlock, spec, width, topH, frameH, bottomBoxH)
		} else {
			c.drawOverlayBottom(canvas, bottomBlock, spec, width, topH, frameH)
		}
	}

	return canvas, nil
}

// drawBoxedBottom renders the bottom caption into its own canvas extension
// below the pasted frame.
func (c *Compositor) drawBoxedBottom(canvas *image.RGBA, dc *gg.Context, block Layout, spec Spec, width, topH, frameH, boxH int) {
	boxTop := topH + frameH
	fillRect(dc, 0, boxTop, width, boxH, spec.BottomBackground)
	if spec.Separator {
		fillRect(dc, 0, boxTop, width, separatorThickness, spec.SeparatorColor)
	}
	x, y := CenterOrigin(block.Width, width, boxTop)
	RenderBlock(canvas, block, x, y, c.face, spec.BottomFontColor, spec.Style())
}

// drawOverlayBottom renders the bottom caption directly over the pasted
// frame pixels; the canvas does not grow.
func (c *Compositor) drawOverlayBottom(canvas *image.RGBA, block Layout, spec Spec, width, topH, frameH int) {
	content := block.Height - TopPadding - BottomPadding
	y := frameH - content - BottomPadding
	if y < TopPadding {
		y = TopPadding
	}
	x := (width - block.Width) / 2
	RenderBlock(canvas, block, x, y+topH, c.face, spec.BottomFontColor, spec.Style())
}

// fillRect paints a solid axis-aligned rectangle.
func fillRect(dc *gg.Context, x, y, w, h int, col color.Color) {
	dc.SetColor(col)
	dc.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
	dc.Fill()
}
