package caption

import (
	"context"
	"image"
	"image/draw"
	"image/gif"
	"time"

	"github.com/capgen/capgen/pkg/errors"
	"github.com/capgen/capgen/pkg/media"
)

// BuildAnimation drives Build across every frame of an animated source and
// reassembles the results as an infinitely looping GIF.
//
// Each input frame is flattened onto a running full-size canvas (GIF frames
// may cover only the changed region), honoring the source's per-frame
// disposal ops, then composited and re-quantized. Output frames all use
// full-frame-replace disposal and keep their original display durations.
// Any per-frame failure aborts the whole sequence; no partial animation is
// ever returned.
//
// The running frame state is local to this call, so concurrent requests
// never observe each other's progress and there is nothing to restore on
// error.
func (c *Compositor) BuildAnimation(ctx context.Context, src *media.Source, spec Spec) (*gif.GIF, error) {
	if !src.Animated || len(src.Frames) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "source is not animated")
	}

	running := image.NewRGBA(image.Rect(0, 0, src.Width, src.Height))
	out := &gif.GIF{LoopCount: 0}

	for i, frame := range src.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Frames marked restore-to-previous need the covered region saved
		// before it is repainted.
		var saved *image.RGBA
		if frameDisposal(src, i) == gif.DisposalPrevious {
			saved = image.NewRGBA(frame.Bounds())
			draw.Draw(saved, frame.Bounds(), running, frame.Bounds().Min, draw.Src)
		}

		// Accumulate the frame onto the full canvas; partial frames only
		// repaint their own region.
		draw.Draw(running, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)

		composed, err := c.Build(running, spec)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "frame %d", i)
		}

		out.Image = append(out.Image, media.Quantize(composed, media.MaxPaletteColors))
		out.Delay = append(out.Delay, centiseconds(src.Delays[i]))
		out.Disposal = append(out.Disposal, gif.DisposalBackground)

		// Apply the source frame's disposal before the next accumulates.
		switch frameDisposal(src, i) {
		case gif.DisposalBackground:
			draw.Draw(running, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			draw.Draw(running, frame.Bounds(), saved, frame.Bounds().Min, draw.Src)
		}
	}

	return out, nil
}

// frameDisposal returns the source disposal op for frame i, treating a
// missing entry as leave-in-place.
func frameDisposal(src *media.Source, i int) byte {
	if i < len(src.Disposal) {
		return src.Disposal[i]
	}
	return gif.DisposalNone
}

// centiseconds converts a duration to GIF delay units, defaulting missing
// durations to the standard frame delay.
func centiseconds(d time.Duration) int {
	if d <= 0 {
		d = media.DefaultFrameDelay
	}
	return int(d / (10 * time.Millisecond))
}
