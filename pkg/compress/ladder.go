package compress

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"time"

	"github.com/disintegration/imaging"

	"github.com/capgen/capgen/pkg/errors"
	"github.com/capgen/capgen/pkg/media"
)

// Ladder parameters.
const (
	// DefaultShrinkFloor is the lowest scale factor the JPEG resize loop
	// reaches before giving up.
	DefaultShrinkFloor = 0.1

	shrinkStart   = 0.7
	shrinkStep    = 0.1
	shrinkQuality = 30 // fixed quality during the resize loop

	gifStartWidth = 800
	gifWidthStep  = 100
	gifMinWidth   = 200
	gifMinColors  = 64
)

// jpegPresets is the descending quality sequence tried before resizing.
var jpegPresets = []int{85, 55, 30}

// stepper is one format family's ladder: encode at the current parameters,
// then degrade them one notch. degrade reports false once the floor is
// reached and no further step exists.
type stepper interface {
	encode(ctx context.Context) ([]byte, Step, error)
	degrade() bool
}

type jpegStepper struct {
	img   image.Image
	floor float64

	preset int     // index into jpegPresets; len(jpegPresets) once exhausted
	shrink float64 // active scale factor during the resize phase
}

func newJPEGStepper(img image.Image, floor float64) *jpegStepper {
	if floor <= 0 {
		floor = DefaultShrinkFloor
	}
	return &jpegStepper{img: img, floor: floor, shrink: shrinkStart}
}

func (s *jpegStepper) encode(_ context.Context) ([]byte, Step, error) {
	b := s.img.Bounds()
	quality := shrinkQuality
	img := s.img
	width := b.Dx()

	if s.preset < len(jpegPresets) {
		quality = jpegPresets[s.preset]
	} else {
		width = scaled(b.Dx(), s.shrink)
		img = imaging.Resize(s.img, width, scaled(b.Dy(), s.shrink), imaging.Linear)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, Step{}, errors.Wrap(errors.ErrCodeEncode, err, "encoding jpeg at quality %d", quality)
	}
	return buf.Bytes(), Step{Quality: quality, Width: width}, nil
}

func (s *jpegStepper) degrade() bool {
	if s.preset < len(jpegPresets) {
		s.preset++
		return true
	}
	next := s.shrink - shrinkStep
	if next < s.floor-1e-9 { // tolerate accumulated float error at the floor
		return false
	}
	s.shrink = next
	return true
}

func scaled(v int, factor float64) int {
	if scaled := int(float64(v) * factor); scaled > 0 {
		return scaled
	}
	return 1
}

type gifStepper struct {
	frames []image.Image // flattened full-size frames
	delays []time.Duration

	width  int
	colors int
}

// newGIFStepper coalesces the source frames onto a running canvas so
// partial frames become full repaints, then starts the ladder at
// width ≤ 800px and a 256-color palette.
func newGIFStepper(src *media.Source) *gifStepper {
	canvas := imaging.New(src.Width, src.Height, color.White)
	frames := make([]image.Image, 0, len(src.Frames))
	for _, frame := range src.Frames {
		// Paste copies, so each snapshot keeps prior pixels outside the
		// frame's own region without aliasing the previous one.
		canvas = imaging.Paste(canvas, frame, frame.Bounds().Min)
		frames = append(frames, canvas)
	}
	if len(frames) == 0 {
		// Single-frame GIFs decode as static with an empty sequence;
		// ladder them as a one-frame animation.
		frames = append(frames, imaging.Paste(canvas, src.Image, src.Image.Bounds().Min))
	}

	width := src.Width
	if width > gifStartWidth {
		width = gifStartWidth
	}
	return &gifStepper{
		frames: frames,
		delays: src.Delays,
		width:  width,
		colors: media.MaxPaletteColors,
	}
}

func (s *gifStepper) encode(ctx context.Context) ([]byte, Step, error) {
	out := &gif.GIF{LoopCount: 0}
	for i, frame := range s.frames {
		if err := ctx.Err(); err != nil {
			return nil, Step{}, errors.Wrap(errors.ErrCodeTimeout, err, "gif ladder canceled at frame %d", i)
		}

		resized := imaging.Resize(frame, s.width, 0, imaging.Linear)
		out.Image = append(out.Image, media.Quantize(resized, s.colors))
		out.Delay = append(out.Delay, centiseconds(s.delays, i))
		out.Disposal = append(out.Disposal, gif.DisposalBackground)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, out); err != nil {
		return nil, Step{}, errors.Wrap(errors.ErrCodeEncode, err, "encoding gif at width %d, %d colors", s.width, s.colors)
	}
	return buf.Bytes(), Step{Width: s.width, Colors: s.colors}, nil
}

// degrade prefers halving the palette over narrowing the frames: color
// reduction costs far less fidelity per byte saved than resolution loss.
func (s *gifStepper) degrade() bool {
	if s.colors > gifMinColors {
		s.colors /= 2
		if s.colors < gifMinColors {
			s.colors = gifMinColors
		}
		return true
	}
	if s.width > gifMinWidth {
		s.width -= gifWidthStep
		if s.width < gifMinWidth {
			s.width = gifMinWidth
		}
		return true
	}
	return false
}

func centiseconds(delays []time.Duration, i int) int {
	if i >= len(delays) || delays[i] <= 0 {
		return int(media.DefaultFrameDelay / (10 * time.Millisecond))
	}
	return int(delays[i] / (10 * time.Millisecond))
}

// flatten composites an image with transparency onto a solid white
// background, the one-time PNG→JPEG family conversion.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Point{}, 1.0)
}
