// Package compress shrinks encoded images to fit a byte budget.
//
// Each format family has a degradation ladder: an ordered sequence of
// increasingly aggressive encoding parameters tried until the budget is
// met. PNG input is transcoded once into the JPEG family (transparency
// flattened onto a solid background) and then follows the JPEG ladder.
// Missing the budget even at the ladder floor is a soft outcome, not an
// error: the caller gets the smallest buffer achieved and BudgetMet=false.
package compress

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/capgen/capgen/pkg/errors"
	"github.com/capgen/capgen/pkg/media"
)

// Step records one ladder iteration for diagnostics. Parameters are
// monotonically non-increasing across the steps of one Fit call.
type Step struct {
	Quality int `json:"quality,omitempty"` // JPEG quality, 0 for GIF steps
	Width   int `json:"width"`             // output width in pixels
	Colors  int `json:"colors,omitempty"`  // palette size, 0 for JPEG steps
	Size    int `json:"size"`              // encoded bytes at these parameters
}

// Result is the outcome of a Fit call.
type Result struct {
	Data      []byte
	Size      int
	Format    media.Format // jpeg when PNG input was transcoded
	BudgetMet bool
	Steps     []Step
}

// Compressor runs degradation ladders. The zero value is not usable;
// construct with New.
type Compressor struct {
	logger *log.Logger

	// ShrinkFloor bounds the JPEG resize loop's scale factor. Without it
	// an extreme budget degrades dimensions toward zero.
	ShrinkFloor float64
}

// New returns a Compressor logging ladder steps at debug level. A nil
// logger discards output.
func New(logger *log.Logger) *Compressor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Compressor{logger: logger, ShrinkFloor: DefaultShrinkFloor}
}

// Fit reduces data until it is at or under budget bytes. A buffer already
// under budget is returned byte-identical. The context is checked between
// ladder steps.
func (c *Compressor) Fit(ctx context.Context, data []byte, format media.Format, budget int) (*Result, error) {
	if budget <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidBudget, "byte budget must be positive")
	}
	if len(data) <= budget {
		return &Result{Data: data, Size: len(data), Format: format, BudgetMet: true}, nil
	}

	src, err := media.DecodeBytes(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "decoding buffer for compression")
	}

	s, outFormat, err := c.stepperFor(src, format)
	if err != nil {
		return nil, err
	}

	result := &Result{Format: outFormat}
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, err, "compression canceled")
		}

		buf, step, err := s.encode(ctx)
		if err != nil {
			return nil, err
		}
		step.Size = len(buf)
		result.Steps = append(result.Steps, step)
		c.logger.Debug("ladder step",
			"quality", step.Quality, "width", step.Width, "colors", step.Colors,
			"size", step.Size, "budget", budget)

		if result.Data == nil || len(buf) < result.Size {
			result.Data = buf
			result.Size = len(buf)
		}
		if len(buf) <= budget {
			result.BudgetMet = true
			return result, nil
		}
		if !s.degrade() {
			c.logger.Warn("budget unmet at ladder floor",
				"best", result.Size, "budget", budget)
			return result, nil
		}
	}
}

// stepperFor selects the ladder for the source's family. PNG is flattened
// and handed to the JPEG ladder; the transcode happens at most once.
func (c *Compressor) stepperFor(src *media.Source, format media.Format) (stepper, media.Format, error) {
	switch format {
	case media.FormatGIF:
		return newGIFStepper(src), media.FormatGIF, nil
	case media.FormatPNG:
		return newJPEGStepper(flatten(src.Image), c.ShrinkFloor), media.FormatJPEG, nil
	case media.FormatJPEG:
		return newJPEGStepper(src.Image, c.ShrinkFloor), media.FormatJPEG, nil
	}
	return nil, "", errors.New(errors.ErrCodeUnsupported, "no compression ladder for format %q", format)
}
