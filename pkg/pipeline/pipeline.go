// Package pipeline provides the core captioning pipeline for capgen.
//
// This package implements the complete load → decode → compose → encode →
// compress pipeline that can be used by CLI and API components. By
// centralizing this logic, we ensure consistent behavior across all entry
// points and avoid code duplication.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Decode: Load the source image (local path or URL) and decode it
//  2. Compose: Lay out the caption text and composite it onto every frame
//  3. Encode: Serialize the composited frames to the output format
//  4. Compress: Run the size-budget ladder when a byte budget is set
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Source:  "meme.png",
//	    TopText: "when the build is green",
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("out."+result.Extension, result.Data, 0o644)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/capgen/capgen/pkg/cache"
	"github.com/capgen/capgen/pkg/caption"
	"github.com/capgen/capgen/pkg/compress"
	"github.com/capgen/capgen/pkg/errors"
	"github.com/capgen/capgen/pkg/media"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Format constants for requested output formats. Animated sources always
// produce GIF regardless of the request.
const (
	FormatJPG  = "jpg"
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// ValidFormats is the set of accepted output format requests.
var ValidFormats = map[string]bool{
	FormatJPG:  true,
	FormatJPEG: true,
	FormatPNG:  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the captioning pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Source selection
	Source string `json:"source"` // local path or http(s) URL

	// Caption options; colors are "R,G,B" triplets
	TopText          string `json:"top_text"`
	BottomText       string `json:"bottom_text,omitempty"`
	Bold             bool   `json:"bold,omitempty"`
	Italic           bool   `json:"italic,omitempty"`
	TopFontColor     string `json:"top_font_color,omitempty"`
	BottomFontColor  string `json:"bottom_font_color,omitempty"`
	TopBackground    string `json:"top_background,omitempty"`
	BottomBackground string `json:"bottom_background,omitempty"`
	Separator        bool   `json:"separator,omitempty"`
	SeparatorColor   string `json:"separator_color,omitempty"`
	NoBottomBox      bool   `json:"no_bottom_box,omitempty"` // overlay bottom text instead of extending the canvas
	FontPath         string `json:"font_path,omitempty"`

	// Output options
	Format string `json:"format,omitempty"` // jpg, jpeg, or png; ignored for animated sources
	Budget int    `json:"budget,omitempty"` // byte budget; 0 disables the compression ladder

	// Refresh bypasses the result cache.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Data is the encoded (and possibly compressed) output image.
	Data []byte

	// Extension is the file extension matching Data: gif for animated
	// sources, otherwise the requested format (jpg after a PNG budget
	// transcode).
	Extension string

	// Width and Height are the output canvas dimensions.
	Width  int
	Height int

	// Frames is the output frame count; 1 for static sources.
	Frames int

	// BudgetMet reports whether the byte budget was honored. True when no
	// budget was set. A false value is a soft outcome, not an error.
	BudgetMet bool

	// CompressionSteps records the ladder iterations, empty without a budget.
	CompressionSteps []compress.Step

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	SourceBytes  int
	OutputBytes  int
	DecodeTime   time.Duration
	ComposeTime  time.Duration
	EncodeTime   time.Duration
	CompressTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	SourceHit bool // Whether the raw source bytes came from cache
	ResultHit bool // Whether the rendered output came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a requested output format is valid.
func ValidateFormat(format string) error {
	if format != "" && !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: jpg, jpeg, png)", format)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect
// as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Source == "" {
		return errors.New(errors.ErrCodeInvalidInput, "source image is required")
	}
	if o.TopText == "" {
		return errors.New(errors.ErrCodeInvalidInput, "top text is required")
	}
	if o.Budget < 0 {
		return errors.New(errors.ErrCodeInvalidBudget, "budget must not be negative")
	}
	if err := ValidateFormat(o.Format); err != nil {
		return err
	}
	if _, err := o.CaptionSpec(); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	o.validated = true
	return nil
}

// CaptionSpec converts the options into an engine caption spec, parsing
// color triplets and literal hard breaks.
func (o *Options) CaptionSpec() (caption.Spec, error) {
	spec := caption.Spec{
		TopText:    caption.HardBreaks(o.TopText),
		BottomText: caption.HardBreaks(o.BottomText),
		Bold:       o.Bold,
		Italic:     o.Italic,
		Separator:  o.Separator,
		BottomBox:  !o.NoBottomBox,
	}

	var err error
	if spec.TopFontColor, err = caption.ParseColor(o.TopFontColor); err != nil {
		return caption.Spec{}, err
	}
	if spec.BottomFontColor, err = caption.ParseColor(o.BottomFontColor); err != nil {
		return caption.Spec{}, err
	}
	if spec.TopBackground, err = caption.ParseColor(o.TopBackground); err != nil {
		return caption.Spec{}, err
	}
	if spec.BottomBackground, err = caption.ParseColor(o.BottomBackground); err != nil {
		return caption.Spec{}, err
	}
	if spec.SeparatorColor, err = caption.ParseColor(o.SeparatorColor); err != nil {
		return caption.Spec{}, err
	}
	return spec, nil
}

// StaticFormat resolves the encode format for a static source: the
// requested format when given, otherwise the source's own family (GIF
// stills fall back to PNG to keep them lossless).
func (o *Options) StaticFormat(src *media.Source) media.Format {
	switch o.Format {
	case FormatPNG:
		return media.FormatPNG
	case FormatJPG, FormatJPEG:
		return media.FormatJPEG
	}
	if src.Format == media.FormatJPEG {
		return media.FormatJPEG
	}
	return media.FormatPNG
}

// RenderKeyOpts returns cache key options covering every field that affects
// the rendered output.
func (o *Options) RenderKeyOpts() cache.RenderKeyOpts {
	return cache.RenderKeyOpts{
		TopText:          o.TopText,
		BottomText:       o.BottomText,
		Bold:             o.Bold,
		Italic:           o.Italic,
		BottomBox:        !o.NoBottomBox,
		Separator:        o.Separator,
		TopFontColor:     o.TopFontColor,
		BottomFontColor:  o.BottomFontColor,
		TopBackground:    o.TopBackground,
		BottomBackground: o.BottomBackground,
		SeparatorColor:   o.SeparatorColor,
		FontPath:         o.FontPath,
		Format:           o.Format,
		Budget:           o.Budget,
	}
}
