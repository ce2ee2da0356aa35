package pipeline

import (
	"bytes"
	"context"
	"image/gif"
	"time"

	"github.com/charmbracelet/log"

	"github.com/capgen/capgen/pkg/cache"
	"github.com/capgen/capgen/pkg/caption"
	"github.com/capgen/capgen/pkg/compress"
	"github.com/capgen/capgen/pkg/errors"
	"github.com/capgen/capgen/pkg/fonts"
	"github.com/capgen/capgen/pkg/media"
	"github.com/capgen/capgen/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	loader *media.Loader
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		loader: media.NewLoader(nil, c, keyer),
	}
}

// Execute runs the complete decode → compose → encode → compress pipeline
// with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	result := &Result{BudgetMet: true}

	// Stage 1: Decode
	src, raw, err := r.decode(ctx, opts, result)
	if err != nil {
		return nil, err
	}

	frames := 1
	if src.Animated {
		frames = len(src.Frames)
	}
	result.Frames = frames
	result.Extension = media.Extension(src, opts.StaticFormat(src))

	opts.Logger.Info("decoded source",
		"format", src.Format,
		"width", src.Width,
		"height", src.Height,
		"frames", frames,
		"duration", result.Stats.DecodeTime)

	// Rendered-result cache
	resultKey := r.Keyer.ResultKey(cache.Hash(raw), opts.RenderKeyOpts())
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, resultKey); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "result")
			return r.cachedResult(opts, result, data)
		}
		observability.Cache().OnCacheMiss(ctx, "result")
	}

	// Stage 2: Compose
	composed, animation, err := r.compose(ctx, opts, src, frames, result)
	if err != nil {
		return nil, err
	}

	// Stage 3: Encode
	data, encFormat, err := r.encode(ctx, opts, src, composed, animation, result)
	if err != nil {
		return nil, err
	}

	// Stage 4: Compress
	if opts.Budget > 0 {
		data, encFormat, err = r.fitBudget(ctx, opts, data, encFormat, result)
		if err != nil {
			return nil, err
		}
		if encFormat == media.FormatJPEG {
			result.Extension = "jpg"
		}
	}

	result.Data = data
	result.Stats.OutputBytes = len(data)

	if !opts.Refresh {
		_ = r.Cache.Set(ctx, resultKey, data, cache.TTLResult)
		observability.Cache().OnCacheSet(ctx, "result", len(data))
	}

	return result, nil
}

// decode loads and decodes the source, recording timing and cache info.
func (r *Runner) decode(ctx context.Context, opts Options, result *Result) (*media.Source, []byte, error) {
	observability.Pipeline().OnDecodeStart(ctx, opts.Source)
	start := time.Now()

	raw, sourceHit, err := r.loader.LoadWithCacheInfo(ctx, opts.Source)
	var src *media.Source
	if err == nil {
		src, err = media.DecodeBytes(raw)
	}

	result.Stats.DecodeTime = time.Since(start)
	frames := 0
	format := ""
	if src != nil {
		format = string(src.Format)
		frames = len(src.Frames)
	}
	observability.Pipeline().OnDecodeComplete(ctx, opts.Source, format, frames, result.Stats.DecodeTime, err)
	if err != nil {
		return nil, nil, err
	}

	result.CacheInfo.SourceHit = sourceHit
	result.Stats.SourceBytes = len(raw)
	return src, raw, nil
}

// compose lays out the caption and composites every frame. Exactly one of
// the returned values is non-nil: the canvas for static sources, the GIF
// sequence for animated ones.
func (r *Runner) compose(ctx context.Context, opts Options, src *media.Source, frames int, result *Result) ([]byte, *gif.GIF, error) {
	spec, err := opts.CaptionSpec()
	if err != nil {
		return nil, nil, err
	}
	face := fonts.FaceFor(opts.FontPath, src.Width, src.Height)
	compositor := caption.NewCompositor(face, opts.Logger)

	observability.Pipeline().OnComposeStart(ctx, frames)
	start := time.Now()

	var staticData []byte
	var animation *gif.GIF
	if src.Animated {
		animation, err = compositor.BuildAnimation(ctx, src, spec)
		if err == nil {
			b := animation.Image[0].Bounds()
			result.Width, result.Height = b.Dx(), b.Dy()
		}
	} else {
		img, buildErr := compositor.Build(src.Image, spec)
		err = buildErr
		if err == nil {
			b := img.Bounds()
			result.Width, result.Height = b.Dx(), b.Dy()
			staticData, err = media.EncodeBytes(img, opts.StaticFormat(src), media.DefaultJPEGQuality)
		}
	}

	result.Stats.ComposeTime = time.Since(start)
	observability.Pipeline().OnComposeComplete(ctx, frames, result.Stats.ComposeTime, err)
	if err != nil {
		return nil, nil, err
	}

	opts.Logger.Info("composited caption",
		"frames", frames,
		"width", result.Width,
		"height", result.Height,
		"duration", result.Stats.ComposeTime)

	return staticData, animation, nil
}

// encode serializes the composed output, recording timing.
func (r *Runner) encode(ctx context.Context, opts Options, src *media.Source, staticData []byte, animation *gif.GIF, result *Result) ([]byte, media.Format, error) {
	format := opts.StaticFormat(src)
	if animation != nil {
		format = media.FormatGIF
	}

	observability.Pipeline().OnEncodeStart(ctx, string(format))
	start := time.Now()

	data := staticData
	var err error
	if animation != nil {
		var buf bytes.Buffer
		if encErr := gif.EncodeAll(&buf, animation); encErr != nil {
			err = errors.Wrap(errors.ErrCodeEncode, encErr, "encoding animated output")
		} else {
			data = buf.Bytes()
		}
	}

	result.Stats.EncodeTime = time.Since(start)
	observability.Pipeline().OnEncodeComplete(ctx, string(format), len(data), result.Stats.EncodeTime, err)
	if err != nil {
		return nil, "", err
	}

	opts.Logger.Info("encoded output",
		"format", format,
		"bytes", len(data),
		"duration", result.Stats.EncodeTime)

	return data, format, nil
}

// fitBudget runs the compression ladder, recording timing and the soft
// budget outcome.
func (r *Runner) fitBudget(ctx context.Context, opts Options, data []byte, format media.Format, result *Result) ([]byte, media.Format, error) {
	observability.Pipeline().OnCompressStart(ctx, string(format), opts.Budget)
	start := time.Now()

	fit, err := compress.New(opts.Logger).Fit(ctx, data, format, opts.Budget)

	result.Stats.CompressTime = time.Since(start)
	size, met := 0, false
	if fit != nil {
		size, met = fit.Size, fit.BudgetMet
	}
	observability.Pipeline().OnCompressComplete(ctx, string(format), size, met, result.Stats.CompressTime, err)
	if err != nil {
		return nil, "", err
	}

	result.BudgetMet = fit.BudgetMet
	result.CompressionSteps = fit.Steps

	opts.Logger.Info("fit size budget",
		"budget", opts.Budget,
		"bytes", fit.Size,
		"met", fit.BudgetMet,
		"steps", len(fit.Steps),
		"duration", result.Stats.CompressTime)

	return fit.Data, fit.Format, nil
}

// cachedResult fills a Result from cached output bytes. Dimensions come
// from re-decoding the cached buffer; the extension from its actual format,
// since a budget run may have transcoded PNG input to JPEG.
func (r *Runner) cachedResult(opts Options, result *Result, data []byte) (*Result, error) {
	result.CacheInfo.ResultHit = true
	result.Data = data
	result.Stats.OutputBytes = len(data)
	result.BudgetMet = opts.Budget == 0 || len(data) <= opts.Budget

	out, err := media.DecodeBytes(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "decoding cached result")
	}
	result.Width, result.Height = out.Width, out.Height
	if out.Animated {
		result.Frames = len(out.Frames)
		result.Extension = "gif"
	} else {
		result.Frames = 1
		result.Extension = media.Extension(out, out.Format)
	}
	return result, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
