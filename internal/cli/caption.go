package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/capgen/capgen/pkg/config"
	"github.com/capgen/capgen/pkg/errors"
	"github.com/capgen/capgen/pkg/media"
	"github.com/capgen/capgen/pkg/pipeline"
)

// captionCommand creates the caption command, the main entry point.
func (c *CLI) captionCommand() *cobra.Command {
	var (
		output     string
		configPath string
		noCache    bool
		progress   bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "caption [image] [top text]",
		Short: "Composite caption text onto an image or animated GIF",
		Long: `Composite caption text onto an image or animated GIF.

The image may be a local file or an http(s) URL. The caption is wrapped,
centered, and drawn in a block above the image; optional bottom text goes in
a second block below it (or directly over the pixels with
--no-bottom-text-box). Animated GIFs are captioned frame by frame with their
timing preserved.

Write "\n" inside the text for an explicit line break. Colors are RGB
triplets such as "255,0,0".

With --budget, the output is progressively re-encoded until it fits the
given number of bytes (PNG output switches to JPEG if needed). Remote
sources and rendered results are cached locally for faster reruns.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Source = args[0]
			opts.TopText = args[1]

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyConfig(cmd, &opts, cfg)

			return c.runCaption(cmd.Context(), opts, cfg, output, noCache, progress)
		},
	}

	// Common flags
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: capgen-<id>.<ext>)")
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default: ~/.config/capgen/config.toml)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "re-render even when a cached result exists")
	cmd.Flags().BoolVar(&progress, "progress", false, "show per-stage progress instead of a spinner")

	// Caption flags
	cmd.Flags().StringVarP(&opts.BottomText, "bottom-text", "b", "", "caption text below the image")
	cmd.Flags().BoolVar(&opts.Bold, "bold", false, "bold caption text")
	cmd.Flags().BoolVar(&opts.Italic, "italic", false, "italic caption text")
	cmd.Flags().StringVar(&opts.TopFontColor, "top-color", "", "top text color as R,G,B")
	cmd.Flags().StringVar(&opts.BottomFontColor, "bottom-color", "", "bottom text color as R,G,B")
	cmd.Flags().StringVar(&opts.TopBackground, "top-background", "", "top block background as R,G,B")
	cmd.Flags().StringVar(&opts.BottomBackground, "bottom-background", "", "bottom block background as R,G,B")
	cmd.Flags().BoolVar(&opts.Separator, "separator", false, "draw a separator line between caption and image")
	cmd.Flags().StringVar(&opts.SeparatorColor, "separator-color", "", "separator color as R,G,B")
	cmd.Flags().BoolVar(&opts.NoBottomBox, "no-bottom-text-box", false, "overlay bottom text on the image instead of a boxed block")
	cmd.Flags().StringVar(&opts.FontPath, "font", "", "font file path or installed font name")

	// Output flags
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "output format for static sources: jpg, jpeg, png")
	cmd.Flags().IntVar(&opts.Budget, "budget", 0, "maximum output size in bytes (0 = no limit)")

	return cmd
}

// applyConfig fills options from the config file for flags the user did not
// pass. Flags always win.
func applyConfig(cmd *cobra.Command, opts *pipeline.Options, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if !changed("font") {
		opts.FontPath = cfg.FontPath
	}
	if !changed("bold") {
		opts.Bold = cfg.Bold
	}
	if !changed("italic") {
		opts.Italic = cfg.Italic
	}
	if !changed("top-color") {
		opts.TopFontColor = cfg.TopFontColor
	}
	if !changed("bottom-color") {
		opts.BottomFontColor = cfg.BottomFontColor
	}
	if !changed("top-background") {
		opts.TopBackground = cfg.TopBackground
	}
	if !changed("bottom-background") {
		opts.BottomBackground = cfg.BottomBackground
	}
	if !changed("separator") {
		opts.Separator = cfg.Separator
	}
	if !changed("separator-color") {
		opts.SeparatorColor = cfg.SeparatorColor
	}
	if !changed("format") {
		opts.Format = cfg.Format
	}
	if !changed("budget") {
		opts.Budget = cfg.Budget
	}
}

// runCaption executes the pipeline and writes the output file.
func (c *CLI) runCaption(ctx context.Context, opts pipeline.Options, cfg *config.Config, output string, noCache, progress bool) error {
	runner, err := c.newRunner(cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger

	var result *pipeline.Result
	if progress {
		result, err = runCaptionWithProgress(ctx, runner, opts)
	} else {
		spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Captioning %s...", opts.Source))
		spinner.Start()
		result, err = runner.Execute(ctx, opts)
		spinner.Stop()
	}
	if err != nil {
		printError("Captioning failed")
		printDetail("%s", errors.UserMessage(err))
		return err
	}

	if output == "" {
		output = fmt.Sprintf("capgen-%s.%s", uuid.NewString()[:8], result.Extension)
	}
	if err := writeOutput(output, result); err != nil {
		return err
	}

	printSuccess("Captioned %s", opts.Source)
	printFile(output)
	printRunStats(result.Width, result.Height, result.Frames, result.Stats.OutputBytes, result.CacheInfo.ResultHit)
	if !result.BudgetMet {
		printWarning("Output is %d bytes, above the %d byte budget (best effort after %d compression steps)",
			result.Stats.OutputBytes, opts.Budget, len(result.CompressionSteps))
	}
	if hint := gifRecompressHint(result, opts); hint != "" {
		printNextStep("Shrink it", hint)
	}
	return nil
}

// writeOutput stores the rendered image at path.
func writeOutput(path string, result *pipeline.Result) error {
	if err := os.WriteFile(path, result.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// largeGIFThreshold is the output size above which a budget rerun is
// suggested for GIFs.
const largeGIFThreshold = 2 << 20

// gifRecompressHint suggests a budget rerun when a GIF output without a
// budget came out large.
func gifRecompressHint(result *pipeline.Result, opts pipeline.Options) string {
	if result.Extension != string(media.FormatGIF) || opts.Budget > 0 || result.Stats.OutputBytes < largeGIFThreshold {
		return ""
	}
	return fmt.Sprintf("capgen caption %s \"...\" --budget %d", opts.Source, result.Stats.OutputBytes/2)
}
