package cli

import (
	"io"
	"strings"
	"testing"

	"github.com/capgen/capgen/pkg/config"
	"github.com/capgen/capgen/pkg/pipeline"
)

func TestApplyConfigFillsUnsetFlags(t *testing.T) {
	c := New(io.Discard, LogInfo)
	cmd := c.captionCommand()

	cfg := &config.Config{
		FontPath:     "/fonts/impact.ttf",
		Bold:         true,
		TopFontColor: "255,255,0",
		Format:       "png",
		Budget:       500_000,
	}

	opts := pipeline.Options{}
	applyConfig(cmd, &opts, cfg)

	if opts.FontPath != cfg.FontPath {
		t.Errorf("FontPath = %q, want %q", opts.FontPath, cfg.FontPath)
	}
	if !opts.Bold {
		t.Error("Bold should come from config when the flag is unset")
	}
	if opts.TopFontColor != cfg.TopFontColor {
		t.Errorf("TopFontColor = %q, want %q", opts.TopFontColor, cfg.TopFontColor)
	}
	if opts.Format != "png" || opts.Budget != 500_000 {
		t.Errorf("Format/Budget = %q/%d, want png/500000", opts.Format, opts.Budget)
	}
}

func TestApplyConfigFlagsWin(t *testing.T) {
	c := New(io.Discard, LogInfo)
	cmd := c.captionCommand()

	if err := cmd.Flags().Set("bold", "false"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("budget", "1000"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("top-color", "0,0,0"); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{Bold: true, Budget: 500_000, TopFontColor: "255,255,0"}

	opts := pipeline.Options{TopFontColor: "0,0,0", Budget: 1000}
	applyConfig(cmd, &opts, cfg)

	if opts.Bold {
		t.Error("explicit --bold=false should override config")
	}
	if opts.Budget != 1000 {
		t.Errorf("Budget = %d, explicit flag should override config", opts.Budget)
	}
	if opts.TopFontColor != "0,0,0" {
		t.Errorf("TopFontColor = %q, explicit flag should override config", opts.TopFontColor)
	}
}

func TestGIFRecompressHint(t *testing.T) {
	big := &pipeline.Result{Extension: "gif"}
	big.Stats.OutputBytes = 4 << 20

	hint := gifRecompressHint(big, pipeline.Options{Source: "dance.gif"})
	if hint == "" {
		t.Fatal("expected a hint for a large GIF without a budget")
	}
	if !strings.Contains(hint, "--budget") || !strings.Contains(hint, "dance.gif") {
		t.Errorf("hint %q should mention --budget and the source", hint)
	}

	if got := gifRecompressHint(big, pipeline.Options{Source: "dance.gif", Budget: 100}); got != "" {
		t.Errorf("no hint expected when a budget was already set, got %q", got)
	}

	small := &pipeline.Result{Extension: "gif"}
	small.Stats.OutputBytes = 1024
	if got := gifRecompressHint(small, pipeline.Options{Source: "dance.gif"}); got != "" {
		t.Errorf("no hint expected for a small GIF, got %q", got)
	}

	jpg := &pipeline.Result{Extension: "jpg"}
	jpg.Stats.OutputBytes = 4 << 20
	if got := gifRecompressHint(jpg, pipeline.Options{Source: "photo.jpg"}); got != "" {
		t.Errorf("no hint expected for static output, got %q", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{512, "512B"},
		{2048, "2.0KB"},
		{3 << 20, "3.0MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
