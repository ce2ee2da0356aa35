package caption

import (
	"context"
	"image"
	"image/color"
	"image/gif"
	"testing"
	"time"

	"github.com/capgen/capgen/pkg/media"
)

func palettedFrame(w, h int, col color.RGBA) *image.Paletted {
	p := image.NewPaletted(image.Rect(0, 0, w, h), color.Palette{color.White, col})
	for i := range p.Pix {
		p.Pix[i] = 1
	}
	return p
}

func animatedSource(w, h int, delays []time.Duration) *media.Source {
	frames := make([]*image.Paletted, len(delays))
	for i := range frames {
		frames[i] = palettedFrame(w, h, color.RGBA{uint8(40 * (i + 1)), 0, 0, 255})
	}
	return &media.Source{
		Format:   media.FormatGIF,
		Animated: true,
		Width:    w,
		Height:   h,
		Frames:   frames,
		Delays:   delays,
	}
}

func TestBuildAnimationPreservesTiming(t *testing.T) {
	delays := []time.Duration{100 * time.Millisecond, 150 * time.Millisecond, 200 * time.Millisecond}
	src := animatedSource(120, 120, delays)
	c := testCompositor(120, 120)

	out, err := c.BuildAnimation(context.Background(), src, Spec{TopText: "gif"})
	if err != nil {
		t.Fatalf("BuildAnimation: %v", err)
	}

	if len(out.Image) != 3 {
		t.Fatalf("frames = %d, want 3", len(out.Image))
	}
	wantDelays := []int{10, 15, 20}
	for i, d := range out.Delay {
		if d != wantDelays[i] {
			t.Errorf("Delay[%d] = %d, want %d", i, d, wantDelays[i])
		}
	}
	if out.LoopCount != 0 {
		t.Errorf("LoopCount = %d, want 0 (loop forever)", out.LoopCount)
	}
	for i, disposal := range out.Disposal {
		if disposal != gif.DisposalBackground {
			t.Errorf("Disposal[%d] = %d, want DisposalBackground", i, disposal)
		}
	}
}

func TestBuildAnimationUniformGeometry(t *testing.T) {
	src := animatedSource(100, 80, []time.Duration{50 * time.Millisecond, 50 * time.Millisecond})
	c := testCompositor(100, 80)

	out, err := c.BuildAnimation(context.Background(), src, Spec{TopText: "hi"})
	if err != nil {
		t.Fatalf("BuildAnimation: %v", err)
	}

	first := out.Image[0].Bounds()
	if first.Dx() != 100 {
		t.Errorf("frame width = %d, want 100", first.Dx())
	}
	if first.Dy() <= 80 {
		t.Errorf("frame height = %d, want > 80 (top block added)", first.Dy())
	}
	for i, frame := range out.Image {
		if frame.Bounds() != first {
			t.Errorf("frame %d bounds %v differ from first %v", i, frame.Bounds(), first)
		}
	}
}

func TestBuildAnimationDefaultDelay(t *testing.T) {
	src := animatedSource(60, 60, []time.Duration{0, 80 * time.Millisecond})
	c := testCompositor(60, 60)

	out, err := c.BuildAnimation(context.Background(), src, Spec{TopText: "d"})
	if err != nil {
		t.Fatalf("BuildAnimation: %v", err)
	}
	if out.Delay[0] != 10 {
		t.Errorf("Delay[0] = %d, want 10 (100ms default)", out.Delay[0])
	}
	if out.Delay[1] != 8 {
		t.Errorf("Delay[1] = %d, want 8", out.Delay[1])
	}
}

func TestBuildAnimationHonorsDisposalBackground(t *testing.T) {
	// Frame 0 paints the whole canvas red and asks for restore-to-background
	// disposal; frame 1 repaints only a small corner patch. Red must not
	// ghost into the rest of frame 1.
	full := palettedFrame(40, 40, color.RGBA{255, 0, 0, 255})
	patch := image.NewPaletted(image.Rect(0, 0, 10, 10), color.Palette{color.White, color.RGBA{0, 0, 255, 255}})
	for i := range patch.Pix {
		patch.Pix[i] = 1
	}

	src := &media.Source{
		Format:   media.FormatGIF,
		Animated: true,
		Width:    40,
		Height:   40,
		Frames:   []*image.Paletted{full, patch},
		Delays:   []time.Duration{50 * time.Millisecond, 50 * time.Millisecond},
		Disposal: []byte{gif.DisposalBackground, gif.DisposalNone},
	}
	c := testCompositor(40, 40)

	out, err := c.BuildAnimation(context.Background(), src, Spec{TopText: "x"})
	if err != nil {
		t.Fatalf("BuildAnimation: %v", err)
	}

	topH := out.Image[0].Bounds().Dy() - 40
	r, g, b, _ := out.Image[1].At(30, topH+30).RGBA()
	if r>>8 > 200 && g>>8 < 100 && b>>8 < 100 {
		t.Errorf("pixel outside the patch is still red (%d,%d,%d); frame 0 was not disposed", r>>8, g>>8, b>>8)
	}
}

func TestBuildAnimationRejectsStatic(t *testing.T) {
	src := &media.Source{
		Format: media.FormatPNG,
		Image:  solidFrame(50, 50, color.White),
		Width:  50,
		Height: 50,
	}
	c := testCompositor(50, 50)

	if _, err := c.BuildAnimation(context.Background(), src, Spec{TopText: "x"}); err == nil {
		t.Fatal("expected error for non-animated source")
	}
}

func TestBuildAnimationContextCancel(t *testing.T) {
	src := animatedSource(80, 80, []time.Duration{50 * time.Millisecond, 50 * time.Millisecond})
	c := testCompositor(80, 80)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.BuildAnimation(ctx, src, Spec{TopText: "x"}); err == nil {
		t.Fatal("expected error after cancellation")
	}
}
