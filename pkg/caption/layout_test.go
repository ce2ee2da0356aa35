package caption

import (
	"strings"
	"testing"

	"github.com/capgen/capgen/pkg/fonts"
)

// charMeasurer gives every character a fixed pixel width, making wrap
// behavior easy to reason about in tests.
func charMeasurer(perChar int) Measurer {
	return func(s string) int { return perChar * len(s) }
}

func TestWrapKeepsLinesUnderLimit(t *testing.T) {
	measure := charMeasurer(10)
	text := "one two three four five six seven eight"
	maxWidth := 120 // 12 chars per line, minus WidthPadding

	lines := Wrap(text, maxWidth, measure)
	if len(lines) < 2 {
		t.Fatalf("lines = %d, want >= 2", len(lines))
	}
	for _, line := range lines {
		if w := measure(line); w >= maxWidth-WidthPadding {
			t.Errorf("line %q measures %d, want < %d", line, w, maxWidth-WidthPadding)
		}
	}
	// No words lost or reordered.
	if got := strings.Join(lines, " "); got != text {
		t.Errorf("rejoined = %q, want %q", got, text)
	}
}

func TestWrapHardBreaks(t *testing.T) {
	measure := charMeasurer(1)
	lines := Wrap("first\nsecond line\nthird", 1000, measure)

	want := []string{"first", "second line", "third"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestWrapOverlongWordUnsplit(t *testing.T) {
	measure := charMeasurer(10)
	lines := Wrap("tiny incomprehensibilities end", 100, measure)

	found := false
	for _, line := range lines {
		if line == "incomprehensibilities" {
			found = true
		}
	}
	if !found {
		t.Errorf("overlong word should sit alone unsplit, got %v", lines)
	}
}

func TestWrapEmpty(t *testing.T) {
	if lines := Wrap("", 100, charMeasurer(1)); lines != nil {
		t.Errorf("Wrap(empty) = %v, want nil", lines)
	}
}

func TestMeasureBlock(t *testing.T) {
	face := fonts.FaceFor("", 500, 500)
	defer face.Close()
	measure := FaceMeasurer(face)

	block := MeasureBlock([]string{"hello", "world wide"}, face, measure)
	if block.Empty() {
		t.Fatal("two-line block should not be empty")
	}
	if block.Height < TopPadding+BottomPadding {
		t.Errorf("Height = %d, want >= %d", block.Height, TopPadding+BottomPadding)
	}
	if block.Width != measure("world wide") {
		t.Errorf("Width = %d, want widest line %d", block.Width, measure("world wide"))
	}

	single := MeasureBlock([]string{"hello"}, face, measure)
	if block.Height <= single.Height {
		t.Error("two-line block should be taller than one-line block")
	}

	if empty := MeasureBlock(nil, face, measure); empty.Height != 0 {
		t.Errorf("empty block Height = %d, want 0", empty.Height)
	}
}

func TestCenterOriginSymmetry(t *testing.T) {
	tests := []struct {
		name                    string
		blockWidth, canvasWidth int
	}{
		{"even widths", 100, 500},
		{"odd block", 101, 500},
		{"full width", 500, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, _ := CenterOrigin(tt.blockWidth, tt.canvasWidth, 0)
			center := x + tt.blockWidth/2
			if diff := center - tt.canvasWidth/2; diff < -1 || diff > 1 {
				t.Errorf("center = %d, want %d (±1)", center, tt.canvasWidth/2)
			}
		})
	}
}

func TestCenterOriginYOffset(t *testing.T) {
	_, y := CenterOrigin(10, 100, 0)
	if y != TopPadding {
		t.Errorf("top block y = %d, want %d", y, TopPadding)
	}
	_, y = CenterOrigin(10, 100, 250)
	if y != 250+TopPadding {
		t.Errorf("bottom block y = %d, want %d", y, 250+TopPadding)
	}
}

// A caption that measures ~300px wraps into a 200px frame with every line
// under 190px.
func TestWrapNarrowFrame(t *testing.T) {
	measure := charMeasurer(10)
	text := "a caption that is about thirty chars" // 36 chars ≈ 360px

	lines := Wrap(text, 200, measure)
	if len(lines) < 2 {
		t.Fatalf("lines = %d, want >= 2", len(lines))
	}
	for _, line := range lines {
		if w := measure(line); w >= 190 {
			t.Errorf("line %q measures %d, want < 190", line, w)
		}
	}
}
