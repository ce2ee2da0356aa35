package caption

import (
	"image/color"
	"testing"

	"github.com/capgen/capgen/pkg/errors"
)

func TestSpecStyle(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		want Style
	}{
		{"plain", Spec{}, StyleNormal},
		{"bold", Spec{Bold: true}, StyleBold},
		{"italic", Spec{Italic: true}, StyleItalic},
		{"both", Spec{Bold: true, Italic: true}, StyleBoldItalic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spec.Style(); got != tt.want {
				t.Errorf("Style() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizedFillsDefaults(t *testing.T) {
	n := Spec{}.normalized()
	if n.TopFontColor != defaultFontColor {
		t.Errorf("TopFontColor = %v, want default", n.TopFontColor)
	}
	if n.TopBackground != defaultBackground {
		t.Errorf("TopBackground = %v, want default", n.TopBackground)
	}
	if n.SeparatorColor != defaultSeparator {
		t.Errorf("SeparatorColor = %v, want default", n.SeparatorColor)
	}

	custom := color.RGBA{1, 2, 3, 255}
	n = Spec{TopFontColor: custom}.normalized()
	if n.TopFontColor != custom {
		t.Error("explicit color must survive normalization")
	}
}

func TestHardBreaks(t *testing.T) {
	if got := HardBreaks(`first\nsecond`); got != "first\nsecond" {
		t.Errorf("HardBreaks = %q", got)
	}
	if got := HardBreaks("plain"); got != "plain" {
		t.Errorf("HardBreaks = %q", got)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"", color.RGBA{}, false},
		{"255,0,0", color.RGBA{255, 0, 0, 255}, false},
		{"10 20 30", color.RGBA{10, 20, 30, 255}, false},
		{" 0, 128 , 255 ", color.RGBA{0, 128, 255, 255}, false},
		{"256,0,0", color.RGBA{}, true},
		{"1,2", color.RGBA{}, true},
		{"a,b,c", color.RGBA{}, true},
		{"-1,0,0", color.RGBA{}, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseColor(%q): expected error", tt.in)
			} else if errors.GetCode(err) != errors.ErrCodeInvalidColor {
				t.Errorf("ParseColor(%q): code = %q", tt.in, errors.GetCode(err))
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseColor(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
