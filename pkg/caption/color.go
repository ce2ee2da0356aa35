package caption

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/capgen/capgen/pkg/errors"
)

// ParseColor parses an RGB triplet written as "R,G,B" or "R G B" with each
// channel in 0–255. An empty string yields the zero color, which the engine
// treats as "use the default".
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return color.RGBA{}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) == 1 {
		parts = strings.Fields(s)
	}
	if len(parts) != 3 {
		return color.RGBA{}, errors.New(errors.ErrCodeInvalidColor, "color %q must be three channels, e.g. \"255,0,0\"", s)
	}

	var channels [3]uint8
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v < 0 || v > 255 {
			return color.RGBA{}, errors.New(errors.ErrCodeInvalidColor, "color channel %q must be an integer in 0-255", part)
		}
		channels[i] = uint8(v)
	}
	return color.RGBA{R: channels[0], G: channels[1], B: channels[2], A: 255}, nil
}
