// Package media decodes and encodes the raster formats capgen understands:
// JPEG, PNG, and GIF (static or animated).
//
// A decoded Source is read-only for the duration of a request. Animated GIF
// sources keep the full frame sequence with per-frame display durations.
package media

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"time"

	"github.com/capgen/capgen/pkg/errors"
)

// Format identifies the source or output encoding family.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
)

// DefaultFrameDelay is the display duration used for animation frames that
// do not declare one.
const DefaultFrameDelay = 100 * time.Millisecond

// DefaultJPEGQuality is used when encoding JPEG without an explicit quality.
const DefaultJPEGQuality = 90

// Source is a decoded input image. For animated sources Frames and Delays
// hold the full sequence; Image is the first frame either way.
type Source struct {
	Format   Format
	Animated bool
	Image    image.Image
	Width    int
	Height   int

	// Animated GIF sources only. Disposal carries the source's per-frame
	// disposal ops and may be shorter than Frames.
	Frames   []*image.Paletted
	Delays   []time.Duration
	Disposal []byte
}

// Decode reads an image from r. GIF data with more than one frame is decoded
// as an animated source; everything else becomes a single static image.
func Decode(r io.Reader) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "read source")
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes an image held in memory.
func DecodeBytes(data []byte) (*Source, error) {
	_, formatName, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "unrecognized image data")
	}

	if formatName == "gif" {
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecode, err, "decode gif")
		}
		if len(g.Image) > 1 {
			return fromGIF(g), nil
		}
	}

	img, formatName, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "decode image")
	}

	format := Format(formatName)
	switch format {
	case FormatJPEG, FormatPNG, FormatGIF:
	default:
		return nil, errors.New(errors.ErrCodeDecode, "unsupported format: %s", formatName)
	}

	b := img.Bounds()
	return &Source{
		Format: format,
		Image:  img,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// fromGIF builds an animated Source from a decoded multi-frame GIF.
// Missing delays default to DefaultFrameDelay.
func fromGIF(g *gif.GIF) *Source {
	delays := make([]time.Duration, len(g.Image))
	for i := range g.Image {
		d := time.Duration(0)
		if i < len(g.Delay) {
			d = time.Duration(g.Delay[i]) * 10 * time.Millisecond
		}
		if d <= 0 {
			d = DefaultFrameDelay
		}
		delays[i] = d
	}

	w, h := g.Config.Width, g.Config.Height
	if w == 0 || h == 0 {
		b := g.Image[0].Bounds()
		w, h = b.Dx(), b.Dy()
	}

	return &Source{
		Format:   FormatGIF,
		Animated: true,
		Image:    g.Image[0],
		Width:    w,
		Height:   h,
		Frames:   g.Image,
		Delays:   delays,
		Disposal: g.Disposal,
	}
}

// Encode writes img to w in the given format. Quality applies to JPEG only;
// pass 0 for the default.
func Encode(w io.Writer, img image.Image, format Format, quality int) error {
	switch format {
	case FormatJPEG:
		if quality <= 0 {
			quality = DefaultJPEGQuality
		}
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
			return errors.Wrap(errors.ErrCodeEncode, err, "encode jpeg")
		}
	case FormatPNG:
		if err := png.Encode(w, img); err != nil {
			return errors.Wrap(errors.ErrCodeEncode, err, "encode png")
		}
	case FormatGIF:
		if err := gif.Encode(w, img, nil); err != nil {
			return errors.Wrap(errors.ErrCodeEncode, err, "encode gif")
		}
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unknown format: %s", format)
	}
	return nil
}

// EncodeBytes is Encode into a fresh buffer.
func EncodeBytes(img image.Image, format Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Extension returns the output file extension for a source: "gif" when the
// source is animated, otherwise the requested static format ("jpg" or "png").
func Extension(src *Source, requested Format) string {
	if src.Animated {
		return "gif"
	}
	switch requested {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpg"
	}
	if src.Format == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "gif":
		return FormatGIF, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown format: %q (must be jpg, png, or gif)", name)
}
