// Package codec decodes source images and encodes pyramid tiles.
//
// Sources may be PNG, JPEG, GIF, TIFF, BMP or WebP. Tiles are encoded as JPEG or PNG;
// PNG tiles can be reduced to a fixed-size palette.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/eak1mov/go-hips/tile"
	"github.com/ericpauley/go-quantize/quantize"
	_ "golang.org/x/image/webp"
)

type Format uint8

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatPNG
)

// DefaultQuality is the JPEG quality used when Encoder.Quality is zero.
const DefaultQuality = 90

var ErrUnsupportedFormat = errors.New("hips: unsupported tile format")

// ParseFormat accepts a file extension or a hips_tile_format value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// String returns the hips_tile_format name.
func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	}
	return "unknown"
}

// Ext returns the tile file extension, without the dot.
func (f Format) Ext() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatPNG:
		return "png"
	}
	return ""
}

// Decode reads a source image.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tile.ErrInvalidSource, err)
	}
	return img, nil
}

// Open reads a source image from a file.
func Open(filePath string) (image.Image, error) {
	img, err := imaging.Open(filePath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tile.ErrInvalidSource, err)
	}
	return img, nil
}

type Encoder struct {
	Format  Format
	Quality int // JPEG quality, 1..100
	Colors  int // PNG palette size, 2..256; zero keeps full color
}

func (e Encoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch e.Format {
	case FormatJPEG:
		quality := e.Quality
		if quality == 0 {
			quality = DefaultQuality
		}
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatPNG:
		if e.Colors > 0 {
			img = quantized(img, min(e.Colors, 256))
		}
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, e.Format)
	}

	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func quantized(img image.Image, colors int) *image.Paletted {
	b := img.Bounds()
	q := quantize.MedianCutQuantizer{}
	pm := image.NewPaletted(b, q.Quantize(make(color.Palette, 0, colors), img))
	draw.Draw(pm, b, img, b.Min, draw.Src)
	return pm
}
