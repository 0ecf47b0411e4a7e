// Package internal holds helpers shared by the package tests.
package internal

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/eak1mov/go-hips/tile"
	"github.com/stretchr/testify/require"
)

// Gradient returns a deterministic opaque test image.
func Gradient(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(width-1, 1)),
				G: uint8(y * 255 / max(height-1, 1)),
				B: uint8((x ^ y) & 0xff),
				A: 0xff,
			})
		}
	}
	return img
}

// EncodePNG encodes img, failing the test on error.
func EncodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// SampleTiles returns distinct payloads for every tile of orders 0..maxOrder.
func SampleTiles(maxOrder int) map[tile.ID][]byte {
	tiles := make(map[tile.ID][]byte)
	for id := range tile.IDs(maxOrder) {
		tiles[id] = fmt.Appendf(nil, "tile-%d-%d", id.Order, id.Pix)
	}
	return tiles
}
