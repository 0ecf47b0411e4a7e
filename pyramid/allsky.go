package pyramid

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/eak1mov/go-hips/grid"
	"github.com/eak1mov/go-hips/tile"
	"golang.org/x/image/draw"
)

// DefaultAllskyCellSize is the edge length of one tile inside the Allsky mosaic.
const DefaultAllskyCellSize = 64

// Allsky composes the order-0 tiles into one mosaic. Each tile is scaled to
// cellSize and placed at its face-grid cell, so the mosaic is 4×3 cells.
func Allsky(tiles []*image.NRGBA, cellSize int) (*image.NRGBA, error) {
	if cellSize <= 0 {
		return nil, fmt.Errorf("%w: allsky cell size %d", tile.ErrResampleFailure, cellSize)
	}
	if len(tiles) != tile.TileCount(0) {
		return nil, fmt.Errorf("%w: allsky needs %d order-0 tiles, got %d", tile.ErrInvalidIndex, tile.TileCount(0), len(tiles))
	}

	size := grid.Size(0)
	mosaic := imaging.New(size.X*cellSize, size.Y*cellSize, color.Black)

	for pix, t := range tiles {
		if t == nil {
			return nil, fmt.Errorf("%w: order-0 tile %d missing", tile.ErrInvalidIndex, pix)
		}
		c, err := grid.IndexToGrid(0, pix)
		if err != nil {
			return nil, err
		}
		cell := image.Rect(c.X*cellSize, c.Y*cellSize, (c.X+1)*cellSize, (c.Y+1)*cellSize)
		draw.CatmullRom.Scale(mosaic, cell, t, t.Bounds(), draw.Src, nil)
	}

	return mosaic, nil
}
