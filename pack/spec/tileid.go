package spec

import (
	"fmt"

	"github.com/eak1mov/go-hips/grid"
	"github.com/eak1mov/go-hips/tile"
	"github.com/google/hilbert"
)

// orderBase returns the first tile code of an order. Each order reserves a full
// Hilbert square of side 4·nside, of which the face grid covers three quarters.
func orderBase(order int) uint64 {
	return (uint64(1)<<(2*order) - 1) / 3 * 16
}

// EncodeTileID maps a tile to its position on a Hilbert curve laid over the face grid
// of its order. Codes of lower orders sort first.
func EncodeTileID(tileID tile.ID) (uint64, error) {
	c, err := grid.IndexToGrid(tileID.Order, tileID.Pix)
	if err != nil {
		return 0, err
	}
	h, err := hilbert.NewHilbert(4 * grid.Nside(tileID.Order))
	if err != nil {
		return 0, err
	}
	t, err := h.MapInverse(c.X, c.Y)
	if err != nil {
		return 0, err
	}
	return orderBase(tileID.Order) + uint64(t), nil
}

func DecodeTileID(tileCode uint64) (tile.ID, error) {
	order := 0
	for order < tile.MaxOrder && orderBase(order+1) <= tileCode {
		order++
	}

	side := 4 * grid.Nside(order)
	t := tileCode - orderBase(order)
	if t >= uint64(side)*uint64(side) {
		return tile.ID{}, fmt.Errorf("%w: tile code %d", tile.ErrInvalidIndex, tileCode)
	}

	h, err := hilbert.NewHilbert(side)
	if err != nil {
		return tile.ID{}, err
	}
	x, y, err := h.Map(int(t))
	if err != nil {
		return tile.ID{}, err
	}
	pix, err := grid.GridToIndex(order, grid.Coord{X: x, Y: y})
	if err != nil {
		return tile.ID{}, fmt.Errorf("tile code %d: %w", tileCode, err)
	}
	return tile.ID{Order: order, Pix: pix}, nil
}
