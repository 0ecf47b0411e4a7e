// Package grid maps pyramid pixel indices to positions on a flat face grid.
//
// The mapping is a square-grid stand-in for HEALPix, not HEALPix itself: the 12
// base faces are laid out four per row (three rows), and each face is split into
// nside×nside cells (nside = 2^order) numbered row-major. It is deterministic and
// collision-free but carries no angular meaning.
package grid

import (
	"fmt"

	"github.com/eak1mov/go-hips/tile"
)

// FacesPerRow is the width of the face arrangement, in faces.
const FacesPerRow = 4

// Coord is a cell position on the face grid of one order.
type Coord struct {
	X int
	Y int
}

// Nside returns the number of cells along one face edge at the given order.
func Nside(order int) int {
	return 1 << order
}

// Size returns the extent of the face grid at the given order, in cells.
func Size(order int) Coord {
	nside := Nside(order)
	faceRows := (12 + FacesPerRow - 1) / FacesPerRow
	return Coord{X: FacesPerRow * nside, Y: faceRows * nside}
}

func checkOrder(order int) error {
	if order < 0 || order > tile.MaxOrder {
		return fmt.Errorf("%w: order %d out of range [0, %d]", tile.ErrInvalidIndex, order, tile.MaxOrder)
	}
	return nil
}

// IndexToGrid returns the grid cell of a pixel index.
func IndexToGrid(order, pix int) (Coord, error) {
	if err := checkOrder(order); err != nil {
		return Coord{}, err
	}
	if pix < 0 || pix >= tile.TileCount(order) {
		return Coord{}, fmt.Errorf("%w: pixel %d out of range [0, %d) at order %d",
			tile.ErrInvalidIndex, pix, tile.TileCount(order), order)
	}

	nside := Nside(order)
	face := pix / (nside * nside)
	inFace := pix % (nside * nside)

	x := inFace % nside
	y := inFace / nside

	return Coord{
		X: x + (face%FacesPerRow)*nside,
		Y: y + (face/FacesPerRow)*nside,
	}, nil
}

// GridToIndex is the inverse of IndexToGrid. Cells outside the 12 faces are invalid.
func GridToIndex(order int, c Coord) (int, error) {
	if err := checkOrder(order); err != nil {
		return 0, err
	}
	size := Size(order)
	if c.X < 0 || c.Y < 0 || c.X >= size.X || c.Y >= size.Y {
		return 0, fmt.Errorf("%w: cell %v outside %dx%d grid at order %d",
			tile.ErrInvalidIndex, c, size.X, size.Y, order)
	}

	nside := Nside(order)
	face := (c.Y/nside)*FacesPerRow + c.X/nside
	return face*nside*nside + (c.Y%nside)*nside + c.X%nside, nil
}
