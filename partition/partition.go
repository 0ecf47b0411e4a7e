// Package partition cuts a source image into the fixed-size tiles of one order.
package partition

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/eak1mov/go-hips/grid"
	"github.com/eak1mov/go-hips/tile"
)

// DefaultTileSize is the edge length of every output tile, in pixels.
const DefaultTileSize = 512

// Geometry is the crop grid of one order over a source of fixed size.
//
// GridSize is floor(sqrt(tileCount)), an approximation kept on purpose: it does not
// match the face grid's real extent (4·nside by 3·nside cells), so crops for the
// rightmost faces run past the source edge and get clamped.
type Geometry struct {
	Order      int
	Width      int
	Height     int
	GridSize   int
	TileWidth  int
	TileHeight int
}

// NewGeometry computes the crop grid for a source with the given bounds.
func NewGeometry(bounds image.Rectangle, order int) (Geometry, error) {
	if order < 0 || order > tile.MaxOrder {
		return Geometry{}, fmt.Errorf("%w: order %d out of range [0, %d]", tile.ErrInvalidIndex, order, tile.MaxOrder)
	}
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return Geometry{}, fmt.Errorf("%w: source is %dx%d", tile.ErrInvalidSource, width, height)
	}
	gridSize := isqrt(tile.TileCount(order))
	if gridSize == 0 {
		return Geometry{}, fmt.Errorf("%w: empty grid at order %d", tile.ErrInvalidSource, order)
	}
	return Geometry{
		Order:      order,
		Width:      width,
		Height:     height,
		GridSize:   gridSize,
		TileWidth:  width / gridSize,
		TileHeight: height / gridSize,
	}, nil
}

// Rect returns the crop rectangle of a pixel index, relative to the source origin.
//
// The rectangle is clamped to the source; if clamping inverts an edge the bounds are
// swapped, which may leave a rectangle lying outside the source. Such crops are empty.
func (g Geometry) Rect(pix int) (image.Rectangle, error) {
	c, err := grid.IndexToGrid(g.Order, pix)
	if err != nil {
		return image.Rectangle{}, err
	}

	left := c.X * g.TileWidth
	top := c.Y * g.TileHeight
	right := min(left+g.TileWidth, g.Width)
	bottom := min(top+g.TileHeight, g.Height)

	if right < left {
		left, right = right, left
	}
	if bottom < top {
		top, bottom = bottom, top
	}

	return image.Rectangle{Min: image.Pt(left, top), Max: image.Pt(right, bottom)}, nil
}

// Partitioner crops and resamples tiles.
type Partitioner struct {
	TileSize int
	Filter   imaging.ResampleFilter
}

// New returns a Partitioner producing DefaultTileSize tiles with a Lanczos filter.
func New() *Partitioner {
	return &Partitioner{TileSize: DefaultTileSize, Filter: imaging.Lanczos}
}

// Tile produces the tile of one pixel index. src must have the bounds g was built for.
// Empty crops yield a blank tile.
func (p *Partitioner) Tile(src image.Image, g Geometry, pix int) (*image.NRGBA, error) {
	if p.TileSize <= 0 {
		return nil, fmt.Errorf("%w: tile size %d", tile.ErrResampleFailure, p.TileSize)
	}
	r, err := g.Rect(pix)
	if err != nil {
		return nil, err
	}

	crop := imaging.Crop(src, r.Add(src.Bounds().Min))
	if crop.Bounds().Empty() {
		return imaging.New(p.TileSize, p.TileSize, color.Transparent), nil
	}

	out := imaging.Resize(crop, p.TileSize, p.TileSize, p.Filter)
	if size := out.Bounds().Size(); size.X != p.TileSize || size.Y != p.TileSize {
		return nil, fmt.Errorf("%w: %v crop resized to %v, want %dx%d",
			tile.ErrResampleFailure, r.Size(), size, p.TileSize, p.TileSize)
	}
	return out, nil
}

// Partition produces every tile of an order, keyed by pixel index. It returns no
// tiles if any one of them fails.
func (p *Partitioner) Partition(src image.Image, order int) (map[int]*image.NRGBA, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil image", tile.ErrInvalidSource)
	}
	g, err := NewGeometry(src.Bounds(), order)
	if err != nil {
		return nil, err
	}

	tiles := make(map[int]*image.NRGBA, tile.TileCount(order))
	for pix := range tile.TileCount(order) {
		t, err := p.Tile(src, g, pix)
		if err != nil {
			return nil, &tile.Error{ID: tile.ID{Order: order, Pix: pix}, Err: err}
		}
		tiles[pix] = t
	}
	return tiles, nil
}

func isqrt(n int) int {
	s := int(math.Sqrt(float64(n)))
	for s*s > n {
		s--
	}
	for (s+1)*(s+1) <= n {
		s++
	}
	return s
}
