// Package tile provides common tile interfaces and types for HiPS pyramids.
package tile

import (
	"fmt"

	"github.com/eak1mov/go-hips/properties"
)

const (
	// MaxOrder is the deepest order whose tile count still fits in an int64.
	MaxOrder = 29

	// BucketSize is the number of pixel indices grouped under one Dir{n} directory.
	BucketSize = 10000
)

// ID addresses one tile of the pyramid: a pixel index within a resolution order.
type ID struct {
	Order int
	Pix   int
}

// TileCount returns the number of tiles at the given order, 12·4^order.
func TileCount(order int) int {
	return 12 << (2 * order)
}

// Bucket returns the directory grouping key of a pixel index.
func Bucket(pix int) int {
	return pix / BucketSize
}

func (t ID) Valid() bool {
	return t.Order >= 0 && t.Order <= MaxOrder && t.Pix >= 0 && t.Pix < TileCount(t.Order)
}

func (t ID) Bucket() int {
	return Bucket(t.Pix)
}

func (t ID) String() string {
	return fmt.Sprintf("%d/%d", t.Order, t.Pix)
}

// Writer defines the layout writer interface: it persists encoded tiles, Allsky
// mosaics and the pyramid descriptor.
//
// Writes are idempotent: writing the same tile twice leaves the layout as if it had
// been written once.
type Writer interface {
	// WriteTile writes a single encoded tile.
	WriteTile(tileID ID, tileData []byte) error

	// WriteAllsky writes the encoded Allsky mosaic for the given order.
	WriteAllsky(order int, data []byte) error

	// WriteProperties records the pyramid descriptor, updating any existing one.
	WriteProperties(p *properties.Properties) error

	// Finalize completes the writing process: flushes buffers, writes header and indices.
	// It must be called before closing the Writer.
	Finalize() error
}

type Reader interface {
	// ReadTile reads a single tile from the tileset.
	// If the tile does not exist, it returns an empty slice with no error.
	ReadTile(tileID ID) ([]byte, error)

	// ReadAllsky reads the Allsky mosaic of an order, empty if absent.
	ReadAllsky(order int) ([]byte, error)

	// ReadProperties reads the pyramid descriptor.
	ReadProperties() (*properties.Properties, error)
}

type Visitor interface {
	// VisitTiles visits all tiles in the tileset, calling the visitor for each.
	// Order of tiles, upfront cpu and memory consumption are implementation-defined.
	VisitTiles(visitor func(ID, []byte) error) error
}

// Location represents the absolute location of tile data inside a tileset file.
type Location struct {
	Offset uint64
	Length uint64
}

type LocationVisitor interface {
	VisitLocations(visitor func(ID, Location) error) error
}
