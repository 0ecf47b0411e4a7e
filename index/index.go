// Package index provides a flat binary tile index, portable to other languages and
// utilities: a sequence of little-endian Item records.
package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/eak1mov/go-hips/tile"
)

// Item maps a tile (Order, Npix) to its location (Offset, Length) in a tile data file.
type Item struct {
	Order  uint32
	Length uint32
	Npix   uint64
	Offset uint64
}

// ItemSize is the encoded size of one Item.
var ItemSize = binary.Size(Item{})

func NewItem(tileID tile.ID, location tile.Location) Item {
	return Item{
		Order:  uint32(tileID.Order),
		Length: uint32(location.Length),
		Npix:   uint64(tileID.Pix),
		Offset: location.Offset,
	}
}

func (i Item) TileID() tile.ID {
	return tile.ID{Order: int(i.Order), Pix: int(i.Npix)}
}

func (i Item) TileLocation() tile.Location {
	return tile.Location{Offset: i.Offset, Length: uint64(i.Length)}
}

func WriteAll(items []Item, writer io.Writer) error {
	return binary.Write(writer, binary.LittleEndian, items)
}

func ReadAll(indexData []byte) ([]Item, error) {
	if len(indexData)%ItemSize != 0 {
		return nil, fmt.Errorf("hips: index size %d is not a multiple of %d", len(indexData), ItemSize)
	}
	items := make([]Item, len(indexData)/ItemSize)

	err := binary.Read(bytes.NewReader(indexData), binary.LittleEndian, items)
	if err != nil {
		return nil, err
	}

	return items, nil
}
