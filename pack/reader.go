package pack

import (
	"bytes"
	"os"

	"github.com/eak1mov/go-hips/pack/spec"
	"github.com/eak1mov/go-hips/properties"
	"github.com/eak1mov/go-hips/tile"
)

// FileAccessFunc reads length bytes at offset of the archive.
type FileAccessFunc = func(offset, length uint64) ([]byte, error)

// Reader implements tile.Reader, tile.Visitor and tile.LocationVisitor interfaces
// for the archive format.
type Reader struct {
	fileAccess FileAccessFunc
	fileCloser func() error
	header     *spec.Header
}

// NewFileReader opens the archive at filePath. The returned Reader must be closed.
func NewFileReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	fileAccess := func(offset, length uint64) ([]byte, error) {
		buffer := make([]byte, length)
		if _, err := file.ReadAt(buffer, int64(offset)); err != nil {
			return nil, err
		}
		return buffer, nil
	}
	r, err := NewReader(fileAccess)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.fileCloser = file.Close
	return r, nil
}

// NewReader creates a Reader over arbitrary storage, e.g. a remote object.
func NewReader(fileAccess FileAccessFunc) (*Reader, error) {
	headerData, err := fileAccess(0, spec.HeaderLength)
	if err != nil {
		return nil, err
	}
	header, err := spec.DeserializeHeader(headerData)
	if err != nil {
		return nil, err
	}
	return &Reader{
		fileAccess: fileAccess,
		fileCloser: func() error { return nil },
		header:     header,
	}, nil
}

// TODO: cache decoded leaf directories (offset -> []Entry) for repeated ReadTile calls.

func (r *Reader) Close() error {
	return r.fileCloser()
}

func (r *Reader) Header() spec.Header {
	return *r.header
}

func (r *Reader) ReadProperties() (*properties.Properties, error) {
	data, err := r.readSection(r.header.MetadataOffset, r.header.MetadataLength)
	if err != nil {
		return nil, err
	}
	return properties.Parse(bytes.NewReader(data))
}

func (r *Reader) ReadAllsky(order int) ([]byte, error) {
	data, err := r.readSection(r.header.AllskyDirectoryOffset, r.header.AllskyDirectoryLength)
	if err != nil {
		return nil, err
	}
	entries, err := spec.DeserializeAllskyDirectory(data)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if int(e.Order) == order {
			return r.fileAccess(r.header.TileDataOffset+e.Offset, uint64(e.Length))
		}
	}
	return make([]byte, 0), nil
}

func (r *Reader) readSection(offset, length uint64) ([]byte, error) {
	compressed, err := r.fileAccess(offset, length)
	if err != nil {
		return nil, err
	}
	return spec.Decompress(compressed, r.header.InternalCompression)
}

func (r *Reader) readDirectory(offset, length uint64) ([]spec.Entry, error) {
	data, err := r.readSection(offset, length)
	if err != nil {
		return nil, err
	}
	return spec.DeserializeDirectory(data)
}

// ReadLocation returns the absolute location of a tile, zero if it is absent.
func (r *Reader) ReadLocation(tileID tile.ID) (tile.Location, error) {
	code, err := spec.EncodeTileID(tileID)
	if err != nil {
		// Tiles outside the pyramid are absent, not an error.
		return tile.Location{}, nil
	}

	offset, length := r.header.RootOffset, r.header.RootLength
	for {
		entries, err := r.readDirectory(offset, length)
		if err != nil {
			return tile.Location{}, err
		}
		entry, found := spec.FindEntry(entries, code)
		if !found {
			return tile.Location{}, nil
		}
		if entry.Run > 0 {
			return tile.Location{
				Offset: r.header.TileDataOffset + entry.Offset,
				Length: uint64(entry.Length),
			}, nil
		}
		offset = r.header.LeafDirectoryOffset + entry.Offset
		length = uint64(entry.Length)
	}
}

func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	location, err := r.ReadLocation(tileID)
	if err != nil {
		return nil, err
	}
	if location.Length == 0 {
		return make([]byte, 0), nil
	}
	return r.fileAccess(location.Offset, location.Length)
}

// VisitLocations visits tiles in tile code order.
func (r *Reader) VisitLocations(visitor func(tile.ID, tile.Location) error) error {
	var traverse func(offset, length uint64) error
	traverse = func(offset, length uint64) error {
		entries, err := r.readDirectory(offset, length)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.Run == 0 {
				if err := traverse(r.header.LeafDirectoryOffset+entry.Offset, uint64(entry.Length)); err != nil {
					return err
				}
				continue
			}
			location := tile.Location{
				Offset: r.header.TileDataOffset + entry.Offset,
				Length: uint64(entry.Length),
			}
			for i := range uint64(entry.Run) {
				tileID, err := spec.DecodeTileID(entry.Code + i)
				if err != nil {
					return err
				}
				if err := visitor(tileID, location); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return traverse(r.header.RootOffset, r.header.RootLength)
}

func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return r.VisitLocations(func(tileID tile.ID, location tile.Location) error {
		tileData, err := r.fileAccess(location.Offset, location.Length)
		if err != nil {
			return err
		}
		return visitor(tileID, tileData)
	})
}
