// Package pack provides API for reading and writing HiPS pyramids as a single archive
// file. Tiles are addressed by Hilbert codes over the face grid (see package spec),
// identical payloads are stored once and runs of them share one directory entry.
package pack

import (
	"bufio"
	"cmp"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/eak1mov/go-hips/codec"
	"github.com/eak1mov/go-hips/pack/spec"
	"github.com/eak1mov/go-hips/properties"
	"github.com/eak1mov/go-hips/tile"
)

type blob struct {
	offset uint64
	length uint32
}

// Writer implements tile.Writer interface for the archive format.
type Writer struct {
	logger *slog.Logger
	file   *os.File
	header spec.Header

	tileWriter *bufio.Writer
	tileOffset uint64

	entries map[uint64]spec.Entry // tile code -> entry
	allsky  map[int]blob
	blobs   map[[16]byte]blob
	props   *properties.Properties
}

type writerConfig struct {
	Logger *slog.Logger
}

type WriterOption func(*writerConfig)

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

// NewWriter creates the archive at filePath, truncating any existing file.
func NewWriter(filePath string, opts ...WriterOption) (w *Writer, err error) {
	config := writerConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			file.Close()
		}
	}()

	if _, err = file.Seek(spec.HeaderRootDirMaxLength, io.SeekStart); err != nil {
		return nil, err
	}

	return &Writer{
		logger: config.Logger,
		file:   file,
		header: spec.Header{
			HeaderMagic:         spec.HeaderMagicV1,
			InternalCompression: spec.CompressionGzip,
			TileDataOffset:      spec.HeaderRootDirMaxLength,
		},
		tileWriter: bufio.NewWriter(file),
		entries:    make(map[uint64]spec.Entry),
		allsky:     make(map[int]blob),
		blobs:      make(map[[16]byte]blob),
		props:      properties.New(),
	}, nil
}

// WriteTile stores one tile. Empty payloads are skipped; rewriting a tile replaces
// its entry.
func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	code, err := spec.EncodeTileID(tileID)
	if err != nil {
		return err
	}
	if len(tileData) == 0 {
		return nil
	}

	b, err := w.writeBlob(tileData)
	if err != nil {
		return err
	}
	w.entries[code] = spec.Entry{Code: code, Offset: b.offset, Length: b.length, Run: 1}
	return nil
}

func (w *Writer) WriteAllsky(order int, data []byte) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if order < 0 || order > tile.MaxOrder {
		return fmt.Errorf("%w: allsky order %d", tile.ErrInvalidIndex, order)
	}

	b, err := w.writeBlob(data)
	if err != nil {
		return err
	}
	w.allsky[order] = b
	return nil
}

// WriteProperties merges p into the descriptor stored on Finalize. A recognized
// hips_tile_format also sets the header tile type.
func (w *Writer) WriteProperties(p *properties.Properties) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	w.props.Merge(p)

	if value, ok := p.Get(properties.KeyTileFormat); ok {
		format, err := codec.ParseFormat(value)
		if err != nil {
			return err
		}
		w.header.TileType = tileType(format)
	}
	return nil
}

func tileType(format codec.Format) spec.TileType {
	switch format {
	case codec.FormatPNG:
		return spec.TileTypePng
	case codec.FormatJPEG:
		return spec.TileTypeJpeg
	}
	return spec.TileTypeUnknown
}

// writeBlob appends data to the tile section unless identical bytes are already there.
func (w *Writer) writeBlob(data []byte) (blob, error) {
	digest := md5.Sum(data)
	if b, ok := w.blobs[digest]; ok {
		return b, nil
	}

	if _, err := w.tileWriter.Write(data); err != nil {
		return blob{}, err
	}
	b := blob{offset: w.tileOffset, length: uint32(len(data))}
	w.tileOffset += uint64(len(data))
	w.blobs[digest] = b
	return b, nil
}

var errFinalized = errors.New("hips: archive already finalized")

func (w *Writer) checkOpen() error {
	if w.tileWriter == nil {
		return errFinalized
	}
	return nil
}

func (w *Writer) Finalize() error {
	if err := w.checkOpen(); err != nil {
		return err
	}

	w.logger.Debug("hips: flush")
	if err := w.tileWriter.Flush(); err != nil {
		return err
	}
	w.header.TileDataLength = w.tileOffset
	w.tileWriter = nil

	w.logger.Debug("hips: sort", "tiles", len(w.entries))
	entries := slices.SortedFunc(maps.Values(w.entries), func(a, b spec.Entry) int {
		return cmp.Compare(a.Code, b.Code)
	})
	w.fillCounts(entries)

	w.logger.Debug("hips: compact")
	entries = spec.CompactEntries(entries)
	w.header.TileEntriesCount = uint64(len(entries))

	w.logger.Debug("hips: serialize")
	rootBytes, leavesBytes, err := spec.SerializeAll(entries, w.header.InternalCompression)
	if err != nil {
		return err
	}
	if len(rootBytes) > spec.RootDirMaxLength {
		return fmt.Errorf("hips: root directory too large (%d bytes)", len(rootBytes))
	}

	metadata, err := spec.Compress([]byte(w.props.String()), w.header.InternalCompression)
	if err != nil {
		return err
	}
	allskyDir, err := spec.Compress(spec.SerializeAllskyDirectory(w.allskyEntries()), w.header.InternalCompression)
	if err != nil {
		return err
	}

	w.logger.Debug("hips: write directories")
	offset := w.header.TileDataOffset + w.header.TileDataLength
	for _, section := range []struct {
		data           []byte
		offset, length *uint64
	}{
		{metadata, &w.header.MetadataOffset, &w.header.MetadataLength},
		{allskyDir, &w.header.AllskyDirectoryOffset, &w.header.AllskyDirectoryLength},
		{leavesBytes, &w.header.LeafDirectoryOffset, &w.header.LeafDirectoryLength},
	} {
		if _, err := w.file.Write(section.data); err != nil {
			return err
		}
		*section.offset, *section.length = offset, uint64(len(section.data))
		offset += uint64(len(section.data))
	}

	w.logger.Debug("hips: write root")
	if _, err := w.file.WriteAt(rootBytes, spec.RootDirOffset); err != nil {
		return err
	}
	w.header.RootOffset = spec.RootDirOffset
	w.header.RootLength = uint64(len(rootBytes))

	w.logger.Debug("hips: write header")
	if _, err := w.file.WriteAt(spec.SerializeHeader(&w.header), 0); err != nil {
		return err
	}

	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	w.logger.Debug("hips: done!")
	return nil
}

func (w *Writer) fillCounts(entries []spec.Entry) {
	w.header.AddressedTilesCount = uint64(len(entries))
	w.header.TileContentsCount = uint64(len(w.blobs))
	if len(entries) == 0 {
		return
	}
	first, _ := spec.DecodeTileID(entries[0].Code)
	last, _ := spec.DecodeTileID(entries[len(entries)-1].Code)
	w.header.MinOrder = uint8(first.Order)
	w.header.MaxOrder = uint8(last.Order)
}

func (w *Writer) allskyEntries() []spec.AllskyEntry {
	result := make([]spec.AllskyEntry, 0, len(w.allsky))
	for _, order := range slices.Sorted(maps.Keys(w.allsky)) {
		b := w.allsky[order]
		result = append(result, spec.AllskyEntry{Order: uint8(order), Offset: b.offset, Length: b.length})
	}
	return result
}

// Close releases the file. An archive not finalized is left incomplete.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}
