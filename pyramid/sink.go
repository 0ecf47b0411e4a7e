package pyramid

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/eak1mov/go-hips/codec"
	"github.com/eak1mov/go-hips/properties"
	"github.com/eak1mov/go-hips/tile"
)

// WriterSink encodes tiles and persists them through a layout writer.
// Encoding runs on the calling goroutine; writer calls are serialized.
type WriterSink struct {
	writer  tile.Writer
	encoder codec.Encoder

	mu        sync.Mutex
	allsky    image.Image
	allskyEnc []byte

	// OnTile, when set, is called after each tile is written.
	OnTile func(tile.ID)
}

func NewWriterSink(w tile.Writer, enc codec.Encoder) *WriterSink {
	return &WriterSink{writer: w, encoder: enc}
}

func (s *WriterSink) PutTile(t Tile) error {
	data, err := s.encoder.Encode(t.Image)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.WriteTile(t.ID, data); err != nil {
		return err
	}
	if s.OnTile != nil {
		s.OnTile(t.ID)
	}
	return nil
}

// PutAllsky encodes the mosaic once and reuses the bytes while it stays the same image.
func (s *WriterSink) PutAllsky(order int, img image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if img != s.allsky || s.allskyEnc == nil {
		data, err := s.encoder.Encode(img)
		if err != nil {
			return err
		}
		s.allsky, s.allskyEnc = img, data
	}
	return s.writer.WriteAllsky(order, s.allskyEnc)
}

// Generate builds the pyramid through sink, then records the descriptor and finalizes
// the sink's writer. The descriptor's order, tile format and tile width are filled in
// from the build.
func Generate(ctx context.Context, b *Builder, src image.Image, maxOrder int, sink *WriterSink, desc properties.Descriptor) (Result, error) {
	result, err := b.Build(ctx, src, maxOrder, sink)
	if err != nil {
		return Result{}, err
	}

	desc.Order = result.MaxOrder
	desc.TileFormat = sink.encoder.Format.String()
	desc.TileWidth = b.TileSize()
	if desc.ReleaseDate.IsZero() {
		desc.ReleaseDate = time.Now()
	}
	if err := sink.writer.WriteProperties(desc.Properties()); err != nil {
		return Result{}, err
	}

	if err := sink.writer.Finalize(); err != nil {
		return Result{}, err
	}
	return result, nil
}
