package pyramid_test

import (
	"bytes"
	"context"
	"image/png"
	"testing"
	"time"

	"github.com/eak1mov/go-hips/codec"
	"github.com/eak1mov/go-hips/internal"
	"github.com/eak1mov/go-hips/properties"
	"github.com/eak1mov/go-hips/pyramid"
	"github.com/eak1mov/go-hips/tile"
)

type memWriter struct {
	tiles     map[tile.ID][]byte
	allsky    map[int][]byte
	props     *properties.Properties
	finalized bool
}

func newMemWriter() *memWriter {
	return &memWriter{tiles: make(map[tile.ID][]byte), allsky: make(map[int][]byte)}
}

func (w *memWriter) WriteTile(id tile.ID, data []byte) error {
	w.tiles[id] = data
	return nil
}

func (w *memWriter) WriteAllsky(order int, data []byte) error {
	w.allsky[order] = data
	return nil
}

func (w *memWriter) WriteProperties(p *properties.Properties) error {
	w.props = p
	return nil
}

func (w *memWriter) Finalize() error {
	w.finalized = true
	return nil
}

func TestGenerate(t *testing.T) {
	w := newMemWriter()
	sink := pyramid.NewWriterSink(w, codec.Encoder{Format: codec.FormatPNG})
	written := 0
	sink.OnTile = func(tile.ID) { written++ }

	desc := properties.Descriptor{
		Title:       "Test Field",
		ReleaseDate: time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC),
	}
	result, err := pyramid.Generate(context.Background(), smallBuilder(), internal.Gradient(48, 48), 1, sink, desc)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if got, want := result.Tiles, 12+48; got != want {
		t.Errorf("result.Tiles = %d, want = %d", got, want)
	}
	if got, want := len(w.tiles), 12+48; got != want {
		t.Errorf("writer received %d tiles, want = %d", got, want)
	}
	if written != len(w.tiles) {
		t.Errorf("OnTile called %d times, want = %d", written, len(w.tiles))
	}
	if !w.finalized {
		t.Errorf("writer not finalized")
	}

	for order := range 2 {
		data, ok := w.allsky[order]
		if !ok {
			t.Errorf("allsky for order %d missing", order)
			continue
		}
		if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
			t.Errorf("allsky for order %d is not a png: %v", order, err)
		}
	}
	if !bytes.Equal(w.allsky[0], w.allsky[1]) {
		t.Errorf("allsky differs between orders")
	}

	for key, want := range map[string]string{
		"hips_order":       "1",
		"hips_tile_format": "png",
		"hips_tile_width":  "8",
		"obs_title":        "Test Field",
	} {
		if got, _ := w.props.Get(key); got != want {
			t.Errorf("properties %s = %q, want = %q", key, got, want)
		}
	}
}
