package db_test

import (
	"errors"
	"maps"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-hips/db"
	"github.com/eak1mov/go-hips/internal"
	"github.com/eak1mov/go-hips/properties"
	"github.com/eak1mov/go-hips/tile"
	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "test.db")
	tiles := internal.SampleTiles(2)

	writer, err := db.NewWriter(filePath)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	defer writer.Close()

	for tileID, tileData := range tiles {
		if err := writer.WriteTile(tileID, tileData); err != nil {
			t.Errorf("WriteTile(%v) failed: %v", tileID, err)
		}
	}
	for order := range 3 {
		require.NoError(t, writer.WriteAllsky(order, []byte("allsky")))
	}

	p := properties.New()
	p.Set("obs_title", "Test")
	p.Set(properties.KeyOrder, "2")
	require.NoError(t, writer.WriteProperties(p))

	if err := writer.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	reader, err := db.NewReader(filePath)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	if got, want := maps.Collect(tile.IterTiles(reader)), tiles; !cmp.Equal(got, want) {
		t.Errorf("VisitTiles data mismatch")
	}

	for tileID, tileData := range tiles {
		data, err := reader.ReadTile(tileID)
		if err != nil {
			t.Errorf("ReadTile(%v) failed: %v", tileID, err)
			continue
		}
		if !cmp.Equal(data, tileData) {
			t.Errorf("ReadTile data mismatch for %v", tileID)
		}
	}

	tileData, err := reader.ReadTile(tile.ID{Order: 9, Pix: 9})
	if err != nil {
		t.Errorf("ReadTile(missing tile) failed: %v", err)
	}
	if len(tileData) != 0 {
		t.Errorf("ReadTile(missing tile) expected empty tile, got: %v bytes", len(tileData))
	}

	allsky, err := reader.ReadAllsky(2)
	require.NoError(t, err)
	assert.Equal(t, "allsky", string(allsky))
	allsky, err = reader.ReadAllsky(5)
	require.NoError(t, err)
	assert.Empty(t, allsky)

	got, err := reader.ReadProperties()
	require.NoError(t, err)
	if diff := cmp.Diff(p.String(), got.String()); diff != "" {
		t.Errorf("ReadProperties mismatch (-want+got):\n%v", diff)
	}
}

func TestWriterUpdates(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "test.db")
	id := tile.ID{Order: 1, Pix: 5}

	for _, payload := range []string{"first", "second"} {
		writer, err := db.NewWriter(filePath)
		require.NoError(t, err)
		require.NoError(t, writer.WriteTile(id, []byte(payload)))
		require.NoError(t, writer.WriteTile(id, []byte(payload)))

		p := properties.New()
		p.Set("obs_title", payload)
		require.NoError(t, writer.WriteProperties(p))
		require.NoError(t, writer.Finalize())
		require.NoError(t, writer.Close())
	}

	reader, err := db.NewReader(filePath)
	require.NoError(t, err)
	defer reader.Close()

	assert.Len(t, maps.Collect(tile.IterTiles(reader)), 1)
	data, err := reader.ReadTile(id)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	p, err := reader.ReadProperties()
	require.NoError(t, err)
	title, _ := p.Get("obs_title")
	assert.Equal(t, "second", title)
}

func TestWriterErrors(t *testing.T) {
	writer, err := db.NewWriter(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer writer.Close()

	if err := writer.WriteTile(tile.ID{Order: 0, Pix: 12}, nil); !errors.Is(err, tile.ErrInvalidIndex) {
		t.Errorf("WriteTile(0/12) error = %v, want = %v", err, tile.ErrInvalidIndex)
	}
	if err := writer.WriteAllsky(30, nil); !errors.Is(err, tile.ErrInvalidIndex) {
		t.Errorf("WriteAllsky(30) error = %v, want = %v", err, tile.ErrInvalidIndex)
	}

	require.NoError(t, writer.Finalize())
	assert.Error(t, writer.WriteTile(tile.ID{}, nil))
	assert.Error(t, writer.Finalize())
}
