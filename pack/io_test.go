package pack_test

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-hips/internal"
	"github.com/eak1mov/go-hips/pack"
	"github.com/eak1mov/go-hips/pack/spec"
	"github.com/eak1mov/go-hips/properties"
	"github.com/eak1mov/go-hips/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, filePath string, tiles map[tile.ID][]byte, p *properties.Properties) {
	t.Helper()

	writer, err := pack.NewWriter(filePath)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	defer writer.Close()

	for tileID, tileData := range tiles {
		if err := writer.WriteTile(tileID, tileData); err != nil {
			t.Fatalf("WriteTile(%v) failed: %v", tileID, err)
		}
	}
	if p != nil {
		require.NoError(t, writer.WriteProperties(p))
	}
	if err := writer.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
}

func TestWriterReader(t *testing.T) {
	for _, maxOrder := range []int{0, 2, 5} {
		t.Run(fmt.Sprintf("MaxOrder%d", maxOrder), func(t *testing.T) {
			t.Parallel()

			tiles := internal.SampleTiles(maxOrder)
			filePath := filepath.Join(t.TempDir(), "tiles.hpk")

			p := properties.New()
			p.Set("obs_title", "Test")
			p.Set(properties.KeyTileFormat, "png")
			writeArchive(t, filePath, tiles, p)

			reader, err := pack.NewFileReader(filePath)
			if err != nil {
				t.Fatalf("NewFileReader failed: %v", err)
			}
			defer reader.Close()

			got, err := reader.ReadProperties()
			if err != nil {
				t.Fatalf("ReadProperties failed: %v", err)
			}
			if diff := cmp.Diff(p.String(), got.String()); diff != "" {
				t.Errorf("ReadProperties mismatch (-want+got):\n%v", diff)
			}

			header := reader.Header()
			assert.Equal(t, spec.TileTypePng, header.TileType)
			assert.Equal(t, uint8(0), header.MinOrder)
			assert.Equal(t, uint8(maxOrder), header.MaxOrder)
			assert.Equal(t, uint64(len(tiles)), header.AddressedTilesCount)

			if got, want := maps.Collect(tile.IterTiles(reader)), tiles; !cmp.Equal(got, want) {
				t.Errorf("VisitTiles data mismatch")
			}

			for tileID, tileData := range tiles {
				data, err := reader.ReadTile(tileID)
				if err != nil {
					t.Fatalf("ReadTile(%v) failed: %v", tileID, err)
				}
				if !cmp.Equal(data, tileData) {
					t.Fatalf("ReadTile(%v) = %q, want = %q", tileID, data, tileData)
				}
			}

			tileData, err := reader.ReadTile(tile.ID{Order: maxOrder + 1, Pix: 3})
			if err != nil {
				t.Errorf("ReadTile(missing tile) failed: %v", err)
			}
			if len(tileData) != 0 {
				t.Errorf("ReadTile(missing tile) expected empty tile, got: %v bytes", len(tileData))
			}
		})
	}
}

func TestDeduplication(t *testing.T) {
	tiles := make(map[tile.ID][]byte)
	for tileID := range tile.IDs(3) {
		tiles[tileID] = []byte("blank")
	}
	tiles[tile.ID{Order: 3, Pix: 100}] = []byte("content")

	filePath := filepath.Join(t.TempDir(), "tiles.hpk")
	writer, err := pack.NewWriter(filePath)
	require.NoError(t, err)
	for tileID, tileData := range tiles {
		require.NoError(t, writer.WriteTile(tileID, tileData))
	}
	for order := range 4 {
		require.NoError(t, writer.WriteAllsky(order, []byte("allsky")))
	}
	require.NoError(t, writer.Finalize())

	reader, err := pack.NewFileReader(filePath)
	require.NoError(t, err)
	defer reader.Close()

	header := reader.Header()
	assert.Equal(t, uint64(3), header.TileContentsCount)
	assert.Equal(t, uint64(len("blank")+len("content")+len("allsky")), header.TileDataLength)
	assert.Less(t, header.TileEntriesCount, header.AddressedTilesCount)

	assert.Equal(t, tiles, maps.Collect(tile.IterTiles(reader)))

	locations := maps.Collect(tile.IterLocations(reader))
	assert.Len(t, locations, len(tiles))
	assert.Equal(t, locations[tile.ID{Order: 0, Pix: 0}], locations[tile.ID{Order: 2, Pix: 17}])

	for order := range 4 {
		data, err := reader.ReadAllsky(order)
		require.NoError(t, err)
		assert.Equal(t, "allsky", string(data))
	}
	data, err := reader.ReadAllsky(4)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWriterRewrite(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "tiles.hpk")
	id := tile.ID{Order: 1, Pix: 5}

	writer, err := pack.NewWriter(filePath)
	require.NoError(t, err)
	require.NoError(t, writer.WriteTile(id, []byte("first")))
	require.NoError(t, writer.WriteTile(id, []byte("second")))
	require.NoError(t, writer.WriteTile(tile.ID{Order: 1, Pix: 6}, nil))
	require.Error(t, writer.WriteTile(tile.ID{Order: 1, Pix: 48}, []byte("x")))
	require.NoError(t, writer.Finalize())
	require.Error(t, writer.Finalize())

	reader, err := pack.NewFileReader(filePath)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, map[tile.ID][]byte{id: []byte("second")}, maps.Collect(tile.IterTiles(reader)))
}

func TestNewReader(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "tiles.hpk")
	tiles := internal.SampleTiles(1)
	writeArchive(t, filePath, tiles, nil)

	fileData, err := os.ReadFile(filePath)
	require.NoError(t, err)

	reads := 0
	reader, err := pack.NewReader(func(offset, length uint64) ([]byte, error) {
		reads++
		return fileData[offset : offset+length], nil
	})
	require.NoError(t, err)
	defer reader.Close()

	data, err := reader.ReadTile(tile.ID{Order: 1, Pix: 30})
	require.NoError(t, err)
	assert.Equal(t, "tile-1-30", string(data))
	assert.Equal(t, 3, reads) // header, root directory, tile

	p, err := reader.ReadProperties()
	require.NoError(t, err)
	assert.Equal(t, 0, p.Len())

	_, err = pack.NewReader(func(offset, length uint64) ([]byte, error) {
		return make([]byte, length), nil
	})
	assert.ErrorIs(t, err, spec.ErrInvalidHeader)
}
