package partition_test

import (
	"errors"
	"image"
	"testing"

	"github.com/eak1mov/go-hips/internal"
	"github.com/eak1mov/go-hips/partition"
	"github.com/eak1mov/go-hips/tile"
	"github.com/google/go-cmp/cmp"
)

func TestGeometry(t *testing.T) {
	for _, tc := range []struct {
		width, height int
		order         int
		want          partition.Geometry
	}{
		{1024, 1024, 0, partition.Geometry{Order: 0, Width: 1024, Height: 1024, GridSize: 3, TileWidth: 341, TileHeight: 341}},
		{1024, 512, 1, partition.Geometry{Order: 1, Width: 1024, Height: 512, GridSize: 6, TileWidth: 170, TileHeight: 85}},
		{2048, 2048, 2, partition.Geometry{Order: 2, Width: 2048, Height: 2048, GridSize: 13, TileWidth: 157, TileHeight: 157}},
		{1000, 1000, 3, partition.Geometry{Order: 3, Width: 1000, Height: 1000, GridSize: 27, TileWidth: 37, TileHeight: 37}},
	} {
		got, err := partition.NewGeometry(image.Rect(0, 0, tc.width, tc.height), tc.order)
		if err != nil {
			t.Errorf("NewGeometry(%dx%d, %d) failed: %v", tc.width, tc.height, tc.order, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("NewGeometry(%dx%d, %d) mismatch (-want+got):\n%v", tc.width, tc.height, tc.order, diff)
		}
	}
}

func TestGeometryInvalid(t *testing.T) {
	for _, r := range []image.Rectangle{
		image.Rect(0, 0, 0, 100),
		image.Rect(0, 0, 100, 0),
		{},
	} {
		if _, err := partition.NewGeometry(r, 0); !errors.Is(err, tile.ErrInvalidSource) {
			t.Errorf("NewGeometry(%v, 0) error = %v, want = %v", r, err, tile.ErrInvalidSource)
		}
	}
	if _, err := partition.NewGeometry(image.Rect(0, 0, 10, 10), -1); !errors.Is(err, tile.ErrInvalidIndex) {
		t.Errorf("NewGeometry(order=-1) error = %v, want = %v", err, tile.ErrInvalidIndex)
	}
}

func TestRect(t *testing.T) {
	g, err := partition.NewGeometry(image.Rect(0, 0, 1024, 1024), 0)
	if err != nil {
		t.Fatalf("NewGeometry failed: %v", err)
	}
	for _, tc := range []struct {
		pix  int
		want image.Rectangle
	}{
		{0, image.Rect(0, 0, 341, 341)},
		{5, image.Rect(341, 341, 682, 682)},
		{3, image.Rect(1023, 0, 1024, 341)},
		{11, image.Rect(1023, 682, 1024, 1023)},
	} {
		got, err := g.Rect(tc.pix)
		if err != nil {
			t.Errorf("Rect(%d) failed: %v", tc.pix, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Rect(%d) = %v, want = %v", tc.pix, got, tc.want)
		}
	}
}

func TestRectSwapsInvertedEdges(t *testing.T) {
	g, err := partition.NewGeometry(image.Rect(0, 0, 60, 60), 1)
	if err != nil {
		t.Fatalf("NewGeometry failed: %v", err)
	}
	// Pixel 13 sits at cell (7, 0): left = 70 lies past the 60px edge.
	got, err := g.Rect(13)
	if err != nil {
		t.Fatalf("Rect failed: %v", err)
	}
	if want := image.Rect(60, 0, 70, 10); got != want {
		t.Errorf("Rect(13) = %v, want = %v", got, want)
	}
}

func TestPartition(t *testing.T) {
	src := internal.Gradient(1024, 1024)
	tiles, err := partition.New().Partition(src, 0)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	if got, want := len(tiles), 12; got != want {
		t.Fatalf("len(tiles) = %d, want = %d", got, want)
	}
	for pix := range 12 {
		img, ok := tiles[pix]
		if !ok {
			t.Errorf("tile %d missing", pix)
			continue
		}
		if got, want := img.Bounds().Size(), image.Pt(512, 512); got != want {
			t.Errorf("tile %d size = %v, want = %v", pix, got, want)
		}
	}
}

func TestPartitionTinySource(t *testing.T) {
	p := &partition.Partitioner{TileSize: 32, Filter: partition.New().Filter}
	tiles, err := p.Partition(internal.Gradient(2, 2), 0)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	if got, want := len(tiles), 12; got != want {
		t.Fatalf("len(tiles) = %d, want = %d", got, want)
	}
	for pix, img := range tiles {
		if got, want := img.Bounds().Size(), image.Pt(32, 32); got != want {
			t.Errorf("tile %d size = %v, want = %v", pix, got, want)
		}
	}
}

func TestPartitionOffsetSource(t *testing.T) {
	src := internal.Gradient(300, 300).SubImage(image.Rect(100, 100, 300, 300))
	p := &partition.Partitioner{TileSize: 16, Filter: partition.New().Filter}
	tiles, err := p.Partition(src, 1)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	if got, want := len(tiles), tile.TileCount(1); got != want {
		t.Errorf("len(tiles) = %d, want = %d", got, want)
	}
}

func TestPartitionDeterministic(t *testing.T) {
	src := internal.Gradient(200, 150)
	p := &partition.Partitioner{TileSize: 24, Filter: partition.New().Filter}
	first, err := p.Partition(src, 1)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	second, err := p.Partition(src, 1)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	for pix := range first {
		if !cmp.Equal(first[pix].Pix, second[pix].Pix) {
			t.Errorf("tile %d differs between runs", pix)
		}
	}
}

func TestPartitionErrors(t *testing.T) {
	if _, err := partition.New().Partition(nil, 0); !errors.Is(err, tile.ErrInvalidSource) {
		t.Errorf("Partition(nil) error = %v, want = %v", err, tile.ErrInvalidSource)
	}
	if _, err := partition.New().Partition(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 0); !errors.Is(err, tile.ErrInvalidSource) {
		t.Errorf("Partition(empty) error = %v, want = %v", err, tile.ErrInvalidSource)
	}

	p := &partition.Partitioner{TileSize: 0, Filter: partition.New().Filter}
	tiles, err := p.Partition(internal.Gradient(64, 64), 0)
	if !errors.Is(err, tile.ErrResampleFailure) {
		t.Fatalf("Partition(TileSize=0) error = %v, want = %v", err, tile.ErrResampleFailure)
	}
	if tiles != nil {
		t.Errorf("Partition returned %d tiles on failure", len(tiles))
	}
	var tileErr *tile.Error
	if !errors.As(err, &tileErr) || tileErr.ID != (tile.ID{Order: 0, Pix: 0}) {
		t.Errorf("Partition error = %v, want tile.Error for 0/0", err)
	}
}
