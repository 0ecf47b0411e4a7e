package main

import (
	"flag"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/eak1mov/go-hips/codec"
	"github.com/eak1mov/go-hips/partition"
	"github.com/eak1mov/go-hips/properties"
	"github.com/eak1mov/go-hips/pyramid"
)

// generateConfig holds the generate settings. It is filled from an optional TOML
// file first; flags given on the command line win.
type generateConfig struct {
	Title      string `toml:"title"`
	CreatorDID string `toml:"creator_did"`
	Collection string `toml:"collection"`
	Frame      string `toml:"frame"`
	Category   string `toml:"category"`

	Format  string `toml:"format"`
	Quality int    `toml:"quality"`
	Colors  int    `toml:"colors"`

	MaxOrder   int `toml:"max_order"`
	Workers    int `toml:"workers"`
	TileSize   int `toml:"tile_size"`
	AllskyCell int `toml:"allsky_cell"`
}

const defaultMaxOrder = 3

func (c *generateConfig) setFlags(f *flag.FlagSet) {
	f.StringVar(&c.Title, "title", "", "Survey title (obs_title)")
	f.StringVar(&c.CreatorDID, "creator_did", "", "Creator DID, derived from collection and title when empty")
	f.StringVar(&c.Collection, "collection", properties.DefaultCollection, "Collection name (obs_collection)")
	f.StringVar(&c.Frame, "frame", properties.DefaultFrame, "Coordinate frame (hips_frame)")
	f.StringVar(&c.Category, "category", properties.DefaultCategory, "Client category (client_category)")
	f.StringVar(&c.Format, "format", "jpg", "Tile format (jpg, png)")
	f.IntVar(&c.Quality, "quality", codec.DefaultQuality, "JPEG quality, 1..100")
	f.IntVar(&c.Colors, "colors", 0, "PNG palette size, 0 keeps full color")
	f.IntVar(&c.MaxOrder, "order", defaultMaxOrder, "Maximum order to generate")
	f.IntVar(&c.Workers, "workers", runtime.GOMAXPROCS(0), "Number of tiles processed at once")
	f.IntVar(&c.TileSize, "tile_size", partition.DefaultTileSize, "Tile edge length in pixels")
	f.IntVar(&c.AllskyCell, "allsky_cell", pyramid.DefaultAllskyCellSize, "Edge length of one tile in the Allsky mosaic")
}

// loadConfig decodes the TOML file into c and then re-applies the flags that were
// set explicitly on f, so they take precedence.
func (c *generateConfig) loadConfig(filePath string, f *flag.FlagSet) error {
	explicit := make(map[string]string)
	f.Visit(func(fl *flag.Flag) {
		explicit[fl.Name] = fl.Value.String()
	})

	if _, err := toml.DecodeFile(filePath, c); err != nil {
		return err
	}

	for name, value := range explicit {
		if err := f.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

func (c *generateConfig) encoder() (codec.Encoder, error) {
	format, err := codec.ParseFormat(c.Format)
	if err != nil {
		return codec.Encoder{}, err
	}
	return codec.Encoder{Format: format, Quality: c.Quality, Colors: c.Colors}, nil
}

func (c *generateConfig) descriptor() properties.Descriptor {
	return properties.Descriptor{
		CreatorDID: c.CreatorDID,
		Collection: c.Collection,
		Title:      c.Title,
		Frame:      c.Frame,
		Category:   c.Category,
	}
}
