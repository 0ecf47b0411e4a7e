package main

import (
	"cmp"
	"context"
	"flag"
	"os"
	"slices"

	"github.com/eak1mov/go-hips/index"
	"github.com/eak1mov/go-hips/tile"
	"github.com/google/subcommands"
)

type importCmd struct {
	inputIndexPath string
	inputTilesPath string
	outputFormat   string
	outputPath     string
	tileExt        string
}

func (c *importCmd) Name() string     { return "import_index" }
func (c *importCmd) Synopsis() string { return "create a pyramid from exported tile index and data" }
func (c *importCmd) Usage() string {
	return "hipsgen import_index -i <path> -t <path> -o <path> [-of <format>] [-ext <ext>]\n"
}
func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputIndexPath, "i", "", "Input index file path")
	f.StringVar(&c.inputTilesPath, "t", "", "Input tiles file path")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output layout (dir, sqlite, pack)")
	f.StringVar(&c.tileExt, "ext", "jpg", "Tile file extension for the dir layout")
}

// importTiles writes the indexed tiles to writer in data file order and finalizes it.
func importTiles(items []index.Item, tilesFile *os.File, writer tile.Writer, onTile func()) error {
	if len(items) > 0 {
		maxLength := slices.MaxFunc(items, func(a, b index.Item) int {
			return cmp.Compare(a.Length, b.Length)
		}).Length
		buffer := make([]byte, maxLength)

		slices.SortFunc(items, func(a, b index.Item) int {
			return cmp.Compare(a.Offset, b.Offset)
		})

		for _, item := range items {
			tileData := buffer[:item.Length]
			if _, err := tilesFile.ReadAt(tileData, int64(item.Offset)); err != nil {
				return err
			}
			if err := writer.WriteTile(item.TileID(), tileData); err != nil {
				return &tile.Error{ID: item.TileID(), Err: err}
			}
			onTile()
		}
	}
	return writer.Finalize()
}

func (c *importCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	logger := loggerFromContext(ctx)
	fail := func(err error) subcommands.ExitStatus {
		logger.Error("hips: import failed", "err", err)
		return subcommands.ExitFailure
	}

	indexData, err := os.ReadFile(c.inputIndexPath)
	if err != nil {
		return fail(err)
	}
	items, err := index.ReadAll(indexData)
	if err != nil {
		return fail(err)
	}

	tilesFile, err := os.Open(c.inputTilesPath)
	if err != nil {
		return fail(err)
	}
	defer tilesFile.Close()

	writer, err := openWriter(deduceFormat(c.outputFormat, c.outputPath), c.outputPath, c.tileExt, logger)
	if err != nil {
		return fail(err)
	}
	defer closeIfCloser(writer)

	bar := newBar(len(items), "tiles")
	err = importTiles(items, tilesFile, writer, func() { bar.Add(1) })
	bar.Finish()
	if err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
