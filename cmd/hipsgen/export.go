package main

import (
	"bufio"
	"context"
	"flag"
	"os"

	"github.com/eak1mov/go-hips/index"
	"github.com/eak1mov/go-hips/tile"
	"github.com/google/subcommands"
)

type exportCmd struct {
	inputFormat     string
	inputPath       string
	outputIndexPath string
	outputTilesPath string
}

func (c *exportCmd) Name() string     { return "export_index" }
func (c *exportCmd) Synopsis() string { return "export tile index and data from a pyramid" }
func (c *exportCmd) Usage() string {
	return "hipsgen export_index -i <path> -o <path> [-t <path> -if <format>]\n"
}
func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input layout (dir, sqlite, pack)")
	f.StringVar(&c.outputIndexPath, "o", "", "Output index file path")
	f.StringVar(&c.outputTilesPath, "t", "", "Output tiles file path, required unless the input is a pack archive")
}

// exportTiles writes every tile to a new data file and indexes it there.
func exportTiles(reader tile.Visitor, indexPath, tilesPath string, onTile func()) error {
	indexFile, err := os.Create(indexPath)
	if err != nil {
		return err
	}
	defer indexFile.Close()
	indexWriter := bufio.NewWriter(indexFile)

	tilesFile, err := os.Create(tilesPath)
	if err != nil {
		return err
	}
	defer tilesFile.Close()
	tilesWriter := bufio.NewWriter(tilesFile)
	tilesOffset := uint64(0)

	err = reader.VisitTiles(func(tileID tile.ID, tileData []byte) error {
		item := index.NewItem(tileID, tile.Location{Offset: tilesOffset, Length: uint64(len(tileData))})
		if err := index.WriteAll([]index.Item{item}, indexWriter); err != nil {
			return err
		}
		if _, err := tilesWriter.Write(tileData); err != nil {
			return err
		}
		tilesOffset += uint64(len(tileData))
		onTile()
		return nil
	})
	if err != nil {
		return err
	}

	if err := tilesWriter.Flush(); err != nil {
		return err
	}
	if err := indexWriter.Flush(); err != nil {
		return err
	}
	return tilesFile.Close()
}

// exportLocations indexes tiles in place, so the archive itself serves as the data file.
func exportLocations(reader tile.LocationVisitor, indexPath string) error {
	items := make([]index.Item, 0)
	for tileID, location := range tile.IterLocations(reader) {
		items = append(items, index.NewItem(tileID, location))
	}

	file, err := os.Create(indexPath)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := index.WriteAll(items, file); err != nil {
		return err
	}
	return file.Close()
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	logger := loggerFromContext(ctx)

	reader, err := openReader(deduceFormat(c.inputFormat, c.inputPath), c.inputPath)
	if err != nil {
		logger.Error("hips: export failed", "err", err)
		return subcommands.ExitFailure
	}
	defer closeIfCloser(reader)

	if visitor, ok := reader.(tile.LocationVisitor); ok && c.outputTilesPath == "" {
		err = exportLocations(visitor, c.outputIndexPath)
	} else {
		bar := newBar(-1, "tiles")
		err = exportTiles(reader, c.outputIndexPath, c.outputTilesPath, func() { bar.Add(1) })
		bar.Finish()
	}

	if err != nil {
		logger.Error("hips: export failed", "err", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
