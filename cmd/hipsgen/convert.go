package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/eak1mov/go-hips/codec"
	"github.com/eak1mov/go-hips/properties"
	"github.com/eak1mov/go-hips/tile"
	"github.com/google/subcommands"
)

type convertCmd struct {
	inputFormat  string
	inputPath    string
	outputFormat string
	outputPath   string
}

func (c *convertCmd) Name() string     { return "convert" }
func (c *convertCmd) Synopsis() string { return "convert a pyramid between storage layouts" }
func (c *convertCmd) Usage() string {
	return "hipsgen convert -i <path> -o <path> [-if <format> | -of <format>]\n"
}
func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input layout (dir, sqlite, pack)")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output layout (dir, sqlite, pack)")
}

// tileExt returns the tile file extension recorded in the descriptor, jpg if unknown.
func tileExt(p *properties.Properties) string {
	if value, ok := p.Get(properties.KeyTileFormat); ok {
		if format, err := codec.ParseFormat(value); err == nil {
			return format.Ext()
		}
	}
	return codec.FormatJPEG.Ext()
}

// convertPyramid copies tiles, Allsky mosaics and the descriptor from reader to writer,
// then finalizes the writer.
func convertPyramid(reader layoutReader, writer tile.Writer, p *properties.Properties, onTile func()) error {
	err := reader.VisitTiles(func(tileID tile.ID, tileData []byte) error {
		if err := writer.WriteTile(tileID, tileData); err != nil {
			return &tile.Error{ID: tileID, Err: err}
		}
		onTile()
		return nil
	})
	if err != nil {
		return err
	}

	if maxOrder, err := p.Order(); err == nil {
		for order := 0; order <= maxOrder && order <= tile.MaxOrder; order++ {
			data, err := reader.ReadAllsky(order)
			if err != nil {
				return err
			}
			if len(data) == 0 {
				continue
			}
			if err := writer.WriteAllsky(order, data); err != nil {
				return fmt.Errorf("allsky of order %d: %w", order, err)
			}
		}
	}

	if p.Len() > 0 {
		if err := writer.WriteProperties(p); err != nil {
			return err
		}
	}
	return writer.Finalize()
}

func (c *convertCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	logger := loggerFromContext(ctx)
	fail := func(err error) subcommands.ExitStatus {
		logger.Error("hips: convert failed", "err", err)
		return subcommands.ExitFailure
	}

	reader, err := openReader(deduceFormat(c.inputFormat, c.inputPath), c.inputPath)
	if err != nil {
		return fail(err)
	}
	defer closeIfCloser(reader)

	p, err := reader.ReadProperties()
	if err != nil {
		logger.Warn("hips: no descriptor, copying tiles only", "err", err)
		p = properties.New()
	}

	writer, err := openWriter(deduceFormat(c.outputFormat, c.outputPath), c.outputPath, tileExt(p), logger)
	if err != nil {
		return fail(err)
	}
	defer closeIfCloser(writer)

	bar := newBar(-1, "tiles")
	err = convertPyramid(reader, writer, p, func() { bar.Add(1) })
	bar.Finish()
	if err != nil {
		return fail(err)
	}

	return subcommands.ExitSuccess
}
