package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"github.com/eak1mov/go-hips/codec"
	"github.com/eak1mov/go-hips/partition"
	"github.com/eak1mov/go-hips/pyramid"
	"github.com/eak1mov/go-hips/tile"
	"github.com/google/subcommands"
)

type generateCmd struct {
	inputPath    string
	outputFormat string
	outputPath   string
	configPath   string
	config       generateConfig
}

func (c *generateCmd) Name() string     { return "generate" }
func (c *generateCmd) Synopsis() string { return "generate a HiPS pyramid from an image" }
func (c *generateCmd) Usage() string {
	return "hipsgen generate -i <image> -o <path> [-of <format>] [-config <file.toml>] [-order <n>] ...\n"
}
func (c *generateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input image path")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output layout (dir, sqlite, pack)")
	f.StringVar(&c.configPath, "config", "", "TOML file with generate settings")
	c.config.setFlags(f)
}

func (c *generateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	logger := loggerFromContext(ctx)
	if err := c.run(ctx, f); err != nil {
		logger.Error("hips: generate failed", "err", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *generateCmd) run(ctx context.Context, f *flag.FlagSet) error {
	logger := loggerFromContext(ctx)

	if c.configPath != "" {
		if err := c.config.loadConfig(c.configPath, f); err != nil {
			return fmt.Errorf("config %s: %w", c.configPath, err)
		}
	}
	if c.inputPath == "" || c.outputPath == "" {
		return errors.New("both -i and -o are required")
	}

	encoder, err := c.config.encoder()
	if err != nil {
		return err
	}

	src, err := codec.Open(c.inputPath)
	if err != nil {
		return err
	}
	logger.Info("hips: loaded source", "path", c.inputPath, "size", src.Bounds().Size())

	writer, err := openWriter(deduceFormat(c.outputFormat, c.outputPath), c.outputPath, encoder.Format.Ext(), logger)
	if err != nil {
		return err
	}
	defer closeIfCloser(writer)

	builder := pyramid.NewBuilder(
		pyramid.WithPartitioner(&partition.Partitioner{TileSize: c.config.TileSize, Filter: imaging.Lanczos}),
		pyramid.WithWorkers(c.config.Workers),
		pyramid.WithAllskyCellSize(c.config.AllskyCell),
		pyramid.WithLogger(logger),
	)

	total := 0
	for order := 0; order <= c.config.MaxOrder && order <= tile.MaxOrder; order++ {
		total += tile.TileCount(order)
	}
	bar := newBar(total, "tiles")
	defer bar.Finish()

	sink := pyramid.NewWriterSink(writer, encoder)
	sink.OnTile = func(tile.ID) { bar.Add(1) }

	start := time.Now()
	result, err := pyramid.Generate(ctx, builder, src, c.config.MaxOrder, sink, c.config.descriptor())
	if err != nil {
		return err
	}
	since(logger, start, "hips: generated", "tiles", result.Tiles, "max_order", result.MaxOrder, "path", c.outputPath)
	return nil
}
