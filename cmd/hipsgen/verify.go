package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"

	"github.com/eak1mov/go-hips/grid"
	"github.com/eak1mov/go-hips/tile"
	"github.com/google/subcommands"
)

type verifyCmd struct {
	inputFormat string
	inputPath   string
}

func (c *verifyCmd) Name() string     { return "verify" }
func (c *verifyCmd) Synopsis() string { return "check that a pyramid holds every tile up to hips_order" }
func (c *verifyCmd) Usage() string {
	return "hipsgen verify -i <path> [-if <format>]\n"
}
func (c *verifyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input layout (dir, sqlite, pack)")
}

// verifyReport counts what a pyramid lacks.
type verifyReport struct {
	MaxOrder      int
	Tiles         int
	MissingTiles  int
	MissingAllsky int
}

func (r verifyReport) ok() bool {
	return r.MissingTiles == 0 && r.MissingAllsky == 0
}

// verifyPyramid reads hips_order from the descriptor and looks up every tile and
// Allsky mosaic of orders 0..hips_order.
func verifyPyramid(ctx context.Context, reader tile.Reader, logger *slog.Logger) (verifyReport, error) {
	p, err := reader.ReadProperties()
	if err != nil {
		return verifyReport{}, err
	}
	maxOrder, err := p.Order()
	if err != nil {
		return verifyReport{}, err
	}
	if maxOrder < 0 || maxOrder > tile.MaxOrder {
		return verifyReport{}, fmt.Errorf("%w: hips_order %d", tile.ErrInvalidIndex, maxOrder)
	}

	report := verifyReport{MaxOrder: maxOrder}
	for tileID := range tile.IDs(maxOrder) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Tiles++

		data, err := reader.ReadTile(tileID)
		if err != nil {
			return report, &tile.Error{ID: tileID, Err: err}
		}
		if len(data) == 0 {
			c, _ := grid.IndexToGrid(tileID.Order, tileID.Pix)
			logger.Warn("hips: missing tile", "order", tileID.Order, "pix", tileID.Pix, "x", c.X, "y", c.Y)
			report.MissingTiles++
		}
	}

	for order := 0; order <= maxOrder; order++ {
		data, err := reader.ReadAllsky(order)
		if err != nil {
			return report, err
		}
		if len(data) == 0 {
			logger.Warn("hips: missing allsky", "order", order)
			report.MissingAllsky++
		}
	}
	return report, nil
}

func (c *verifyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	logger := loggerFromContext(ctx)

	reader, err := openReader(deduceFormat(c.inputFormat, c.inputPath), c.inputPath)
	if err != nil {
		logger.Error("hips: verify failed", "err", err)
		return subcommands.ExitFailure
	}
	defer closeIfCloser(reader)

	report, err := verifyPyramid(ctx, reader, logger)
	if err != nil {
		logger.Error("hips: verify failed", "err", err)
		return subcommands.ExitFailure
	}

	logger.Info("hips: verified",
		"max_order", report.MaxOrder,
		"tiles", report.Tiles,
		"missing_tiles", report.MissingTiles,
		"missing_allsky", report.MissingAllsky)
	if !report.ok() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
