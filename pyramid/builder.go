// Package pyramid drives tile generation across orders 0..maxOrder.
//
// A Builder partitions the source once per order, resampling it first according to
// its UpscaleFunc, and hands every tile to a Sink. The twelve order-0 tiles are also
// composed into an Allsky mosaic, which the Sink receives once per completed order.
// The builder performs no I/O itself.
package pyramid

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"runtime"

	"github.com/disintegration/imaging"
	"github.com/eak1mov/go-hips/partition"
	"github.com/eak1mov/go-hips/tile"
	"golang.org/x/sync/errgroup"
)

// Tile is one generated tile.
type Tile struct {
	tile.ID
	Bucket int
	Image  *image.NRGBA
}

// Sink receives the output of a build. Its methods may be called concurrently
// and in any order of pixel index.
type Sink interface {
	PutTile(t Tile) error
	PutAllsky(order int, img image.Image) error
}

// UpscaleFunc returns the size the source is resampled to before an order is
// partitioned. Returning the source size skips resampling.
type UpscaleFunc func(order int, size image.Point) image.Point

// QuarterScale keeps the source for order 0 and scales it by 2^order/4 otherwise:
// order 1 halves it, order 2 keeps it, and each further order doubles it.
func QuarterScale(order int, size image.Point) image.Point {
	if order == 0 {
		return size
	}
	scale := 1 << order
	return image.Pt(size.X*scale/4, size.Y*scale/4)
}

// Result reports a completed build.
type Result struct {
	MaxOrder int
	Tiles    int
}

type Builder struct {
	partitioner *partition.Partitioner
	upscale     UpscaleFunc
	workers     int
	allskyCell  int
	logger      *slog.Logger
}

type Option func(*Builder)

func WithPartitioner(p *partition.Partitioner) Option {
	return func(b *Builder) { b.partitioner = p }
}

func WithUpscale(f UpscaleFunc) Option {
	return func(b *Builder) { b.upscale = f }
}

// WithWorkers bounds the number of tiles processed at once.
func WithWorkers(n int) Option {
	return func(b *Builder) { b.workers = n }
}

// WithAllskyCellSize sets the edge length of one tile inside the Allsky mosaic.
func WithAllskyCellSize(n int) Option {
	return func(b *Builder) { b.allskyCell = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		partitioner: partition.New(),
		upscale:     QuarterScale,
		workers:     runtime.GOMAXPROCS(0),
		allskyCell:  DefaultAllskyCellSize,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers < 1 {
		b.workers = 1
	}
	return b
}

// TileSize returns the edge length of generated tiles.
func (b *Builder) TileSize() int {
	return b.partitioner.TileSize
}

// Build generates orders 0..maxOrder. A failure in any order aborts the build and is
// returned unchanged in kind; tiles already handed to the sink do not form a valid
// pyramid in that case.
func (b *Builder) Build(ctx context.Context, src image.Image, maxOrder int, sink Sink) (Result, error) {
	if src == nil || src.Bounds().Empty() {
		return Result{}, fmt.Errorf("%w: empty source", tile.ErrInvalidSource)
	}
	if maxOrder < 0 || maxOrder > tile.MaxOrder {
		return Result{}, fmt.Errorf("%w: max order %d out of range [0, %d]", tile.ErrInvalidIndex, maxOrder, tile.MaxOrder)
	}

	result := Result{MaxOrder: maxOrder}
	var allsky *image.NRGBA

	for order := 0; order <= maxOrder; order++ {
		var baseTiles []*image.NRGBA
		if order == 0 {
			baseTiles = make([]*image.NRGBA, tile.TileCount(0))
		}

		n, err := b.buildOrder(ctx, src, order, sink, baseTiles)
		if err != nil {
			return Result{}, err
		}
		result.Tiles += n

		if order == 0 {
			allsky, err = Allsky(baseTiles, b.allskyCell)
			if err != nil {
				return Result{}, err
			}
		}
		if err := sink.PutAllsky(order, allsky); err != nil {
			return Result{}, fmt.Errorf("hips: allsky of order %d: %w", order, err)
		}

		b.logger.Info("hips: order complete", "order", order, "tiles", n)
	}

	return result, nil
}

// buildOrder generates every tile of one order. When baseTiles is non-nil each
// tile is also stored at its pixel index.
func (b *Builder) buildOrder(ctx context.Context, src image.Image, order int, sink Sink, baseTiles []*image.NRGBA) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	scaled, err := b.scale(src, order)
	if err != nil {
		return 0, err
	}
	g, err := partition.NewGeometry(scaled.Bounds(), order)
	if err != nil {
		return 0, fmt.Errorf("hips: order %d: %w", order, err)
	}

	b.logger.Debug("hips: partitioning",
		"order", order,
		"source", scaled.Bounds().Size(),
		"grid", g.GridSize,
		"crop", image.Pt(g.TileWidth, g.TileHeight))

	count := tile.TileCount(order)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.workers)

	for pix := range count {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			id := tile.ID{Order: order, Pix: pix}
			img, err := b.partitioner.Tile(scaled, g, pix)
			if err != nil {
				return &tile.Error{ID: id, Err: err}
			}
			if baseTiles != nil {
				baseTiles[pix] = img
			}
			if err := sink.PutTile(Tile{ID: id, Bucket: id.Bucket(), Image: img}); err != nil {
				return &tile.Error{ID: id, Err: err}
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

func (b *Builder) scale(src image.Image, order int) (image.Image, error) {
	size := src.Bounds().Size()
	want := b.upscale(order, size)
	if want == size {
		return src, nil
	}
	if want.X <= 0 || want.Y <= 0 {
		return nil, fmt.Errorf("%w: order %d scales %v source to %v", tile.ErrInvalidSource, order, size, want)
	}

	scaled := imaging.Resize(src, want.X, want.Y, b.partitioner.Filter)
	if got := scaled.Bounds().Size(); got != want {
		return nil, fmt.Errorf("%w: order %d resized source to %v, want %v", tile.ErrResampleFailure, order, got, want)
	}
	return scaled, nil
}
