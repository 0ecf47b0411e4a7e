package dir

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/eak1mov/go-hips/properties"
	"github.com/eak1mov/go-hips/tile"
)

type config struct {
	pattern string
	ext     string
	logger  *slog.Logger
}

type Option func(*config)

// WithPattern overrides DefaultPattern. The pattern is relative to the root
// directory and must contain {order} and {npix}; {dir} and {ext} are optional.
func WithPattern(pattern string) Option {
	return func(c *config) { c.pattern = pattern }
}

// WithExt sets the tile file extension for a Reader, instead of deducing it
// from the descriptor.
func WithExt(ext string) Option {
	return func(c *config) { c.ext = ext }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func newConfig(opts []Option) config {
	c := config{
		pattern: DefaultPattern,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Writer implements tile.Writer interface for the HiPS directory layout.
// Directories are created on demand and existing files are overwritten.
type Writer struct {
	rootDir string
	pattern string
	ext     string
	logger  *slog.Logger
	dirs    map[string]struct{}
}

// NewWriter creates a new Writer rooted at rootDir, writing tiles with the given
// file extension (e.g. "jpg").
func NewWriter(rootDir, ext string, opts ...Option) (*Writer, error) {
	c := newConfig(opts)
	if err := validatePattern(c.pattern); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, err
	}
	return &Writer{
		rootDir: rootDir,
		pattern: c.pattern,
		ext:     ext,
		logger:  c.logger,
		dirs:    make(map[string]struct{}),
	}, nil
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if !tileID.Valid() {
		return fmt.Errorf("%w: tile %v", tile.ErrInvalidIndex, tileID)
	}
	return w.writeFile(formatPattern(w.pattern, tileID, w.ext), tileData)
}

// WriteAllsky writes Norder{order}/Allsky.{ext}; the order-0 mosaic is also written
// at the root.
func (w *Writer) WriteAllsky(order int, data []byte) error {
	if order < 0 || order > tile.MaxOrder {
		return fmt.Errorf("%w: allsky order %d", tile.ErrInvalidIndex, order)
	}
	if err := w.writeFile(formatPattern(allskyPattern, tile.ID{Order: order}, w.ext), data); err != nil {
		return err
	}
	if order == 0 {
		return w.writeFile("Allsky."+w.ext, data)
	}
	return nil
}

// WriteProperties merges p into the existing descriptor, if any.
func (w *Writer) WriteProperties(p *properties.Properties) error {
	filePath := filepath.Join(w.rootDir, propertiesFile)

	merged, err := readProperties(filePath)
	if errors.Is(err, os.ErrNotExist) {
		merged = properties.New()
	} else if err != nil {
		return err
	}
	merged.Merge(p)

	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	if _, err := merged.WriteTo(file); err != nil {
		file.Close()
		return err
	}
	w.logger.Debug("hips: wrote properties", "path", filePath)
	return file.Close()
}

func (w *Writer) Finalize() error {
	return nil
}

func (w *Writer) writeFile(relPath string, data []byte) error {
	filePath := filepath.Join(w.rootDir, filepath.FromSlash(relPath))

	dirPath := filepath.Dir(filePath)
	if _, ok := w.dirs[dirPath]; !ok {
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			return err
		}
		w.dirs[dirPath] = struct{}{}
	}

	return os.WriteFile(filePath, data, 0644)
}

func readProperties(filePath string) (*properties.Properties, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return properties.Parse(file)
}
