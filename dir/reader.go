package dir

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/eak1mov/go-hips/codec"
	"github.com/eak1mov/go-hips/properties"
	"github.com/eak1mov/go-hips/tile"
)

// Reader implements tile.Reader interface for the HiPS directory layout.
type Reader struct {
	rootDir    string
	pattern    string
	ext        string
	pathRegexp *regexp.Regexp
}

// NewReader creates a new Reader for the pyramid rooted at rootDir. Without
// WithExt the tile extension comes from the descriptor's hips_tile_format,
// falling back to "jpg".
func NewReader(rootDir string, opts ...Option) (*Reader, error) {
	c := newConfig(opts)
	if err := validatePattern(c.pattern); err != nil {
		return nil, err
	}

	ext := c.ext
	if ext == "" {
		ext = codec.FormatJPEG.Ext()
		if p, err := readProperties(filepath.Join(rootDir, propertiesFile)); err == nil {
			if value, ok := p.Get(properties.KeyTileFormat); ok {
				if format, err := codec.ParseFormat(value); err == nil {
					ext = format.Ext()
				}
			}
		}
	}

	pathRegexp, err := patternRegexp(c.pattern, ext)
	if err != nil {
		return nil, err
	}

	return &Reader{rootDir: rootDir, pattern: c.pattern, ext: ext, pathRegexp: pathRegexp}, nil
}

func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	return r.readFile(formatPattern(r.pattern, tileID, r.ext))
}

func (r *Reader) ReadAllsky(order int) ([]byte, error) {
	return r.readFile(formatPattern(allskyPattern, tile.ID{Order: order}, r.ext))
}

func (r *Reader) ReadProperties() (*properties.Properties, error) {
	return readProperties(filepath.Join(r.rootDir, propertiesFile))
}

func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return filepath.WalkDir(r.rootDir, func(filePath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(r.rootDir, filePath)
		if err != nil {
			return err
		}
		matches := r.pathRegexp.FindStringSubmatch(filepath.ToSlash(relPath))
		if matches == nil {
			return nil
		}

		order, _ := strconv.Atoi(matches[r.pathRegexp.SubexpIndex("order")])
		pix, _ := strconv.Atoi(matches[r.pathRegexp.SubexpIndex("npix")])
		tileID := tile.ID{Order: order, Pix: pix}
		if !tileID.Valid() {
			return nil
		}

		tileData, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}
		return visitor(tileID, tileData)
	})
}

func (r *Reader) readFile(relPath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(r.rootDir, filepath.FromSlash(relPath)))
	if errors.Is(err, os.ErrNotExist) {
		return make([]byte, 0), nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}
