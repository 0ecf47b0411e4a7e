// Package db provides API for reading and writing HiPS pyramids in a single SQLite
// database file.
//
// Note: User must properly initialize the sqlite3 library generic driver
// (e.g. import _ "github.com/mattn/go-sqlite3") before using this package.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eak1mov/go-hips/properties"
	"github.com/eak1mov/go-hips/tile"
)

const schema = `
	CREATE TABLE IF NOT EXISTS metadata (name TEXT PRIMARY KEY, value TEXT);
	CREATE TABLE IF NOT EXISTS tiles (
		hips_order INTEGER,
		npix INTEGER,
		tile_data BLOB,
		PRIMARY KEY (hips_order, npix)
	);
	CREATE TABLE IF NOT EXISTS allsky (hips_order INTEGER PRIMARY KEY, data BLOB);
`

// Writer implements tile.Writer interface for the SQLite layout.
// All writes happen in one transaction committed by Finalize.
type Writer struct {
	db       *sql.DB
	tx       *sql.Tx
	tileStmt *sql.Stmt
	logger   *slog.Logger
	tiles    int
}

type writerConfig struct {
	Logger *slog.Logger
}

type WriterOption func(*writerConfig)

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

// NewWriter opens or creates the database at filePath and prepares it for writing.
// Rewriting a tile that already exists replaces it.
func NewWriter(filePath string, opts ...WriterOption) (*Writer, error) {
	config := writerConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	var err error
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	if _, err = db.Exec(schema); err != nil {
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}

	tileStmt, err := tx.Prepare("INSERT OR REPLACE INTO tiles (hips_order, npix, tile_data) VALUES (?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	return &Writer{db: db, tx: tx, tileStmt: tileStmt, logger: config.Logger}, nil
}

// Close releases database resources. Writes not committed by Finalize are discarded.
func (w *Writer) Close() error {
	var errs []error
	if w.tx != nil {
		errs = append(errs, w.tileStmt.Close(), w.tx.Rollback())
	}
	return errors.Join(append(errs, w.db.Close())...)
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if !tileID.Valid() {
		return fmt.Errorf("%w: tile %v", tile.ErrInvalidIndex, tileID)
	}
	if _, err := w.tileStmt.Exec(tileID.Order, tileID.Pix, tileData); err != nil {
		return err
	}
	w.tiles++
	return nil
}

func (w *Writer) WriteAllsky(order int, data []byte) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if order < 0 || order > tile.MaxOrder {
		return fmt.Errorf("%w: allsky order %d", tile.ErrInvalidIndex, order)
	}
	_, err := w.tx.Exec("INSERT OR REPLACE INTO allsky (hips_order, data) VALUES (?, ?)", order, data)
	return err
}

// WriteProperties upserts every key of p; keys already present keep their position.
func (w *Writer) WriteProperties(p *properties.Properties) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	for _, key := range p.Keys() {
		value, _ := p.Get(key)
		_, err := w.tx.Exec(`
			INSERT INTO metadata (name, value) VALUES (?, ?)
			ON CONFLICT (name) DO UPDATE SET value = excluded.value`, key, value)
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) Finalize() error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	w.logger.Debug("hips: committing tiles", "count", w.tiles)

	err := errors.Join(w.tileStmt.Close(), w.tx.Commit())
	w.tx, w.tileStmt = nil, nil
	if err != nil {
		return err
	}

	w.logger.Debug("hips: done!")
	return nil
}

var errFinalized = errors.New("hips: writer already finalized")

func (w *Writer) checkOpen() error {
	if w.tx == nil {
		return errFinalized
	}
	return nil
}
