package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/eak1mov/go-hips/properties"
	"github.com/eak1mov/go-hips/tile"
)

// Reader implements tile.Reader interface for the SQLite layout.
type Reader struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// NewReader creates a new Reader for the given database file path.
//
// The returned Reader must be closed after use to release database resources.
func NewReader(filePath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", filePath))
	if err != nil {
		return nil, err
	}

	stmt, err := db.Prepare("SELECT tile_data FROM tiles WHERE hips_order = ? AND npix = ?")
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Reader{db: db, stmt: stmt}, nil
}

func (r *Reader) Close() error {
	return errors.Join(r.stmt.Close(), r.db.Close())
}

func (r *Reader) ReadProperties() (*properties.Properties, error) {
	p := properties.New()

	rows, err := r.db.Query("SELECT name, value FROM metadata ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		p.Set(name, value)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return p, nil
}

func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	var tileData []byte
	if err := r.stmt.QueryRow(tileID.Order, tileID.Pix).Scan(&tileData); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return make([]byte, 0), nil
		}
		return nil, err
	}
	return tileData, nil
}

func (r *Reader) ReadAllsky(order int) ([]byte, error) {
	var data []byte
	if err := r.db.QueryRow("SELECT data FROM allsky WHERE hips_order = ?", order).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return make([]byte, 0), nil
		}
		return nil, err
	}
	return data, nil
}

// VisitTiles visits tiles ordered by order and pixel index.
func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	rows, err := r.db.Query("SELECT hips_order, npix, tile_data FROM tiles ORDER BY hips_order, npix")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var order, pix int
		var tileData []byte

		if err := rows.Scan(&order, &pix, &tileData); err != nil {
			return err
		}

		if err := visitor(tile.ID{Order: order, Pix: pix}, tileData); err != nil {
			return err
		}
	}

	return rows.Err()
}
