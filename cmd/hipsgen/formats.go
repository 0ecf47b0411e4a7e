package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/eak1mov/go-hips/db"
	"github.com/eak1mov/go-hips/dir"
	"github.com/eak1mov/go-hips/pack"
	"github.com/eak1mov/go-hips/tile"
	"github.com/schollz/progressbar/v3"
)

const (
	formatDir    = "dir"
	formatSQLite = "sqlite"
	formatPack   = "pack"

	packExt = ".hpk"
)

var errUnknownLayout = errors.New("unknown layout format")

var progressWriter io.Writer = os.Stderr

// deduceFormat picks the layout from the file extension unless format is given.
func deduceFormat(format, filePath string) string {
	if format != "" {
		return format
	}
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".db", ".sqlite", ".sqlite3":
		return formatSQLite
	case packExt:
		return formatPack
	}
	return formatDir
}

type layoutReader interface {
	tile.Reader
	tile.Visitor
}

func openReader(format, filePath string) (layoutReader, error) {
	switch format {
	case formatDir:
		return dir.NewReader(filePath)
	case formatSQLite:
		return db.NewReader(filePath)
	case formatPack:
		return pack.NewFileReader(filePath)
	}
	return nil, fmt.Errorf("%w: %q", errUnknownLayout, format)
}

// openWriter creates a layout writer; ext is the tile file extension used by the
// directory layout.
func openWriter(format, filePath, ext string, logger *slog.Logger) (tile.Writer, error) {
	switch format {
	case formatDir:
		return dir.NewWriter(filePath, ext, dir.WithLogger(logger))
	case formatSQLite:
		return db.NewWriter(filePath, db.WithLogger(logger))
	case formatPack:
		return pack.NewWriter(filePath, pack.WithLogger(logger))
	}
	return nil, fmt.Errorf("%w: %q", errUnknownLayout, format)
}

func closeIfCloser(v any) {
	if closer, ok := v.(io.Closer); ok {
		closer.Close()
	}
}

// newBar returns a progress bar on stderr; a negative total shows a spinner.
func newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(progressWriter),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowIts(),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(progressWriter) }),
	)
}
