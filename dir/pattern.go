// Package dir provides API for reading and writing HiPS pyramids as a directory tree,
// where tiles are stored as individual files with paths like "Norder3/Dir0/Npix42.jpg".
package dir

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/eak1mov/go-hips/tile"
)

const (
	// DefaultPattern is the tile path convention tile-based sky viewers request.
	DefaultPattern = "Norder{order}/Dir{dir}/Npix{npix}.{ext}"

	allskyPattern  = "Norder{order}/Allsky.{ext}"
	propertiesFile = "properties"
)

var ErrInvalidPattern = errors.New("hips: invalid file pattern")

func validatePattern(pattern string) error {
	for _, p := range []string{"{order}", "{npix}"} {
		if !strings.Contains(pattern, p) {
			return fmt.Errorf("%w: placeholder %v not found", ErrInvalidPattern, p)
		}
	}
	return nil
}

func formatPattern(pattern string, tileID tile.ID, ext string) string {
	return strings.NewReplacer(
		"{order}", strconv.Itoa(tileID.Order),
		"{dir}", strconv.Itoa(tileID.Bucket()),
		"{npix}", strconv.Itoa(tileID.Pix),
		"{ext}", ext,
	).Replace(pattern)
}

// patternRegexp matches slash-separated paths relative to the root directory.
func patternRegexp(pattern, ext string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(pattern)
	expr := strings.NewReplacer(
		regexp.QuoteMeta("{order}"), `(?P<order>\d+)`,
		regexp.QuoteMeta("{dir}"), `\d+`,
		regexp.QuoteMeta("{npix}"), `(?P<npix>\d+)`,
		regexp.QuoteMeta("{ext}"), regexp.QuoteMeta(ext),
	).Replace(quoted)
	re, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return re, nil
}
