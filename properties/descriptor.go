package properties

import (
	"strconv"
	"strings"
	"time"
)

const (
	DefaultCollection = "HiPS"
	DefaultFrame      = "galactic"
	DefaultCategory   = "Image/Radio"
	DefaultSortKey    = "04-03-01"

	releaseDateLayout = "2006-01-02T15:04Z"
)

// Descriptor holds the fields a generated pyramid is described with.
type Descriptor struct {
	CreatorDID  string // derived from Collection and Title when empty
	Collection  string
	Title       string
	Frame       string
	Category    string
	SortKey     string
	TileFormat  string
	TileWidth   int
	Order       int
	ReleaseDate time.Time
}

// Properties renders the descriptor. Empty optional fields fall back to defaults.
func (d Descriptor) Properties() *Properties {
	collection := orDefault(d.Collection, DefaultCollection)
	creator := d.CreatorDID
	if creator == "" {
		creator = "urn:" + collection + ":" + strings.ReplaceAll(d.Title, " ", "_")
	}

	p := New()
	p.Set("creator_did", creator)
	p.Set("obs_collection", collection)
	p.Set("obs_title", d.Title)
	p.Set("hips_version", "1.4")
	p.Set("hips_release_date", d.ReleaseDate.UTC().Format(releaseDateLayout))
	p.Set("hips_status", "public master clonableOnce")
	p.Set(KeyOrder, strconv.Itoa(d.Order))
	p.Set("hips_frame", orDefault(d.Frame, DefaultFrame))
	p.Set("dataproduct_type", "image")
	p.Set(KeyTileFormat, d.TileFormat)
	if d.TileWidth > 0 {
		p.Set(KeyTileWidth, strconv.Itoa(d.TileWidth))
	}
	p.Set("client_category", orDefault(d.Category, DefaultCategory))
	p.Set("client_sort_key", orDefault(d.SortKey, DefaultSortKey))
	return p
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
