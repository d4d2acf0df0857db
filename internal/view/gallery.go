package view

import (
	"fmt"
	"html/template"
	"time"

	"github.com/imagegallery/internal/db"
)

// GalleryColumns is the fixed number of grid columns.
const GalleryColumns = 3

// Tile is one image in the gallery grid.
type Tile struct {
	ID          string
	Title       string
	Description template.HTML
	URL         string
	CreatedAt   time.Time
	Ago         string
}

// Gallery is the grid of image tiles.
type Gallery struct {
	Columns  int
	Tiles    []Tile
	Page     int
	HasMore  bool
	NextPage int
}

// DescriptionRenderer turns a stored description into display HTML.
type DescriptionRenderer func(string) template.HTML

// NewGallery builds the grid for one page of records. It does not modify
// the records.
func NewGallery(images []db.Image, page int, hasMore bool, render DescriptionRenderer, now time.Time) Gallery {
	if render == nil {
		render = func(s string) template.HTML { return template.HTML(template.HTMLEscapeString(s)) }
	}

	tiles := make([]Tile, 0, len(images))
	for _, img := range images {
		created := img.CreatedTime()
		tiles = append(tiles, Tile{
			ID:          img.ID,
			Title:       img.Title,
			Description: render(img.Description),
			URL:         img.URL,
			CreatedAt:   created,
			Ago:         FormatRelativeTime(now, created),
		})
	}

	return Gallery{
		Columns:  GalleryColumns,
		Tiles:    tiles,
		Page:     page,
		HasMore:  hasMore,
		NextPage: page + 1,
	}
}

// Rows splits the tiles into rows of Columns tiles; the last row may be short.
func (g Gallery) Rows() [][]Tile {
	cols := g.Columns
	if cols <= 0 {
		cols = GalleryColumns
	}
	rows := make([][]Tile, 0, (len(g.Tiles)+cols-1)/cols)
	for start := 0; start < len(g.Tiles); start += cols {
		end := start + cols
		if end > len(g.Tiles) {
			end = len(g.Tiles)
		}
		rows = append(rows, g.Tiles[start:end])
	}
	return rows
}

// FormatRelativeTime renders t relative to now, e.g. "5 minutes ago".
func FormatRelativeTime(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	if diff < time.Minute {
		return "just now"
	}

	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s ago", unit)
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case diff < time.Hour:
		return plural(int(diff/time.Minute), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff/time.Hour), "hour")
	case diff < 30*24*time.Hour:
		return plural(int(diff/(24*time.Hour)), "day")
	case diff < 365*24*time.Hour:
		return plural(int(diff/(30*24*time.Hour)), "month")
	default:
		return plural(int(diff/(365*24*time.Hour)), "year")
	}
}
